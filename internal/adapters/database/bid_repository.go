package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"starlots/internal/domain/lots"
)

// PostgresBidRepository implements lots.BidRepository using pgx
type PostgresBidRepository struct {
	pool *pgxpool.Pool // Keep pool for read-only operations
}

// NewPostgresBidRepository creates a new PostgreSQL bid repository
func NewPostgresBidRepository(pool *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{pool: pool}
}

// SaveBid appends a bid within a transaction. Bids are append-only: there
// is no update or delete path.
func (r *PostgresBidRepository) SaveBid(ctx context.Context, tx pgx.Tx, bid *lots.Bid) error {
	query := `
		INSERT INTO bids (id, lot_id, bidder_id, bidder_username, bidder_first_name, amount, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7)
	`
	_, err := tx.Exec(ctx, query,
		bid.ID,
		bid.LotID,
		bid.Bidder.ID,
		bid.Bidder.Username,
		bid.Bidder.FirstName,
		bid.Amount,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert bid: %w", err)
	}
	return nil
}

// ListBidsByLotID retrieves a lot's bids, newest first
func (r *PostgresBidRepository) ListBidsByLotID(ctx context.Context, lotID int64) ([]*lots.Bid, error) {
	query := `
		SELECT id, lot_id, bidder_id,
		       COALESCE(bidder_username, ''), COALESCE(bidder_first_name, ''),
		       amount, created_at
		FROM bids
		WHERE lot_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids: %w", err)
	}
	defer rows.Close()

	var result []*lots.Bid
	for rows.Next() {
		var bid lots.Bid
		if err := rows.Scan(
			&bid.ID,
			&bid.LotID,
			&bid.Bidder.ID,
			&bid.Bidder.Username,
			&bid.Bidder.FirstName,
			&bid.Amount,
			&bid.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bid: %w", err)
		}
		result = append(result, &bid)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bids: %w", err)
	}

	return result, nil
}
