package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"starlots/internal/domain/lots"
	pkgdb "starlots/pkg/database"
)

const lotColumns = `
	id, name, image_url, auction_duration, current_price, status,
	created_at, COALESCE(created_by, 0), deadline,
	last_bidder_id, last_bidder_username, last_bidder_first_name,
	winner_id, winner_username, winner_first_name, sold_at
`

// PostgresLotRepository implements lots.Repository using pgx
type PostgresLotRepository struct {
	pool *pgxpool.Pool // Keep pool for non-transactional reads
}

// NewPostgresLotRepository creates a new PostgreSQL lot repository
func NewPostgresLotRepository(pool *pgxpool.Pool) *PostgresLotRepository {
	return &PostgresLotRepository{pool: pool}
}

// CreateLot inserts a new lot and returns its assigned id
func (r *PostgresLotRepository) CreateLot(ctx context.Context, cmd lots.CreateLotCommand) (int64, error) {
	query := `
		INSERT INTO lots (name, image_url, auction_duration, created_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var lotID int64
	err := r.pool.QueryRow(ctx, query,
		cmd.Name,
		cmd.ImageURL,
		cmd.AuctionDuration,
		cmd.CreatedBy,
	).Scan(&lotID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert lot: %w", err)
	}
	return lotID, nil
}

// GetLotByID retrieves a lot by its ID (non-transactional read)
func (r *PostgresLotRepository) GetLotByID(ctx context.Context, lotID int64) (*lots.Lot, error) {
	return r.getLotByID(ctx, r.pool, lotID, false)
}

// GetLotByIDForUpdate retrieves a lot by its ID and locks its row (transactional).
// The row lock serializes concurrent bids and settlement on the same lot.
func (r *PostgresLotRepository) GetLotByIDForUpdate(ctx context.Context, tx pgx.Tx, lotID int64) (*lots.Lot, error) {
	return r.getLotByID(ctx, tx, lotID, true)
}

// getLotByID is the internal implementation that works with any DBTX
func (r *PostgresLotRepository) getLotByID(ctx context.Context, db pkgdb.DBTX, lotID int64, forUpdate bool) (*lots.Lot, error) {
	query := `SELECT ` + lotColumns + ` FROM lots WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	lot, err := scanLot(db.QueryRow(ctx, query, lotID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lots.ErrLotNotFound
		}
		return nil, fmt.Errorf("failed to get lot: %w", err)
	}
	return lot, nil
}

// ListActiveLots retrieves lots still open for bidding, newest first
func (r *PostgresLotRepository) ListActiveLots(ctx context.Context) ([]*lots.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE status = 'active'
		  AND (deadline IS NULL OR deadline > NOW())
		ORDER BY created_at DESC
	`
	return r.listLots(ctx, query)
}

// ListSoldLots retrieves settled lots ordered by settlement time descending
func (r *PostgresLotRepository) ListSoldLots(ctx context.Context, limit int) ([]*lots.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE status = 'sold'
		ORDER BY sold_at DESC
		LIMIT $1
	`
	return r.listLots(ctx, query, limit)
}

// ListExpiredLots retrieves active lots whose deadline has passed
func (r *PostgresLotRepository) ListExpiredLots(ctx context.Context, now time.Time) ([]*lots.Lot, error) {
	query := `
		SELECT ` + lotColumns + `
		FROM lots
		WHERE status = 'active'
		  AND deadline IS NOT NULL
		  AND deadline < $1
	`
	return r.listLots(ctx, query, now)
}

func (r *PostgresLotRepository) listLots(ctx context.Context, query string, args ...any) ([]*lots.Lot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lots: %w", err)
	}
	defer rows.Close()

	var result []*lots.Lot
	for rows.Next() {
		lot, scanErr := scanLot(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan lot: %w", scanErr)
		}
		result = append(result, lot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lots: %w", err)
	}

	return result, nil
}

// UpdateBidState applies an accepted bid to the lot row within a transaction
func (r *PostgresLotRepository) UpdateBidState(ctx context.Context, tx pgx.Tx, lotID int64, price int64, bidder lots.Bidder, deadline time.Time) error {
	query := `
		UPDATE lots
		SET current_price = $1,
		    last_bidder_id = $2,
		    last_bidder_username = NULLIF($3, ''),
		    last_bidder_first_name = NULLIF($4, ''),
		    deadline = $5
		WHERE id = $6
	`
	result, err := tx.Exec(ctx, query, price, bidder.ID, bidder.Username, bidder.FirstName, deadline, lotID)
	if err != nil {
		return fmt.Errorf("failed to update bid state: %w", err)
	}

	if result.RowsAffected() == 0 {
		return lots.ErrLotNotFound
	}

	return nil
}

// MarkSold settles the lot within a transaction. winner may be nil when the
// lot expired without bids.
func (r *PostgresLotRepository) MarkSold(ctx context.Context, tx pgx.Tx, lotID int64, winner *lots.Bidder, soldAt time.Time) error {
	query := `
		UPDATE lots
		SET status = 'sold',
		    sold_at = $1,
		    winner_id = $2,
		    winner_username = NULLIF($3, ''),
		    winner_first_name = NULLIF($4, '')
		WHERE id = $5
	`
	var (
		winnerID        *int64
		winnerUsername  string
		winnerFirstName string
	)
	if winner != nil {
		winnerID = &winner.ID
		winnerUsername = winner.Username
		winnerFirstName = winner.FirstName
	}

	result, err := tx.Exec(ctx, query, soldAt, winnerID, winnerUsername, winnerFirstName, lotID)
	if err != nil {
		return fmt.Errorf("failed to mark lot sold: %w", err)
	}

	if result.RowsAffected() == 0 {
		return lots.ErrLotNotFound
	}

	return nil
}

// scanLot maps a lot row, assembling the nullable leader and winner columns
// into embedded Bidder values.
func scanLot(row pgx.Row) (*lots.Lot, error) {
	var (
		lot                                lots.Lot
		lastBidderID, winnerID             *int64
		lastBidderUsername, lastBidderName *string
		winnerUsername, winnerName         *string
	)

	err := row.Scan(
		&lot.ID,
		&lot.Name,
		&lot.ImageURL,
		&lot.AuctionDuration,
		&lot.CurrentPrice,
		&lot.Status,
		&lot.CreatedAt,
		&lot.CreatedBy,
		&lot.Deadline,
		&lastBidderID,
		&lastBidderUsername,
		&lastBidderName,
		&winnerID,
		&winnerUsername,
		&winnerName,
		&lot.SoldAt,
	)
	if err != nil {
		return nil, err
	}

	lot.LastBidder = assembleBidder(lastBidderID, lastBidderUsername, lastBidderName)
	lot.Winner = assembleBidder(winnerID, winnerUsername, winnerName)
	return &lot, nil
}

func assembleBidder(id *int64, username, firstName *string) *lots.Bidder {
	if id == nil {
		return nil
	}
	b := &lots.Bidder{ID: *id}
	if username != nil {
		b.Username = *username
	}
	if firstName != nil {
		b.FirstName = *firstName
	}
	return b
}
