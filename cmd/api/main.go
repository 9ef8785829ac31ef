package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"starlots/internal/adapters/api"
	"starlots/internal/adapters/cache"
	"starlots/internal/adapters/database"
	"starlots/internal/adapters/events"
	"starlots/internal/adapters/notifications"
	"starlots/internal/config"
	"starlots/internal/domain/bidding"
	"starlots/internal/domain/lots"
	"starlots/migrations"
	"starlots/pkg/auth"
	pkgdb "starlots/pkg/database"
)

const listingsCacheTTL = 5 * time.Second

func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Initialize Postgres Connection Pool
	dbConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Unable to parse database config", "error", err)
		os.Exit(1)
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		logger.Error("Unable to create connection pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pingErr := pool.Ping(ctx); pingErr != nil {
		logger.Error("Unable to ping database", "error", pingErr)
		os.Exit(1)
	}
	logger.Info("Postgres Connected")

	// 2. Apply migrations
	if err := applyMigrations(cfg.DatabaseURL); err != nil {
		logger.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("Migrations applied")

	// 3. Connect RabbitMQ
	amqpConn, err := amqp091.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("Failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()
	logger.Info("RabbitMQ Connected")

	publisher, err := events.NewRabbitMQPublisher(amqpConn)
	if err != nil {
		logger.Error("Failed to create RabbitMQ publisher", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// 4. Redis listings cache (optional)
	var listings *cache.ListingsCache
	if cfg.RedisURL != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisURL})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis connection failed, listings cache disabled", "error", err)
		} else {
			listings = cache.NewListingsCache(rdb, listingsCacheTTL, logger)
			logger.Info("Redis Connected")
		}
	}

	// 5. Initialize Repositories (Infrastructure Layer)
	txManager := pkgdb.NewPostgresTransactionManager(pool, cfg.DBLockTimeout)
	lotRepo := database.NewPostgresLotRepository(pool)
	bidRepo := database.NewPostgresBidRepository(pool)
	outboxRepo := database.NewPostgresOutboxRepository(pool)

	// 6. Initialize Services (Domain Layer)
	lotService := lots.NewService(lotRepo, bidRepo)
	bidService := bidding.NewService(txManager, lotRepo, bidRepo, outboxRepo, cfg.AuctionExtension)
	notifier := notifications.NewTelegramNotifier(cfg.TelegramBotToken, cfg.AdminChatID, logger)
	sweeper := bidding.NewSweeper(bidService, lotRepo, notifier, cfg.SweepInterval, logger)
	relay := events.NewOutboxRelay(outboxRepo, publisher, txManager, 10, time.Second, logger)

	// 7. Initialize HTTP API
	signer, err := auth.NewSigner(cfg.SecretKey, 0)
	if err != nil {
		logger.Error("Failed to create token signer", "error", err)
		os.Exit(1)
	}
	handler := api.NewHandler(lotService, bidService, notifier, listings, pool, cfg.AdminChatID, logger)
	router := api.NewRouter(handler, signer)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	// 8. Run server, sweeper and relay until shutdown
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting Expiry Sweeper", "interval", cfg.SweepInterval.String())
		return sweeper.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Starting Outbox Relay")
		return relay.Run(gctx)
	})

	g.Go(func() error {
		logger.Info("Starting Auction API", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Service stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Service stopped")
}

// applyMigrations runs the embedded goose migrations against the database
func applyMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open sql db for migrations: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(db, "."); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
