// Package app wires configuration, storage, messaging, and the entitlement
// engine into a runnable application container.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plumeapp/plume/internal/entitlements/application"
	"github.com/plumeapp/plume/internal/entitlements/domain"
	"github.com/plumeapp/plume/internal/entitlements/infrastructure/persistence"
	"github.com/plumeapp/plume/internal/shared/infrastructure/database"
	"github.com/plumeapp/plume/internal/shared/infrastructure/eventbus"
	"github.com/plumeapp/plume/migrations"
	"github.com/plumeapp/plume/pkg/config"
	"github.com/redis/go-redis/v9"
)

// Platform bundles the store-facing collaborators the engine cannot construct
// itself. Production wires the real billing bridge; local mode and tests wire
// the in-memory fake.
type Platform struct {
	Fetcher  domain.ProductFetcher
	Queue    domain.PaymentQueue
	Receipts domain.ReceiptProvider
	History  domain.TransactionHistory
}

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Database
	DBConn   *database.Connection
	DBDriver database.Driver

	// Redis
	RedisClient *redis.Client

	// Repositories
	SubscriptionRepo domain.SubscriptionRepository
	FinalizedStore   domain.FinalizedStore

	// Publishers
	EventPublisher eventbus.Publisher

	// Engine
	Engine *application.Engine
}

// NewContainer creates and wires all application dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, platform Platform) (*Container, error) {
	c := &Container{
		Config: cfg,
		Logger: logger,
	}

	conn, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	c.DBConn = conn
	c.DBDriver = conn.Driver()
	logger.Info("connected to database", "driver", c.DBDriver.String())

	if err := c.bootstrapSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	switch c.DBDriver {
	case database.DriverPostgres:
		c.SubscriptionRepo = persistence.NewPostgresSubscriptionRepository(conn.Pool())
	default:
		c.SubscriptionRepo = persistence.NewSQLiteSubscriptionRepository(conn.DB())
	}

	// Redis is optional: without it the finalized-transaction set lives in
	// memory and resets on restart.
	c.FinalizedStore = domain.NewMemoryFinalizedStore()
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			if !cfg.IsDevelopment() {
				conn.Close()
				return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
			}
			logger.Warn("invalid Redis URL, finalized transactions kept in memory", "error", err)
		} else {
			redisClient := redis.NewClient(opt)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				if !cfg.IsDevelopment() {
					conn.Close()
					return nil, fmt.Errorf("failed to connect to Redis: %w", err)
				}
				logger.Warn("Redis not available, finalized transactions kept in memory", "error", err)
			} else {
				c.RedisClient = redisClient
				c.FinalizedStore = persistence.NewRedisFinalizedStore(redisClient)
			}
		}
	}

	// Event publisher: RabbitMQ when configured, otherwise the in-process
	// bus so local subscribers still see subscription updates.
	if cfg.RabbitMQURL != "" {
		publisher, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			if !cfg.IsDevelopment() {
				conn.Close()
				return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
			}
			logger.Warn("RabbitMQ not available, using noop publisher", "error", err)
			c.EventPublisher = eventbus.NewNoopPublisher(logger)
		} else {
			c.EventPublisher = publisher
		}
	} else {
		c.EventPublisher = eventbus.NewInProcessBus(logger)
	}

	catalog := domain.NewCatalog(domain.DefaultProductTable(), cfg.ConsumableIDs)

	history := platform.History
	if !cfg.HistoryAPIEnabled {
		history = nil
	}

	c.Engine = application.NewEngine(application.EngineConfig{
		Catalog:       catalog,
		Fetcher:       platform.Fetcher,
		Queue:         platform.Queue,
		Receipts:      platform.Receipts,
		History:       history,
		Users:         &staticUserProvider{userID: cfg.UserID},
		Subscriptions: c.SubscriptionRepo,
		Publisher:     c.EventPublisher,
		Finalized:     c.FinalizedStore,

		CatalogTimeout: cfg.CatalogTimeout,
		RestoreTimeout: cfg.RestoreTimeout,
		DedupWindow:    cfg.DedupWindowSize,

		Logger: logger,
	})

	return c, nil
}

// bootstrapSchema applies the embedded schema so a fresh database is usable
// without a migration step. The statements are idempotent.
func (c *Container) bootstrapSchema(ctx context.Context) error {
	switch c.DBDriver {
	case database.DriverPostgres:
		schema, err := migrations.PostgresSchema()
		if err != nil {
			return fmt.Errorf("failed to load postgres schema: %w", err)
		}
		if _, err := c.DBConn.Pool().Exec(ctx, schema); err != nil {
			return fmt.Errorf("failed to apply postgres schema: %w", err)
		}
	default:
		schema, err := migrations.SQLiteSchema()
		if err != nil {
			return fmt.Errorf("failed to load sqlite schema: %w", err)
		}
		if _, err := c.DBConn.DB().ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to apply sqlite schema: %w", err)
		}
	}
	return nil
}

// Close releases container resources.
func (c *Container) Close() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Logger.Error("failed to close Redis client", "error", err)
		}
	}
	if closer, ok := c.EventPublisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			c.Logger.Error("failed to close event publisher", "error", err)
		}
	}
	if c.DBConn != nil {
		if err := c.DBConn.Close(); err != nil {
			c.Logger.Error("failed to close database", "error", err)
		}
	}
}

// staticUserProvider serves the configured device owner. A non-positive id
// resolves to no user, which the engine reports as a missing owner.
type staticUserProvider struct {
	userID int64
}

func (p *staticUserProvider) CurrentUser(context.Context) (*domain.User, error) {
	if p.userID <= 0 {
		return nil, nil
	}
	return &domain.User{ID: p.userID}, nil
}
