package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Connection is an open handle to the configured backend. Exactly one of
// Pool and DB is non-nil, matching Driver.
type Connection struct {
	driver Driver
	pool   *pgxpool.Pool
	db     *sql.DB
}

// Driver returns the backend type of this connection.
func (c *Connection) Driver() Driver { return c.driver }

// Pool returns the pgx pool for a PostgreSQL connection, nil otherwise.
func (c *Connection) Pool() *pgxpool.Pool { return c.pool }

// DB returns the sql handle for a SQLite connection, nil otherwise.
func (c *Connection) DB() *sql.DB { return c.db }

// Close releases the underlying connection resources.
func (c *Connection) Close() error {
	if c.pool != nil {
		c.pool.Close()
		return nil
	}
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Open creates a connection for the given URL, detecting the driver from its
// shape. An empty URL opens the default local SQLite database.
func Open(ctx context.Context, url string) (*Connection, error) {
	switch DetectDriver(url) {
	case DriverPostgres:
		return openPostgres(ctx, url)
	default:
		return openSQLite(ctx, url)
	}
}

func openPostgres(ctx context.Context, url string) (*Connection, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping PostgreSQL database: %w", err)
	}

	return &Connection{driver: DriverPostgres, pool: pool}, nil
}

func openSQLite(ctx context.Context, url string) (*Connection, error) {
	path := strings.TrimPrefix(url, "sqlite://")
	if path == "" {
		path = DefaultSQLitePath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Pragmas: WAL for concurrency, busy_timeout so writers wait on a lock
	// instead of failing immediately.
	dsn := path
	if strings.Contains(dsn, "?") {
		dsn += "&"
	} else {
		dsn += "?"
	}
	dsn += "_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite doesn't support multiple writers, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	return &Connection{driver: DriverSQLite, db: db}, nil
}

// DefaultSQLitePath returns the default local database path.
func DefaultSQLitePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}
	return filepath.Join(homeDir, ".plume", "data.db")
}
