package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type DB struct {
	db *sql.DB
}

type Config struct {
	Host        string
	Port        int
	User        string
	Password    string
	Database    string
	SSLMode     string
	MaxConns    int
	MaxConnLife time.Duration
}

func New(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode)

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConns)
		sqlDB.SetMaxIdleConns(cfg.MaxConns)
	}
	if cfg.MaxConnLife > 0 {
		sqlDB.SetConnMaxLifetime(cfg.MaxConnLife)
	}

	// Test connection
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{db: sqlDB}
	if err := db.EnsureSchema(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// NewWithConn wraps an already opened connection pool.
func NewWithConn(sqlDB *sql.DB) *DB {
	return &DB{db: sqlDB}
}

func (db *DB) Close() error {
	return db.db.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS places (
	source_url   TEXT PRIMARY KEY,
	city         TEXT NOT NULL,
	place        TEXT,
	overview     TEXT,
	category     TEXT,
	address      TEXT,
	price        TEXT NOT NULL,
	rating       TEXT,
	review_count TEXT,
	latitude     DOUBLE PRECISION,
	longitude    DOUBLE PRECISION,
	run_id       TEXT NOT NULL,
	scraped_at   TIMESTAMPTZ NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_places_city ON places (city);
CREATE TABLE IF NOT EXISTS city_runs (
	run_id     TEXT NOT NULL,
	city       TEXT NOT NULL,
	status     TEXT NOT NULL,
	places     INTEGER NOT NULL DEFAULT 0,
	error      TEXT,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (run_id, city)
);`

func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Transaction executes a function within a database transaction
func (db *DB) Transaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = fmt.Errorf("tx rollback failed: %v (original error: %w)", rbErr, err)
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
