package subscriber

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // Registers the "postgres" database/sql driver.

	domain "github.com/oshokin/help-alert/internal/domain/subscriber"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS subscribers (
	address     TEXT PRIMARY KEY,
	device_name TEXT NOT NULL DEFAULT '',
	credentials BYTEA NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const (
	postgresListQuery = `SELECT device_name, address, credentials FROM subscribers ORDER BY created_at, address`
	postgresFindQuery = `SELECT device_name, address, credentials FROM subscribers WHERE address = $1`

	// xmax is zero only for a freshly inserted tuple.
	postgresUpsertQuery = `INSERT INTO subscribers (address, device_name, credentials)
VALUES ($1, $2, $3)
ON CONFLICT (address) DO UPDATE
SET device_name = EXCLUDED.device_name, credentials = EXCLUDED.credentials, updated_at = NOW()
RETURNING (xmax = 0) AS inserted`

	postgresDeleteQuery = `DELETE FROM subscribers WHERE address = $1`
)

// PostgresDirectory stores subscribers in a PostgreSQL table.
type PostgresDirectory struct {
	db *sql.DB
}

// OpenPostgres connects, pings and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresDirectory, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open postgres: %w", domain.ErrUnavailable, err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", domain.ErrUnavailable, err)
	}

	d := NewPostgresDirectory(db)

	if err = d.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// NewPostgresDirectory wraps an open database handle.
func NewPostgresDirectory(db *sql.DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

// Migrate creates the subscribers table when missing.
func (d *PostgresDirectory) Migrate(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("%w: migrate postgres: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// ListAll returns subscribers in registration order.
func (d *PostgresDirectory) ListAll(ctx context.Context) ([]domain.Record, error) {
	rows, err := d.db.QueryContext(ctx, postgresListQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: list subscribers: %w", domain.ErrUnavailable, err)
	}

	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// Upsert inserts or updates in a single statement.
func (d *PostgresDirectory) Upsert(
	ctx context.Context,
	deviceName, address string,
	credentials []byte,
) (domain.UpsertResult, error) {
	if err := domain.Validate(address, credentials); err != nil {
		return "", err
	}

	var inserted bool
	if err := d.db.QueryRowContext(ctx, postgresUpsertQuery, address, deviceName, credentials).
		Scan(&inserted); err != nil {
		return "", fmt.Errorf("%w: upsert subscriber: %w", domain.ErrUnavailable, err)
	}

	if inserted {
		return domain.Created, nil
	}

	return domain.Updated, nil
}

// FindByAddress returns domain.ErrNotFound for unknown addresses.
func (d *PostgresDirectory) FindByAddress(ctx context.Context, address string) (*domain.Record, error) {
	return scanRecord(d.db.QueryRowContext(ctx, postgresFindQuery, address))
}

// DeleteByAddress removes the subscriber if present.
func (d *PostgresDirectory) DeleteByAddress(ctx context.Context, address string) error {
	if _, err := d.db.ExecContext(ctx, postgresDeleteQuery, address); err != nil {
		return fmt.Errorf("%w: delete subscriber: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// Close closes the connection pool.
func (d *PostgresDirectory) Close() error {
	return d.db.Close()
}
