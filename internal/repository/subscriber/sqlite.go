package subscriber

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Registers the "sqlite" database/sql driver.

	domain "github.com/oshokin/help-alert/internal/domain/subscriber"
)

// SQLiteDirectory stores subscribers in a SQLite table.
type SQLiteDirectory struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS subscribers (
	address     TEXT PRIMARY KEY,
	device_name TEXT NOT NULL DEFAULT '',
	credentials BLOB NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// OpenSQLite opens (creating if needed) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteDirectory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open sqlite: %w", domain.ErrUnavailable, err)
	}

	// SQLite allows a single writer; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	d, err := NewSQLiteDirectory(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return d, nil
}

// NewSQLiteDirectory wraps an open database and makes sure the table exists.
func NewSQLiteDirectory(ctx context.Context, db *sql.DB) (*SQLiteDirectory, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("%w: migrate sqlite: %w", domain.ErrUnavailable, err)
	}

	return &SQLiteDirectory{db: db}, nil
}

// ListAll returns subscribers in registration order.
func (d *SQLiteDirectory) ListAll(ctx context.Context) ([]domain.Record, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT device_name, address, credentials FROM subscribers ORDER BY created_at, rowid`)
	if err != nil {
		return nil, fmt.Errorf("%w: list subscribers: %w", domain.ErrUnavailable, err)
	}

	defer func() { _ = rows.Close() }()

	return scanRecords(rows)
}

// Upsert inserts or updates inside one transaction so the result is exact.
func (d *SQLiteDirectory) Upsert(
	ctx context.Context,
	deviceName, address string,
	credentials []byte,
) (domain.UpsertResult, error) {
	if err := domain.Validate(address, credentials); err != nil {
		return "", err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("%w: begin upsert: %w", domain.ErrUnavailable, err)
	}

	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM subscribers WHERE address = ?)`, address).Scan(&exists); err != nil {
		return "", fmt.Errorf("%w: check subscriber: %w", domain.ErrUnavailable, err)
	}

	if exists {
		_, err = tx.ExecContext(ctx,
			`UPDATE subscribers SET device_name = ?, credentials = ?, updated_at = CURRENT_TIMESTAMP WHERE address = ?`,
			deviceName, credentials, address)
	} else {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO subscribers (address, device_name, credentials) VALUES (?, ?, ?)`,
			address, deviceName, credentials)
	}

	if err != nil {
		return "", fmt.Errorf("%w: upsert subscriber: %w", domain.ErrUnavailable, err)
	}

	if err = tx.Commit(); err != nil {
		return "", fmt.Errorf("%w: commit upsert: %w", domain.ErrUnavailable, err)
	}

	if exists {
		return domain.Updated, nil
	}

	return domain.Created, nil
}

// FindByAddress returns domain.ErrNotFound for unknown addresses.
func (d *SQLiteDirectory) FindByAddress(ctx context.Context, address string) (*domain.Record, error) {
	row := d.db.QueryRowContext(ctx,
		`SELECT device_name, address, credentials FROM subscribers WHERE address = ?`, address)

	return scanRecord(row)
}

// DeleteByAddress removes the subscriber if present.
func (d *SQLiteDirectory) DeleteByAddress(ctx context.Context, address string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM subscribers WHERE address = ?`, address); err != nil {
		return fmt.Errorf("%w: delete subscriber: %w", domain.ErrUnavailable, err)
	}

	return nil
}

// Close closes the database.
func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.Record, error) {
	var r domain.Record

	if err := row.Scan(&r.DeviceName, &r.Address, &r.Credentials); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}

		return nil, fmt.Errorf("%w: scan subscriber: %w", domain.ErrUnavailable, err)
	}

	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]domain.Record, error) {
	result := make([]domain.Record, 0)

	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		result = append(result, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate subscribers: %w", domain.ErrUnavailable, err)
	}

	return result, nil
}
