// Package store archives processed batches in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"addrnorm/internal/models"
)

// ErrBatchNotFound is returned for unknown batch ids.
var ErrBatchNotFound = errors.New("batch not found")

// DefaultListLimit caps List when no positive limit is given.
const DefaultListLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id               TEXT PRIMARY KEY,
	source           TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	total            INTEGER NOT NULL,
	normalized_count INTEGER NOT NULL,
	error_count      INTEGER NOT NULL,
	success_rate     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	batch_id   TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	id         INTEGER NOT NULL,
	original   TEXT NOT NULL,
	normalized TEXT NOT NULL,
	status     TEXT NOT NULL,
	PRIMARY KEY (batch_id, id)
);

CREATE TABLE IF NOT EXISTS errors (
	batch_id TEXT NOT NULL REFERENCES batches(id) ON DELETE CASCADE,
	id       INTEGER NOT NULL,
	address  TEXT NOT NULL,
	message  TEXT NOT NULL,
	severity TEXT NOT NULL,
	PRIMARY KEY (batch_id, id)
);

CREATE INDEX IF NOT EXISTS idx_batches_created_at ON batches(created_at);
`

// Batch describes an archived batch.
type Batch struct {
	ID        string              `json:"id"`
	Source    string              `json:"source"`
	CreatedAt time.Time           `json:"createdAt"`
	Summary   models.BatchSummary `json:"summary"`
}

// Entry is an archived batch with its full result.
type Entry struct {
	Batch
	Result models.BatchResult `json:"result"`
}

// Store is the SQLite batch archive. It is safe for concurrent use.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens or creates the archive at path. ":memory:" gives a private in-memory archive.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	// ":memory:" databases exist per connection.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	return &Store{conn: conn, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Save archives result under a new batch id and returns the id.
func (s *Store) Save(ctx context.Context, source string, result models.BatchResult) (string, error) {
	id := uuid.NewString()

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	sum := result.Summary

	_, err = tx.ExecContext(ctx,
		`INSERT INTO batches (id, source, created_at, total, normalized_count, error_count, success_rate)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, source, s.now().UTC().Format(time.RFC3339Nano),
		sum.Total, sum.NormalizedCount, sum.ErrorCount, sum.SuccessRate,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert batch: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (batch_id, id, original, normalized, status) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer recStmt.Close()

	for _, rec := range result.Records {
		if _, err := recStmt.ExecContext(ctx, id, rec.ID, rec.Original, rec.Normalized, string(rec.Status)); err != nil {
			return "", fmt.Errorf("failed to insert record %d: %w", rec.ID, err)
		}
	}

	errStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO errors (batch_id, id, address, message, severity) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare error insert: %w", err)
	}
	defer errStmt.Close()

	for _, e := range result.Errors {
		if _, err := errStmt.ExecContext(ctx, id, e.ID, e.Address, e.Message, string(e.Severity)); err != nil {
			return "", fmt.Errorf("failed to insert error %d: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit batch: %w", err)
	}

	return id, nil
}

// Get loads a batch with all its records and errors.
func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT id, source, created_at, total, normalized_count, error_count, success_rate
		 FROM batches WHERE id = ?`, id)

	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	entry := &Entry{Batch: *batch}
	entry.Result.Summary = batch.Summary

	if entry.Result.Records, err = s.addressRecords(ctx, id); err != nil {
		return nil, err
	}

	if entry.Result.Errors, err = s.errorRecords(ctx, id); err != nil {
		return nil, err
	}

	return entry, nil
}

// List returns the most recent batches, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Batch, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, source, created_at, total, normalized_count, error_count, success_rate
		 FROM batches ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	batches := make([]Batch, 0)

	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}

		batches = append(batches, *batch)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}

	return batches, nil
}

// Delete removes a batch and everything it owns.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, table := range []string{"records", "errors"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE batch_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrBatchNotFound, id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (*Batch, error) {
	var (
		b       Batch
		created string
	)

	err := row.Scan(&b.ID, &b.Source, &created,
		&b.Summary.Total, &b.Summary.NormalizedCount, &b.Summary.ErrorCount, &b.Summary.SuccessRate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}

	if b.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return nil, fmt.Errorf("failed to parse batch timestamp %q: %w", created, err)
	}

	return &b, nil
}

func (s *Store) addressRecords(ctx context.Context, batchID string) ([]models.AddressRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, original, normalized, status FROM records WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]models.AddressRecord, 0)

	for rows.Next() {
		var (
			rec    models.AddressRecord
			status string
		)

		if err := rows.Scan(&rec.ID, &rec.Original, &rec.Normalized, &status); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.Status = models.Status(status)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

func (s *Store) errorRecords(ctx context.Context, batchID string) ([]models.ErrorRecord, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, address, message, severity FROM errors WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query errors: %w", err)
	}
	defer rows.Close()

	errs := make([]models.ErrorRecord, 0)

	for rows.Next() {
		var (
			e        models.ErrorRecord
			severity string
		)

		if err := rows.Scan(&e.ID, &e.Address, &e.Message, &severity); err != nil {
			return nil, fmt.Errorf("failed to scan error: %w", err)
		}

		e.Severity = models.Severity(severity)
		errs = append(errs, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating errors: %w", err)
	}

	return errs, nil
}
