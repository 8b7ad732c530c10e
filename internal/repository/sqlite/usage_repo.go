// Package sqlite stores the usage ledger in a local file for the CLI.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

// DB wraps a SQLite handle holding the ledger table.
type DB struct {
	*sql.DB
	path string
}

// Open opens (or creates) the ledger database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("sqlite.Open: creating directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}
	if err := sqlDB.PingContext(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlite.Open: ping: %w", err)
	}

	db := &DB{DB: sqlDB, path: path}
	if err := db.configure(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.createSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) configure() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA temp_store=MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(context.Background(), pragma); err != nil {
			return fmt.Errorf("sqlite.configure: %s: %w", pragma, err)
		}
	}
	return nil
}

// Timestamps are stored as unix nanoseconds so range scans compare integers.
func (db *DB) createSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS usage_records (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		device_id TEXT NOT NULL,
		session_id TEXT NOT NULL,
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		input_tokens INTEGER NOT NULL DEFAULT 0,
		output_tokens INTEGER NOT NULL DEFAULT 0,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		cost_usd REAL NOT NULL DEFAULT 0,
		cost_inr REAL NOT NULL DEFAULT 0,
		success INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL DEFAULT 0,
		error_message TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_usage_records_created_at ON usage_records(created_at);`
	if _, err := db.ExecContext(context.Background(), query); err != nil {
		return fmt.Errorf("sqlite.createSchema: %w", err)
	}
	return nil
}

type usageRepo struct {
	db *DB
}

// NewUsageRepo creates a SQLite-backed UsageRepository.
func NewUsageRepo(db *DB) port.UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) Append(ctx context.Context, rec *domain.UsageRecord) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO usage_records
		(id, created_at, device_id, session_id, provider, model, input_tokens, output_tokens,
		 total_tokens, cost_usd, cost_inr, success, latency_ms, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.Timestamp.UnixNano(), rec.DeviceID, rec.SessionID.String(),
		rec.Provider, rec.Model, rec.InputTokens, rec.OutputTokens, rec.TotalTokens,
		rec.CostUSD, rec.CostINR, rec.Success, rec.LatencyMs, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("sqlite.usageRepo.Append: %w", err)
	}
	return nil
}

func (r *usageRepo) Range(ctx context.Context, from, to time.Time) ([]domain.UsageRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, created_at, device_id, session_id, provider, model,
		input_tokens, output_tokens, total_tokens, cost_usd, cost_inr, success, latency_ms, error_message
		FROM usage_records
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at ASC, rowid ASC`,
		from.UnixNano(), to.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite.usageRepo.Range: %w", err)
	}
	defer rows.Close()

	records := make([]domain.UsageRecord, 0)
	for rows.Next() {
		var (
			rec       domain.UsageRecord
			id, sess  string
			createdNs int64
		)
		if err := rows.Scan(&id, &createdNs, &rec.DeviceID, &sess, &rec.Provider, &rec.Model,
			&rec.InputTokens, &rec.OutputTokens, &rec.TotalTokens, &rec.CostUSD, &rec.CostINR,
			&rec.Success, &rec.LatencyMs, &rec.ErrorMessage); err != nil {
			return nil, fmt.Errorf("sqlite.usageRepo.Range: scan: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("sqlite.usageRepo.Range: id: %w", err)
		}
		if rec.SessionID, err = uuid.Parse(sess); err != nil {
			return nil, fmt.Errorf("sqlite.usageRepo.Range: session id: %w", err)
		}
		rec.Timestamp = time.Unix(0, createdNs).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite.usageRepo.Range: %w", err)
	}
	return records, nil
}
