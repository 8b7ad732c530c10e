package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

type usageRepo struct {
	db *sqlx.DB
}

// NewUsageRepo creates a new PostgreSQL-backed UsageRepository.
func NewUsageRepo(db *sqlx.DB) port.UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) Append(ctx context.Context, rec *domain.UsageRecord) error {
	query := `INSERT INTO usage_records
		(id, created_at, device_id, session_id, provider, model, input_tokens, output_tokens,
		 total_tokens, cost_usd, cost_inr, success, latency_ms, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Timestamp, rec.DeviceID, rec.SessionID, rec.Provider, rec.Model,
		rec.InputTokens, rec.OutputTokens, rec.TotalTokens, rec.CostUSD, rec.CostINR,
		rec.Success, rec.LatencyMs, rec.ErrorMessage)
	if err != nil {
		return fmt.Errorf("usageRepo.Append: %w", err)
	}
	return nil
}

func (r *usageRepo) Range(ctx context.Context, from, to time.Time) ([]domain.UsageRecord, error) {
	records := make([]domain.UsageRecord, 0)
	err := r.db.SelectContext(ctx, &records,
		`SELECT id, created_at, device_id, session_id, provider, model, input_tokens, output_tokens,
		        total_tokens, cost_usd, cost_inr, success, latency_ms, error_message
		 FROM usage_records
		 WHERE created_at >= $1 AND created_at < $2
		 ORDER BY created_at ASC, id ASC`,
		from, to)
	if err != nil {
		return nil, fmt.Errorf("usageRepo.Range: %w", err)
	}
	return records, nil
}
