package port

import (
	"context"
	"time"

	"payslipx/internal/domain"
)

// UsageRepository is the append-only store behind the usage ledger.
type UsageRepository interface {
	Append(ctx context.Context, record *domain.UsageRecord) error
	// Range returns records with from <= timestamp < to, oldest first.
	Range(ctx context.Context, from, to time.Time) ([]domain.UsageRecord, error)
}
