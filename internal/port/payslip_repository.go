package port

import (
	"context"

	"github.com/google/uuid"

	"payslipx/internal/domain"
)

// PayslipRepository persists accepted payslip records.
type PayslipRepository interface {
	Save(ctx context.Context, record *domain.PayslipRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PayslipRecord, error)
}
