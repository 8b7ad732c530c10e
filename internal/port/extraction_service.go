package port

import (
	"context"

	"payslipx/internal/domain"
)

// ProgressFunc receives every stage transition of an extraction session.
type ProgressFunc func(stage domain.Stage, progress float64)

// ExtractionService runs one extraction session end to end.
type ExtractionService interface {
	Extract(ctx context.Context, req domain.ExtractionRequest, progress ProgressFunc) (*domain.ExtractionResult, error)
}
