package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

// MockExtractionService is a mock implementation of port.ExtractionService.
type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) Extract(ctx context.Context, req domain.ExtractionRequest, progress port.ProgressFunc) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, req, progress)
	if progress != nil && len(args) > 2 {
		if stages, ok := args.Get(2).([]domain.Stage); ok {
			for _, s := range stages {
				progress(s, s.Progress())
			}
		}
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}
