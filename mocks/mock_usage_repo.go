package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"payslipx/internal/domain"
)

// MockUsageRepo is a mock implementation of port.UsageRepository.
type MockUsageRepo struct {
	mock.Mock
}

func (m *MockUsageRepo) Append(ctx context.Context, record *domain.UsageRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockUsageRepo) Range(ctx context.Context, from, to time.Time) ([]domain.UsageRecord, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UsageRecord), args.Error(1)
}
