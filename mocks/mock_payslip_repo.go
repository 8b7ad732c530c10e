package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"payslipx/internal/domain"
)

// MockPayslipRepo is a mock implementation of port.PayslipRepository.
type MockPayslipRepo struct {
	mock.Mock
}

func (m *MockPayslipRepo) Save(ctx context.Context, record *domain.PayslipRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockPayslipRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PayslipRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PayslipRecord), args.Error(1)
}
