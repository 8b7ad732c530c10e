package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"payslipx/internal/domain"
)

// MockAlertSender is a mock implementation of port.AlertSender.
type MockAlertSender struct {
	mock.Mock
}

func (m *MockAlertSender) SendUsageAlert(ctx context.Context, to string, anomalies []domain.DeviceUsage) error {
	args := m.Called(ctx, to, anomalies)
	return args.Error(0)
}
