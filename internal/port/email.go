package port

import (
	"context"

	"payslipx/internal/domain"
)

// AlertSender delivers usage anomaly alerts.
type AlertSender interface {
	SendUsageAlert(ctx context.Context, to string, anomalies []domain.DeviceUsage) error
}
