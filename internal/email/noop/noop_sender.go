package noop

import (
	"context"
	"log"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

type noopSender struct{}

// NewNoopSender creates a no-op AlertSender that logs alerts to stdout.
func NewNoopSender() port.AlertSender {
	return &noopSender{}
}

func (s *noopSender) SendUsageAlert(_ context.Context, to string, anomalies []domain.DeviceUsage) error {
	for _, a := range anomalies {
		log.Printf("[NOOP EMAIL] Usage alert for %s: device %s made %d calls costing $%.4f", to, a.DeviceID, a.Calls, a.CostUSD)
	}
	return nil
}
