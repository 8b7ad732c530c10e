package noop_test

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"payslipx/internal/domain"
	"payslipx/internal/email/noop"
)

func TestSendUsageAlert_Logs(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	err := noop.NewNoopSender().SendUsageAlert(context.Background(), "ops@example.com", []domain.DeviceUsage{
		{DeviceID: "device-a", Calls: 9, CostUSD: 0.09},
	})

	assert.NoError(t, err)
	assert.Contains(t, buf.String(), "device device-a made 9 calls")
}
