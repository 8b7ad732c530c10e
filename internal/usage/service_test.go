package usage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"payslipx/internal/domain"
	"payslipx/internal/port"
	"payslipx/internal/repository/memory"
	"payslipx/internal/usage"
	"payslipx/mocks"
)

var noon = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(alerts port.AlertSender, cfg usage.Config) *usage.Service {
	svc := usage.NewService(memory.NewUsageRepo(), usage.NewPricing(usage.DefaultPrices(), 83), alerts, cfg)
	svc.SetClock(func() time.Time { return noon })
	return svc
}

func TestService_RecordPricesAttempt(t *testing.T) {
	svc := newService(nil, usage.Config{})
	session := uuid.New()

	rec, err := svc.Record(context.Background(), usage.Attempt{
		DeviceID:  "device-1",
		SessionID: session,
		Provider:  "claude",
		Model:     "claude-sonnet-4-20250514",
		Usage:     &domain.TokenUsage{InputTokens: 1000, OutputTokens: 500},
		Latency:   1500 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, rec.ID)
	assert.Equal(t, noon, rec.Timestamp)
	assert.Equal(t, session, rec.SessionID)
	assert.Equal(t, 1500, rec.TotalTokens)
	assert.InDelta(t, 0.0105, rec.CostUSD, 1e-12)
	assert.InDelta(t, 0.8715, rec.CostINR, 1e-12)
	assert.Equal(t, int64(1500), rec.LatencyMs)
	assert.True(t, rec.Success)

	recs, err := svc.Range(context.Background(), noon, noon.Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestService_RecordFailure(t *testing.T) {
	svc := newService(nil, usage.Config{})

	rec, err := svc.Record(context.Background(), usage.Attempt{
		DeviceID: "device-1",
		Provider: "openai",
		Model:    "gpt-4o",
		Err:      errors.New("upstream timeout"),
	})

	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, "upstream timeout", rec.ErrorMessage)
	assert.Zero(t, rec.CostUSD)
}

func TestService_RangeRejectsEmptyWindow(t *testing.T) {
	svc := newService(nil, usage.Config{})

	_, err := svc.Range(context.Background(), noon, noon)

	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestService_RangeRepoError(t *testing.T) {
	repo := new(mocks.MockUsageRepo)
	repo.On("Range", mock.Anything, noon, noon.Add(time.Hour)).Return(nil, errors.New("disk full"))
	svc := usage.NewService(repo, usage.NewPricing(usage.DefaultPrices(), 83), nil, usage.Config{})

	_, err := svc.Range(context.Background(), noon, noon.Add(time.Hour))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	repo.AssertExpectations(t)
}

func appendCalls(t *testing.T, svc *usage.Service, device string, n int, cost float64, success bool) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, svc.Append(context.Background(), &domain.UsageRecord{
			DeviceID:    device,
			TotalTokens: 100,
			CostUSD:     cost,
			CostINR:     cost * 83,
			Success:     success,
		}))
	}
}

func TestService_Summary(t *testing.T) {
	svc := newService(nil, usage.Config{AnomalyMinCalls: 5})
	appendCalls(t, svc, "a", 10, 0.01, true)
	appendCalls(t, svc, "b", 2, 0.02, true)
	appendCalls(t, svc, "c", 2, 0.03, false)

	sum, err := svc.Summary(context.Background(), noon.Add(-time.Hour), noon.Add(time.Hour))

	require.NoError(t, err)
	assert.Equal(t, 14, sum.Calls)
	assert.Equal(t, 2, sum.Failures)
	assert.Equal(t, 1400, sum.TotalTokens)
	assert.InDelta(t, 0.2, sum.CostUSD, 1e-9)
	assert.Equal(t, 0.01, sum.P50CostUSD)
	assert.Equal(t, 0.03, sum.P95CostUSD)
	require.Len(t, sum.Devices, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{sum.Devices[0].DeviceID, sum.Devices[1].DeviceID, sum.Devices[2].DeviceID})
	assert.Equal(t, 2, sum.Devices[2].Failures)
	require.Len(t, sum.Anomalies, 1)
	assert.Equal(t, "a", sum.Anomalies[0].DeviceID)
}

func TestCostPercentile(t *testing.T) {
	recs := make([]domain.UsageRecord, 10)
	for i := range recs {
		recs[i].CostUSD = float64(10 - i)
	}

	assert.Equal(t, 1.0, usage.CostPercentile(recs, 0))
	assert.Equal(t, 5.0, usage.CostPercentile(recs, 50))
	assert.Equal(t, 10.0, usage.CostPercentile(recs, 95))
	assert.Equal(t, 10.0, usage.CostPercentile(recs, 100))
	assert.Zero(t, usage.CostPercentile(nil, 50))
}

func TestAggregateByDevice_TiesBrokenByID(t *testing.T) {
	recs := []domain.UsageRecord{
		{DeviceID: "z", Timestamp: noon},
		{DeviceID: "m", Timestamp: noon.Add(time.Minute)},
		{DeviceID: "m", Timestamp: noon},
		{DeviceID: "a", Timestamp: noon},
	}

	out := usage.AggregateByDevice(recs)

	require.Len(t, out, 3)
	assert.Equal(t, "m", out[0].DeviceID)
	assert.Equal(t, noon.Add(time.Minute), out[0].LastSeen)
	assert.Equal(t, "a", out[1].DeviceID)
	assert.Equal(t, "z", out[2].DeviceID)
}

func TestDetectAnomalies(t *testing.T) {
	devices := []domain.DeviceUsage{{DeviceID: "a", Calls: 7}, {DeviceID: "b", Calls: 2}, {DeviceID: "c", Calls: 2}}

	tests := []struct {
		name string
		cfg  usage.Config
		want int
	}{
		{"above multiplier and floor", usage.Config{AnomalyMinCalls: 5}, 1},
		{"floor too high", usage.Config{AnomalyMinCalls: 10}, 0},
		{"multiplier too high", usage.Config{AnomalyMultiplier: 4}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService(nil, tt.cfg)
			assert.Len(t, svc.DetectAnomalies(devices), tt.want)
		})
	}
}

func TestService_CheckAndAlert(t *testing.T) {
	alerts := new(mocks.MockAlertSender)
	svc := newService(alerts, usage.Config{AnomalyMinCalls: 3, AlertRecipient: "ops@example.com"})
	appendCalls(t, svc, "a", 8, 0.01, true)
	appendCalls(t, svc, "b", 1, 0.01, true)
	appendCalls(t, svc, "c", 1, 0.01, true)

	alerts.On("SendUsageAlert", mock.Anything, "ops@example.com", mock.MatchedBy(func(a []domain.DeviceUsage) bool {
		return len(a) == 1 && a[0].DeviceID == "a"
	})).Return(nil)

	sum, err := svc.CheckAndAlert(context.Background(), noon.Add(-time.Hour), noon.Add(time.Hour))

	require.NoError(t, err)
	assert.Len(t, sum.Anomalies, 1)
	alerts.AssertExpectations(t)
}

func TestService_CheckAndAlertQuietWithoutAnomalies(t *testing.T) {
	alerts := new(mocks.MockAlertSender)
	svc := newService(alerts, usage.Config{AnomalyMinCalls: 100, AlertRecipient: "ops@example.com"})
	appendCalls(t, svc, "a", 8, 0.01, true)

	_, err := svc.CheckAndAlert(context.Background(), noon.Add(-time.Hour), noon.Add(time.Hour))

	require.NoError(t, err)
	alerts.AssertNotCalled(t, "SendUsageAlert", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_CheckAndAlertSendFailure(t *testing.T) {
	alerts := new(mocks.MockAlertSender)
	svc := newService(alerts, usage.Config{AnomalyMinCalls: 1, AlertRecipient: "ops@example.com"})
	appendCalls(t, svc, "a", 8, 0.01, true)
	appendCalls(t, svc, "b", 1, 0.01, true)
	appendCalls(t, svc, "c", 1, 0.01, true)
	alerts.On("SendUsageAlert", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("ses throttled"))

	sum, err := svc.CheckAndAlert(context.Background(), noon.Add(-time.Hour), noon.Add(time.Hour))

	require.Error(t, err)
	assert.NotNil(t, sum)
}
