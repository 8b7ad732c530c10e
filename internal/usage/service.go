// Package usage keeps the append-only ledger of LLM calls and reports on it.
package usage

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

// Config holds anomaly detection and alerting settings.
type Config struct {
	AnomalyMinCalls   int
	AnomalyMultiplier float64
	AlertRecipient    string
}

// Attempt describes one LLM call to be recorded.
type Attempt struct {
	DeviceID  string
	SessionID uuid.UUID
	Provider  string
	Model     string
	Usage     *domain.TokenUsage
	Latency   time.Duration
	Err       error
}

// Service is the usage ledger.
type Service struct {
	repo    port.UsageRepository
	pricing *Pricing
	alerts  port.AlertSender
	cfg     Config
	now     func() time.Time
}

// NewService creates a ledger service. alerts may be nil.
func NewService(repo port.UsageRepository, pricing *Pricing, alerts port.AlertSender, cfg Config) *Service {
	if cfg.AnomalyMultiplier <= 0 {
		cfg.AnomalyMultiplier = 3
	}
	return &Service{repo: repo, pricing: pricing, alerts: alerts, cfg: cfg, now: time.Now}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Record prices an attempt and appends it to the ledger.
func (s *Service) Record(ctx context.Context, a Attempt) (*domain.UsageRecord, error) {
	rec := &domain.UsageRecord{
		ID:        uuid.New(),
		Timestamp: s.now().UTC(),
		DeviceID:  a.DeviceID,
		SessionID: a.SessionID,
		Provider:  a.Provider,
		Model:     a.Model,
		Success:   a.Err == nil,
		LatencyMs: a.Latency.Milliseconds(),
	}
	if a.Usage != nil {
		rec.InputTokens = a.Usage.InputTokens
		rec.OutputTokens = a.Usage.OutputTokens
		rec.TotalTokens = a.Usage.TotalTokens
		if rec.TotalTokens == 0 {
			rec.TotalTokens = rec.InputTokens + rec.OutputTokens
		}
	}
	rec.CostUSD, rec.CostINR = s.pricing.Cost(a.Model, a.Usage)
	if a.Err != nil {
		rec.ErrorMessage = a.Err.Error()
	}
	if err := s.Append(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Append adds a record to the ledger. Records are never updated afterwards.
func (s *Service) Append(ctx context.Context, rec *domain.UsageRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now().UTC()
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		return fmt.Errorf("usage.Service.Append: %w", err)
	}
	return nil
}

// Range returns the records with from <= timestamp < to, oldest first.
func (s *Service) Range(ctx context.Context, from, to time.Time) ([]domain.UsageRecord, error) {
	if !to.After(from) {
		return nil, fmt.Errorf("usage.Service.Range: %w: empty time range", domain.ErrInvalidRequest)
	}
	recs, err := s.repo.Range(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("usage.Service.Range: %w", err)
	}
	return recs, nil
}

// Summary rolls up the ledger for a time range.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (*domain.UsageSummary, error) {
	recs, err := s.Range(ctx, from, to)
	if err != nil {
		return nil, err
	}

	sum := &domain.UsageSummary{From: from, To: to}
	for i := range recs {
		sum.Calls++
		if !recs[i].Success {
			sum.Failures++
		}
		sum.TotalTokens += recs[i].TotalTokens
		sum.CostUSD += recs[i].CostUSD
		sum.CostINR += recs[i].CostINR
	}
	sum.CostUSD = round6(sum.CostUSD)
	sum.CostINR = round6(sum.CostINR)
	sum.P50CostUSD = CostPercentile(recs, 50)
	sum.P95CostUSD = CostPercentile(recs, 95)
	sum.Devices = AggregateByDevice(recs)
	sum.Anomalies = s.DetectAnomalies(sum.Devices)
	return sum, nil
}

// CheckAndAlert builds the summary and emails the anomalies, if any.
func (s *Service) CheckAndAlert(ctx context.Context, from, to time.Time) (*domain.UsageSummary, error) {
	sum, err := s.Summary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if len(sum.Anomalies) == 0 || s.alerts == nil || s.cfg.AlertRecipient == "" {
		return sum, nil
	}
	if err := s.alerts.SendUsageAlert(ctx, s.cfg.AlertRecipient, sum.Anomalies); err != nil {
		log.Printf("usage.Service.CheckAndAlert: failed to send alert: %v", err)
		return sum, fmt.Errorf("usage.Service.CheckAndAlert: %w", err)
	}
	log.Printf("usage.Service.CheckAndAlert: alerted %s about %d device(s)", s.cfg.AlertRecipient, len(sum.Anomalies))
	return sum, nil
}

// CostPercentile returns the nearest-rank p-th percentile of per-call USD cost.
func CostPercentile(recs []domain.UsageRecord, p float64) float64 {
	if len(recs) == 0 {
		return 0
	}
	costs := make([]float64, len(recs))
	for i := range recs {
		costs[i] = recs[i].CostUSD
	}
	sort.Float64s(costs)
	p = math.Max(0, math.Min(100, p))
	rank := int(math.Ceil(p / 100 * float64(len(costs))))
	if rank < 1 {
		rank = 1
	}
	return costs[rank-1]
}

// AggregateByDevice groups records per device, busiest first.
func AggregateByDevice(recs []domain.UsageRecord) []domain.DeviceUsage {
	byDevice := make(map[string]*domain.DeviceUsage)
	for i := range recs {
		r := &recs[i]
		d, ok := byDevice[r.DeviceID]
		if !ok {
			d = &domain.DeviceUsage{DeviceID: r.DeviceID}
			byDevice[r.DeviceID] = d
		}
		d.Calls++
		if !r.Success {
			d.Failures++
		}
		d.TotalTokens += r.TotalTokens
		d.CostUSD = round6(d.CostUSD + r.CostUSD)
		d.CostINR = round6(d.CostINR + r.CostINR)
		if r.Timestamp.After(d.LastSeen) {
			d.LastSeen = r.Timestamp
		}
	}

	out := make([]domain.DeviceUsage, 0, len(byDevice))
	for _, d := range byDevice {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Calls != out[j].Calls {
			return out[i].Calls > out[j].Calls
		}
		return out[i].DeviceID < out[j].DeviceID
	})
	return out
}

// DetectAnomalies flags devices whose call count exceeds both the absolute
// floor and the multiplier times the median device.
func (s *Service) DetectAnomalies(devices []domain.DeviceUsage) []domain.DeviceUsage {
	if len(devices) == 0 {
		return nil
	}
	calls := make([]int, len(devices))
	for i := range devices {
		calls[i] = devices[i].Calls
	}
	sort.Ints(calls)
	var median float64
	if n := len(calls); n%2 == 1 {
		median = float64(calls[n/2])
	} else {
		median = float64(calls[n/2-1]+calls[n/2]) / 2
	}
	threshold := math.Max(float64(s.cfg.AnomalyMinCalls), s.cfg.AnomalyMultiplier*median)

	var out []domain.DeviceUsage
	for _, d := range devices {
		if float64(d.Calls) > threshold {
			out = append(out, d)
		}
	}
	return out
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
