// Package verification decides whether to run a second extraction pass and
// which pass to keep.
package verification

import (
	"context"
	"errors"
	"log"
	"math"

	"payslipx/internal/confidence"
	"payslipx/internal/domain"
)

// Config holds the trigger and agreement thresholds.
type Config struct {
	Enabled           bool
	Trigger           float64
	AgreementHigh     float64
	AgreementModerate float64
	ValueTolerance    float64
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		Trigger:           0.9,
		AgreementHigh:     0.8,
		AgreementModerate: 0.5,
		ValueTolerance:    0.05,
	}
}

const (
	highBoost        = 0.2
	moderateDiscount = 0.9
	lowDiscount      = 0.7
	improvedFloor    = 0.85
)

// Pass is the outcome of one extraction pass after validation and scoring.
type Pass struct {
	Payslip        *domain.ParsedPayslip
	Reconciliation domain.ReconciliationResult
	Sanity         domain.SanityCheckResult
	Confidence     domain.ConfidenceResult
	Response       *domain.RawLLMResponse
}

// Runner executes one more pass of the pipeline for the given mode.
type Runner interface {
	RunPass(ctx context.Context, req domain.ExtractionRequest, mode domain.VerificationMode) (*Pass, error)
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, req domain.ExtractionRequest, mode domain.VerificationMode) (*Pass, error)

func (f RunnerFunc) RunPass(ctx context.Context, req domain.ExtractionRequest, mode domain.VerificationMode) (*Pass, error) {
	return f(ctx, req, mode)
}

// Service runs at most one bounded second pass per extraction.
type Service struct {
	cfg Config
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	return &Service{cfg: cfg}
}

// Mode reports whether first needs a second pass and which kind.
// A reconciliation retry takes precedence over a low-confidence check.
func (s *Service) Mode(first *Pass) (domain.VerificationMode, bool) {
	if !s.cfg.Enabled || first == nil {
		return "", false
	}
	if first.Reconciliation.NeedsRetry {
		return domain.VerificationReconciliation, true
	}
	if first.Confidence.Overall < s.cfg.Trigger {
		return domain.VerificationIndependent, true
	}
	return "", false
}

// Verify runs the second pass and returns the pass to keep, with its final
// confidence applied. A failed second pass keeps first unchanged. Only
// context cancellation is returned as an error.
func (s *Service) Verify(ctx context.Context, req domain.ExtractionRequest, first *Pass, mode domain.VerificationMode, runner Runner) (*Pass, *domain.VerificationOutcome, error) {
	out := &domain.VerificationOutcome{
		Mode:            mode,
		FirstConfidence: first.Confidence.Overall,
	}

	if mode == domain.VerificationReconciliation {
		req = req.WithHint(first.Reconciliation.Hint)
	}
	second, err := runner.RunPass(ctx, req, mode)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return nil, nil, err
		}
		log.Printf("verification.Service.Verify: %s second pass failed, keeping first pass: %v", mode, err)
		out.Decision = domain.DecisionSecondPassFail
		out.FinalConfidence = first.Confidence.Overall
		out.Error = err.Error()
		return first, out, nil
	}

	var kept *Pass
	if mode == domain.VerificationReconciliation {
		kept = s.decideReconciliation(first, second, out)
	} else {
		kept = s.decideIndependent(first, second, out)
	}

	log.Printf("verification.Service.Verify: mode=%s agreement=%.3f decision=%s second_pass=%t confidence %.3f -> %.3f",
		mode, out.Agreement, out.Decision, out.UsedSecondPass, out.FirstConfidence, out.FinalConfidence)
	return kept, out, nil
}

func (s *Service) decideIndependent(first, second *Pass, out *domain.VerificationOutcome) *Pass {
	out.Agreement = Agreement(first.Payslip, second.Payslip, s.cfg.ValueTolerance)

	switch {
	case out.Agreement >= s.cfg.AgreementHigh:
		c := math.Max(first.Confidence.Overall, second.Confidence.Overall)
		out.Decision = domain.DecisionAcceptHigh
		out.UsedSecondPass = true
		return withConfidence(second, c+(1-c)*highBoost, out)
	case out.Agreement >= s.cfg.AgreementModerate:
		out.Decision = domain.DecisionAcceptModerate
		out.UsedSecondPass = true
		return withConfidence(second, second.Confidence.Overall*moderateDiscount, out)
	default:
		out.Decision = domain.DecisionRejectLow
		return withConfidence(first, first.Confidence.Overall*lowDiscount, out)
	}
}

func (s *Service) decideReconciliation(first, second *Pass, out *domain.VerificationOutcome) *Pass {
	out.Agreement = Agreement(first.Payslip, second.Payslip, s.cfg.ValueTolerance)
	out.OriginalError = first.Reconciliation.FundamentalError
	out.RetryError = second.Reconciliation.FundamentalError

	if out.RetryError < out.OriginalError {
		improvement := 1.0
		if out.OriginalError > 0 {
			improvement = (out.OriginalError - out.RetryError) / out.OriginalError
		}
		out.Decision = domain.DecisionAcceptImproved
		out.UsedSecondPass = true
		return withConfidence(second, second.Confidence.Overall*(improvedFloor+(1-improvedFloor)*improvement), out)
	}

	out.Decision = domain.DecisionKeepOriginal
	out.FinalConfidence = first.Confidence.Overall
	return first
}

func withConfidence(p *Pass, c float64, out *domain.VerificationOutcome) *Pass {
	cp := *p
	cp.Confidence = p.Confidence.Clone()
	cp.Confidence.Overall = confidence.Clamp(c)
	out.FinalConfidence = cp.Confidence.Overall
	return &cp
}

// Agreement scores two passes in [0,1]: the mean of three total scores
// (1 - relative difference) and two line-item scores (fraction of the key
// union present in both maps with values within tol).
func Agreement(a, b *domain.ParsedPayslip, tol float64) float64 {
	scores := []float64{
		totalAgreement(a.GrossPay, b.GrossPay),
		totalAgreement(a.TotalDeductions, b.TotalDeductions),
		totalAgreement(a.NetRemittance, b.NetRemittance),
		mapAgreement(a.Earnings, b.Earnings, tol),
		mapAgreement(a.Deductions, b.Deductions, tol),
	}
	var sum float64
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

func totalAgreement(a, b *float64) float64 {
	x, y := domain.Value(a), domain.Value(b)
	m := math.Max(math.Abs(x), math.Abs(y))
	if m == 0 {
		return 1
	}
	return math.Max(0, 1-math.Abs(x-y)/m)
}

func mapAgreement(a, b map[string]float64, tol float64) float64 {
	union := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		union[k] = struct{}{}
	}
	for k := range b {
		union[k] = struct{}{}
	}
	if len(union) == 0 {
		return 1
	}
	agree := 0
	for k := range union {
		x, okA := a[k]
		y, okB := b[k]
		if !okA || !okB {
			continue
		}
		m := math.Max(math.Abs(x), math.Abs(y))
		if m == 0 || math.Abs(x-y)/m <= tol {
			agree++
		}
	}
	return float64(agree) / float64(len(union))
}
