package confidence_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"payslipx/internal/confidence"
	"payslipx/internal/domain"
)

func calculator() *confidence.Calculator {
	c := confidence.NewCalculator(confidence.DefaultConfig())
	c.SetNow(func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) })
	return c
}

func complete() *domain.ParsedPayslip {
	return &domain.ParsedPayslip{
		Earnings:        map[string]float64{"BPAY": 37000},
		Deductions:      map[string]float64{"DSOP": 2220},
		GrossPay:        domain.Float(37000),
		TotalDeductions: domain.Float(2220),
		NetRemittance:   domain.Float(34780),
		Month:           "MARCH",
		Year:            domain.Int(2025),
	}
}

func TestCalculate_CompletePayslip(t *testing.T) {
	res := calculator().Calculate(complete(), &domain.SanityCheckResult{})

	assert.InDelta(t, 0.95, res.Overall, 1e-9)
	assert.Equal(t, confidence.Methodology, res.Methodology)
	assert.Len(t, res.FieldLevel, 7)
	for field, score := range res.FieldLevel {
		assert.Equal(t, 1.0, score, field)
	}
}

func TestCalculate_MissingNetPenalized(t *testing.T) {
	full := calculator().Calculate(complete(), &domain.SanityCheckResult{})

	p := complete()
	p.NetRemittance = nil
	missing := calculator().Calculate(p, &domain.SanityCheckResult{})

	assert.GreaterOrEqual(t, full.Overall-missing.Overall, 0.2-1e-9)
	assert.Zero(t, missing.FieldLevel["netRemittance"])
}

func TestCalculate_FieldPenalties(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.ParsedPayslip)
		overall float64
	}{
		{"month missing", func(p *domain.ParsedPayslip) { p.Month = "" }, 0.85},
		{"month abbreviated", func(p *domain.ParsedPayslip) { p.Month = "mar" }, 0.95},
		{"month garbage", func(p *domain.ParsedPayslip) { p.Month = "[REDACTED]" }, 0.85},
		{"year missing", func(p *domain.ParsedPayslip) { p.Year = nil }, 0.85},
		{"year implausible", func(p *domain.ParsedPayslip) { p.Year = domain.Int(1999) }, 0.85},
		{"year next", func(p *domain.ParsedPayslip) { p.Year = domain.Int(2026) }, 0.95},
		{"year future", func(p *domain.ParsedPayslip) { p.Year = domain.Int(2027) }, 0.85},
		{"gross zero", func(p *domain.ParsedPayslip) { p.GrossPay = domain.Float(0) }, 0.75},
		{"earnings empty", func(p *domain.ParsedPayslip) { p.Earnings = nil }, 0.80},
		{"deductions empty", func(p *domain.ParsedPayslip) { p.Deductions = map[string]float64{} }, 0.85},
		{"everything missing", func(p *domain.ParsedPayslip) { *p = domain.ParsedPayslip{} }, 0.10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := complete()
			tt.mutate(p)

			res := calculator().Calculate(p, &domain.SanityCheckResult{})

			assert.InDelta(t, tt.overall, res.Overall, 1e-9)
		})
	}
}

func TestCalculate_ValidatorAdjustment(t *testing.T) {
	sanity := &domain.SanityCheckResult{
		Issues: []domain.SanityCheckIssue{
			{Code: "X", Severity: domain.SeverityWarning, ConfidencePenalty: -0.1, Fields: []string{"earnings", "grossPay"}},
			{Code: "Y", Severity: domain.SeverityCritical, ConfidencePenalty: -0.3, Fields: []string{"netRemittance"}},
		},
		ConfidenceAdjustment: -0.4,
	}

	res := calculator().Calculate(complete(), sanity)

	assert.InDelta(t, 0.55, res.Overall, 1e-9)
	assert.Equal(t, 0.7, res.FieldLevel["earnings"])
	assert.Equal(t, 0.3, res.FieldLevel["netRemittance"])
	assert.Equal(t, 1.0, res.FieldLevel["month"])
}

func TestCalculate_NeverNegative(t *testing.T) {
	res := calculator().Calculate(&domain.ParsedPayslip{}, &domain.SanityCheckResult{ConfidenceAdjustment: -0.5})

	assert.Zero(t, res.Overall)
}

func TestCombine(t *testing.T) {
	assert.InDelta(t, 0.8, confidence.Combine(0.9, -0.1), 1e-9)
	assert.InDelta(t, 0.8, confidence.Combine(0.9, 0.1), 1e-9)
	assert.Zero(t, confidence.Combine(0.2, -0.5))
	assert.Equal(t, 1.0, confidence.Combine(1.4, 0))
}

func TestClamp(t *testing.T) {
	assert.Zero(t, confidence.Clamp(-1))
	assert.Equal(t, 1.0, confidence.Clamp(2))
	assert.Equal(t, 0.5, confidence.Clamp(0.5))
}
