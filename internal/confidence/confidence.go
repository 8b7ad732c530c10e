// Package confidence turns field presence and validator penalties into a
// trust score for one extraction.
package confidence

import (
	"math"
	"strings"
	"time"

	"payslipx/internal/domain"
	"payslipx/internal/validator"
	"payslipx/internal/validator/payslip"
)

// Methodology tags every result produced by this package.
const Methodology = "field-penalty-v1"

// Penalties are subtracted from the baseline when a field is missing or implausible.
type Penalties struct {
	Month         float64
	Year          float64
	NetRemittance float64
	GrossPay      float64
	Earnings      float64
	Deductions    float64
}

// Config holds the baseline and penalties.
type Config struct {
	Base      float64
	Penalties Penalties
	MinYear   int
}

// DefaultConfig returns a 0.95 baseline.
func DefaultConfig() Config {
	return Config{
		Base: 0.95,
		Penalties: Penalties{
			Month:         0.10,
			Year:          0.10,
			NetRemittance: 0.20,
			GrossPay:      0.20,
			Earnings:      0.15,
			Deductions:    0.10,
		},
		MinYear: 2000,
	}
}

// field-level scores by validation status
var statusScore = map[domain.FieldValidationStatus]float64{
	domain.FieldStatusValid:   1.0,
	domain.FieldStatusUnsure:  0.7,
	domain.FieldStatusInvalid: 0.3,
}

var fields = []string{
	payslip.FieldEarnings,
	payslip.FieldDeductions,
	payslip.FieldGrossPay,
	payslip.FieldTotalDeductions,
	payslip.FieldNetRemittance,
	payslip.FieldMonth,
	payslip.FieldYear,
}

var months = map[string]bool{}

func init() {
	for m := time.January; m <= time.December; m++ {
		name := strings.ToUpper(m.String())
		months[name] = true
		months[name[:3]] = true
	}
}

// Calculator computes confidence scores.
type Calculator struct {
	cfg Config
	now func() time.Time
}

// NewCalculator creates a Calculator.
func NewCalculator(cfg Config) *Calculator {
	return &Calculator{cfg: cfg, now: time.Now}
}

// Calculate scores an extraction. declared is the sanitized payslip before
// reconciliation, so derived totals still count as missing.
func (c *Calculator) Calculate(declared *domain.ParsedPayslip, sanity *domain.SanityCheckResult) domain.ConfidenceResult {
	statuses := validator.FieldStatuses(sanity)
	present := c.presence(declared)
	p := c.cfg.Penalties
	penalty := map[string]float64{
		payslip.FieldMonth:         p.Month,
		payslip.FieldYear:          p.Year,
		payslip.FieldNetRemittance: p.NetRemittance,
		payslip.FieldGrossPay:      p.GrossPay,
		payslip.FieldEarnings:      p.Earnings,
		payslip.FieldDeductions:    p.Deductions,
	}

	base := c.cfg.Base
	fieldLevel := make(map[string]float64, len(statuses))
	for _, field := range fields {
		score := statusScore[statuses[field].Status]
		if ok, tracked := present[field]; tracked && !ok {
			score = 0
			base -= penalty[field]
		}
		fieldLevel[field] = score
	}

	return domain.ConfidenceResult{
		Overall:     Combine(base, sanity.ConfidenceAdjustment),
		FieldLevel:  fieldLevel,
		Methodology: Methodology,
	}
}

// Combine returns max(0, base - |adjustment|) clamped to [0,1].
func Combine(base, adjustment float64) float64 {
	return Clamp(base - math.Abs(adjustment))
}

// Clamp bounds v to [0,1].
func Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func (c *Calculator) presence(p *domain.ParsedPayslip) map[string]bool {
	maxYear := c.now().Year() + 1
	return map[string]bool{
		payslip.FieldMonth:         months[strings.ToUpper(strings.TrimSpace(p.Month))],
		payslip.FieldYear:          p.Year != nil && *p.Year >= c.cfg.MinYear && *p.Year <= maxYear,
		payslip.FieldNetRemittance: p.NetRemittance != nil && *p.NetRemittance > 0,
		payslip.FieldGrossPay:      p.GrossPay != nil && *p.GrossPay > 0,
		payslip.FieldEarnings:      len(p.Earnings) > 0,
		payslip.FieldDeductions:    len(p.Deductions) > 0,
	}
}
