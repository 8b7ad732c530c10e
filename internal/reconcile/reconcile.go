// Package reconcile enforces gross - deductions = net on an extracted payslip.
package reconcile

import (
	"fmt"
	"log"
	"math"
	"strings"

	"payslipx/internal/domain"
	"payslipx/internal/money"
)

// Config holds the reconciliation tolerances, both as fractions.
type Config struct {
	EquationTolerance float64
	RetrySumThreshold float64
}

// DefaultConfig returns a 1% equation tolerance and a 10% retry threshold.
func DefaultConfig() Config {
	return Config{EquationTolerance: 0.01, RetrySumThreshold: 0.10}
}

// Engine repairs totals. It is pure and safe for concurrent use.
type Engine struct {
	cfg Config
}

// New creates an Engine, falling back to defaults for non-positive tolerances.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.EquationTolerance <= 0 {
		cfg.EquationTolerance = def.EquationTolerance
	}
	if cfg.RetrySumThreshold <= 0 {
		cfg.RetrySumThreshold = def.RetrySumThreshold
	}
	return &Engine{cfg: cfg}
}

// Tolerance returns the fundamental-equation tolerance.
func (e *Engine) Tolerance() float64 {
	return e.cfg.EquationTolerance
}

// FundamentalError returns |gross - deductions - net| / gross.
func FundamentalError(gross, deductions, net float64) float64 {
	return money.RelErr(gross-deductions, net, gross)
}

// Reconcile derives missing totals, discards contradictory ones and enforces
// the accounting identity on the returned payslip. The result reports the
// errors measured before enforcement. The input is not modified.
func (e *Engine) Reconcile(p *domain.ParsedPayslip) (*domain.ParsedPayslip, domain.ReconciliationResult) {
	out := p.Clone()
	res := domain.ReconciliationResult{
		EarningsSum:   money.Sum(out.Earnings),
		DeductionsSum: money.Sum(out.Deductions),
	}
	note := func(format string, args ...any) {
		res.Adjustments = append(res.Adjustments, fmt.Sprintf(format, args...))
	}

	gross := positive(out.GrossPay)
	td, tdDeclared := declared(out.TotalDeductions)
	net := positive(out.NetRemittance)

	if gross == 0 {
		switch {
		case res.EarningsSum > 0:
			gross = res.EarningsSum
			note("grossPay derived from earnings sum %.2f", gross)
		case tdDeclared && net > 0:
			gross = money.Add(td, net)
			note("grossPay derived from totalDeductions + netRemittance %.2f", gross)
		}
	}

	if !tdDeclared {
		switch {
		case res.DeductionsSum > 0 || net == 0 || net >= gross:
			td = res.DeductionsSum
			note("totalDeductions derived from deductions sum %.2f", td)
		default:
			td = money.Sub(gross, net)
			note("totalDeductions derived from grossPay - netRemittance %.2f", td)
		}
	}

	if gross > 0 && (math.Abs(td-gross) <= 0.01 || td > gross) {
		prev := td
		if net > 0 && net < gross {
			td = money.Sub(gross, net)
		} else {
			td = res.DeductionsSum
		}
		note("totalDeductions %.2f contradicts grossPay %.2f, replaced with %.2f", prev, gross, td)
	}

	if net == 0 && gross > 0 {
		net = money.Sub(gross, td)
		note("netRemittance derived from grossPay - totalDeductions %.2f", net)
	}

	res.FundamentalError = FundamentalError(gross, td, net)
	if len(out.Earnings) > 0 {
		res.EarningsSumError = money.RelErr(res.EarningsSum, gross, gross)
	}
	if len(out.Deductions) > 0 {
		res.DeductionsSumError = money.RelErr(res.DeductionsSum, td, td)
	}
	res.NeedsRetry = res.FundamentalError > e.cfg.EquationTolerance &&
		(res.EarningsSumError > e.cfg.RetrySumThreshold || res.DeductionsSumError > e.cfg.RetrySumThreshold)

	if gross > 0 && res.FundamentalError > e.cfg.EquationTolerance {
		res.Hint = e.hint(gross, td, net, &res)
		gross, td, net = e.enforce(gross, td, net, &res, note)
	}

	out.GrossPay = domain.Float(money.Round(gross))
	out.TotalDeductions = domain.Float(money.Round(td))
	out.NetRemittance = domain.Float(money.Round(net))

	if len(res.Adjustments) > 0 {
		log.Printf("reconcile.Engine.Reconcile: %d adjustment(s), fundamental error %.4f, needs retry %t: %s",
			len(res.Adjustments), res.FundamentalError, res.NeedsRetry, strings.Join(res.Adjustments, "; "))
	}
	return out, res
}

// enforce picks the total most likely to be wrong using the line-item sums
// and rewrites it so that the identity holds exactly. Net remittance is the
// default repair target.
func (e *Engine) enforce(gross, td, net float64, res *domain.ReconciliationResult, note func(string, ...any)) (float64, float64, float64) {
	tol := e.cfg.EquationTolerance
	earningsAgree := res.EarningsSum > 0 && res.EarningsSumError <= tol
	deductionsAgree := res.DeductionsSum > 0 && res.DeductionsSumError <= tol

	switch {
	case earningsAgree && !deductionsAgree && res.DeductionsSum > 0 &&
		FundamentalError(gross, res.DeductionsSum, net) <= tol:
		note("totalDeductions %.2f replaced with deductions sum %.2f to satisfy the identity", td, res.DeductionsSum)
		return gross, res.DeductionsSum, net
	case !earningsAgree && res.EarningsSum > 0 &&
		FundamentalError(res.EarningsSum, td, net) <= tol:
		note("grossPay %.2f replaced with earnings sum %.2f to satisfy the identity", gross, res.EarningsSum)
		return res.EarningsSum, td, net
	}
	repaired := money.Sub(gross, td)
	note("netRemittance %.2f replaced with grossPay - totalDeductions %.2f", net, repaired)
	return gross, td, repaired
}

func (e *Engine) hint(gross, td, net float64, res *domain.ReconciliationResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- grossPay (%.2f) - totalDeductions (%.2f) = %.2f, but netRemittance is %.2f (%.1f%% off).\n",
		gross, td, gross-td, net, res.FundamentalError*100)
	if res.EarningsSumError > e.cfg.EquationTolerance {
		fmt.Fprintf(&b, "- Earnings line items sum to %.2f, but grossPay is %.2f. Check for missing or duplicated earnings.\n",
			res.EarningsSum, gross)
	}
	if res.DeductionsSumError > e.cfg.EquationTolerance {
		fmt.Fprintf(&b, "- Deduction line items sum to %.2f, but totalDeductions is %.2f. Check for missing deductions or totals listed as deductions.\n",
			res.DeductionsSum, td)
	}
	return strings.TrimRight(b.String(), "\n")
}

func positive(p *float64) float64 {
	if p == nil || *p <= 0 {
		return 0
	}
	return *p
}

func declared(p *float64) (float64, bool) {
	if p == nil || *p < 0 {
		return 0, false
	}
	return *p, true
}
