package payslip

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"payslipx/internal/domain"
	"payslipx/internal/money"
)

// Rule is a single built-in sanity check.
type Rule struct {
	key   string
	name  string
	check func(*Input) []domain.SanityCheckIssue
}

func (r *Rule) RuleKey() string  { return r.key }
func (r *Rule) RuleName() string { return r.name }

func (r *Rule) Check(_ context.Context, in *Input) []domain.SanityCheckIssue {
	return r.check(in)
}

// AllRules returns the built-in rules in evaluation order. matcher may be nil,
// which disables the suspicious deduction scan.
func AllRules(cfg Config, matcher KeywordMatcher) []*Rule {
	rules := []*Rule{
		{key: "equation.fundamental", name: "Equation: Gross - Deductions = Net", check: cfg.fundamental},
		{key: "totals.net_positive", name: "Totals: Net Remittance Bounds", check: netBounds},
		{key: "totals.deductions_vs_earnings", name: "Totals: Deductions Within Earnings", check: deductionsWithinEarnings},
		{key: "sums.line_items", name: "Sums: Line Items Match Totals", check: cfg.lineItemSums},
		{key: "presence.basic_pay", name: "Presence: Basic Pay", check: cfg.basicPay},
	}
	if matcher != nil {
		rules = append(rules, &Rule{
			key: "keywords.suspicious_deduction", name: "Keywords: Suspicious Deduction",
			check: func(in *Input) []domain.SanityCheckIssue { return suspiciousKeys(in, matcher) },
		})
	}
	rules = append(rules, &Rule{key: "range.gross_pay", name: "Range: Gross Pay", check: cfg.grossRange})
	return rules
}

func (cfg Config) fundamental(in *Input) []domain.SanityCheckIssue {
	e := in.Reconciliation.FundamentalError
	fields := []string{FieldGrossPay, FieldTotalDeductions, FieldNetRemittance}
	switch {
	case e > cfg.EquationCritical:
		return []domain.SanityCheckIssue{issue(CodeFundamentalMismatch, domain.SeverityCritical, -0.3,
			fmt.Sprintf("gross - deductions differs from net remittance by %.1f%%", e*100), fields...)}
	case e > cfg.EquationTolerance:
		return []domain.SanityCheckIssue{issue(CodeFundamentalMismatch, domain.SeverityWarning, -0.15,
			fmt.Sprintf("gross - deductions differs from net remittance by %.1f%%", e*100), fields...)}
	}
	return nil
}

func netBounds(in *Input) []domain.SanityCheckIssue {
	d := in.Declared
	if d.NetRemittance == nil {
		return nil
	}
	net := *d.NetRemittance
	if net <= 0 {
		return []domain.SanityCheckIssue{issue(CodeNetNotPositive, domain.SeverityCritical, -0.3,
			fmt.Sprintf("net remittance %.2f is not positive", net), FieldNetRemittance)}
	}
	if d.GrossPay != nil && *d.GrossPay > 0 && net > *d.GrossPay {
		return []domain.SanityCheckIssue{issue(CodeNetExceedsGross, domain.SeverityCritical, -0.3,
			fmt.Sprintf("net remittance %.2f exceeds gross pay %.2f", net, *d.GrossPay), FieldNetRemittance, FieldGrossPay)}
	}
	return nil
}

func deductionsWithinEarnings(in *Input) []domain.SanityCheckIssue {
	d := in.Declared
	earnings, deductions := in.Reconciliation.EarningsSum, in.Reconciliation.DeductionsSum
	if d.GrossPay != nil && d.TotalDeductions != nil && *d.GrossPay > 0 {
		earnings, deductions = *d.GrossPay, *d.TotalDeductions
	}
	if earnings > 0 && deductions > earnings {
		return []domain.SanityCheckIssue{issue(CodeDeductionsExceedEarnings, domain.SeverityCritical, -0.3,
			fmt.Sprintf("deductions %.2f exceed earnings %.2f", deductions, earnings), FieldTotalDeductions, FieldGrossPay)}
	}
	return nil
}

func (cfg Config) lineItemSums(in *Input) []domain.SanityCheckIssue {
	var out []domain.SanityCheckIssue
	r := in.Reconciliation
	if is, ok := cfg.sumIssue(CodeEarningsSumMismatch, "earnings", r.EarningsSum, r.EarningsSumError, FieldEarnings, FieldGrossPay); ok {
		out = append(out, is)
	}
	if is, ok := cfg.sumIssue(CodeDeductionsSumMismatch, "deductions", r.DeductionsSum, r.DeductionsSumError, FieldDeductions, FieldTotalDeductions); ok {
		out = append(out, is)
	}
	return out
}

func (cfg Config) sumIssue(code, section string, sum, e float64, fields ...string) (domain.SanityCheckIssue, bool) {
	desc := fmt.Sprintf("%s line items sum to %.2f, %.1f%% away from the declared total", section, sum, e*100)
	switch {
	case e > cfg.SumWarningTolerance:
		return issue(code, domain.SeverityWarning, -0.1, desc, fields...), true
	case e > cfg.SumMinorTolerance:
		return issue(code, domain.SeverityMinor, -0.05, desc, fields...), true
	}
	return domain.SanityCheckIssue{}, false
}

func (cfg Config) basicPay(in *Input) []domain.SanityCheckIssue {
	for k := range in.Reconciled.Earnings {
		if slices.Contains(cfg.BasicPayCodes, k) {
			return nil
		}
	}
	return []domain.SanityCheckIssue{issue(CodeMissingBasicPay, domain.SeverityMinor, -0.05,
		"no basic pay component among earnings", FieldEarnings)}
}

func suspiciousKeys(in *Input, m KeywordMatcher) []domain.SanityCheckIssue {
	keys := make([]string, 0, len(in.Reconciled.Deductions))
	for k := range in.Reconciled.Deductions {
		if m.IsSuspiciousDeduction(k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	out := make([]domain.SanityCheckIssue, 0, len(keys))
	for _, k := range keys {
		out = append(out, issue(CodeSuspiciousDeductionKey, domain.SeverityWarning, -0.1,
			fmt.Sprintf("deduction %q looks like a total or refund", k), FieldDeductions))
	}
	return out
}

func (cfg Config) grossRange(in *Input) []domain.SanityCheckIssue {
	g := money.Round(domain.Value(in.Reconciled.GrossPay))
	if g < cfg.MinGrossPay || g > cfg.MaxGrossPay {
		return []domain.SanityCheckIssue{issue(CodeGrossImplausible, domain.SeverityMinor, -0.05,
			fmt.Sprintf("gross pay %.2f outside plausible range %.0f-%.0f", g, cfg.MinGrossPay, cfg.MaxGrossPay), FieldGrossPay)}
	}
	return nil
}
