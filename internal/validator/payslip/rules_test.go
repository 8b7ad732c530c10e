package payslip_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/domain"
	"payslipx/internal/validator/payslip"
)

type keywordStub map[string]bool

func (k keywordStub) IsSuspiciousDeduction(key string) bool { return k[key] }

func rule(t *testing.T, key string, matcher payslip.KeywordMatcher) *payslip.Rule {
	t.Helper()
	for _, r := range payslip.AllRules(payslip.DefaultConfig(), matcher) {
		if r.RuleKey() == key {
			return r
		}
	}
	t.Fatalf("rule %s not registered", key)
	return nil
}

func basicInput() *payslip.Input {
	p := &domain.ParsedPayslip{
		Earnings:        map[string]float64{"BPAY": 50000},
		Deductions:      map[string]float64{"ITAX": 5000},
		GrossPay:        domain.Float(50000),
		TotalDeductions: domain.Float(5000),
		NetRemittance:   domain.Float(45000),
	}
	return &payslip.Input{
		Declared:       p,
		Reconciled:     p.Clone(),
		Reconciliation: domain.ReconciliationResult{EarningsSum: 50000, DeductionsSum: 5000},
	}
}

func TestAllRules_WithoutMatcher(t *testing.T) {
	for _, r := range payslip.AllRules(payslip.DefaultConfig(), nil) {
		assert.NotEqual(t, "keywords.suspicious_deduction", r.RuleKey())
		assert.NotEmpty(t, r.RuleName())
	}
	assert.Len(t, payslip.AllRules(payslip.DefaultConfig(), keywordStub{}), 7)
}

func TestFundamentalRule(t *testing.T) {
	tests := []struct {
		name     string
		err      float64
		severity domain.Severity
		penalty  float64
	}{
		{"within tolerance", 0.01, "", 0},
		{"warning", 0.03, domain.SeverityWarning, -0.15},
		{"critical", 0.051, domain.SeverityCritical, -0.3},
	}
	r := rule(t, "equation.fundamental", nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := basicInput()
			in.Reconciliation.FundamentalError = tt.err

			issues := r.Check(context.Background(), in)

			if tt.severity == "" {
				assert.Empty(t, issues)
				return
			}
			require.Len(t, issues, 1)
			assert.Equal(t, payslip.CodeFundamentalMismatch, issues[0].Code)
			assert.Equal(t, tt.severity, issues[0].Severity)
			assert.Equal(t, tt.penalty, issues[0].ConfidencePenalty)
		})
	}
}

func TestNetBoundsRule(t *testing.T) {
	r := rule(t, "totals.net_positive", nil)

	in := basicInput()
	in.Declared.NetRemittance = domain.Float(0)
	issues := r.Check(context.Background(), in)
	require.Len(t, issues, 1)
	assert.Equal(t, payslip.CodeNetNotPositive, issues[0].Code)
	assert.Equal(t, domain.SeverityCritical, issues[0].Severity)

	in = basicInput()
	in.Declared.NetRemittance = domain.Float(60000)
	issues = r.Check(context.Background(), in)
	require.Len(t, issues, 1)
	assert.Equal(t, payslip.CodeNetExceedsGross, issues[0].Code)

	in = basicInput()
	in.Declared.NetRemittance = nil
	assert.Empty(t, r.Check(context.Background(), in))
}

func TestDeductionsWithinEarningsRule(t *testing.T) {
	r := rule(t, "totals.deductions_vs_earnings", nil)

	in := basicInput()
	in.Declared.TotalDeductions = domain.Float(50001)
	issues := r.Check(context.Background(), in)
	require.Len(t, issues, 1)
	assert.Equal(t, payslip.CodeDeductionsExceedEarnings, issues[0].Code)
	assert.Equal(t, -0.3, issues[0].ConfidencePenalty)

	in = basicInput()
	in.Declared.GrossPay = nil
	in.Reconciliation.DeductionsSum = 60000
	assert.Len(t, r.Check(context.Background(), in), 1)

	assert.Empty(t, r.Check(context.Background(), basicInput()))
}

func TestLineItemSumsRule(t *testing.T) {
	r := rule(t, "sums.line_items", nil)

	in := basicInput()
	in.Reconciliation.EarningsSumError = 0.236
	in.Reconciliation.DeductionsSumError = 0.03
	issues := r.Check(context.Background(), in)

	require.Len(t, issues, 2)
	assert.Equal(t, payslip.CodeEarningsSumMismatch, issues[0].Code)
	assert.Equal(t, domain.SeverityWarning, issues[0].Severity)
	assert.Equal(t, -0.1, issues[0].ConfidencePenalty)
	assert.Equal(t, payslip.CodeDeductionsSumMismatch, issues[1].Code)
	assert.Equal(t, domain.SeverityMinor, issues[1].Severity)
	assert.Equal(t, -0.05, issues[1].ConfidencePenalty)

	in.Reconciliation.EarningsSumError = 0.01
	in.Reconciliation.DeductionsSumError = 0
	assert.Empty(t, r.Check(context.Background(), in))
}

func TestBasicPayRule(t *testing.T) {
	r := rule(t, "presence.basic_pay", nil)

	assert.Empty(t, r.Check(context.Background(), basicInput()))

	in := basicInput()
	in.Reconciled.Earnings = map[string]float64{"DA": 100}
	issues := r.Check(context.Background(), in)
	require.Len(t, issues, 1)
	assert.Equal(t, payslip.CodeMissingBasicPay, issues[0].Code)
	assert.Equal(t, domain.SeverityMinor, issues[0].Severity)
}

func TestSuspiciousDeductionRule(t *testing.T) {
	r := rule(t, "keywords.suspicious_deduction", keywordStub{"TOTAL": true, "REFUND": true})

	in := basicInput()
	in.Reconciled.Deductions = map[string]float64{"TOTAL": 1, "REFUND": 2, "ITAX": 3}
	issues := r.Check(context.Background(), in)

	require.Len(t, issues, 2)
	for _, is := range issues {
		assert.Equal(t, payslip.CodeSuspiciousDeductionKey, is.Code)
		assert.Equal(t, domain.SeverityWarning, is.Severity)
		assert.Equal(t, -0.1, is.ConfidencePenalty)
	}
	assert.Contains(t, issues[0].Description, "REFUND")
}

func TestGrossRangeRule(t *testing.T) {
	r := rule(t, "range.gross_pay", nil)

	for _, g := range []float64{0, 999.99, 10_000_001} {
		in := basicInput()
		in.Reconciled.GrossPay = domain.Float(g)
		issues := r.Check(context.Background(), in)
		require.Len(t, issues, 1, "gross %.2f", g)
		assert.Equal(t, payslip.CodeGrossImplausible, issues[0].Code)
	}
	assert.Empty(t, r.Check(context.Background(), basicInput()))
}
