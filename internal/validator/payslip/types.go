package payslip

import "payslipx/internal/domain"

// Field paths referenced by issues and field-level confidence.
const (
	FieldEarnings        = "earnings"
	FieldDeductions      = "deductions"
	FieldGrossPay        = "grossPay"
	FieldTotalDeductions = "totalDeductions"
	FieldNetRemittance   = "netRemittance"
	FieldMonth           = "month"
	FieldYear            = "year"
)

// Issue codes.
const (
	CodeFundamentalMismatch      = "FUNDAMENTAL_EQUATION_MISMATCH"
	CodeNetNotPositive           = "NET_REMITTANCE_NOT_POSITIVE"
	CodeNetExceedsGross          = "NET_EXCEEDS_GROSS"
	CodeDeductionsExceedEarnings = "DEDUCTIONS_EXCEED_EARNINGS"
	CodeEarningsSumMismatch      = "EARNINGS_SUM_MISMATCH"
	CodeDeductionsSumMismatch    = "DEDUCTIONS_SUM_MISMATCH"
	CodeMissingBasicPay          = "MISSING_BASIC_PAY"
	CodeSuspiciousDeductionKey   = "SUSPICIOUS_DEDUCTION_KEY"
	CodeGrossImplausible         = "GROSS_PAY_IMPLAUSIBLE"
)

// Input is what every rule sees. Declared holds the totals as the model
// reported them after sanitization; Reconciled holds the repaired payslip.
type Input struct {
	Declared       *domain.ParsedPayslip
	Reconciled     *domain.ParsedPayslip
	Reconciliation domain.ReconciliationResult
}

// KeywordMatcher flags deduction keys that name totals or refunds.
type KeywordMatcher interface {
	IsSuspiciousDeduction(key string) bool
}

// Config holds rule thresholds. Error thresholds are fractions.
type Config struct {
	EquationTolerance   float64
	EquationCritical    float64
	SumWarningTolerance float64
	SumMinorTolerance   float64
	MinGrossPay         float64
	MaxGrossPay         float64
	BasicPayCodes       []string
}

// DefaultConfig returns the built-in thresholds.
func DefaultConfig() Config {
	return Config{
		EquationTolerance:   0.01,
		EquationCritical:    0.05,
		SumWarningTolerance: 0.05,
		SumMinorTolerance:   0.01,
		MinGrossPay:         1000,
		MaxGrossPay:         10_000_000,
		BasicPayCodes:       []string{"BPAY"},
	}
}

func issue(code string, sev domain.Severity, penalty float64, desc string, fields ...string) domain.SanityCheckIssue {
	return domain.SanityCheckIssue{
		Code:              code,
		Description:       desc,
		Severity:          sev,
		ConfidencePenalty: penalty,
		Fields:            fields,
	}
}
