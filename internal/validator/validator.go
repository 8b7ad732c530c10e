package validator

import (
	"context"

	"payslipx/internal/domain"
	"payslipx/internal/validator/payslip"
)

// Rule is the interface for a single sanity check.
type Rule interface {
	Check(ctx context.Context, in *payslip.Input) []domain.SanityCheckIssue
	RuleKey() string
	RuleName() string
}
