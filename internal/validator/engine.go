package validator

import (
	"context"
	"log"

	"payslipx/internal/domain"
	"payslipx/internal/validator/payslip"
)

// MaxAdjustment is the floor of the summed confidence penalties.
const MaxAdjustment = -0.5

// Engine runs every registered rule against a payslip.
type Engine struct {
	registry *Registry
}

// NewEngine creates a new validation engine.
func NewEngine(registry *Registry) *Engine {
	return &Engine{registry: registry}
}

// Validate runs all rules in registration order and aggregates the result.
func (e *Engine) Validate(ctx context.Context, in *payslip.Input) domain.SanityCheckResult {
	res := domain.SanityCheckResult{
		Issues:   []domain.SanityCheckIssue{},
		Severity: domain.SeverityNone,
	}
	for _, rule := range e.registry.All() {
		res.Issues = append(res.Issues, rule.Check(ctx, in)...)
	}
	for _, is := range res.Issues {
		res.Severity = domain.MaxSeverity(res.Severity, is.Severity)
		res.ConfidenceAdjustment += is.ConfidencePenalty
	}
	if res.ConfidenceAdjustment < MaxAdjustment {
		res.ConfidenceAdjustment = MaxAdjustment
	}
	res.IsValid = res.Severity != domain.SeverityCritical

	if len(res.Issues) > 0 {
		codes := make([]string, 0, len(res.Issues))
		for _, is := range res.Issues {
			codes = append(codes, is.Code)
		}
		log.Printf("validator.Engine.Validate: severity=%s adjustment=%.2f issues=%v", res.Severity, res.ConfidenceAdjustment, codes)
	}
	return res
}

// FieldStatuses maps every payslip field to its status for the given result.
func FieldStatuses(res *domain.SanityCheckResult) map[string]*FieldStatus {
	return ComputeFieldStatuses(res.Issues, []string{
		payslip.FieldEarnings,
		payslip.FieldDeductions,
		payslip.FieldGrossPay,
		payslip.FieldTotalDeductions,
		payslip.FieldNetRemittance,
		payslip.FieldMonth,
		payslip.FieldYear,
	})
}
