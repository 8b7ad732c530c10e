package validator

import (
	"payslipx/internal/domain"
)

// FieldStatus represents the computed validation state for a single field path.
type FieldStatus struct {
	Status   domain.FieldValidationStatus `json:"status"`
	Messages []string                     `json:"messages"`
}

// ComputeFieldStatuses derives per-field statuses from issues. A critical
// issue marks its fields invalid; any other issue marks them unsure. Fields
// listed in fields but never named by an issue are valid.
func ComputeFieldStatuses(issues []domain.SanityCheckIssue, fields []string) map[string]*FieldStatus {
	statuses := make(map[string]*FieldStatus, len(fields))
	for _, f := range fields {
		statuses[f] = &FieldStatus{Status: domain.FieldStatusValid, Messages: []string{}}
	}

	for _, is := range issues {
		for _, f := range is.Fields {
			fs, ok := statuses[f]
			if !ok {
				fs = &FieldStatus{Status: domain.FieldStatusValid, Messages: []string{}}
				statuses[f] = fs
			}
			if is.Severity == domain.SeverityCritical {
				fs.Status = domain.FieldStatusInvalid
			} else if fs.Status != domain.FieldStatusInvalid {
				fs.Status = domain.FieldStatusUnsure
			}
			fs.Messages = append(fs.Messages, is.Description)
		}
	}

	return statuses
}
