package pii

import (
	"context"
	"strings"

	"payslipx/internal/domain"
)

// Redactor is the pattern-based redaction boundary applied before a payload leaves the process.
type Redactor struct {
	scanner *Scanner
}

// NewRedactor creates a Redactor backed by the default patterns.
func NewRedactor() *Redactor {
	return &Redactor{scanner: NewScanner()}
}

func (r *Redactor) Redact(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrNoTextProvided
	}
	return r.scanner.Redact(text), nil
}

// NoopRedactor passes already-sanitized input through.
type NoopRedactor struct{}

func (NoopRedactor) Redact(_ context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrNoTextProvided
	}
	return text, nil
}
