package pii

import (
	"fmt"
	"log"
	"regexp"
	"strings"

	"payslipx/internal/domain"
)

// Pattern is one class of identifier the scanner looks for.
type Pattern struct {
	Kind        string
	Severity    domain.Severity
	Placeholder string
	re          *regexp.Regexp
	group       int // submatch to redact; 0 redacts the whole match
}

// Finding is one detected identifier. The matched text itself is never kept.
type Finding struct {
	Kind     string          `json:"kind"`
	Severity domain.Severity `json:"severity"`
	Offset   int             `json:"offset"`
}

// ViolationError rejects an LLM response that leaked critical identifiers.
type ViolationError struct {
	Findings []Finding
}

func (e *ViolationError) Error() string {
	kinds := make([]string, 0, len(e.Findings))
	for _, f := range e.Findings {
		kinds = append(kinds, f.Kind)
	}
	return fmt.Sprintf("%v: %s", domain.ErrPrivacyViolation, strings.Join(kinds, ", "))
}

func (e *ViolationError) Is(target error) bool {
	return target == domain.ErrPrivacyViolation
}

// DefaultPatterns returns the identifier patterns for Indian payslips.
// Order matters for Redact: earlier patterns replace text before later ones see it.
func DefaultPatterns() []Pattern {
	return []Pattern{
		{Kind: "pan", Severity: domain.SeverityCritical, Placeholder: "[PAN]",
			re: regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`)},
		{Kind: "card", Severity: domain.SeverityCritical, Placeholder: "[CARD]",
			re: regexp.MustCompile(`\b[0-9]{4}[ -][0-9]{4}[ -][0-9]{4}[ -][0-9]{4}\b`)},
		// Space-separated groups only count next to a label: a row of
		// three 4-digit amounts in a pay table looks the same.
		{Kind: "aadhaar", Severity: domain.SeverityCritical, Placeholder: "[AADHAAR]",
			re:    regexp.MustCompile(`(?i)\b(?:aadhaar|aadhar|uid|uidai)\s*(?:no\.?|number|#)?\s*[:\-]?\s*([2-9][0-9]{3}[ -]?[0-9]{4}[ -]?[0-9]{4})\b`),
			group: 1},
		{Kind: "aadhaar", Severity: domain.SeverityCritical, Placeholder: "[AADHAAR]",
			re: regexp.MustCompile(`\b[2-9][0-9]{3}-?[0-9]{4}-?[0-9]{4}\b`)},
		{Kind: "bank_account", Severity: domain.SeverityCritical, Placeholder: "[ACCOUNT]",
			re:    regexp.MustCompile(`(?i)\b(?:a/c|acct|account|bank\s+a/c)\s*(?:no\.?|number|#)?\s*[:\-]?\s*([0-9]{9,18})\b`),
			group: 1},
		{Kind: "ifsc", Severity: domain.SeverityWarning, Placeholder: "[IFSC]",
			re: regexp.MustCompile(`\b[A-Z]{4}0[A-Z0-9]{6}\b`)},
		{Kind: "email", Severity: domain.SeverityWarning, Placeholder: "[EMAIL]",
			re: regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
		{Kind: "phone", Severity: domain.SeverityWarning, Placeholder: "[PHONE]",
			re: regexp.MustCompile(`(?:\+91[ -]?)?\b[6-9][0-9]{9}\b`)},
		{Kind: "name", Severity: domain.SeverityWarning, Placeholder: "[NAME]",
			re:    regexp.MustCompile(`(?i)\bname\s*[:\-]\s*([A-Za-z][A-Za-z .']{1,60}[A-Za-z])`),
			group: 1},
	}
}

// Scanner pattern-scans text for personally identifying data.
type Scanner struct {
	patterns []Pattern
}

// NewScanner creates a Scanner with the default patterns.
func NewScanner() *Scanner {
	return &Scanner{patterns: DefaultPatterns()}
}

// Scan returns every finding in text.
func (s *Scanner) Scan(text string) []Finding {
	var findings []Finding
	for _, p := range s.patterns {
		for _, loc := range p.re.FindAllStringSubmatchIndex(text, -1) {
			start := loc[2*p.group]
			if start < 0 {
				continue
			}
			findings = append(findings, Finding{Kind: p.Kind, Severity: p.Severity, Offset: start})
		}
	}
	return findings
}

// Redact replaces every match, of any severity, with its placeholder.
func (s *Scanner) Redact(text string) string {
	for _, p := range s.patterns {
		text = redactPattern(p, text)
	}
	return text
}

func redactPattern(p Pattern, text string) string {
	if p.group == 0 {
		return p.re.ReplaceAllString(text, p.Placeholder)
	}
	return p.re.ReplaceAllStringFunc(text, func(m string) string {
		sub := p.re.FindStringSubmatchIndex(m)
		if sub == nil || sub[2*p.group] < 0 {
			return m
		}
		return m[:sub[2*p.group]] + p.Placeholder + m[sub[2*p.group+1]:]
	})
}

// ScrubResponse checks the raw LLM content and the decoded payslip.
// Critical findings reject the response with a ViolationError. Warning
// findings are redacted from the payslip's free-text fields.
func (s *Scanner) ScrubResponse(raw string, p *domain.ParsedPayslip) (*domain.ParsedPayslip, []Finding, error) {
	findings := s.Scan(raw)

	var critical []Finding
	for _, f := range findings {
		if f.Severity == domain.SeverityCritical {
			critical = append(critical, f)
		}
	}
	if len(critical) > 0 {
		log.Printf("pii.Scanner.ScrubResponse: rejecting response with %d critical finding(s)", len(critical))
		return nil, findings, &ViolationError{Findings: critical}
	}
	if len(findings) == 0 {
		return p, nil, nil
	}

	log.Printf("pii.Scanner.ScrubResponse: redacting %d warning finding(s)", len(findings))
	out := p.Clone()
	out.Earnings = s.redactKeys(out.Earnings)
	out.Deductions = s.redactKeys(out.Deductions)
	out.Month = s.Redact(out.Month)
	return out, findings, nil
}

func (s *Scanner) redactKeys(m map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		out[s.Redact(k)] += v
	}
	return out
}
