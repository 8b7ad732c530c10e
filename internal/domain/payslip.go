package domain

import "maps"

// ExtractionRequest is one immutable extraction attempt.
type ExtractionRequest struct {
	Payload            []byte
	Mode               ExtractionMode
	MimeType           string // vision only
	ReconciliationHint string
	DeviceID           string
}

// Text returns the payload as text for text-mode requests.
func (r *ExtractionRequest) Text() string {
	return string(r.Payload)
}

// WithHint returns a copy of the request carrying a reconciliation hint.
func (r *ExtractionRequest) WithHint(hint string) ExtractionRequest {
	cp := *r
	cp.ReconciliationHint = hint
	return cp
}

// TokenUsage holds the counters reported by the LLM provider.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add returns the element-wise sum of two usages.
func (u TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  u.InputTokens + o.InputTokens,
		OutputTokens: u.OutputTokens + o.OutputTokens,
		TotalTokens:  u.TotalTokens + o.TotalTokens,
	}
}

// RawLLMResponse is produced once per LLM call and never mutated.
type RawLLMResponse struct {
	Content  string
	Usage    *TokenUsage
	Provider string
	Model    string
}

// ParsedPayslip mirrors the wire format exchanged with the LLM.
// Totals stay optional until reconciliation.
type ParsedPayslip struct {
	Earnings        map[string]float64 `json:"earnings"`
	Deductions      map[string]float64 `json:"deductions"`
	GrossPay        *float64           `json:"grossPay"`
	TotalDeductions *float64           `json:"totalDeductions"`
	NetRemittance   *float64           `json:"netRemittance"`
	Month           string             `json:"month"`
	Year            *int               `json:"year"`
}

// Clone returns a deep copy.
func (p *ParsedPayslip) Clone() *ParsedPayslip {
	if p == nil {
		return nil
	}
	cp := &ParsedPayslip{
		Earnings:   cloneAmounts(p.Earnings),
		Deductions: cloneAmounts(p.Deductions),
		Month:      p.Month,
	}
	cp.GrossPay = cloneFloat(p.GrossPay)
	cp.TotalDeductions = cloneFloat(p.TotalDeductions)
	cp.NetRemittance = cloneFloat(p.NetRemittance)
	if p.Year != nil {
		y := *p.Year
		cp.Year = &y
	}
	return cp
}

// Finalize converts the response into the canonical record shape.
// Missing totals become zero.
func (p *ParsedPayslip) Finalize() Payslip {
	out := Payslip{
		Earnings:        cloneAmounts(p.Earnings),
		Deductions:      cloneAmounts(p.Deductions),
		GrossPay:        Value(p.GrossPay),
		TotalDeductions: Value(p.TotalDeductions),
		NetRemittance:   Value(p.NetRemittance),
		Month:           p.Month,
	}
	if p.Year != nil {
		out.Year = *p.Year
	}
	return out
}

// Payslip is the finalized structured record.
type Payslip struct {
	Earnings        map[string]float64 `json:"earnings"`
	Deductions      map[string]float64 `json:"deductions"`
	GrossPay        float64            `json:"grossPay"`
	TotalDeductions float64            `json:"totalDeductions"`
	NetRemittance   float64            `json:"netRemittance"`
	Month           string             `json:"month"`
	Year            int                `json:"year"`
}

// Clone returns a deep copy.
func (p Payslip) Clone() Payslip {
	p.Earnings = cloneAmounts(p.Earnings)
	p.Deductions = cloneAmounts(p.Deductions)
	return p
}

// Response converts a finalized payslip back to the wire shape, with every total present.
func (p Payslip) Response() *ParsedPayslip {
	year := p.Year
	return &ParsedPayslip{
		Earnings:        cloneAmounts(p.Earnings),
		Deductions:      cloneAmounts(p.Deductions),
		GrossPay:        Float(p.GrossPay),
		TotalDeductions: Float(p.TotalDeductions),
		NetRemittance:   Float(p.NetRemittance),
		Month:           p.Month,
		Year:            &year,
	}
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}

// Value dereferences p, treating nil as zero.
func Value(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func cloneFloat(p *float64) *float64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneAmounts(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return maps.Clone(m)
}
