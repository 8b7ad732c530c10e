package domain

import (
	"time"

	"github.com/google/uuid"
)

// SanityCheckIssue is one finding of the sanity-check validator.
type SanityCheckIssue struct {
	Code              string   `json:"code"`
	Description       string   `json:"description"`
	Severity          Severity `json:"severity"`
	ConfidencePenalty float64  `json:"confidence_penalty"` // always <= 0
	Fields            []string `json:"fields,omitempty"`
}

// SanityCheckResult aggregates the issues of one validator run.
type SanityCheckResult struct {
	Issues               []SanityCheckIssue `json:"issues"`
	Severity             Severity           `json:"severity"`
	ConfidenceAdjustment float64            `json:"confidence_adjustment"`
	IsValid              bool               `json:"is_valid"`
}

// HasIssue reports whether an issue with the given code was raised.
func (r *SanityCheckResult) HasIssue(code string) bool {
	for i := range r.Issues {
		if r.Issues[i].Code == code {
			return true
		}
	}
	return false
}

// Clone returns a deep copy, including each issue's Fields.
func (r SanityCheckResult) Clone() SanityCheckResult {
	if r.Issues == nil {
		return r
	}
	issues := make([]SanityCheckIssue, len(r.Issues))
	for i, is := range r.Issues {
		if is.Fields != nil {
			is.Fields = append(make([]string, 0, len(is.Fields)), is.Fields...)
		}
		issues[i] = is
	}
	r.Issues = issues
	return r
}

// ConfidenceResult is the trust estimate attached to an extraction.
type ConfidenceResult struct {
	Overall     float64            `json:"overall"`
	FieldLevel  map[string]float64 `json:"field_level"`
	Methodology string             `json:"methodology"`
}

// Clone returns a deep copy.
func (c ConfidenceResult) Clone() ConfidenceResult {
	fl := make(map[string]float64, len(c.FieldLevel))
	for k, v := range c.FieldLevel {
		fl[k] = v
	}
	c.FieldLevel = fl
	return c
}

// ReconciliationResult reports the consistency of totals before they were repaired.
type ReconciliationResult struct {
	EarningsSum        float64  `json:"earnings_sum"`
	DeductionsSum      float64  `json:"deductions_sum"`
	FundamentalError   float64  `json:"fundamental_error"`
	EarningsSumError   float64  `json:"earnings_sum_error"`
	DeductionsSumError float64  `json:"deductions_sum_error"`
	NeedsRetry         bool     `json:"needs_retry"`
	Adjustments        []string `json:"adjustments,omitempty"`
	Hint               string   `json:"-"`
}

// VerificationOutcome records what the second pass decided.
type VerificationOutcome struct {
	Mode            VerificationMode     `json:"mode"`
	Decision        VerificationDecision `json:"decision"`
	Agreement       float64              `json:"agreement"`
	FirstConfidence float64              `json:"first_confidence"`
	FinalConfidence float64              `json:"final_confidence"`
	UsedSecondPass  bool                 `json:"used_second_pass"`
	OriginalError   float64              `json:"original_error,omitempty"`
	RetryError      float64              `json:"retry_error,omitempty"`
	Error           string               `json:"error,omitempty"`
}

// ExtractionResult is the output of one completed extraction session.
type ExtractionResult struct {
	SessionID      uuid.UUID            `json:"session_id"`
	ContentHash    string               `json:"content_hash"`
	Payslip        Payslip              `json:"payslip"`
	Confidence     ConfidenceResult     `json:"confidence"`
	Sanity         SanityCheckResult    `json:"sanity"`
	Reconciliation ReconciliationResult `json:"reconciliation"`
	Verification   *VerificationOutcome `json:"verification,omitempty"`
	Provider       string               `json:"provider"`
	Model          string               `json:"model"`
	Usage          TokenUsage           `json:"usage"`
	FromCache      bool                 `json:"from_cache"`
	CompletedAt    time.Time            `json:"completed_at"`
}

// Clone returns a deep copy so cached results cannot be mutated by callers.
func (r *ExtractionResult) Clone() *ExtractionResult {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Payslip = r.Payslip.Clone()
	cp.Confidence = r.Confidence.Clone()
	cp.Sanity = r.Sanity.Clone()
	if r.Reconciliation.Adjustments != nil {
		cp.Reconciliation.Adjustments = append(make([]string, 0, len(r.Reconciliation.Adjustments)), r.Reconciliation.Adjustments...)
	}
	if r.Verification != nil {
		v := *r.Verification
		cp.Verification = &v
	}
	return &cp
}

// PayslipRecord is the value handed to downstream persistence.
type PayslipRecord struct {
	ID              uuid.UUID          `json:"id"`
	SessionID       uuid.UUID          `json:"session_id"`
	DeviceID        string             `json:"device_id"`
	ContentHash     string             `json:"content_hash"`
	Payslip         Payslip            `json:"payslip"`
	Confidence      float64            `json:"confidence"`
	FieldConfidence map[string]float64 `json:"field_confidence"`
	Methodology     string             `json:"methodology"`
	CreatedAt       time.Time          `json:"created_at"`
}

// UsageRecord is one append-only ledger entry per LLM attempt.
type UsageRecord struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Timestamp    time.Time `db:"created_at" json:"timestamp"`
	DeviceID     string    `db:"device_id" json:"device_id"`
	SessionID    uuid.UUID `db:"session_id" json:"session_id"`
	Provider     string    `db:"provider" json:"provider"`
	Model        string    `db:"model" json:"model"`
	InputTokens  int       `db:"input_tokens" json:"input_tokens"`
	OutputTokens int       `db:"output_tokens" json:"output_tokens"`
	TotalTokens  int       `db:"total_tokens" json:"total_tokens"`
	CostUSD      float64   `db:"cost_usd" json:"cost_usd"`
	CostINR      float64   `db:"cost_inr" json:"cost_inr"`
	Success      bool      `db:"success" json:"success"`
	LatencyMs    int64     `db:"latency_ms" json:"latency_ms"`
	ErrorMessage string    `db:"error_message" json:"error_message,omitempty"`
}

// DeviceUsage aggregates ledger entries per anonymous device.
type DeviceUsage struct {
	DeviceID    string    `json:"device_id"`
	Calls       int       `json:"calls"`
	Failures    int       `json:"failures"`
	TotalTokens int       `json:"total_tokens"`
	CostUSD     float64   `json:"cost_usd"`
	CostINR     float64   `json:"cost_inr"`
	LastSeen    time.Time `json:"last_seen"`
}

// UsageSummary is the ledger rollup for a time range.
type UsageSummary struct {
	From        time.Time     `json:"from"`
	To          time.Time     `json:"to"`
	Calls       int           `json:"calls"`
	Failures    int           `json:"failures"`
	TotalTokens int           `json:"total_tokens"`
	CostUSD     float64       `json:"cost_usd"`
	CostINR     float64       `json:"cost_inr"`
	P50CostUSD  float64       `json:"p50_cost_usd"`
	P95CostUSD  float64       `json:"p95_cost_usd"`
	Devices     []DeviceUsage `json:"devices"`
	Anomalies   []DeviceUsage `json:"anomalies"`
}

// ExtractionJob tracks a queued extraction.
type ExtractionJob struct {
	ID        uuid.UUID         `json:"id"`
	DeviceID  string            `json:"device_id"`
	Status    JobStatus         `json:"status"`
	Stage     Stage             `json:"stage"`
	Progress  float64           `json:"progress"`
	Result    *ExtractionResult `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
