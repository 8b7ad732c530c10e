package domain

// ExtractionMode selects how the payload is sent to the LLM.
type ExtractionMode string

const (
	ModeText   ExtractionMode = "text"
	ModeVision ExtractionMode = "vision"
)

// Valid reports whether m is a known extraction mode.
func (m ExtractionMode) Valid() bool {
	return m == ModeText || m == ModeVision
}

// AllowedImageTypes maps accepted vision MIME types to file extensions.
var AllowedImageTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
}

// Stage is a step of one extraction session.
type Stage string

const (
	StagePreparing  Stage = "preparing"
	StageExtracting Stage = "extracting"
	StageValidating Stage = "validating"
	StageVerifying  Stage = "verifying"
	StageSaving     Stage = "saving"
	StageCompleted  Stage = "completed"
	StageFailed     Stage = "failed"
)

var stageProgress = map[Stage]float64{
	StagePreparing:  0.05,
	StageExtracting: 0.40,
	StageValidating: 0.60,
	StageVerifying:  0.80,
	StageSaving:     0.95,
	StageCompleted:  1.0,
	StageFailed:     0.0,
}

// Progress returns the fraction reported when the session enters the stage.
func (s Stage) Progress() float64 {
	return stageProgress[s]
}

// Terminal reports whether no further transition can follow s.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Severity grades a sanity-check issue. The zero value means no issue.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityNone:     0,
	SeverityMinor:    1,
	SeverityWarning:  2,
	SeverityCritical: 3,
}

// Rank orders severities so that aggregation can take the maximum.
func (s Severity) Rank() int {
	return severityRank[s]
}

// MaxSeverity returns the more severe of a and b.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	if a == "" {
		return SeverityNone
	}
	return a
}

// VerificationMode identifies why a second pass was issued.
type VerificationMode string

const (
	VerificationIndependent    VerificationMode = "independent"
	VerificationReconciliation VerificationMode = "reconciliation"
)

// VerificationDecision records which pass the verifier kept.
type VerificationDecision string

const (
	DecisionAcceptHigh     VerificationDecision = "accept_high_agreement"
	DecisionAcceptModerate VerificationDecision = "accept_moderate_agreement"
	DecisionRejectLow      VerificationDecision = "reject_low_agreement"
	DecisionAcceptImproved VerificationDecision = "accept_improved_reconciliation"
	DecisionKeepOriginal   VerificationDecision = "keep_original"
	DecisionSecondPassFail VerificationDecision = "second_pass_failed"
)

// JobStatus is the lifecycle of a queued extraction.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Role is carried in device tokens.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDevice Role = "device"
)

// FieldValidationStatus is the per-field outcome derived from sanity-check issues.
type FieldValidationStatus string

const (
	FieldStatusValid   FieldValidationStatus = "valid"
	FieldStatusUnsure  FieldValidationStatus = "unsure"
	FieldStatusInvalid FieldValidationStatus = "invalid"
)
