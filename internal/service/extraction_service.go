package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"payslipx/internal/cache"
	"payslipx/internal/confidence"
	"payslipx/internal/domain"
	"payslipx/internal/llm"
	"payslipx/internal/metrics"
	"payslipx/internal/normalize"
	"payslipx/internal/pii"
	"payslipx/internal/port"
	"payslipx/internal/ratelimit"
	"payslipx/internal/reconcile"
	"payslipx/internal/usage"
	"payslipx/internal/validator"
	"payslipx/internal/validator/payslip"
	"payslipx/internal/verification"
)

// ExtractionConfig holds request limits and quota accounting policy.
type ExtractionConfig struct {
	MaxTextBytes  int
	MaxImageBytes int64
	// CountVerificationCalls charges second passes to the rate limiter
	// without gating them.
	CountVerificationCalls bool
}

// ExtractionDeps are the collaborators of the pipeline. Payslips and
// Metrics may be nil.
type ExtractionDeps struct {
	LLM        port.LLMClient
	Redactor   port.Redactor
	Decoder    *llm.Decoder
	Scanner    *pii.Scanner
	Sanitizer  *normalize.Sanitizer
	Reconciler *reconcile.Engine
	Validator  *validator.Engine
	Calculator *confidence.Calculator
	Verifier   *verification.Service
	Cache      *cache.Cache
	Limiter    *ratelimit.Limiter
	Ledger     *usage.Service
	Payslips   port.PayslipRepository
	Metrics    *metrics.Metrics
}

type extractionService struct {
	ExtractionDeps
	cfg ExtractionConfig
	now func() time.Time
}

// NewExtractionService creates the pipeline orchestrator.
func NewExtractionService(deps ExtractionDeps, cfg ExtractionConfig) port.ExtractionService {
	return &extractionService{ExtractionDeps: deps, cfg: cfg, now: time.Now}
}

// session tracks one extraction: its id, stage transitions and spend.
type session struct {
	id       uuid.UUID
	deviceID string
	progress port.ProgressFunc
	metrics  *metrics.Metrics
	stage    domain.Stage
	entered  time.Time
	usage    domain.TokenUsage
}

func (s *session) enter(stage domain.Stage) {
	now := time.Now()
	if s.stage != "" {
		s.metrics.ObserveStage(s.stage, now.Sub(s.entered))
	}
	s.stage, s.entered = stage, now
	if s.progress != nil {
		s.progress(stage, stage.Progress())
	}
}

func (s *extractionService) Extract(ctx context.Context, req domain.ExtractionRequest, progress port.ProgressFunc) (*domain.ExtractionResult, error) {
	sess := &session{id: uuid.New(), deviceID: req.DeviceID, progress: progress, metrics: s.Metrics}
	start := s.now()
	s.Metrics.StartExtraction()

	res, outcome, err := s.run(ctx, sess, req)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			outcome = "canceled"
		}
		log.Printf("service.ExtractionService.Extract: session %s failed at %s: %v", sess.id, sess.stage, err)
		sess.enter(domain.StageFailed)
	}
	s.Metrics.FinishExtraction(outcome, s.now().Sub(start))
	return res, err
}

func (s *extractionService) run(ctx context.Context, sess *session, req domain.ExtractionRequest) (*domain.ExtractionResult, string, error) {
	sess.enter(domain.StagePreparing)
	if err := s.validateRequest(&req); err != nil {
		return nil, "rejected", err
	}

	key := cache.Key(req.Mode, req.Payload)
	if cached, ok := s.Cache.Get(key); ok {
		s.Metrics.CacheLookup(true)
		cached.FromCache = true
		log.Printf("service.ExtractionService.run: session %s served from cache (%s)", sess.id, key[:12])
		sess.enter(domain.StageCompleted)
		return cached, "cached", nil
	}
	s.Metrics.CacheLookup(false)

	redacted, err := s.redact(ctx, req)
	if err != nil {
		s.recordFailure(ctx, sess, err)
		return nil, "failed", err
	}

	if err := s.Limiter.Reserve(); err != nil {
		var qe *ratelimit.QuotaError
		if errors.As(err, &qe) {
			s.Metrics.RateLimitDenied(string(qe.Reason))
		}
		err = fmt.Errorf("service.ExtractionService: %w", err)
		s.recordFailure(ctx, sess, err)
		return nil, "rate_limited", err
	}

	sess.enter(domain.StageExtracting)
	resp, parsed, err := s.call(ctx, sess, redacted, "")
	if err != nil {
		return nil, "failed", err
	}

	sess.enter(domain.StageValidating)
	kept := s.evaluate(ctx, parsed, resp)

	var outcome *domain.VerificationOutcome
	if mode, ok := s.Verifier.Mode(kept); ok {
		sess.enter(domain.StageVerifying)
		runner := verification.RunnerFunc(func(ctx context.Context, r domain.ExtractionRequest, m domain.VerificationMode) (*verification.Pass, error) {
			if s.cfg.CountVerificationCalls {
				s.Limiter.RecordRequest()
			}
			resp, parsed, err := s.call(ctx, sess, r, m)
			if err != nil {
				return nil, err
			}
			return s.evaluate(ctx, parsed, resp), nil
		})
		kept, outcome, err = s.Verifier.Verify(ctx, redacted, kept, mode, runner)
		if err != nil {
			return nil, "failed", err
		}
		s.Metrics.Verification(outcome.Mode, outcome.Decision)
	}

	if err := ctx.Err(); err != nil {
		return nil, "failed", err
	}

	sess.enter(domain.StageSaving)
	res := &domain.ExtractionResult{
		SessionID:      sess.id,
		ContentHash:    key,
		Payslip:        kept.Payslip.Finalize(),
		Confidence:     kept.Confidence,
		Sanity:         kept.Sanity,
		Reconciliation: kept.Reconciliation,
		Verification:   outcome,
		Provider:       kept.Response.Provider,
		Model:          kept.Response.Model,
		Usage:          sess.usage,
		CompletedAt:    s.now().UTC(),
	}
	if err := s.save(ctx, sess, res); err != nil {
		s.recordFailure(ctx, sess, err)
		return nil, "failed", err
	}
	s.Cache.Put(key, res)

	sess.enter(domain.StageCompleted)
	log.Printf("service.ExtractionService.run: session %s completed (confidence=%.3f, provider=%s, tokens=%d)",
		sess.id, res.Confidence.Overall, res.Provider, res.Usage.TotalTokens)
	return res, "completed", nil
}

func (s *extractionService) validateRequest(req *domain.ExtractionRequest) error {
	if !req.Mode.Valid() {
		return fmt.Errorf("%w: unknown extraction mode %q", domain.ErrInvalidRequest, req.Mode)
	}
	if len(req.Payload) == 0 {
		if req.Mode == domain.ModeText {
			return domain.ErrNoTextProvided
		}
		return fmt.Errorf("%w: empty image", domain.ErrInvalidRequest)
	}
	switch req.Mode {
	case domain.ModeText:
		if s.cfg.MaxTextBytes > 0 && len(req.Payload) > s.cfg.MaxTextBytes {
			return fmt.Errorf("%w: text is %d bytes, limit %d", domain.ErrFileTooLarge, len(req.Payload), s.cfg.MaxTextBytes)
		}
	case domain.ModeVision:
		if _, ok := domain.AllowedImageTypes[req.MimeType]; !ok {
			return fmt.Errorf("%w: %q", domain.ErrUnsupportedType, req.MimeType)
		}
		if s.cfg.MaxImageBytes > 0 && int64(len(req.Payload)) > s.cfg.MaxImageBytes {
			return fmt.Errorf("%w: image is %d bytes, limit %d", domain.ErrFileTooLarge, len(req.Payload), s.cfg.MaxImageBytes)
		}
	}
	return nil
}

// redact applies the redaction boundary to text payloads. Images go out as captured.
func (s *extractionService) redact(ctx context.Context, req domain.ExtractionRequest) (domain.ExtractionRequest, error) {
	if req.Mode != domain.ModeText {
		return req, nil
	}
	text, err := s.Redactor.Redact(ctx, req.Text())
	if err != nil {
		return req, fmt.Errorf("service.ExtractionService.redact: %w", err)
	}
	req.Payload = []byte(text)
	return req, nil
}

// call performs one LLM attempt and records it in the usage ledger. The
// attempt fails on transport errors, undecodable content and critical PII.
// Provider failovers inside the attempt are recorded and charged as calls of
// their own. A canceled attempt records nothing.
func (s *extractionService) call(ctx context.Context, sess *session, req domain.ExtractionRequest, mode domain.VerificationMode) (*domain.RawLLMResponse, *domain.ParsedPayslip, error) {
	var failovers []llm.ProviderFailure
	callCtx := llm.WithFailoverObserver(ctx, func(f llm.ProviderFailure) {
		failovers = append(failovers, f)
	})

	started := s.now()
	var (
		resp *domain.RawLLMResponse
		err  error
	)
	if req.Mode == domain.ModeVision {
		resp, err = s.LLM.SendVision(callCtx, req.Payload, req.MimeType, visionPrompt(req, mode))
	} else {
		resp, err = s.LLM.Send(callCtx, textPrompt(req, mode), llm.SystemPrompt, true)
	}
	latency := s.now().Sub(started)

	if ctx.Err() != nil {
		if err == nil {
			err = ctx.Err()
		}
		return nil, nil, err
	}

	for _, f := range failovers {
		s.Limiter.RecordRequest()
		s.Metrics.LLMCall(f.Provider, f.Latency, f.Err)
		s.record(ctx, sess, usage.Attempt{
			DeviceID:  sess.deviceID,
			SessionID: sess.id,
			Provider:  f.Provider,
			Model:     f.Model,
			Latency:   f.Latency,
			Err:       f.Err,
		})
	}

	attempt := usage.Attempt{
		DeviceID:  sess.deviceID,
		SessionID: sess.id,
		Provider:  s.LLM.Provider(),
		Model:     s.LLM.Model(),
		Latency:   latency,
	}

	var parsed *domain.ParsedPayslip
	if err == nil {
		if resp.Provider != "" {
			attempt.Provider = resp.Provider
		}
		if resp.Model != "" {
			attempt.Model = resp.Model
		} else {
			resp.Model = attempt.Model
		}
		if resp.Provider == "" {
			resp.Provider = attempt.Provider
		}
		attempt.Usage = resp.Usage
		if resp.Usage != nil {
			sess.usage = sess.usage.Add(*resp.Usage)
		}
		parsed, err = s.Decoder.Decode(resp.Content)
		if err == nil {
			parsed, _, err = s.Scanner.ScrubResponse(resp.Content, parsed)
		}
	}
	attempt.Err = err

	s.Metrics.LLMCall(attempt.Provider, latency, err)
	s.Metrics.Tokens(attempt.Model, attempt.Usage)
	s.record(ctx, sess, attempt)

	if err != nil {
		return nil, nil, fmt.Errorf("service.ExtractionService.call: %w", err)
	}
	return resp, parsed, nil
}

// recordFailure logs a session failure that happened outside an LLM call.
func (s *extractionService) recordFailure(ctx context.Context, sess *session, err error) {
	if ctx.Err() != nil {
		return
	}
	s.record(ctx, sess, usage.Attempt{
		DeviceID:  sess.deviceID,
		SessionID: sess.id,
		Provider:  s.LLM.Provider(),
		Model:     s.LLM.Model(),
		Err:       err,
	})
}

// record appends to the ledger. Ledger failures never fail the extraction.
func (s *extractionService) record(ctx context.Context, sess *session, a usage.Attempt) {
	if _, err := s.Ledger.Record(ctx, a); err != nil {
		log.Printf("service.ExtractionService: session %s: failed to record usage: %v", sess.id, err)
	}
}

// evaluate runs the deterministic stages on a decoded response.
func (s *extractionService) evaluate(ctx context.Context, parsed *domain.ParsedPayslip, resp *domain.RawLLMResponse) *verification.Pass {
	sanitized, _ := s.Sanitizer.Sanitize(parsed)
	reconciled, rec := s.Reconciler.Reconcile(sanitized)
	sanity := s.Validator.Validate(ctx, &payslip.Input{
		Declared:       sanitized,
		Reconciled:     reconciled,
		Reconciliation: rec,
	})
	return &verification.Pass{
		Payslip:        reconciled,
		Reconciliation: rec,
		Sanity:         sanity,
		Confidence:     s.Calculator.Calculate(sanitized, &sanity),
		Response:       resp,
	}
}

func (s *extractionService) save(ctx context.Context, sess *session, res *domain.ExtractionResult) error {
	if s.Payslips == nil {
		return nil
	}
	rec := &domain.PayslipRecord{
		ID:              uuid.New(),
		SessionID:       sess.id,
		DeviceID:        sess.deviceID,
		ContentHash:     res.ContentHash,
		Payslip:         res.Payslip.Clone(),
		Confidence:      res.Confidence.Overall,
		FieldConfidence: res.Confidence.Clone().FieldLevel,
		Methodology:     res.Confidence.Methodology,
		CreatedAt:       res.CompletedAt,
	}
	if err := s.Payslips.Save(ctx, rec); err != nil {
		return fmt.Errorf("service.ExtractionService.save: %w", err)
	}
	return nil
}

func textPrompt(req domain.ExtractionRequest, mode domain.VerificationMode) string {
	switch mode {
	case domain.VerificationIndependent:
		return llm.BuildIndependentPrompt(req.Text())
	case domain.VerificationReconciliation:
		return llm.BuildReconciliationPrompt(req.Text(), req.ReconciliationHint)
	default:
		return llm.BuildTextPrompt(req.Text())
	}
}

func visionPrompt(req domain.ExtractionRequest, mode domain.VerificationMode) string {
	switch mode {
	case domain.VerificationIndependent:
		return llm.BuildIndependentVisionPrompt()
	case domain.VerificationReconciliation:
		return llm.BuildReconciliationVisionPrompt(req.ReconciliationHint)
	default:
		return llm.BuildVisionPrompt()
	}
}
