// Package app assembles the extraction pipeline from configuration for the
// server and the CLI.
package app

import (
	"fmt"

	"payslipx/internal/cache"
	"payslipx/internal/confidence"
	"payslipx/internal/config"
	"payslipx/internal/llm"
	"payslipx/internal/metrics"
	"payslipx/internal/normalize"
	"payslipx/internal/pii"
	"payslipx/internal/port"
	"payslipx/internal/ratelimit"
	"payslipx/internal/reconcile"
	"payslipx/internal/service"
	"payslipx/internal/usage"
	"payslipx/internal/validator"
	"payslipx/internal/validator/payslip"
	"payslipx/internal/verification"
)

// Pipeline is an assembled extraction service plus the shared resources an
// operator may inspect.
type Pipeline struct {
	Service port.ExtractionService
	Cache   *cache.Cache
	Limiter *ratelimit.Limiter
	Ledger  *usage.Service
}

// NewLedger creates the usage ledger service over repo.
func NewLedger(cfg *config.Config, repo port.UsageRepository, alerts port.AlertSender) *usage.Service {
	return usage.NewService(repo, usage.NewPricing(usage.DefaultPrices(), cfg.Usage.USDToINR), alerts, usage.Config{
		AnomalyMinCalls:   cfg.Usage.AnomalyMinCalls,
		AnomalyMultiplier: cfg.Usage.AnomalyMultiplier,
		AlertRecipient:    cfg.Usage.AlertRecipient,
	})
}

// NewPipeline wires every pipeline stage from cfg. payslips and m may be nil.
func NewPipeline(
	cfg *config.Config,
	client port.LLMClient,
	ledger *usage.Service,
	payslips port.PayslipRepository,
	m *metrics.Metrics,
) (*Pipeline, error) {
	decoder, err := llm.NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("app.NewPipeline: %w", err)
	}

	p := cfg.Pipeline

	sanitizerCfg := normalize.DefaultConfig()
	sanitizerCfg.NetMatchTolerance = p.NetMatchTolerance
	sanitizer := normalize.New(sanitizerCfg)

	rulesCfg := payslip.DefaultConfig()
	rulesCfg.EquationTolerance = p.EquationTolerance
	rulesCfg.SumWarningTolerance = p.SumWarningTolerance
	rulesCfg.SumMinorTolerance = p.SumMinorTolerance

	c := cache.New(cache.Config{
		TTL:      cfg.Cache.TTL,
		MaxItems: cfg.Cache.MaxItems,
		MaxBytes: cfg.Cache.MaxBytes,
	})
	limiter := ratelimit.New(ratelimit.Config{
		MinInterval: cfg.RateLimit.MinInterval,
		HourlyMax:   cfg.RateLimit.HourlyMax,
		YearlyMax:   cfg.RateLimit.YearlyMax,
		Override:    cfg.RateLimit.Override,
	})

	svc := service.NewExtractionService(service.ExtractionDeps{
		LLM:       client,
		Redactor:  pii.NewRedactor(),
		Decoder:   decoder,
		Scanner:   pii.NewScanner(),
		Sanitizer: sanitizer,
		Reconciler: reconcile.New(reconcile.Config{
			EquationTolerance: p.EquationTolerance,
			RetrySumThreshold: p.RetrySumThreshold,
		}),
		Validator:  validator.NewEngine(validator.NewDefaultRegistry(rulesCfg, sanitizer)),
		Calculator: confidence.NewCalculator(confidence.DefaultConfig()),
		Verifier: verification.NewService(verification.Config{
			Enabled:           p.VerificationEnabled,
			Trigger:           p.VerificationTrigger,
			AgreementHigh:     p.AgreementHigh,
			AgreementModerate: p.AgreementModerate,
			ValueTolerance:    p.AgreementValueTolerance,
		}),
		Cache:    c,
		Limiter:  limiter,
		Ledger:   ledger,
		Payslips: payslips,
		Metrics:  m,
	}, service.ExtractionConfig{
		MaxTextBytes:           p.MaxTextBytes,
		MaxImageBytes:          p.MaxFileSizeMB << 20,
		CountVerificationCalls: cfg.RateLimit.CountVerificationCalls,
	})

	return &Pipeline{Service: svc, Cache: c, Limiter: limiter, Ledger: ledger}, nil
}
