package metrics_test

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/domain"
	"payslipx/internal/metrics"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *metrics.Metrics

	assert.NotPanics(t, func() {
		m.StartExtraction()
		m.FinishExtraction("completed", time.Second)
		m.ObserveStage(domain.StageExtracting, time.Second)
		m.CacheLookup(true)
		m.LLMCall("claude", time.Second, nil)
		m.Tokens("gpt-4o", &domain.TokenUsage{InputTokens: 1})
		m.Verification(domain.VerificationIndependent, domain.DecisionAcceptHigh)
		m.RateLimitDenied("hourly_limit")
		m.ObserveHTTP("GET", "/healthz", 200, time.Millisecond)
	})
}

func TestMetrics_Records(t *testing.T) {
	m := metrics.New()

	m.StartExtraction()
	m.FinishExtraction("completed", 2*time.Second)
	m.CacheLookup(false)
	m.CacheLookup(true)
	m.LLMCall("claude", time.Second, nil)
	m.LLMCall("claude", time.Second, errors.New("boom"))
	m.Tokens("gpt-4o", &domain.TokenUsage{InputTokens: 100, OutputTokens: 20})
	m.Verification(domain.VerificationReconciliation, domain.DecisionKeepOriginal)

	count, err := testutil.GatherAndCount(m.Registry(), "payslipx_llm_calls_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = testutil.GatherAndCount(m.Registry(), "payslipx_cache_lookups_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	assert.Contains(t, string(body), `payslipx_pipeline_extractions_total{outcome="completed"} 1`)
	assert.Contains(t, string(body), `payslipx_pipeline_extractions_in_flight 0`)
	assert.Contains(t, string(body), `payslipx_llm_tokens_total{direction="input",model="gpt-4o"} 100`)
	assert.Contains(t, string(body), `payslipx_verification_decisions_total{decision="keep_original",mode="reconciliation"} 1`)
}
