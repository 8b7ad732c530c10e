package llm_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/domain"
	"payslipx/internal/llm"
)

func TestNewRateLimitError_DefaultRetryAfter(t *testing.T) {
	err := llm.NewRateLimitError("claude", errors.New("429"), 0)
	assert.Equal(t, 60*time.Second, err.RetryAfter)
	assert.Equal(t, "claude", err.Provider)
}

func TestParseRetryAfterHeader(t *testing.T) {
	assert.Equal(t, 0, llm.ParseRetryAfterHeader(""))
	assert.Equal(t, 30, llm.ParseRetryAfterHeader("30"))
	assert.Equal(t, 0, llm.ParseRetryAfterHeader("Wed, 21 Oct 2015 07:28:00 GMT"))
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"ok", http.StatusOK, func(t *testing.T, err error) { assert.NoError(t, err) }},
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrInvalidCredential)
		}},
		{"forbidden", http.StatusForbidden, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, domain.ErrInvalidCredential)
		}},
		{"rate limited", http.StatusTooManyRequests, func(t *testing.T, err error) {
			var rl *llm.RateLimitError
			require.ErrorAs(t, err, &rl)
			assert.Equal(t, 12*time.Second, rl.RetryAfter)
		}},
		{"server error", http.StatusBadGateway, func(t *testing.T, err error) {
			var te *llm.TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, llm.KindHTTPStatus, te.Kind)
			assert.Equal(t, http.StatusBadGateway, te.StatusCode)
			assert.True(t, llm.IsTransient(err))
		}},
		{"bad request", http.StatusBadRequest, func(t *testing.T, err error) {
			assert.Error(t, err)
			assert.False(t, llm.IsTransient(err))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{StatusCode: tt.status, Header: http.Header{"Retry-After": []string{"12"}}}
			tt.check(t, llm.CheckStatus("openai", resp, []byte("boom")))
		})
	}
}

func TestTransportError_Is(t *testing.T) {
	assert.ErrorIs(t, llm.NewNetworkError("gemini", errors.New("dial tcp")), domain.ErrNetwork)
	assert.ErrorIs(t, llm.NewConfigurationError("gemini", "bad"), domain.ErrConfiguration)
	assert.ErrorIs(t, llm.NewEmptyResponseError("gemini", "nothing"), domain.ErrInvalidResponse)
	assert.NotErrorIs(t, llm.NewNetworkError("gemini", errors.New("x")), domain.ErrConfiguration)
}
