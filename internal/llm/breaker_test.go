package llm_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"payslipx/internal/domain"
	"payslipx/internal/llm"
)

func TestBreakerClient_OpensAfterConsecutiveTransientFailures(t *testing.T) {
	c := newMockClient("claude")
	c.On("Send", mock.Anything, "p", "s", true).
		Return(nil, llm.NewNetworkError("claude", errors.New("reset"))).Times(2)

	b := llm.NewBreakerClient(c, llm.BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.Send(context.Background(), "p", "s", true)
		require.Error(t, err)
	}
	assert.Equal(t, "open", b.State())

	_, err := b.Send(context.Background(), "p", "s", true)
	assert.ErrorIs(t, err, domain.ErrNetwork)
	c.AssertNumberOfCalls(t, "Send", 2)
}

func TestBreakerClient_IgnoresNonTransientFailures(t *testing.T) {
	c := newMockClient("claude")
	badRequest := llm.CheckStatus("claude", &http.Response{StatusCode: http.StatusBadRequest, Header: http.Header{}}, nil)
	c.On("Send", mock.Anything, "p", "s", true).Return(nil, badRequest).Times(3)

	b := llm.NewBreakerClient(c, llm.BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		_, err := b.Send(context.Background(), "p", "s", true)
		require.Error(t, err)
	}
	assert.Equal(t, "closed", b.State())
	c.AssertNumberOfCalls(t, "Send", 3)
}

func TestBreakerClient_PassesThroughSuccess(t *testing.T) {
	c := newMockClient("openai")
	c.On("SendVision", mock.Anything, []byte("img"), "image/jpeg", "p").Return(rawResponse("openai"), nil)

	b := llm.NewBreakerClient(c, llm.BreakerSettings{})
	out, err := b.SendVision(context.Background(), []byte("img"), "image/jpeg", "p")

	require.NoError(t, err)
	assert.Equal(t, "openai", out.Provider)
	assert.Equal(t, "openai", b.Provider())
	assert.Equal(t, "openai-model", b.Model())
}
