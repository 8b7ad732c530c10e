package llm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/config"
	"payslipx/internal/domain"
	"payslipx/internal/llm"
	"payslipx/internal/port"
)

func init() {
	llm.RegisterProvider("fake", func(cfg *config.ProviderConfig) (port.LLMClient, error) {
		c := newMockClient("fake")
		return c, nil
	})
}

func TestNewClient_UnknownProvider(t *testing.T) {
	_, err := llm.NewClient(&config.ProviderConfig{Provider: "nope", APIKey: "k"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewClient_MissingAPIKey(t *testing.T) {
	_, err := llm.NewClient(&config.ProviderConfig{Provider: "fake"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredential)
}

func TestNewClientChain_NoProviders(t *testing.T) {
	_, err := llm.NewClientChain(&config.LLMConfig{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestNewClientChain_SingleProviderIsBreaker(t *testing.T) {
	c, err := llm.NewClientChain(&config.LLMConfig{
		Primary: config.ProviderConfig{Provider: "fake", APIKey: "k"},
	})
	require.NoError(t, err)
	assert.IsType(t, &llm.BreakerClient{}, c)
}

func TestNewClientChain_MultipleProvidersFallback(t *testing.T) {
	c, err := llm.NewClientChain(&config.LLMConfig{
		Primary:   config.ProviderConfig{Provider: "fake", APIKey: "k"},
		Secondary: config.ProviderConfig{Provider: "fake", APIKey: "k2"},
	})
	require.NoError(t, err)
	assert.IsType(t, &llm.FallbackClient{}, c)
	assert.Contains(t, llm.RegisteredProviders(), "fake")
}
