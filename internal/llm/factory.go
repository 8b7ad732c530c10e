package llm

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"payslipx/internal/config"
	"payslipx/internal/port"
)

// ProviderFactory creates an LLMClient from a provider config.
type ProviderFactory func(cfg *config.ProviderConfig) (port.LLMClient, error)

// registry of provider factories, populated by init() in each provider package
// or explicitly via RegisterProvider.
var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProvider registers a provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// RegisteredProviders lists the known provider names.
func RegisteredProviders() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewClient creates an LLMClient from a provider config using the registered factory.
func NewClient(cfg *config.ProviderConfig) (port.LLMClient, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, NewConfigurationError(cfg.Provider, fmt.Sprintf("unknown LLM provider %q", cfg.Provider))
	}
	if cfg.APIKey == "" {
		return nil, &TransportError{Kind: KindInvalidCredentials, Provider: cfg.Provider, Message: "api key is not set"}
	}
	return factory(cfg)
}

// NewClientChain builds every configured provider, each behind its own circuit
// breaker, and chains them in fallback order.
func NewClientChain(cfg *config.LLMConfig) (port.LLMClient, error) {
	configs := cfg.Providers()
	if len(configs) == 0 {
		return nil, NewConfigurationError("none", "no LLM provider configured")
	}

	clients := make([]port.LLMClient, 0, len(configs))
	for _, pc := range configs {
		c, err := NewClient(pc)
		if err != nil {
			return nil, fmt.Errorf("llm.NewClientChain: %s: %w", pc.Provider, err)
		}
		clients = append(clients, NewBreakerClient(c, BreakerSettings{
			MaxFailures: cfg.BreakerFailures,
			OpenTimeout: cfg.BreakerTimeout,
		}))
		log.Printf("llm.NewClientChain: registered %s (model %s)", c.Provider(), c.Model())
	}

	if len(clients) == 1 {
		return clients[0], nil
	}
	return NewFallbackClient(clients), nil
}

// Timeout returns the configured HTTP timeout for a provider, defaulting to 120s.
func Timeout(cfg *config.ProviderConfig) time.Duration {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return timeout
}
