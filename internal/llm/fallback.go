package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

// circuitState tracks rate-limit backoff for a single provider.
type circuitState struct {
	mu      sync.RWMutex
	resetAt time.Time // zero value = closed (healthy)
}

func (c *circuitState) isOpenWithReset(now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.resetAt, !c.resetAt.IsZero() && now.Before(c.resetAt)
}

func (c *circuitState) open(resetAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetAt = resetAt
}

// FallbackClient tries providers in order, skipping those backing off after a 429.
// It implements port.LLMClient.
type FallbackClient struct {
	clients  []port.LLMClient
	circuits []*circuitState
	now      func() time.Time
}

// NewFallbackClient creates a FallbackClient from an ordered list of clients.
func NewFallbackClient(clients []port.LLMClient) *FallbackClient {
	circuits := make([]*circuitState, len(clients))
	for i := range circuits {
		circuits[i] = &circuitState{}
	}
	return &FallbackClient{
		clients:  clients,
		circuits: circuits,
		now:      time.Now,
	}
}

// Provider returns the primary provider name.
func (f *FallbackClient) Provider() string {
	return f.clients[0].Provider()
}

// Model returns the primary model name.
func (f *FallbackClient) Model() string {
	return f.clients[0].Model()
}

func (f *FallbackClient) Send(ctx context.Context, prompt, systemPrompt string, jsonMode bool) (*domain.RawLLMResponse, error) {
	return f.try(ctx, func(c port.LLMClient) (*domain.RawLLMResponse, error) {
		return c.Send(ctx, prompt, systemPrompt, jsonMode)
	})
}

func (f *FallbackClient) SendVision(ctx context.Context, image []byte, mimeType, prompt string) (*domain.RawLLMResponse, error) {
	return f.try(ctx, func(c port.LLMClient) (*domain.RawLLMResponse, error) {
		return c.SendVision(ctx, image, mimeType, prompt)
	})
}

// try calls providers in order. Failures of providers that were followed by
// another call go to the context's FailoverObserver; the last failure is the
// returned error and is not reported twice.
func (f *FallbackClient) try(ctx context.Context, call func(port.LLMClient) (*domain.RawLLMResponse, error)) (*domain.RawLLMResponse, error) {
	now := f.now()
	var lastErr error
	allRateLimited := true
	var earliestReset time.Time
	var failures []ProviderFailure

	for i, c := range f.clients {
		if resetAt, open := f.circuits[i].isOpenWithReset(now); open {
			log.Printf("llm.FallbackClient: skipping %s (circuit open until %s)", c.Provider(), resetAt.Format(time.RFC3339))
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
			continue
		}

		started := f.now()
		out, err := call(c)
		if err == nil {
			observeFailovers(ctx, failures)
			return out, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		log.Printf("llm.FallbackClient: %s failed: %v", c.Provider(), err)
		lastErr = err
		failures = append(failures, ProviderFailure{
			Provider: c.Provider(),
			Model:    c.Model(),
			Latency:  f.now().Sub(started),
			Err:      err,
		})

		var rlErr *RateLimitError
		if errors.As(err, &rlErr) {
			resetAt := now.Add(rlErr.RetryAfter)
			f.circuits[i].open(resetAt)
			if earliestReset.IsZero() || resetAt.Before(earliestReset) {
				earliestReset = resetAt
			}
		} else {
			allRateLimited = false
		}
	}

	if len(failures) > 1 {
		observeFailovers(ctx, failures[:len(failures)-1])
	}

	if lastErr == nil || allRateLimited {
		retryAfter := earliestReset.Sub(now)
		if retryAfter < time.Second {
			retryAfter = time.Second
		}
		return nil, NewRateLimitError("all", fmt.Errorf("all providers rate limited"), int(retryAfter.Seconds()))
	}

	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
