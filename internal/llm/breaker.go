package llm

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

// BreakerSettings configures a provider circuit breaker.
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// BreakerClient stops calling a provider after consecutive transient failures.
type BreakerClient struct {
	next    port.LLMClient
	breaker *gobreaker.CircuitBreaker[*domain.RawLLMResponse]
}

// NewBreakerClient wraps next with a gobreaker circuit.
func NewBreakerClient(next port.LLMClient, s BreakerSettings) *BreakerClient {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if s.OpenTimeout == 0 {
		s.OpenTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        next.Provider(),
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("llm.BreakerClient: %s circuit %s -> %s", name, from, to)
		},
	}
	return &BreakerClient{
		next:    next,
		breaker: gobreaker.NewCircuitBreaker[*domain.RawLLMResponse](settings),
	}
}

func (b *BreakerClient) Provider() string { return b.next.Provider() }
func (b *BreakerClient) Model() string    { return b.next.Model() }

func (b *BreakerClient) Send(ctx context.Context, prompt, systemPrompt string, jsonMode bool) (*domain.RawLLMResponse, error) {
	return b.execute(func() (*domain.RawLLMResponse, error) {
		return b.next.Send(ctx, prompt, systemPrompt, jsonMode)
	})
}

func (b *BreakerClient) SendVision(ctx context.Context, image []byte, mimeType, prompt string) (*domain.RawLLMResponse, error) {
	return b.execute(func() (*domain.RawLLMResponse, error) {
		return b.next.SendVision(ctx, image, mimeType, prompt)
	})
}

// State exposes the breaker state for health reporting.
func (b *BreakerClient) State() string {
	return b.breaker.State().String()
}

func (b *BreakerClient) execute(fn func() (*domain.RawLLMResponse, error)) (*domain.RawLLMResponse, error) {
	out, err := b.breaker.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, NewNetworkError(b.next.Provider(), err)
	}
	return out, err
}
