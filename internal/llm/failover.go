package llm

import (
	"context"
	"time"
)

// ProviderFailure is one provider call that failed before FallbackClient
// moved on to the next provider.
type ProviderFailure struct {
	Provider string
	Model    string
	Latency  time.Duration
	Err      error
}

// FailoverObserver receives provider failures that the returned result or
// error does not itself describe.
type FailoverObserver func(ProviderFailure)

type failoverKey struct{}

// WithFailoverObserver returns a context whose FallbackClient calls report
// superseded provider failures to obs. It is called on the caller's goroutine.
func WithFailoverObserver(ctx context.Context, obs FailoverObserver) context.Context {
	return context.WithValue(ctx, failoverKey{}, obs)
}

func observeFailovers(ctx context.Context, failures []ProviderFailure) {
	obs, ok := ctx.Value(failoverKey{}).(FailoverObserver)
	if !ok || obs == nil {
		return
	}
	for _, f := range failures {
		obs(f)
	}
}
