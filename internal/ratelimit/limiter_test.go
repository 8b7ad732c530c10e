package ratelimit_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/domain"
	"payslipx/internal/ratelimit"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newLimiter(cfg ratelimit.Config, start time.Time) (*ratelimit.Limiter, *clock) {
	l := ratelimit.New(cfg)
	clk := &clock{t: start}
	l.SetClock(clk.now)
	return l, clk
}

var june = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestLimiter_MinInterval(t *testing.T) {
	l, clk := newLimiter(ratelimit.Config{MinInterval: 2 * time.Second}, june)

	require.True(t, l.CanMakeRequest().Allowed)
	l.RecordRequest()

	d := l.CanMakeRequest()
	assert.False(t, d.Allowed)
	assert.Equal(t, ratelimit.ReasonMinInterval, d.Reason)
	assert.Equal(t, 2*time.Second, d.RetryAfter)

	clk.advance(time.Second)
	d = l.CanMakeRequest()
	assert.False(t, d.Allowed)
	assert.Equal(t, time.Second, d.RetryAfter)

	clk.advance(time.Second)
	assert.True(t, l.CanMakeRequest().Allowed)
}

func TestLimiter_CanMakeRequestIsPure(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{MinInterval: time.Second, HourlyMax: 1, YearlyMax: 1}, june)

	for i := 0; i < 5; i++ {
		assert.True(t, l.CanMakeRequest().Allowed)
	}
	s := l.Status()
	assert.Zero(t, s.CallsLastHour)
	assert.Zero(t, s.CallsThisYear)
}

func TestLimiter_HourlySlidingWindow(t *testing.T) {
	l, clk := newLimiter(ratelimit.Config{HourlyMax: 3}, june)

	l.RecordRequest()
	clk.advance(10 * time.Minute)
	l.RecordRequest()
	clk.advance(10 * time.Minute)
	l.RecordRequest()

	d := l.CanMakeRequest()
	assert.False(t, d.Allowed)
	assert.Equal(t, ratelimit.ReasonHourly, d.Reason)
	assert.Equal(t, 40*time.Minute, d.RetryAfter)

	clk.advance(40*time.Minute - time.Second)
	assert.False(t, l.CanMakeRequest().Allowed, "still inside the window")

	clk.advance(time.Second)
	assert.True(t, l.CanMakeRequest().Allowed, "oldest call left the window")
	assert.Equal(t, 2, l.Status().CallsLastHour)
}

func TestLimiter_YearlyResetsOnNewYear(t *testing.T) {
	start := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	l, clk := newLimiter(ratelimit.Config{YearlyMax: 2}, start)

	l.RecordRequest()
	l.RecordRequest()

	d := l.CanMakeRequest()
	assert.False(t, d.Allowed)
	assert.Equal(t, ratelimit.ReasonYearly, d.Reason)
	assert.Equal(t, time.Hour, d.RetryAfter)

	clk.advance(time.Hour)
	assert.True(t, l.CanMakeRequest().Allowed)
	assert.Zero(t, l.Status().CallsThisYear)

	l.RecordRequest()
	s := l.Status()
	assert.Equal(t, 1, s.CallsThisYear)
	assert.Equal(t, 2026, s.Year)
}

func TestLimiter_Override(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{HourlyMax: 1, MinInterval: time.Minute}, june)
	l.RecordRequest()
	require.False(t, l.CanMakeRequest().Allowed)

	l.SetOverride(true)
	assert.True(t, l.Override())
	assert.True(t, l.CanMakeRequest().Allowed)
	assert.NoError(t, l.Reserve())
	assert.Equal(t, 2, l.Status().CallsLastHour, "override still records usage")

	l.SetOverride(false)
	assert.False(t, l.CanMakeRequest().Allowed)
}

func TestLimiter_OverrideFromConfig(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{YearlyMax: 1, Override: true}, june)
	l.RecordRequest()

	assert.True(t, l.CanMakeRequest().Allowed)
}

func TestLimiter_Reserve(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{HourlyMax: 1}, june)

	require.NoError(t, l.Reserve())
	err := l.Reserve()

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrQuotaExceeded))
	var qe *ratelimit.QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, ratelimit.ReasonHourly, qe.Reason)
	assert.Equal(t, time.Hour, qe.RetryAfter)
	assert.Contains(t, err.Error(), "hourly_limit")
	assert.Equal(t, 1, l.Status().CallsLastHour, "a denied reservation records nothing")
}

func TestLimiter_ReserveIsAtomic(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{HourlyMax: 5}, june)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Reserve() == nil {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, granted)
}

func TestLimiter_NoLimits(t *testing.T) {
	l, _ := newLimiter(ratelimit.Config{}, june)

	for i := 0; i < 100; i++ {
		require.NoError(t, l.Reserve())
	}
	s := l.Status()
	assert.Equal(t, 100, s.CallsThisYear)
	assert.Equal(t, june, s.LastCall)
}
