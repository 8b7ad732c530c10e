// Package ratelimit guards LLM spend with a minimum call interval, an hourly
// sliding window and a calendar-year ceiling.
package ratelimit

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"payslipx/internal/domain"
)

// Reason names the limit that denied a request.
type Reason string

const (
	ReasonMinInterval Reason = "min_interval"
	ReasonHourly      Reason = "hourly_limit"
	ReasonYearly      Reason = "yearly_limit"
)

// Config holds the limits. Non-positive values disable the matching limit.
type Config struct {
	MinInterval time.Duration
	HourlyMax   int
	YearlyMax   int
	Override    bool
}

// Decision is the answer of CanMakeRequest.
type Decision struct {
	Allowed    bool          `json:"allowed"`
	Reason     Reason        `json:"reason,omitempty"`
	RetryAfter time.Duration `json:"retry_after"`
}

// QuotaError is returned when a reservation is denied.
type QuotaError struct {
	Reason     Reason
	RetryAfter time.Duration
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("%s: %s, retry after %s", domain.ErrQuotaExceeded, e.Reason, e.RetryAfter.Round(time.Second))
}

func (e *QuotaError) Is(target error) bool {
	return target == domain.ErrQuotaExceeded
}

// Status is a snapshot of the limiter state.
type Status struct {
	Override      bool      `json:"override"`
	CallsLastHour int       `json:"calls_last_hour"`
	HourlyMax     int       `json:"hourly_max"`
	CallsThisYear int       `json:"calls_this_year"`
	YearlyMax     int       `json:"yearly_max"`
	Year          int       `json:"year"`
	LastCall      time.Time `json:"last_call"`
	Decision      Decision  `json:"decision"`
}

// Limiter is safe for concurrent use. Reads share a read lock; RecordRequest
// and Reserve take the write lock.
type Limiter struct {
	mu       sync.RWMutex
	cfg      Config
	interval *rate.Limiter
	calls    []time.Time // within the last hour, oldest first
	year     int
	yearly   int
	last     time.Time
	override atomic.Bool
	now      func() time.Time
}

// New creates a Limiter.
func New(cfg Config) *Limiter {
	l := &Limiter{cfg: cfg, now: time.Now}
	if cfg.MinInterval > 0 {
		l.interval = rate.NewLimiter(rate.Every(cfg.MinInterval), 1)
	}
	l.override.Store(cfg.Override)
	return l
}

// SetClock replaces the time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// SetOverride toggles the administrative bypass.
func (l *Limiter) SetOverride(on bool) {
	l.override.Store(on)
	log.Printf("ratelimit.Limiter.SetOverride: override=%t", on)
}

// Override reports whether the administrative bypass is on.
func (l *Limiter) Override() bool {
	return l.override.Load()
}

// CanMakeRequest reports whether a call is permitted now. It never mutates state.
func (l *Limiter) CanMakeRequest() Decision {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.decide(l.now())
}

// RecordRequest charges one call against every limit. It is the only mutator
// and must be called once per permitted LLM call.
func (l *Limiter) RecordRequest() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record(l.now())
}

// Reserve checks and records atomically. A denial returns a *QuotaError.
func (l *Limiter) Reserve() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	d := l.decide(now)
	if !d.Allowed {
		log.Printf("ratelimit.Limiter.Reserve: denied (%s), retry after %s", d.Reason, d.RetryAfter)
		return &QuotaError{Reason: d.Reason, RetryAfter: d.RetryAfter}
	}
	l.record(now)
	return nil
}

// Status returns a snapshot of counters and the current decision.
func (l *Limiter) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()

	now := l.now()
	s := Status{
		Override:      l.override.Load(),
		CallsLastHour: l.hourlyCount(now),
		HourlyMax:     l.cfg.HourlyMax,
		YearlyMax:     l.cfg.YearlyMax,
		Year:          now.Year(),
		LastCall:      l.last,
		Decision:      l.decide(now),
	}
	if l.year == now.Year() {
		s.CallsThisYear = l.yearly
	}
	return s
}

func (l *Limiter) decide(now time.Time) Decision {
	if l.override.Load() {
		return Decision{Allowed: true}
	}

	if l.cfg.YearlyMax > 0 && l.year == now.Year() && l.yearly >= l.cfg.YearlyMax {
		next := time.Date(now.Year()+1, time.January, 1, 0, 0, 0, 0, now.Location())
		return Decision{Reason: ReasonYearly, RetryAfter: next.Sub(now)}
	}

	if l.cfg.HourlyMax > 0 {
		if n := l.hourlyCount(now); n >= l.cfg.HourlyMax {
			// the call that must leave the window before another is allowed
			idx := len(l.calls) - l.cfg.HourlyMax
			return Decision{Reason: ReasonHourly, RetryAfter: l.calls[idx].Add(time.Hour).Sub(now)}
		}
	}

	if l.interval != nil {
		if tokens := l.interval.TokensAt(now); tokens < 1 {
			wait := time.Duration((1 - tokens) / float64(l.interval.Limit()) * float64(time.Second))
			return Decision{Reason: ReasonMinInterval, RetryAfter: wait}
		}
	}

	return Decision{Allowed: true}
}

// hourlyCount counts calls inside (now-1h, now].
func (l *Limiter) hourlyCount(now time.Time) int {
	cutoff := now.Add(-time.Hour)
	n := 0
	for i := len(l.calls) - 1; i >= 0 && l.calls[i].After(cutoff); i-- {
		n++
	}
	return n
}

func (l *Limiter) record(now time.Time) {
	cutoff := now.Add(-time.Hour)
	keep := l.calls[:0]
	for _, t := range l.calls {
		if t.After(cutoff) {
			keep = append(keep, t)
		}
	}
	l.calls = append(keep, now)

	if l.year != now.Year() {
		l.year = now.Year()
		l.yearly = 0
	}
	l.yearly++
	l.last = now

	if l.interval != nil {
		l.interval.ReserveN(now, 1)
	}
}
