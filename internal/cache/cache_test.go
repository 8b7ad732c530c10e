package cache_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/cache"
	"payslipx/internal/domain"
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

func result(net float64) *domain.ExtractionResult {
	return &domain.ExtractionResult{
		SessionID: uuid.New(),
		Payslip: domain.Payslip{
			Earnings:      map[string]float64{"BPAY": 37000},
			Deductions:    map[string]float64{"DSOP": 2220},
			GrossPay:      37000,
			NetRemittance: net,
		},
		Confidence: domain.ConfidenceResult{Overall: 0.9, FieldLevel: map[string]float64{"grossPay": 1}},
	}
}

func newCache(cfg cache.Config) (*cache.Cache, *clock) {
	c := cache.New(cfg)
	clk := &clock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.SetClock(clk.now)
	return c, clk
}

func TestKey(t *testing.T) {
	a := cache.Key(domain.ModeText, []byte("payslip"))

	assert.Len(t, a, 64)
	assert.Equal(t, a, cache.Key(domain.ModeText, []byte("payslip")))
	assert.NotEqual(t, a, cache.Key(domain.ModeVision, []byte("payslip")))
	assert.NotEqual(t, a, cache.Key(domain.ModeText, []byte("payslip ")))
}

func TestCache_PutGet(t *testing.T) {
	c, _ := newCache(cache.Config{TTL: time.Hour})
	r := result(34780)

	c.Put("k", r)
	got, ok := c.Get("k")

	require.True(t, ok)
	assert.Equal(t, r, got)
	assert.NotSame(t, r, got)
	s := c.Stats()
	assert.Equal(t, uint64(1), s.Hits)
	assert.Equal(t, 1, s.Items)
	assert.Positive(t, s.Bytes)
}

func TestCache_CopiesInAndOut(t *testing.T) {
	c, _ := newCache(cache.Config{TTL: time.Hour})
	r := result(34780)
	c.Put("k", r)

	r.Payslip.Earnings["BPAY"] = 1
	got, _ := c.Get("k")
	got.Payslip.Deductions["DSOP"] = 1
	got.Confidence.FieldLevel["grossPay"] = 0

	again, _ := c.Get("k")
	assert.Equal(t, 37000.0, again.Payslip.Earnings["BPAY"])
	assert.Equal(t, 2220.0, again.Payslip.Deductions["DSOP"])
	assert.Equal(t, 1.0, again.Confidence.FieldLevel["grossPay"])
}

func TestCache_CopiesIssueFields(t *testing.T) {
	c, _ := newCache(cache.Config{TTL: time.Hour})
	r := result(34780)
	r.Sanity = domain.SanityCheckResult{Issues: []domain.SanityCheckIssue{{
		Code:     "EARNINGS_SUM_MISMATCH",
		Severity: domain.SeverityWarning,
		Fields:   []string{"earnings", "grossPay"},
	}}}
	c.Put("k", r)

	r.Sanity.Issues[0].Fields[0] = "changed"
	got, _ := c.Get("k")
	got.Sanity.Issues[0].Fields[1] = "changed"

	again, _ := c.Get("k")
	assert.Equal(t, []string{"earnings", "grossPay"}, again.Sanity.Issues[0].Fields)
}

func TestCache_Miss(t *testing.T) {
	c, _ := newCache(cache.Config{})

	_, ok := c.Get("absent")

	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestCache_TTLExpiry(t *testing.T) {
	c, clk := newCache(cache.Config{TTL: time.Hour})
	c.Put("k", result(1))

	clk.advance(59 * time.Minute)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clk.advance(time.Minute)
	_, ok = c.Get("k")
	assert.False(t, ok, "an entry is never served at or past its TTL")

	s := c.Stats()
	assert.Equal(t, uint64(1), s.Expirations)
	assert.Zero(t, s.Items)
	assert.Zero(t, s.Bytes)
}

func TestCache_LRUByItems(t *testing.T) {
	c, _ := newCache(cache.Config{TTL: time.Hour, MaxItems: 2})
	c.Put("a", result(1))
	c.Put("b", result(2))
	_, _ = c.Get("a")
	c.Put("c", result(3))

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")

	assert.True(t, okA)
	assert.False(t, okB, "least recently used entry evicted")
	assert.True(t, okC)
	assert.Equal(t, uint64(1), c.Stats().Evictions)
}

func TestCache_LRUByBytes(t *testing.T) {
	probe, _ := newCache(cache.Config{TTL: time.Hour})
	probe.Put("x", result(1))
	one := probe.Stats().Bytes

	c, _ := newCache(cache.Config{TTL: time.Hour, MaxItems: 100, MaxBytes: one*2 + one/2})
	for i := 0; i < 5; i++ {
		c.Put(fmt.Sprintf("k%d", i), result(1))
	}

	s := c.Stats()
	assert.Equal(t, 2, s.Items)
	assert.LessOrEqual(t, s.Bytes, one*2+one/2)
	assert.Equal(t, uint64(3), s.Evictions)
	_, ok := c.Get("k4")
	assert.True(t, ok)
}

func TestCache_OversizedNotStored(t *testing.T) {
	c, _ := newCache(cache.Config{TTL: time.Hour, MaxBytes: 64})
	r := result(1)
	r.Payslip.Month = strings.Repeat("X", 128)

	c.Put("big", r)

	_, ok := c.Get("big")
	assert.False(t, ok)
	assert.Zero(t, c.Stats().Bytes)
}

func TestCache_ReplaceKeepsAccounting(t *testing.T) {
	c, _ := newCache(cache.Config{TTL: time.Hour})
	c.Put("k", result(1))
	before := c.Stats().Bytes

	c.Put("k", result(2))

	s := c.Stats()
	assert.Equal(t, 1, s.Items)
	assert.Equal(t, before, s.Bytes)
	got, _ := c.Get("k")
	assert.Equal(t, 2.0, got.Payslip.NetRemittance)
}

func TestCache_DeleteAndPurge(t *testing.T) {
	c, _ := newCache(cache.Config{TTL: time.Hour})
	c.Put("a", result(1))
	c.Put("b", result(2))

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Purge()
	s := c.Stats()
	assert.Zero(t, s.Items)
	assert.Zero(t, s.Bytes)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c, _ := newCache(cache.Config{TTL: time.Hour, MaxItems: 10})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%15)
			c.Put(key, result(float64(i)))
			_, _ = c.Get(key)
			_ = c.Stats()
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Stats().Items, 10)
}
