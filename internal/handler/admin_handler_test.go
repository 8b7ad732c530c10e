package handler_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/cache"
	"payslipx/internal/domain"
	"payslipx/internal/handler"
	"payslipx/internal/ratelimit"
)

func TestAdminHandler_RateLimit(t *testing.T) {
	limiter := ratelimit.New(ratelimit.Config{HourlyMax: 1})
	require.NoError(t, limiter.Reserve())
	h := handler.NewAdminHandler(limiter, cache.New(cache.Config{TTL: time.Hour, MaxItems: 10, MaxBytes: 1 << 20}))

	c, w := newContext(http.MethodGet, "/api/v1/admin/ratelimit", http.NoBody, domain.RoleAdmin)
	h.GetRateLimit(c)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w).Data.(map[string]interface{})
	assert.Equal(t, 1.0, data["calls_last_hour"])
	assert.Equal(t, false, data["decision"].(map[string]interface{})["allowed"])

	c, w = newContext(http.MethodPut, "/api/v1/admin/ratelimit", strings.NewReader(`{"override":true}`), domain.RoleAdmin)
	c.Request.Header.Set("Content-Type", "application/json")
	h.UpdateRateLimit(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, limiter.Override())
	assert.NoError(t, limiter.Reserve())

	c, w = newContext(http.MethodPut, "/api/v1/admin/ratelimit", strings.NewReader(`{}`), domain.RoleAdmin)
	c.Request.Header.Set("Content-Type", "application/json")
	h.UpdateRateLimit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandler_Cache(t *testing.T) {
	cc := cache.New(cache.Config{TTL: time.Hour, MaxItems: 10, MaxBytes: 1 << 20})
	cc.Put(cache.Key(domain.ModeText, []byte("slip")), &domain.ExtractionResult{})
	h := handler.NewAdminHandler(ratelimit.New(ratelimit.Config{}), cc)

	c, w := newContext(http.MethodGet, "/api/v1/admin/cache", http.NoBody, domain.RoleAdmin)
	h.CacheStats(c)
	assert.Equal(t, 1.0, decode(t, w).Data.(map[string]interface{})["items"])

	c, w = newContext(http.MethodDelete, "/api/v1/admin/cache", http.NoBody, domain.RoleAdmin)
	h.PurgeCache(c)
	assert.Equal(t, 0.0, decode(t, w).Data.(map[string]interface{})["items"])
}
