package router_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/auth"
	"payslipx/internal/cache"
	"payslipx/internal/config"
	"payslipx/internal/handler"
	"payslipx/internal/metrics"
	"payslipx/internal/ratelimit"
	"payslipx/internal/repository/memory"
	"payslipx/internal/router"
	"payslipx/internal/service"
	"payslipx/internal/usage"
	"payslipx/mocks"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(t *testing.T) (*gin.Engine, *auth.TokenService) {
	t.Helper()
	tokens := auth.NewTokenService(config.AuthConfig{Secret: "s", TokenExpiry: time.Hour, AppKey: "app-key", AdminKey: "admin-key"})
	svc := new(mocks.MockExtractionService)
	ledger := usage.NewService(memory.NewUsageRepo(), usage.NewPricing(usage.DefaultPrices(), 83), nil, usage.Config{})
	h := router.Handlers{
		Auth:       handler.NewAuthHandler(tokens),
		Extraction: handler.NewExtractionHandler(svc, service.NewExtractionQueue(svc, service.QueueConfig{}), 1<<20, 1000),
		Usage:      handler.NewUsageHandler(ledger),
		Admin:      handler.NewAdminHandler(ratelimit.New(ratelimit.Config{}), cache.New(cache.Config{TTL: time.Hour, MaxItems: 1, MaxBytes: 1 << 10})),
		Health:     handler.NewHealthHandler(nil),
	}
	return router.Setup(tokens, h, metrics.New(), []string{"http://localhost:3000"}), tokens
}

func bearer(t *testing.T, tokens *auth.TokenService, key string) string {
	t.Helper()
	tok, err := tokens.Issue(auth.DeviceTokenInput{DeviceID: "device-1", Key: key})
	require.NoError(t, err)
	return "Bearer " + tok.AccessToken
}

func TestRoutes(t *testing.T) {
	r, tokens := newEngine(t)
	device := bearer(t, tokens, "app-key")
	admin := bearer(t, tokens, "admin-key")

	tests := []struct {
		name   string
		method string
		path   string
		auth   string
		body   string
		status int
	}{
		{"liveness", http.MethodGet, "/healthz", "", "", http.StatusOK},
		{"readiness", http.MethodGet, "/readyz", "", "", http.StatusOK},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK},
		{"device token", http.MethodPost, "/api/v1/auth/device-token", "", `{"device_id":"d","key":"app-key"}`, http.StatusCreated},
		{"extract needs token", http.MethodPost, "/api/v1/extractions", "", `{"text":"x"}`, http.StatusUnauthorized},
		{"usage list as device", http.MethodGet, "/api/v1/usage", device, "", http.StatusOK},
		{"summary as device", http.MethodGet, "/api/v1/usage/summary", device, "", http.StatusForbidden},
		{"summary as admin", http.MethodGet, "/api/v1/usage/summary", admin, "", http.StatusOK},
		{"ratelimit as device", http.MethodGet, "/api/v1/admin/ratelimit", device, "", http.StatusForbidden},
		{"ratelimit as admin", http.MethodGet, "/api/v1/admin/ratelimit", admin, "", http.StatusOK},
		{"unknown job", http.MethodGet, "/api/v1/extractions/jobs/7d3b5a0e-4f1c-4d2e-9f7a-1b2c3d4e5f60", device, "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestMetricsExposeHTTPRequests(t *testing.T) {
	r, _ := newEngine(t)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Contains(t, w.Body.String(), `payslipx_http_requests_total{method="GET",path="/healthz",status="200"} 1`)
}
