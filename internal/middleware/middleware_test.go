package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/auth"
	"payslipx/internal/config"
	"payslipx/internal/domain"
	"payslipx/internal/metrics"
	"payslipx/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTokens() *auth.TokenService {
	return auth.NewTokenService(config.AuthConfig{
		Secret:      "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "payslipx",
		AppKey:      "app-key",
		AdminKey:    "admin-key",
	})
}

func issue(t *testing.T, tokens *auth.TokenService, key string) string {
	t.Helper()
	tok, err := tokens.Issue(auth.DeviceTokenInput{DeviceID: "device-1", Key: key})
	require.NoError(t, err)
	return tok.AccessToken
}

func protectedEngine(tokens *auth.TokenService, roles ...domain.Role) *gin.Engine {
	r := gin.New()
	chain := []gin.HandlerFunc{middleware.AuthMiddleware(tokens)}
	if len(roles) > 0 {
		chain = append(chain, middleware.RequireRole(roles...))
	}
	chain = append(chain, func(c *gin.Context) {
		deviceID, err := middleware.GetDeviceID(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, deviceID+":"+middleware.GetRole(c))
	})
	r.GET("/p", chain...)
	return r
}

func TestAuthMiddleware(t *testing.T) {
	tokens := newTokens()
	r := protectedEngine(tokens)

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ""},
		{"valid", "Bearer " + issue(t, tokens, "app-key"), http.StatusOK, "device-1:device"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/p", http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	tokens := newTokens()
	r := protectedEngine(tokens, domain.RoleAdmin)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/p", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+issue(t, tokens, "app-key"))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/p", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+issue(t, tokens, "admin-key"))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "device-1:admin", w.Body.String())
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"http://localhost:3000"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/x", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "DELETE")
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set("Origin", "http://evil.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Wildcard(t *testing.T) {
	r := gin.New()
	r.Use(middleware.CORS([]string{"*"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", http.NoBody)
	req.Header.Set("Origin", "http://anywhere.example")
	r.ServeHTTP(w, req)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestRequestIDAndLogger(t *testing.T) {
	m := metrics.New()
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(m))
	r.GET("/jobs/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/jobs/123", http.NoBody)
	req.Header.Set("X-Request-ID", "req-1")
	r.ServeHTTP(w, req)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs/456", http.NoBody))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	count, err := testutil.GatherAndCount(m.Registry(), "payslipx_http_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "both requests share the route template label")
}
