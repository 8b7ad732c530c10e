package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"payslipx/internal/domain"
)

// TransportErrorKind is the closed set of transport failures.
type TransportErrorKind string

const (
	KindInvalidConfiguration TransportErrorKind = "invalid_configuration"
	KindInvalidCredentials   TransportErrorKind = "invalid_credentials"
	KindNetwork              TransportErrorKind = "network"
	KindHTTPStatus           TransportErrorKind = "http_status"
	KindEmptyResponse        TransportErrorKind = "empty_response"
)

// TransportError is returned by every provider transport.
type TransportError struct {
	Kind       TransportErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch e.Kind {
	case KindHTTPStatus:
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	case KindNetwork:
		return fmt.Sprintf("%s network failure: %v", e.Provider, e.Err)
	default:
		return fmt.Sprintf("%s %s: %s", e.Provider, e.Kind, e.Message)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is maps transport kinds onto the domain sentinels.
func (e *TransportError) Is(target error) bool {
	switch target {
	case domain.ErrConfiguration:
		return e.Kind == KindInvalidConfiguration
	case domain.ErrInvalidCredential:
		return e.Kind == KindInvalidCredentials
	case domain.ErrNetwork:
		return e.Kind == KindNetwork
	case domain.ErrInvalidResponse:
		return e.Kind == KindEmptyResponse
	}
	return false
}

// Transient reports whether the failure is worth counting against a provider's health.
func (e *TransportError) Transient() bool {
	return e.Kind == KindNetwork || (e.Kind == KindHTTPStatus && e.StatusCode >= 500)
}

// NewConfigurationError reports a missing or invalid provider setting.
func NewConfigurationError(provider, msg string) *TransportError {
	return &TransportError{Kind: KindInvalidConfiguration, Provider: provider, Message: msg}
}

// NewNetworkError wraps a failed round trip.
func NewNetworkError(provider string, err error) *TransportError {
	return &TransportError{Kind: KindNetwork, Provider: provider, Message: err.Error(), Err: err}
}

// NewEmptyResponseError reports a 200 response without content.
func NewEmptyResponseError(provider, msg string) *TransportError {
	return &TransportError{Kind: KindEmptyResponse, Provider: provider, Message: msg}
}

// CheckStatus converts a non-200 response into the matching error.
func CheckStatus(provider string, resp *http.Response, body []byte) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	base := &TransportError{
		Kind:       KindHTTPStatus,
		Provider:   provider,
		StatusCode: resp.StatusCode,
		Message:    truncate(string(body), 500),
	}
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		base.Kind = KindInvalidCredentials
		return base
	case http.StatusTooManyRequests:
		retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return NewRateLimitError(provider, base, retryAfter)
	}
	return base
}

// RateLimitError indicates a provider returned HTTP 429.
type RateLimitError struct {
	Err        error
	RetryAfter time.Duration
	Provider   string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s rate limited (retry after %s): %v", e.Provider, e.RetryAfter, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NewRateLimitError creates a RateLimitError. If retryAfterSecs is 0, defaults to 60s.
func NewRateLimitError(provider string, err error, retryAfterSecs int) *RateLimitError {
	if retryAfterSecs <= 0 {
		retryAfterSecs = 60
	}
	return &RateLimitError{
		Err:        err,
		RetryAfter: time.Duration(retryAfterSecs) * time.Second,
		Provider:   provider,
	}
}

// ParseRetryAfterHeader parses a Retry-After header value into seconds.
// Returns 0 if the value is empty or not a valid integer.
func ParseRetryAfterHeader(val string) int {
	if val == "" {
		return 0
	}
	secs, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return secs
}

// IsTransient reports whether err should trip a provider circuit breaker.
func IsTransient(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Transient()
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
