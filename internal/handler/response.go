package handler

import (
	"errors"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"payslipx/internal/domain"
	"payslipx/internal/llm"
	"payslipx/internal/ratelimit"
)

// APIResponse is the standard envelope for all API responses.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *PagMeta    `json:"meta,omitempty"`
}

// APIError holds error details in the response.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PagMeta holds pagination metadata.
type PagMeta struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondCreated sends a 201 success response.
func RespondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: data})
}

// RespondAccepted sends a 202 success response.
func RespondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, APIResponse{Success: true, Data: data})
}

// RespondPaginated sends a 200 success response with pagination metadata.
func RespondPaginated(c *gin.Context, data interface{}, meta PagMeta) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &meta})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

// MapDomainError translates domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code, msg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "resource not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN", "forbidden"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "INVALID_REQUEST", "invalid extraction request"
	case errors.Is(err, domain.ErrNoTextProvided):
		return http.StatusBadRequest, "NO_TEXT", "no text provided"
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type; allowed: pdf, jpg, png"
	case errors.Is(err, domain.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "file exceeds maximum allowed size"
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, "QUOTA_EXCEEDED", "extraction quota exceeded; retry later"
	case errors.Is(err, domain.ErrQueueFull):
		return http.StatusServiceUnavailable, "QUEUE_FULL", "extraction queue is full; retry later"
	case errors.Is(err, domain.ErrPrivacyViolation):
		return http.StatusUnprocessableEntity, "PRIVACY_VIOLATION", "extraction rejected: identifying data found in model output"
	case errors.Is(err, domain.ErrInvalidResponse):
		return http.StatusBadGateway, "INVALID_LLM_RESPONSE", "the model returned an unreadable response"
	case errors.Is(err, domain.ErrInvalidCredential):
		return http.StatusBadGateway, "LLM_CREDENTIALS", "the model provider rejected the configured credentials"
	case errors.Is(err, domain.ErrNetwork):
		return http.StatusBadGateway, "LLM_UNAVAILABLE", "the model provider could not be reached"
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "LLM_CONFIGURATION", "the model provider is misconfigured"
	default:
		var rlErr *llm.RateLimitError
		if errors.As(err, &rlErr) {
			return http.StatusTooManyRequests, "LLM_RATE_LIMITED", "the model provider is rate limiting requests; retry later"
		}
		var tErr *llm.TransportError
		if errors.As(err, &tErr) {
			return http.StatusBadGateway, "LLM_ERROR", tErr.Error()
		}
		return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
	}
}

// retryAfter returns the wait carried by quota errors, if any.
func retryAfter(err error) (time.Duration, bool) {
	var qErr *ratelimit.QuotaError
	if errors.As(err, &qErr) {
		return qErr.RetryAfter, true
	}
	var rlErr *llm.RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr.RetryAfter, true
	}
	return 0, false
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		requestID, _ := c.Get("request_id")
		log.Printf("[%s] internal error: %v", requestID, err)
	}
	if wait, ok := retryAfter(err); ok {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	}
	RespondError(c, status, code, msg)
}
