package domain

import "errors"

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidRequest    = errors.New("invalid extraction request")
	ErrUnsupportedType   = errors.New("unsupported file type")
	ErrFileTooLarge      = errors.New("file exceeds maximum allowed size")
	ErrNoTextProvided    = errors.New("no text provided")
	ErrInvalidResponse   = errors.New("invalid LLM response")
	ErrPrivacyViolation  = errors.New("personally identifying data detected in LLM response")
	ErrQuotaExceeded     = errors.New("extraction quota exceeded")
	ErrConfiguration     = errors.New("invalid LLM configuration")
	ErrInvalidCredential = errors.New("invalid or missing LLM credentials")
	ErrNetwork           = errors.New("LLM network failure")
	ErrQueueFull         = errors.New("extraction queue is full")
)
