package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockRedactor is a mock implementation of port.Redactor.
type MockRedactor struct {
	mock.Mock
}

func (m *MockRedactor) Redact(ctx context.Context, text string) (string, error) {
	args := m.Called(ctx, text)
	return args.String(0), args.Error(1)
}
