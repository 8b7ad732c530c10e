package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"payslipx/internal/domain"
)

// MockLLMClient is a mock implementation of port.LLMClient.
type MockLLMClient struct {
	mock.Mock
}

func (m *MockLLMClient) Send(ctx context.Context, prompt, systemPrompt string, jsonMode bool) (*domain.RawLLMResponse, error) {
	args := m.Called(ctx, prompt, systemPrompt, jsonMode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RawLLMResponse), args.Error(1)
}

func (m *MockLLMClient) SendVision(ctx context.Context, image []byte, mimeType, prompt string) (*domain.RawLLMResponse, error) {
	args := m.Called(ctx, image, mimeType, prompt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RawLLMResponse), args.Error(1)
}

func (m *MockLLMClient) Provider() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockLLMClient) Model() string {
	args := m.Called()
	return args.String(0)
}
