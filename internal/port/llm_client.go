package port

import (
	"context"

	"payslipx/internal/domain"
)

// LLMClient is the transport contract for a single LLM provider.
type LLMClient interface {
	// Send issues a text prompt. jsonMode asks the provider to constrain output to a JSON object.
	Send(ctx context.Context, prompt, systemPrompt string, jsonMode bool) (*domain.RawLLMResponse, error)
	// SendVision issues an image prompt.
	SendVision(ctx context.Context, image []byte, mimeType, prompt string) (*domain.RawLLMResponse, error)
	Provider() string
	Model() string
}
