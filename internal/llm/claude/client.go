package claude

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"payslipx/internal/config"
	"payslipx/internal/domain"
	"payslipx/internal/llm"
	"payslipx/internal/port"
)

const (
	providerName = "claude"
	apiURL       = "https://api.anthropic.com/v1/messages"
	apiVersion   = "2023-06-01"
	maxTokens    = 4096
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (port.LLMClient, error) {
		return NewClient(cfg), nil
	})
}

// Client implements port.LLMClient using the Anthropic Messages API.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates a Claude transport from a provider config.
func NewClient(cfg *config.ProviderConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "claude-sonnet-4-20250514"
	}
	return &Client{
		apiKey:   cfg.APIKey,
		model:    model,
		endpoint: endpoint,
		client:   &http.Client{Timeout: llm.Timeout(cfg)},
	}
}

func (c *Client) Provider() string { return providerName }
func (c *Client) Model() string    { return c.model }

// Send issues a text prompt. The Messages API has no JSON mode, so jsonMode
// prefills the assistant turn with an opening brace.
func (c *Client) Send(ctx context.Context, prompt, systemPrompt string, jsonMode bool) (*domain.RawLLMResponse, error) {
	messages := []map[string]any{
		{"role": "user", "content": prompt},
	}
	if jsonMode {
		messages = append(messages, map[string]any{"role": "assistant", "content": "{"})
	}
	reqBody := map[string]any{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages":   messages,
	}
	if systemPrompt != "" {
		reqBody["system"] = systemPrompt
	}

	out, err := c.do(ctx, reqBody)
	if err != nil {
		return nil, err
	}
	if jsonMode {
		out.Content = "{" + out.Content
	}
	return out, nil
}

func (c *Client) SendVision(ctx context.Context, image []byte, mimeType, prompt string) (*domain.RawLLMResponse, error) {
	if _, ok := domain.AllowedImageTypes[mimeType]; !ok {
		return nil, llm.NewConfigurationError(providerName, fmt.Sprintf("unsupported image type: %s", mimeType))
	}
	reqBody := map[string]any{
		"model":      c.model,
		"max_tokens": maxTokens,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type": "image",
						"source": map[string]any{
							"type":       "base64",
							"media_type": mimeType,
							"data":       base64.StdEncoding.EncodeToString(image),
						},
					},
					{"type": "text", "text": prompt},
				},
			},
		},
	}
	return c.do(ctx, reqBody)
}

func (c *Client) do(ctx context.Context, reqBody map[string]any) (*domain.RawLLMResponse, error) {
	body, err := llm.PostJSON(ctx, c.client, providerName, c.endpoint, map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": apiVersion,
	}, reqBody)
	if err != nil {
		return nil, err
	}
	return parseResponse(body, c.model)
}

// apiResponse models the Anthropic Messages API response.
type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte, model string) (*domain.RawLLMResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewEmptyResponseError(providerName, fmt.Sprintf("unmarshaling response: %v", err))
	}

	if len(resp.Content) == 0 || resp.Content[0].Text == "" {
		return nil, llm.NewEmptyResponseError(providerName, "empty response from API")
	}

	if resp.StopReason == "max_tokens" {
		return nil, llm.NewEmptyResponseError(providerName, "output truncated (stop_reason: max_tokens)")
	}

	return &domain.RawLLMResponse{
		Content:  resp.Content[0].Text,
		Provider: providerName,
		Model:    model,
		Usage: &domain.TokenUsage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
			TotalTokens:  resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}
