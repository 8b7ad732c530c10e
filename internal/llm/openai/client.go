package openai

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
	providerName = "openai"
	apiURL       = "https://api.openai.com/v1/chat/completions"
	maxTokens    = 4096
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (port.LLMClient, error) {
		return NewClient(cfg), nil
	})
}

// Client implements port.LLMClient using the OpenAI Chat Completions API.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates an OpenAI transport from a provider config.
func NewClient(cfg *config.ProviderConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = apiURL
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
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

func (c *Client) Send(ctx context.Context, prompt, systemPrompt string, jsonMode bool) (*domain.RawLLMResponse, error) {
	var messages []map[string]any
	if systemPrompt != "" {
		messages = append(messages, map[string]any{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]any{"role": "user", "content": prompt})

	reqBody := map[string]any{
		"model":                 c.model,
		"max_completion_tokens": maxTokens,
		"messages":              messages,
	}
	if jsonMode {
		reqBody["response_format"] = map[string]any{"type": "json_object"}
	}
	return c.do(ctx, reqBody)
}

func (c *Client) SendVision(ctx context.Context, image []byte, mimeType, prompt string) (*domain.RawLLMResponse, error) {
	if _, ok := domain.AllowedImageTypes[mimeType]; !ok {
		return nil, llm.NewConfigurationError(providerName, fmt.Sprintf("unsupported image type: %s", mimeType))
	}
	dataURI := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))
	reqBody := map[string]any{
		"model":                 c.model,
		"max_completion_tokens": maxTokens,
		"messages": []map[string]any{
			{
				"role": "user",
				"content": []map[string]any{
					{
						"type":      "image_url",
						"image_url": map[string]any{"url": dataURI},
					},
					{"type": "text", "text": prompt},
				},
			},
		},
		"response_format": map[string]any{"type": "json_object"},
	}
	return c.do(ctx, reqBody)
}

func (c *Client) do(ctx context.Context, reqBody map[string]any) (*domain.RawLLMResponse, error) {
	body, err := llm.PostJSON(ctx, c.client, providerName, c.endpoint, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, reqBody)
	if err != nil {
		return nil, err
	}
	return parseResponse(body, c.model)
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte, model string) (*domain.RawLLMResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewEmptyResponseError(providerName, fmt.Sprintf("unmarshaling response: %v", err))
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, llm.NewEmptyResponseError(providerName, "empty response from API: no choices")
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, llm.NewEmptyResponseError(providerName, "output truncated (finish_reason: length)")
	}

	return &domain.RawLLMResponse{
		Content:  resp.Choices[0].Message.Content,
		Provider: providerName,
		Model:    model,
		Usage: &domain.TokenUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
			TotalTokens:  resp.Usage.TotalTokens,
		},
	}, nil
}
