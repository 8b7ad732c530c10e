package gemini

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
	providerName = "gemini"
	apiBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models"
	maxTokens    = 4096
)

func init() {
	llm.RegisterProvider(providerName, func(cfg *config.ProviderConfig) (port.LLMClient, error) {
		return NewClient(cfg), nil
	})
}

// Client implements port.LLMClient using Google's Gemini API.
type Client struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewClient creates a Gemini transport from a provider config.
func NewClient(cfg *config.ProviderConfig) *Client {
	model := cfg.DefaultModel
	if model == "" {
		model = "gemini-2.0-flash"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("%s/%s:generateContent", apiBaseURL, model)
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
	reqBody := map[string]any{
		"contents": []map[string]any{
			{
				"role":  "user",
				"parts": []map[string]any{{"text": prompt}},
			},
		},
		"generationConfig": generationConfig(jsonMode),
	}
	if systemPrompt != "" {
		reqBody["systemInstruction"] = map[string]any{
			"parts": []map[string]any{{"text": systemPrompt}},
		}
	}
	return c.do(ctx, reqBody)
}

func (c *Client) SendVision(ctx context.Context, image []byte, mimeType, prompt string) (*domain.RawLLMResponse, error) {
	if _, ok := domain.AllowedImageTypes[mimeType]; !ok {
		return nil, llm.NewConfigurationError(providerName, fmt.Sprintf("unsupported image type: %s", mimeType))
	}
	reqBody := map[string]any{
		"contents": []map[string]any{
			{
				"role": "user",
				"parts": []map[string]any{
					{
						"inline_data": map[string]any{
							"mime_type": mimeType,
							"data":      base64.StdEncoding.EncodeToString(image),
						},
					},
					{"text": prompt},
				},
			},
		},
		"generationConfig": generationConfig(true),
	}
	return c.do(ctx, reqBody)
}

func generationConfig(jsonMode bool) map[string]any {
	gc := map[string]any{"maxOutputTokens": maxTokens}
	if jsonMode {
		gc["responseMimeType"] = "application/json"
	}
	return gc
}

func (c *Client) do(ctx context.Context, reqBody map[string]any) (*domain.RawLLMResponse, error) {
	body, err := llm.PostJSON(ctx, c.client, providerName, c.endpoint, map[string]string{
		"x-goog-api-key": c.apiKey,
	}, reqBody)
	if err != nil {
		return nil, err
	}
	return parseResponse(body, c.model)
}

// geminiResponse models the Gemini API response.
type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

func parseResponse(body []byte, model string) (*domain.RawLLMResponse, error) {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, llm.NewEmptyResponseError(providerName, fmt.Sprintf("unmarshaling response: %v", err))
	}

	if len(resp.Candidates) == 0 {
		return nil, llm.NewEmptyResponseError(providerName, "empty response from API: no candidates")
	}

	if len(resp.Candidates[0].Content.Parts) == 0 || resp.Candidates[0].Content.Parts[0].Text == "" {
		return nil, llm.NewEmptyResponseError(providerName, "empty response from API: no parts")
	}

	if resp.Candidates[0].FinishReason == "MAX_TOKENS" {
		return nil, llm.NewEmptyResponseError(providerName, "output truncated (finishReason: MAX_TOKENS)")
	}

	return &domain.RawLLMResponse{
		Content:  resp.Candidates[0].Content.Parts[0].Text,
		Provider: providerName,
		Model:    model,
		Usage: &domain.TokenUsage{
			InputTokens:  resp.UsageMetadata.PromptTokenCount,
			OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:  resp.UsageMetadata.TotalTokenCount,
		},
	}, nil
}
