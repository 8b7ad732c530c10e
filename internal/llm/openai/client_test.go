package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslipx/internal/config"
	"payslipx/internal/domain"
	"payslipx/internal/llm"
	"payslipx/internal/llm/openai"
)

func newTestClient(serverURL string) *openai.Client {
	return openai.NewClient(&config.ProviderConfig{
		Provider:     "openai",
		APIKey:       "sk-test",
		DefaultModel: "gpt-4o",
		Endpoint:     serverURL,
	})
}

func okBody(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]interface{}{"content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]interface{}{"prompt_tokens": 200, "completion_tokens": 50, "total_tokens": 250},
	}
}

func TestClient_Send_JSONMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		assert.Equal(t, "json_object", reqBody["response_format"].(map[string]interface{})["type"])

		messages := reqBody["messages"].([]interface{})
		assert.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])

		_ = json.NewEncoder(w).Encode(okBody(`{"earnings":{},"deductions":{}}`))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).Send(context.Background(), "user", "system", true)

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", out.Model)
	assert.Equal(t, 250, out.Usage.TotalTokens)
	assert.Equal(t, 200, out.Usage.InputTokens)
}

func TestClient_Send_PlainMode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		_, hasFormat := reqBody["response_format"]
		assert.False(t, hasFormat)
		assert.Len(t, reqBody["messages"].([]interface{}), 1)

		_ = json.NewEncoder(w).Encode(okBody("plain"))
	}))
	defer server.Close()

	out, err := newTestClient(server.URL).Send(context.Background(), "user", "", false)
	require.NoError(t, err)
	assert.Equal(t, "plain", out.Content)
}

func TestClient_SendVision_DataURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var reqBody map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&reqBody))
		content := reqBody["messages"].([]interface{})[0].(map[string]interface{})["content"].([]interface{})
		url := content[0].(map[string]interface{})["image_url"].(map[string]interface{})["url"].(string)
		assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"))

		_ = json.NewEncoder(w).Encode(okBody(`{"earnings":{},"deductions":{}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SendVision(context.Background(), []byte{0xff, 0xd8}, "image/jpeg", "extract")
	require.NoError(t, err)
}

func TestClient_Send_LengthTruncation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ea"},"finish_reason":"length"}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Send(context.Background(), "p", "", true)
	assert.ErrorIs(t, err, domain.ErrInvalidResponse)
}

func TestClient_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("overloaded"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Send(context.Background(), "p", "", true)

	var te *llm.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.StatusCode)
	assert.Contains(t, te.Message, "overloaded")
}
