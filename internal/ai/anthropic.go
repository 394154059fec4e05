package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/amishk599/jobdigest/internal/httpx"
)

const anthropicVersion = "2023-06-01"

// AnthropicProvider calls the Anthropic Messages API. It has no server-side
// schema enforcement, so schema requests are turned into a JSON-only
// instruction and validated by the caller.
type AnthropicProvider struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewAnthropicProvider creates a provider targeting the Messages API at baseURL.
func NewAnthropicProvider(baseURL, apiKey, model string, httpClient *http.Client) *AnthropicProvider {
	return &AnthropicProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

type messagesRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Temperature float64       `json:"temperature"`
	Messages    []chatMessage `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *apiError `json:"error,omitempty"`
}

// Complete sends req and concatenates the text blocks of the reply.
func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (string, error) {
	system := req.System
	if req.Schema != nil {
		system = strings.TrimSpace(system + "\n" + jsonOnlyInstruction(req.Schema))
	}

	body, err := json.Marshal(messagesRequest{
		Model:       p.model,
		MaxTokens:   maxTokens(req),
		System:      system,
		Temperature: 0,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal llm request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create llm request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", httpx.StatusError(resp, "anthropic messages")
	}

	var msgResp messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("parse llm response: %w", err)
	}
	if msgResp.Error != nil {
		return "", fmt.Errorf("llm error (%s): %s", msgResp.Error.Type, msgResp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("llm returned no text content")
	}
	return strings.TrimSpace(sb.String()), nil
}

// jsonOnlyInstruction describes the expected document for providers that
// cannot enforce a schema themselves.
func jsonOnlyInstruction(s *Schema) string {
	def, _ := json.Marshal(s.Definition)
	return "Respond with ONLY a JSON document conforming to this JSON Schema, no prose and no code fences:\n" + string(def)
}
