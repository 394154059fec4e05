package ai

import "context"

// Request is a single prompt sent to a text-generation provider. Calls are
// independent; no conversation state is carried between them.
type Request struct {
	System    string  // optional system instruction
	Prompt    string  // user prompt
	Schema    *Schema // when set, the response must be a JSON document matching it
	MaxTokens int     // zero means the provider default
}

// Schema names a JSON Schema the response must conform to.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Provider sends a prompt to an LLM and returns the raw text response.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

const defaultMaxTokens = 1024

func maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return defaultMaxTokens
}
