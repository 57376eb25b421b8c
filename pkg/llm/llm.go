// Package llm defines the chat-completion interface the Validator uses to
// generate candidate replies, plus model-listing/selection used by the CLI's
// explicit `--list-models`/`--set-model` steps (§4.9, §11.7). There is no
// implicit default model: callers must persist a selection before
// generating.
package llm

import "context"

// ChatRequest is a single-turn completion request. Prompt carries only
// context metadata, never the held-out authentic reply (§8 item 7).
type ChatRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// ChatResponse is the generated reply plus usage for cost accounting.
type ChatResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// ModelInfo describes one selectable model (§6, --list-models).
type ModelInfo struct {
	ID          string
	Description string
}

// ChatClient is the narrow interface the Validator depends on, satisfied by
// both the OpenRouter and Anthropic backends.
type ChatClient interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}
