// Package openrouter implements llm.ChatClient against OpenRouter's
// OpenAI-compatible completion endpoint, via go-openai pointed at a custom
// base URL (§11.7).
package openrouter

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/sashabaranov/go-openai"

	"github.com/jrenaldi79/writing-style-pipeline/pkg/llm"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// ModelStateFile is the sibling artefact the CLI's --set-model step writes,
// so subsequent --generate runs don't silently fall back to a default
// model (§11.7: "no implicit defaults").
const ModelStateFile = "openrouter_model.json"

type modelState struct {
	Model string `json:"model"`
}

// Client wraps an OpenAI-compatible client configured for OpenRouter.
type Client struct {
	inner *openai.Client
}

// New builds a Client. baseURL defaults to OpenRouter's endpoint when empty.
func New(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Client{inner: openai.NewClientWithConfig(cfg)}
}

// Chat sends one completion request.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role: openai.ChatMessageRoleSystem, Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser, Content: req.Prompt,
	})

	resp, err := c.inner.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return nil, eris.Wrap(err, "openrouter: chat completion")
	}
	if len(resp.Choices) == 0 {
		return nil, eris.New("openrouter: empty completion response")
	}

	return &llm.ChatResponse{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// ListModels returns every model OpenRouter's /models endpoint advertises.
func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	list, err := c.inner.ListModels(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "openrouter: list models")
	}
	out := make([]llm.ModelInfo, 0, len(list.Models))
	for _, m := range list.Models {
		out = append(out, llm.ModelInfo{ID: m.ID, Description: m.OwnedBy})
	}
	return out, nil
}

// SaveSelectedModel persists the chosen model ID to dataDir/openrouter_model.json
// atomically (write-temp-then-rename, matching the rest of the pipeline's
// artefact writes).
func SaveSelectedModel(dataDir, modelID string) error {
	path := filepath.Join(dataDir, ModelStateFile)
	buf, err := json.MarshalIndent(modelState{Model: modelID}, "", "  ")
	if err != nil {
		return eris.Wrap(err, "openrouter: marshal model state")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf, 0o644); err != nil {
		return eris.Wrap(err, "openrouter: write model state")
	}
	if err := os.Rename(tmp, path); err != nil {
		return eris.Wrap(err, "openrouter: rename model state")
	}
	return nil
}

// LoadSelectedModel reads back a previously persisted model selection. It
// returns an error if none has ever been saved — callers must not invent a
// default.
func LoadSelectedModel(dataDir string) (string, error) {
	path := filepath.Join(dataDir, ModelStateFile)
	buf, err := os.ReadFile(path)
	if err != nil {
		return "", eris.Wrap(err, "openrouter: no model selected, run --set-model first")
	}
	var state modelState
	if err := json.Unmarshal(buf, &state); err != nil {
		return "", eris.Wrap(err, "openrouter: corrupt model state")
	}
	return state.Model, nil
}
