// Package anthropicllm adapts pkg/anthropic.Client to llm.ChatClient, so the
// Validator can use either external backend interchangeably (§4.9, §11.7).
package anthropicllm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/jrenaldi79/writing-style-pipeline/pkg/anthropic"
	"github.com/jrenaldi79/writing-style-pipeline/pkg/llm"
)

// staticModels is the curated list surfaced by --list-models; Anthropic has
// no public model-listing endpoint, unlike OpenRouter.
var staticModels = []llm.ModelInfo{
	{ID: "claude-opus-4-1-20250805", Description: "Highest-quality reasoning"},
	{ID: "claude-sonnet-4-20250514", Description: "Balanced quality and latency"},
	{ID: "claude-3-5-haiku-20241022", Description: "Fastest, lowest cost"},
}

// Client adapts an anthropic.Client to llm.ChatClient.
type Client struct {
	inner anthropic.Client
}

// New wraps an existing anthropic.Client.
func New(inner anthropic.Client) *Client {
	return &Client{inner: inner}
}

// Chat sends one completion request.
func (c *Client) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	msgReq := anthropic.MessageRequest{
		Model:       req.Model,
		MaxTokens:   int64(req.MaxTokens),
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &req.Temperature,
	}
	if req.System != "" {
		msgReq.System = []anthropic.SystemBlock{{Text: req.System}}
	}

	resp, err := c.inner.CreateMessage(ctx, msgReq)
	if err != nil {
		return nil, eris.Wrap(err, "anthropicllm: create message")
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	return &llm.ChatResponse{
		Text:         text,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}

// ListModels returns the curated static list; Anthropic has no discovery API.
func (c *Client) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return staticModels, nil
}
