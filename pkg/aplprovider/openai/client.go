// Package openai adapts github.com/sashabaranov/go-openai to the
// aplprovider.Provider interface, as one illustrative concrete provider
// (spec.md §1 treats the provider HTTP client as a non-goal beyond this
// single interface-level adapter).
//
// Grounded on pkg/llm/openai/client.go in the teacher repository: same
// "Client wraps an HTTP(-ish) SDK behind the Provider contract" shape,
// rebuilt against go-openai instead of the teacher's hand-rolled
// net/http client so the module exercises a real ecosystem SDK rather
// than reimplementing chat-completion wire plumbing.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ilkoid/apl/pkg/aplprovider"
	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// Client implements aplprovider.Provider against the OpenAI chat
// completion API (or any OpenAI-compatible endpoint via baseURL).
type Client struct {
	api     *openai.Client
	limiter *rate.Limiter
}

// Option configures a Client via the functional-options pattern (the same
// builder shape apltools.Option uses).
type Option func(*Client)

// WithRateLimit bounds outbound chat-completion calls to requestsPerMinute,
// allowing up to burst calls to start back to back (a token bucket; it does
// not cap how many calls are in flight). Grounded on the teacher's
// per-tool rate limiter (pkg/wb/client.go's getOrCreateLimiter), generalized
// here to one limiter per provider Client since there is a single outbound
// endpoint rather than one per tool.
func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(c *Client) {
		ratePerSec := float64(requestsPerMinute) / 60.0
		c.limiter = rate.NewLimiter(rate.Limit(ratePerSec), burst)
	}
}

// New builds a Client. An empty baseURL uses the default OpenAI endpoint.
// With no WithRateLimit option, outbound calls are unthrottled.
func New(apiKey, baseURL string, opts ...Option) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	c := &Client{api: openai.NewClientWithConfig(cfg)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete implements aplprovider.Provider by translating the run context
// (spec §6.2: "Providers read any of prompts, tools, model, temperature,
// ...") into a go-openai request, then translating the SDK's response
// back into the normalized envelope.
func (c *Client) Complete(ctx context.Context, vars map[string]any) (aplprovider.Envelope, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return aplprovider.Envelope{}, fmt.Errorf("openai rate limiter: %w", err)
		}
	}

	req := openai.ChatCompletionRequest{
		Model:       stringField(vars, "model"),
		Temperature: float32Field(vars, "temperature"),
		MaxTokens:   intField(vars, "max_tokens"),
		TopP:        float32Field(vars, "top_p"),
	}

	for _, m := range messagesField(vars, "prompts") {
		req.Messages = append(req.Messages, m)
	}
	if tools := toolsField(vars, "tools"); len(tools) > 0 {
		req.Tools = tools
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return aplprovider.Envelope{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return aplprovider.Envelope{}, fmt.Errorf("openai returned no choices")
	}

	return toEnvelope(resp), nil
}

func toEnvelope(resp openai.ChatCompletionResponse) aplprovider.Envelope {
	msg := resp.Choices[0].Message

	var toolCalls []aplprovider.ToolCall
	for _, tc := range msg.ToolCalls {
		toolCalls = append(toolCalls, aplprovider.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: struct {
				Name      string `json:"name"`
				Arguments string `json:"arguments"`
			}{Name: tc.Function.Name, Arguments: tc.Function.Arguments},
		})
	}

	return aplprovider.Envelope{
		Choices: []aplprovider.Choice{{
			Message: aplprovider.Message{
				Role:      msg.Role,
				Content:   msg.Content,
				ToolCalls: toolCalls,
			},
		}},
		Usage: resp.Usage,
	}
}

func messagesField(vars map[string]any, key string) []openai.ChatCompletionMessage {
	raw, _ := vars[key].([]any)
	out := make([]openai.ChatCompletionMessage, 0, len(raw))
	for _, item := range raw {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		role, _ := m["role"].(string)
		switch content := m["content"].(type) {
		case string:
			out = append(out, openai.ChatCompletionMessage{Role: role, Content: content})
		case []any:
			parts := make([]openai.ChatMessagePart, 0, len(content))
			for _, p := range content {
				pm, ok := p.(map[string]any)
				if !ok {
					continue
				}
				parts = append(parts, toMessagePart(pm))
			}
			out = append(out, openai.ChatCompletionMessage{Role: role, MultiContent: parts})
		}
	}
	return out
}

func toMessagePart(pm map[string]any) openai.ChatMessagePart {
	kind, _ := pm["type"].(string)
	switch kind {
	case "text":
		text, _ := pm["text"].(string)
		return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: text}
	case "image_url":
		if ref, ok := pm["image_url"].(map[string]any); ok {
			url, _ := ref["url"].(string)
			return openai.ChatMessagePart{
				Type:     openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{URL: url},
			}
		}
	}
	return openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText}
}

func toolsField(vars map[string]any, key string) []openai.Tool {
	raw, _ := vars[key].([]any)
	out := make([]openai.Tool, 0, len(raw))
	for _, item := range raw {
		b, err := json.Marshal(item)
		if err != nil {
			continue
		}
		var def struct {
			Type     string `json:"type"`
			Function struct {
				Name        string         `json:"name"`
				Description string         `json:"description"`
				Parameters  map[string]any `json:"parameters"`
			} `json:"function"`
		}
		if err := json.Unmarshal(b, &def); err != nil {
			continue
		}
		out = append(out, openai.Tool{
			Type: openai.ToolType(def.Type),
			Function: &openai.FunctionDefinition{
				Name:        def.Function.Name,
				Description: def.Function.Description,
				Parameters:  def.Function.Parameters,
			},
		})
	}
	return out
}

func stringField(vars map[string]any, key string) string {
	s, _ := vars[key].(string)
	return s
}

func float32Field(vars map[string]any, key string) float32 {
	switch v := vars[key].(type) {
	case float64:
		return float32(v)
	case float32:
		return v
	case int:
		return float32(v)
	default:
		return 0
	}
}

func intField(vars map[string]any, key string) int {
	switch v := vars[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
