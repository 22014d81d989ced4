package openai

import (
	"context"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
)

func TestToEnvelopeTranslatesToolCalls(t *testing.T) {
	resp := openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: "",
				ToolCalls: []openai.ToolCall{{
					ID:       "call_1",
					Type:     openai.ToolTypeFunction,
					Function: openai.FunctionCall{Name: "lookup", Arguments: `{"q":"x"}`},
				}},
			},
		}},
	}

	env := toEnvelope(resp)
	if len(env.Choices[0].Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %+v", env.Choices[0].Message.ToolCalls)
	}
	tc := env.Choices[0].Message.ToolCalls[0]
	if tc.ID != "call_1" || tc.Function.Name != "lookup" {
		t.Errorf("unexpected tool call: %+v", tc)
	}
}

func TestMessagesFieldHandlesTextAndMultipart(t *testing.T) {
	vars := map[string]any{
		"prompts": []any{
			map[string]any{"role": "user", "content": "hello"},
			map[string]any{"role": "user", "content": []any{
				map[string]any{"type": "text", "text": "see"},
				map[string]any{"type": "image_url", "image_url": map[string]any{"url": "https://x/y.png"}},
			}},
		},
	}
	msgs := messagesField(vars, "prompts")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hello" {
		t.Errorf("unexpected plain content: %q", msgs[0].Content)
	}
	if len(msgs[1].MultiContent) != 2 {
		t.Fatalf("expected 2 multipart parts, got %+v", msgs[1].MultiContent)
	}
}

func TestWithRateLimitBlocksBurstOverflow(t *testing.T) {
	c := New("test-key", "", WithRateLimit(60, 1))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		t.Fatalf("first call within burst should not block: %v", err)
	}
	if err := c.limiter.Wait(ctx); err == nil {
		t.Errorf("second call should exceed the short deadline once the burst is spent")
	}
}
