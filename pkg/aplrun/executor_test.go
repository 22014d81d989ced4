package aplrun

import (
	"context"
	"strings"
	"testing"

	"github.com/ilkoid/apl/pkg/aplctx"
	"github.com/ilkoid/apl/pkg/aplprovider"
	"github.com/ilkoid/apl/pkg/apltools"
)

func TestStartExplicitTerminationSingleStep(t *testing.T) {
	c, err := Start(context.Background(), "# prompt: only\n## user\nhi", Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.History()) != 1 {
		t.Fatalf("expected history length 1, got %d", len(c.History()))
	}
	if got := c.Get(aplctx.KeyResultText, ""); got != "echo: hi" {
		t.Errorf("expected default provider echo, got %v", got)
	}
}

func TestStartJumpToUnknownStepFails(t *testing.T) {
	src := "# pre: a\n{{ set('next_step', 'nope') }}\n# prompt: a\n## user\nx"
	_, err := Start(context.Background(), src, Options{})
	if err == nil {
		t.Fatal("expected RuntimeError")
	}
	if !strings.Contains(err.Error(), "Unknown step: nope") {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := err.(*RuntimeError); !ok {
		t.Fatalf("expected *RuntimeError, got %T", err)
	}
}

func TestStartAccumulatorLoopTerminatesAtFive(t *testing.T) {
	src := "# pre: a\n" +
		"{{ inc('n') }}\n" +
		"{% if get('n', 0) < 5 %}\n" +
		"{{ set('next_step', 'a') }}\n" +
		"{% endif %}\n" +
		"# prompt: a\n## user\nx"

	c, err := Start(context.Background(), src, Options{MaxRuns: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.History()) != 5 {
		t.Fatalf("expected history length 5, got %d", len(c.History()))
	}
	if got := c.Get("n", 0); got != 5 {
		t.Errorf("expected n==5, got %v", got)
	}
	if got := c.GlobalRuns(); got != 5 {
		t.Errorf("expected global_runs==5, got %v", got)
	}
}

func TestStartToolCallErrorIsolatedFromOtherCalls(t *testing.T) {
	reg := map[string]apltools.Registration{
		"boom": apltools.New("boom", func(string) (string, error) {
			panic("kaboom")
		}),
		"ok": apltools.New("ok", func(argsJSON string) (string, error) {
			return "fine", nil
		}),
	}

	boomCall := aplprovider.ToolCall{ID: "1", Type: "function"}
	boomCall.Function.Name = "boom"
	boomCall.Function.Arguments = "{}"
	okCall := aplprovider.ToolCall{ID: "2", Type: "function"}
	okCall.Function.Name = "ok"
	okCall.Function.Arguments = "{}"

	provider := aplprovider.Func(func(_ context.Context, vars map[string]any) (aplprovider.Envelope, error) {
		return aplprovider.Envelope{
			Choices: []aplprovider.Choice{{Message: aplprovider.Message{
				Role:      "assistant",
				ToolCalls: []aplprovider.ToolCall{boomCall, okCall},
			}}},
		}, nil
	})

	src := "# prompt: a\n## user\nx"
	c, err := Start(context.Background(), src, Options{
		WithTools:     reg,
		WithProviders: map[string]aplprovider.Provider{aplctx.DefaultModel: provider},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, _ := c.Get(aplctx.KeyResultToolCalls, nil).([]any)
	if len(results) != 2 {
		t.Fatalf("expected 2 tool results, got %d", len(results))
	}

	first := results[0].(map[string]any)
	if first["with_error"] != true {
		t.Errorf("expected first call to be error-flagged, got %+v", first)
	}
	second := results[1].(map[string]any)
	if second["with_error"] != false || second["content"] != "fine" {
		t.Errorf("expected second call to succeed untouched by the first, got %+v", second)
	}
}

func TestStartRelaxedAndCanonicalSyntaxAreEquivalent(t *testing.T) {
	canonical := "# pre: a\n{{ set('greeting', 'hi') }}\n# prompt: a\n## user\n{{ greeting }}"
	relaxed := "# pre: a\nset('greeting', 'hi')\n# prompt: a\n## user\n{{ greeting }}"

	cCanon, err := Start(context.Background(), canonical, Options{Relaxed: boolPtr(false)})
	if err != nil {
		t.Fatalf("canonical run failed: %v", err)
	}
	cRelaxed, err := Start(context.Background(), relaxed, Options{})
	if err != nil {
		t.Fatalf("relaxed run failed: %v", err)
	}

	if cCanon.Get("greeting", "") != cRelaxed.Get("greeting", "") {
		t.Fatalf("expected equivalent final contexts, got %v vs %v",
			cCanon.Get("greeting", ""), cRelaxed.Get("greeting", ""))
	}
	if cCanon.Get(aplctx.KeyResultText, "") != cRelaxed.Get(aplctx.KeyResultText, "") {
		t.Fatalf("expected equivalent result_text")
	}
}

func TestStartNextStepReturnIsEquivalentToUnset(t *testing.T) {
	src := "# pre: a\n{{ set('next_step', 'return') }}\n# prompt: a\n## user\nx"
	c, err := Start(context.Background(), src, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.History()) != 1 {
		t.Fatalf("expected history length 1, got %d", len(c.History()))
	}
}

func TestStartTimeoutExceededFails(t *testing.T) {
	src := "# pre: a\n{{ set('next_step', 'a') }}\n# prompt: a\n## user\nx"
	_, err := Start(context.Background(), src, Options{Timeout: 1})
	if err == nil {
		t.Fatal("expected timeout RuntimeError")
	}
	if !strings.Contains(err.Error(), "timeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStartRunBudgetExceededFails(t *testing.T) {
	src := "# pre: a\n{{ set('next_step', 'a') }}\n# prompt: a\n## user\nx"
	_, err := Start(context.Background(), src, Options{MaxRuns: 3})
	if err == nil {
		t.Fatal("expected run-budget RuntimeError")
	}
	if !strings.Contains(err.Error(), "run budget exceeded") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func boolPtr(b bool) *bool { return &b }
