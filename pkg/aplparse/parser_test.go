package aplparse

import (
	"strings"
	"testing"
)

func TestParseExplicitTerminationSingleStep(t *testing.T) {
	doc, err := Parse("# prompt: only\n## user\nhi")
	if err != nil {
		t.Fatal(err)
	}
	if doc.Len() != 1 {
		t.Fatalf("expected 1 step, got %d", doc.Len())
	}
	step, _ := doc.Get("only")
	if len(step.Prompt.Segments) != 1 || step.Prompt.Segments[0].Role != RoleUser {
		t.Fatalf("unexpected prompt: %+v", step.Prompt)
	}
}

func TestParseReservedStepIdentifier(t *testing.T) {
	_, err := Parse("# prompt: return\nhi")
	if err == nil || !strings.Contains(err.Error(), "Reserved step identifier: return") {
		t.Fatalf("expected reserved identifier error, got %v", err)
	}
}

func TestParseRoleConcatenation(t *testing.T) {
	doc, err := Parse("# prompt: a\n## system\nA\n## user\nB\n## system\nC")
	if err != nil {
		t.Fatal(err)
	}
	step, _ := doc.Get("a")
	want := []RoleSegment{{RoleSystem, "A"}, {RoleUser, "B"}, {RoleSystem, "C"}}
	if len(step.Prompt.Segments) != len(want) {
		t.Fatalf("got %+v", step.Prompt.Segments)
	}
	for i := range want {
		if step.Prompt.Segments[i] != want[i] {
			t.Errorf("segment %d: got %+v want %+v", i, step.Prompt.Segments[i], want[i])
		}
	}
	if step.Prompt.ByRole[RoleSystem] != "A\nC" {
		t.Errorf("expected concatenated system view, got %q", step.Prompt.ByRole[RoleSystem])
	}
}

func TestParseMissingPromptPhaseFails(t *testing.T) {
	_, err := Parse("# pre: a\nfoo")
	if err == nil {
		t.Fatal("expected validation error for missing prompt phase")
	}
}

func TestParseDuplicatePhaseFails(t *testing.T) {
	_, err := Parse("# prompt: a\n## user\nhi\n# prompt: a\n## user\nbye")
	if err == nil {
		t.Fatal("expected duplicate-phase validation error")
	}
}

func TestParseHeadingWithExpressionFails(t *testing.T) {
	_, err := Parse("# prompt: {{ x }}\n## user\nhi")
	if err == nil {
		t.Fatal("expected heading-expression validation error")
	}
}

func TestParseReservedVariableScan(t *testing.T) {
	_, err := Parse("# prompt: a\n## user\n{{ next_steps }}")
	if err == nil || !strings.Contains(err.Error(), "next_steps") {
		t.Fatalf("expected reserved-variable error, got %v", err)
	}
}

func TestParseEmptyPreAndPostAreLegal(t *testing.T) {
	doc, err := Parse("# pre: a\n# prompt: a\n## user\nhi\n# post: a\n")
	if err != nil {
		t.Fatal(err)
	}
	step, _ := doc.Get("a")
	if !step.Pre.Present || step.Pre.Text != "" {
		t.Errorf("expected present-but-empty pre, got %+v", step.Pre)
	}
}

func TestParseDefaultIdentifierWhenEmpty(t *testing.T) {
	doc, err := Parse("# prompt:\n## user\nhi")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := doc.Get("default"); !ok {
		t.Fatalf("expected identifier to default to 'default'")
	}
}
