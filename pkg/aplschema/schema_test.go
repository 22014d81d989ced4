package aplschema

import "testing"

func TestValidateRequiredAndType(t *testing.T) {
	schema := map[string]any{
		"type":       "object",
		"required":   []any{"name"},
		"properties": map[string]any{"name": map[string]any{"type": "string"}},
	}
	errs := Validate(map[string]any{"name": "fred"}, schema)
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	errs = Validate(map[string]any{}, schema)
	if len(errs) != 1 {
		t.Fatalf("expected one missing-property error, got %v", errs)
	}
}

func TestValidateEnumAndRange(t *testing.T) {
	schema := map[string]any{"type": "integer", "minimum": float64(1), "maximum": float64(5)}
	if errs := Validate(float64(3), schema); len(errs) != 0 {
		t.Errorf("expected valid, got %v", errs)
	}
	if errs := Validate(float64(10), schema); len(errs) == 0 {
		t.Errorf("expected maximum violation")
	}

	enumSchema := map[string]any{"enum": []any{"a", "b"}}
	if errs := Validate("a", enumSchema); len(errs) != 0 {
		t.Errorf("expected enum member to be valid, got %v", errs)
	}
	if errs := Validate("c", enumSchema); len(errs) == 0 {
		t.Errorf("expected enum violation")
	}
}

func TestValidateItems(t *testing.T) {
	schema := map[string]any{
		"type":  "array",
		"items": map[string]any{"type": "string"},
	}
	if errs := Validate([]any{"a", "b"}, schema); len(errs) != 0 {
		t.Errorf("expected valid, got %v", errs)
	}
	if errs := Validate([]any{"a", float64(1)}, schema); len(errs) == 0 {
		t.Errorf("expected item type violation")
	}
}

func TestValidateUnknownKeywordsIgnored(t *testing.T) {
	schema := map[string]any{"type": "string", "format": "email"}
	if errs := Validate("x@example.com", schema); len(errs) != 0 {
		t.Errorf("expected unknown keyword to be ignored, got %v", errs)
	}
}
