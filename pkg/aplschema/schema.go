// Package aplschema implements the minimal JSON Schema subset spec.md §6.3
// requires for structured-output validation: type, properties, required,
// items, enum, and numeric minimum/maximum. Unknown keywords are ignored.
//
// Grounded on pkg/tools/registry.go's validateToolDefinition, which walks
// a decoded JSON-schema-shaped map checking a handful of named keywords by
// hand rather than pulling in a general-purpose schema engine — the same
// approach generalized here from tool-definition validation to runtime
// `output_structure` validation.
package aplschema

import "fmt"

// Validate checks value against schema and returns one human-readable
// message per violation found (callers append them to the context's
// `errors` list). An empty result means value satisfies schema.
func Validate(value any, schema map[string]any) []string {
	var errs []string
	validate(value, schema, "$", &errs)
	return errs
}

func validate(value any, schema map[string]any, path string, errs *[]string) {
	if t, ok := schema["type"].(string); ok {
		if !typeMatches(value, t) {
			*errs = append(*errs, fmt.Sprintf("%s: expected type %q, got %T", path, t, value))
			return
		}
	}

	if enum, ok := schema["enum"].([]any); ok {
		if !enumContains(enum, value) {
			*errs = append(*errs, fmt.Sprintf("%s: value %v is not one of %v", path, value, enum))
		}
	}

	if min, ok := numeric(schema["minimum"]); ok {
		if v, ok := numeric(value); ok && v < min {
			*errs = append(*errs, fmt.Sprintf("%s: %v is less than minimum %v", path, v, min))
		}
	}
	if max, ok := numeric(schema["maximum"]); ok {
		if v, ok := numeric(value); ok && v > max {
			*errs = append(*errs, fmt.Sprintf("%s: %v is greater than maximum %v", path, v, max))
		}
	}

	obj, isObj := value.(map[string]any)
	if props, ok := schema["properties"].(map[string]any); ok && isObj {
		for name, sub := range props {
			subSchema, _ := sub.(map[string]any)
			if v, present := obj[name]; present {
				validate(v, subSchema, path+"."+name, errs)
			}
		}
	}
	if required, ok := schema["required"].([]any); ok && isObj {
		for _, r := range required {
			name, _ := r.(string)
			if _, present := obj[name]; !present {
				*errs = append(*errs, fmt.Sprintf("%s: missing required property %q", path, name))
			}
		}
	}

	if itemSchema, ok := schema["items"].(map[string]any); ok {
		if list, ok := value.([]any); ok {
			for i, item := range list {
				validate(item, itemSchema, fmt.Sprintf("%s[%d]", path, i), errs)
			}
		}
	}
}

func typeMatches(value any, t string) bool {
	switch t {
	case "object":
		_, ok := value.(map[string]any)
		return ok
	case "array":
		_, ok := value.([]any)
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "integer":
		v, ok := numeric(value)
		return ok && v == float64(int64(v))
	case "number":
		_, ok := numeric(value)
		return ok
	case "null":
		return value == nil
	default:
		return true // unknown type keyword: ignored
	}
}

func numeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func enumContains(enum []any, value any) bool {
	for _, e := range enum {
		if fmt.Sprintf("%v", e) == fmt.Sprintf("%v", value) {
			return true
		}
	}
	return false
}
