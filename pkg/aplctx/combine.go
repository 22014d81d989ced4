package aplctx

import "fmt"

// combine implements the shared arithmetic behind add()/rem() (spec §4.3):
// sign is +1 for add, -1 for rem. The result type follows cur's type
// (numeric add/subtract, string concatenation, list concatenation).
func combine(cur any, delta any, sign int) (any, error) {
	switch c := cur.(type) {
	case int:
		d, err := toFloat(delta)
		if err != nil {
			return nil, err
		}
		return c + sign*int(d), nil
	case int64:
		d, err := toFloat(delta)
		if err != nil {
			return nil, err
		}
		return c + int64(sign)*int64(d), nil
	case float64:
		d, err := toFloat(delta)
		if err != nil {
			return nil, err
		}
		return c + float64(sign)*d, nil
	case string:
		if sign < 0 {
			return nil, fmt.Errorf("cannot subtract from a string value")
		}
		return c + fmt.Sprintf("%v", delta), nil
	case []any:
		if sign < 0 {
			return nil, fmt.Errorf("cannot subtract from a list value")
		}
		if items, ok := delta.([]any); ok {
			return append(append([]any{}, c...), items...), nil
		}
		return append(append([]any{}, c...), delta), nil
	default:
		return nil, fmt.Errorf("unsupported accumulator type %T", cur)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// deepClone performs a structural deep copy of maps/slices/scalars so that
// context_history snapshots are never aliased to live context state (spec
// §3: "Snapshots ... are never mutated after insertion").
func deepClone(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, val := range node {
			out[k] = deepClone(val)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, val := range node {
			out[i] = deepClone(val)
		}
		return out
	default:
		return node
	}
}
