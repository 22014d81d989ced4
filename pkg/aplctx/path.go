package aplctx

import (
	"strconv"
	"strings"
)

// splitPath splits a dotted path into segments (spec §4.3).
func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// isIndex reports whether segment is a non-negative integer list index.
func isIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for _, r := range segment {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(segment)
	if err != nil {
		return 0, false
	}
	return n, true
}

// navigateGet walks container following segments, returning (value, true)
// on success or (nil, false) the moment a segment cannot be resolved
// (spec §4.3 path semantics).
func navigateGet(container any, segments []string) (any, bool) {
	cur := container
	for _, seg := range segments {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []any:
			idx, ok := isIndex(seg)
			if !ok || idx < 0 || idx >= len(node) {
				return nil, false
			}
			cur = node[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// navigateSet walks/creates containers following segments and assigns
// value at the end, returning the (possibly new) root container so the
// caller can re-assign it into its parent slot. Intermediate mappings and
// lists are created as needed (spec §4.3: "creating intermediate structure
// for set").
func navigateSet(container any, segments []string, value any) any {
	if len(segments) == 0 {
		return value
	}

	seg := segments[0]
	rest := segments[1:]

	if idx, ok := isIndex(seg); ok {
		lst, isList := container.([]any)
		if !isList {
			lst = nil
		}
		for len(lst) <= idx {
			lst = append(lst, nil)
		}
		lst[idx] = navigateSet(lst[idx], rest, value)
		return lst
	}

	m, isMap := container.(map[string]any)
	if !isMap {
		m = map[string]any{}
	}
	m[seg] = navigateSet(m[seg], rest, value)
	return m
}

// GetJSONPath is the pure function backing the `get_json_path` template
// helper (spec §4.3): it never mutates, and returns def the moment the
// path cannot be resolved.
func GetJSONPath(value any, path string, def any) any {
	v, ok := navigateGet(value, splitPath(path))
	if !ok {
		return def
	}
	return v
}
