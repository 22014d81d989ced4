package aplexpr

import (
	"fmt"
	"regexp"
	"strings"
)

// jinjaKeywords are control-flow/literal tokens that strict-undefined must
// never flag, even though they parse as bare identifiers.
var jinjaKeywords = map[string]bool{
	"if": true, "elif": true, "else": true, "endif": true,
	"for": true, "endfor": true, "in": true,
	"set": true, "endset": true,
	"with": true, "endwith": true,
	"not": true, "and": true, "or": true, "is": true, "as": true,
	"true": true, "false": true, "none": true, "True": true, "False": true, "None": true,
	"loop": true,
}

// builtinFilterNames are gonja's standard filters (spec §4.3 permits `|`
// filters). Filter identifiers appear after a `|` and must not be flagged
// as unbound context variables.
var builtinFilterNames = map[string]bool{
	"default": true, "upper": true, "lower": true, "capitalize": true,
	"title": true, "trim": true, "length": true, "count": true,
	"join": true, "first": true, "last": true, "round": true,
	"int": true, "float": true, "string": true, "list": true,
	"sort": true, "reverse": true, "replace": true, "striptags": true,
	"truncate": true, "wordcount": true, "escape": true, "safe": true,
	"abs": true, "batch": true, "slice": true, "tojson": true,
}

var (
	blockRe      = regexp.MustCompile(`\{\{.*?\}\}|\{%.*?%\}`)
	stringLitRe  = regexp.MustCompile(`'(?:[^'\\]|\\.)*'|"(?:[^"\\]|\\.)*"`)
	identifierRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	forVarsRe    = regexp.MustCompile(`\{%-?\s*for\s+([A-Za-z_][A-Za-z0-9_]*)(?:\s*,\s*([A-Za-z_][A-Za-z0-9_]*))?\s+in\b`)
)

// checkUndefined implements the strict-undefined half of spec §4.3: it
// statically scans every `{{ }}`/`{% %}` block in source for bare
// identifiers and fails the render if one is neither a known context key,
// a bound helper, a Jinja keyword/literal, a filter name, nor a loop
// variable bound by a `{% for … in %}` block in source.
//
// This runs before the template engine itself so a render never silently
// treats a typo'd name as empty — the contract gonja's own undefined
// handling is not relied upon to enforce, since the engine's default
// behaviour on unknown variables is not part of this package's grounding.
func checkUndefined(source string, vars map[string]any) error {
	known := make(map[string]bool, len(vars))
	for k := range vars {
		known[k] = true
	}
	for _, m := range forVarsRe.FindAllStringSubmatch(source, -1) {
		for _, name := range m[1:] {
			if name != "" {
				known[name] = true
			}
		}
	}

	for _, block := range blockRe.FindAllString(source, -1) {
		stripped := stringLitRe.ReplaceAllString(block, "")
		for _, name := range identifiersNotAfterDot(stripped) {
			if known[name] || helperNames[name] || jinjaKeywords[name] || builtinFilterNames[name] {
				continue
			}
			return fmt.Errorf("undefined name %q referenced in template", name)
		}
	}
	return nil
}

// identifiersNotAfterDot returns the bare identifiers in s, skipping ones
// immediately preceded by `.` (attribute access, e.g. `foo.bar` only
// requires `foo` to be bound) and immediately followed by `=` used as a
// keyword-argument marker in helper calls (e.g. `default=None`).
func identifiersNotAfterDot(s string) []string {
	var out []string
	matches := identifierRe.FindAllStringIndex(s, -1)
	for _, m := range matches {
		start, end := m[0], m[1]
		if start > 0 && s[start-1] == '.' {
			continue
		}
		name := s[start:end]
		rest := strings.TrimLeft(s[end:], " ")
		if strings.HasPrefix(rest, "=") && !strings.HasPrefix(rest, "==") {
			continue // keyword-argument name, not a variable reference
		}
		out = append(out, name)
	}
	return out
}
