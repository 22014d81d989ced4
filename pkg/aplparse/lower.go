// Package aplparse implements the APL document parser and static validator
// (spec.md §4.1) and the relaxed-syntax lowerer (§4.2).
//
// Grounded on pkg/prompt/loader.go in the teacher repository for the
// "load raw text, split into structured sections, fail with a named
// validation error" shape, generalized from the teacher's single
// system/user template split into the full pre/prompt/post phase and
// role-segment grammar of spec.md §6.1.
package aplparse

import (
	"regexp"
	"strings"
)

var (
	controlKeywordRe = regexp.MustCompile(`^(if|elif|else|endif|for|endfor|set|endset|with|endwith)(?:\s|$)`)
	functionCallRe   = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*\s*\(`)
	delimitedRe      = regexp.MustCompile(`\{\{|\}\}|\{%|%\}`)
)

// Lower applies the relaxed ("sugarless") preprocessor to a single phase's
// raw text (spec §4.2). It must only ever be called on pre/post phase
// text — prompt bodies are never lowered, so the parser can keep matching
// role headings against literal text.
//
// Idempotent on already-delimited input; preserves blank lines and
// indentation byte-for-byte.
func Lower(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, len(lines))

	for i, line := range lines {
		out[i] = lowerLine(line)
	}
	return strings.Join(out, "\n")
}

// LowerDocument applies Lower across an entire raw document, tracking
// phase boundaries via the same heading pattern the parser uses so that
// only pre/post phase lines are rewritten — prompt phase lines and
// heading lines themselves always pass through unchanged (spec §4.2:
// "only applied to pre/post phases", and the lowerer must run before the
// parser, so this operates on raw, not-yet-split text).
func LowerDocument(source string) string {
	lines := strings.Split(source, "\n")
	out := make([]string, len(lines))
	kind := ""

	for i, line := range lines {
		if m := phaseHeadingRe.FindStringSubmatch(line); m != nil {
			kind = strings.ToLower(m[1])
			out[i] = line
			continue
		}
		if kind == "pre" || kind == "post" {
			out[i] = lowerLine(line)
		} else {
			out[i] = line
		}
	}
	return strings.Join(out, "\n")
}

func lowerLine(line string) string {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return line
	}
	if delimitedRe.MatchString(line) {
		return line
	}

	indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]

	if controlKeywordRe.MatchString(trimmed) {
		return indent + "{% " + trimmed + " %}"
	}
	if functionCallRe.MatchString(trimmed) {
		return indent + "{{ " + trimmed + " }}"
	}
	return line
}
