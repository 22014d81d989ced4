package aplparse

import (
	"regexp"
	"strings"
)

var (
	phaseHeadingRe = regexp.MustCompile(`(?i)^\s*#\s*(pre|prompt|post)\s*:\s*(.*?)\s*$`)
	roleHeadingRe  = regexp.MustCompile(`(?i)^\s*##\s*(system|user|assistant|developer|tool_result)\s*[:\-]?\s*$`)
	badIdentRe     = regexp.MustCompile(`[\n\r#:]`)
	delimiterTok   = regexp.MustCompile(`\{\{|\}\}|\{%|%\}`)
)

// reservedIdentifiers is the fixed set of names spec.md §4.1 reserves for
// future executor features; referencing one in a template (`{{ name` or
// `{% set name =`) fails validation even though the name is not otherwise
// a step identifier or context key.
//
// This is the full reserved-variable vocabulary from the original Python
// runtime's APLParser.RESERVED_VARIABLES (parser.py), carved out across
// future-feature families: parallel execution, workflow graphs, tool
// management, shared state, observability, control flow, provider
// routing, security, extensibility, composition, and streaming.
var reservedIdentifiers = map[string]bool{
	"next_steps": true, "await_steps": true, "parallel_results": true, "race_winner": true, "concurrent_limit": true,
	"step_graph": true, "workflow_state": true, "checkpoint": true, "rollback": true, "snapshot": true, "resume_from": true,
	"tool_registry": true, "tool_dependencies": true, "tool_cache": true, "streaming_tools": true, "tool_timeout": true,
	"memory": true, "shared_state": true, "session": true, "workspace": true, "vector_store": true,
	"trace": true, "metrics": true, "profiler": true, "debug_info": true, "audit_log": true,
	"conditions": true, "loops": true, "break_points": true, "event_triggers": true, "webhooks": true,
	"model_fallbacks": true, "provider_pool": true, "cost_tracking": true, "rate_limits": true, "model_routing": true,
	"permissions": true, "sandbox": true, "input_validation": true, "output_sanitization": true, "security_context": true,
	"plugins": true, "extensions": true, "middleware": true, "interceptors": true, "transformers": true,
	"sub_workflows": true, "workflow_imports": true, "macro_steps": true, "step_library": true, "template_inheritance": true,
	"streaming_mode": true, "real_time_updates": true, "push_notifications": true, "websocket_handlers": true, "sse_streams": true,
}

// phaseBuilder accumulates one phase's raw lines while scanning.
type phaseBuilder struct {
	kind  string // "pre", "prompt", "post"
	ident string
	lines []string
}

// Parse turns raw APL source into a Document, or a ValidationError (spec
// §4.1). Callers apply Lower to pre/post phase text before calling Parse
// if the relaxed surface is enabled (spec §4.2) — Parse itself only ever
// sees canonical, already-delimited text.
func Parse(source string) (*Document, error) {
	lines := strings.Split(source, "\n")

	doc := &Document{steps: map[string]*Step{}}
	declared := map[string]map[string]bool{} // identifier -> phase kind -> seen

	var cur *phaseBuilder
	flush := func() error {
		if cur == nil {
			return nil
		}
		return applyPhase(doc, declared, cur)
	}

	for _, line := range lines {
		if m := phaseHeadingRe.FindStringSubmatch(line); m != nil {
			if err := validateHeadingLine(line); err != nil {
				return nil, err
			}
			kind := strings.ToLower(m[1])
			ident := m[2]
			if ident == "" {
				ident = "default"
			}
			if err := validateIdentifier(ident); err != nil {
				return nil, err
			}

			if err := flush(); err != nil {
				return nil, err
			}
			cur = &phaseBuilder{kind: kind, ident: ident}
			continue
		}

		if cur != nil {
			cur.lines = append(cur.lines, line)
			continue
		}
		// Content before any phase heading is simply ignored — the source
		// language always begins with a phase heading (spec §6.1 grammar).
	}
	if err := flush(); err != nil {
		return nil, err
	}

	for _, step := range doc.Steps() {
		if len(step.Prompt.Segments) == 0 {
			return nil, newValidationError("missing-prompt", "step %q has no prompt phase", step.Identifier)
		}
		if err := scanReserved(step.Pre.Text); err != nil {
			return nil, err
		}
		if err := scanReserved(step.Post.Text); err != nil {
			return nil, err
		}
		for _, seg := range step.Prompt.Segments {
			if err := scanReserved(seg.Text); err != nil {
				return nil, err
			}
		}
	}

	return doc, nil
}

func validateHeadingLine(line string) error {
	if delimiterTok.MatchString(line) {
		return newValidationError("heading-expression", "phase heading must not contain a template expression: %q", strings.TrimSpace(line))
	}
	return nil
}

func validateIdentifier(ident string) error {
	if ident == "" || badIdentRe.MatchString(ident) {
		return newValidationError("bad-identifier", "invalid step identifier: %q", ident)
	}
	if ident == "return" {
		return newValidationError("reserved-identifier", "Reserved step identifier: return")
	}
	return nil
}

func applyPhase(doc *Document, declared map[string]map[string]bool, b *phaseBuilder) error {
	seen, ok := declared[b.ident]
	if !ok {
		seen = map[string]bool{}
		declared[b.ident] = seen
	}
	if seen[b.kind] {
		return newValidationError("duplicate-phase", "step %q declares phase %q more than once", b.ident, b.kind)
	}
	seen[b.kind] = true

	step, ok := doc.steps[b.ident]
	if !ok {
		step = &Step{Identifier: b.ident}
		doc.steps[b.ident] = step
		doc.order = append(doc.order, b.ident)
	}

	text := strings.Join(b.lines, "\n")
	switch b.kind {
	case "pre":
		step.Pre = Phase{Present: true, Text: strings.TrimRight(text, " \t\n")}
	case "post":
		step.Post = Phase{Present: true, Text: strings.TrimRight(text, " \t\n")}
	case "prompt":
		step.Prompt = buildPromptBlock(b.lines)
	}
	return nil
}

// buildPromptBlock splits a prompt phase's raw lines into role segments
// (spec §4.1 "phase accumulation"): a role heading flushes the current
// buffer, and a prompt with no role headings at all becomes a single
// implicit `user` segment.
func buildPromptBlock(lines []string) PromptBlock {
	block := PromptBlock{ByRole: map[Role]string{}}

	var curRole Role
	var buf []string
	haveRole := false

	flush := func() {
		if !haveRole && len(buf) == 0 {
			return
		}
		text := strings.TrimRight(strings.Join(buf, "\n"), " \t\n")
		block.Segments = append(block.Segments, RoleSegment{Role: curRole, Text: text})
		if existing, ok := block.ByRole[curRole]; ok {
			block.ByRole[curRole] = existing + "\n" + text
		} else {
			block.ByRole[curRole] = text
		}
		buf = nil
	}

	sawAnyRoleHeading := false
	for _, line := range lines {
		if m := roleHeadingRe.FindStringSubmatch(line); m != nil {
			if haveRole {
				flush()
			}
			curRole = validRoles[strings.ToLower(m[1])]
			haveRole = true
			sawAnyRoleHeading = true
			continue
		}
		buf = append(buf, line)
	}

	if !sawAnyRoleHeading {
		text := strings.TrimRight(strings.Join(buf, "\n"), " \t\n")
		if text != "" || len(lines) > 0 {
			block.Segments = append(block.Segments, RoleSegment{Role: RoleUser, Text: text})
			block.ByRole[RoleUser] = text
		}
		return block
	}

	flush()
	return block
}

// scanReserved fails validation if text references a reserved-for-future
// identifier via `{{ name` or `{% set name =` (spec §4.1).
func scanReserved(text string) error {
	for name := range reservedIdentifiers {
		if referencesName(text, name) {
			return newValidationError("reserved-variable", "use of reserved identifier %q in template", name)
		}
	}
	return nil
}

func referencesName(text, name string) bool {
	getRe := regexp.MustCompile(`\{\{\s*` + regexp.QuoteMeta(name) + `\b`)
	setRe := regexp.MustCompile(`\{%\s*set\s+` + regexp.QuoteMeta(name) + `\s*=`)
	return getRe.MatchString(text) || setRe.MatchString(text)
}
