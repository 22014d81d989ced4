package aplrun

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ilkoid/apl/pkg/aplctx"
	"github.com/ilkoid/apl/pkg/aplexpr"
	"github.com/ilkoid/apl/pkg/aplparse"
	"github.com/ilkoid/apl/pkg/apltools"
)

var attachmentRe = regexp.MustCompile(`^@(image_url|audio_input|file)\s+(https://\S+)\s*$`)

type attachment struct {
	kind string
	url  string
}

// extractAttachments splits rendered prompt text into its textual
// remainder and any line-anchored `@<kind> <url>` attachments (spec
// §4.5 step 2). Attachments must begin at column 0 and must not be a
// template comment; anything else, including indented `@image_url …`,
// is plain text.
func extractAttachments(text string) (string, []attachment) {
	lines := strings.Split(text, "\n")
	var textLines []string
	var atts []attachment

	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "{#") {
			textLines = append(textLines, line)
			continue
		}
		if m := attachmentRe.FindStringSubmatch(line); m != nil {
			atts = append(atts, attachment{kind: m[1], url: m[2]})
			continue
		}
		textLines = append(textLines, line)
	}
	return strings.TrimSpace(strings.Join(textLines, "\n")), atts
}

// buildMessage assembles one {role, content} prompt message (spec §4.5
// step 3): a plain string when there are no attachments, otherwise an
// ordered multipart list.
func buildMessage(role aplparse.Role, text string, atts []attachment) map[string]any {
	if len(atts) == 0 {
		return map[string]any{"role": string(role), "content": text}
	}
	var parts []any
	if text != "" {
		parts = append(parts, map[string]any{"type": "text", "text": text})
	}
	for _, a := range atts {
		parts = append(parts, map[string]any{"type": a.kind, a.kind: map[string]any{"url": a.url}})
	}
	return map[string]any{"role": string(role), "content": parts}
}

// runPromptPhase implements spec.md §4.5 end to end: render each role
// segment, extract attachments, push prompt messages, describe allowed
// tools, call the provider, and process the response. It never returns
// an error — provider/render failures are recorded into the context's
// `errors` list, per the recoverable-error contract of spec §7.
func runPromptPhase(ctx context.Context, step *aplparse.Step, c *aplctx.Context, eval *aplexpr.Evaluator, opts Options, tools *apltools.Registry) {
	existing, _ := c.Get(aplctx.KeyPrompts, nil).([]any)

	for _, seg := range step.Prompt.Segments {
		rendered, err := eval.Render(seg.Text, c)
		if err != nil {
			c.AppendError(fmt.Sprintf("Prompt phase error: %v", err))
			continue
		}
		text, atts := extractAttachments(rendered)
		existing = append(existing, buildMessage(seg.Role, text, atts))
	}
	c.Set(aplctx.KeyPrompts, existing)

	allowed, _ := c.Get(aplctx.KeyAllowedTools, nil).([]any)
	var toolNames []string
	for _, t := range allowed {
		if s, ok := t.(string); ok {
			toolNames = append(toolNames, s)
		}
	}

	descTools := []any{}
	if len(toolNames) > 0 {
		for _, d := range apltools.Describe(toolNames, tools) {
			descTools = append(descTools, descriptorToMap(d))
		}
	}
	c.Set(aplctx.KeyTools, descTools)

	model, _ := c.Get(aplctx.KeyModel, aplctx.DefaultModel).(string)
	provider := opts.provider(model)

	vars := c.BuildVars()
	env, err := provider.Complete(ctx, vars)
	if err != nil {
		c.AppendError(fmt.Sprintf("Prompt phase error: %v", err))
		resetResultFields(c)
		return
	}

	processResponse(c, env, tools)
}

func resetResultFields(c *aplctx.Context) {
	c.Set(aplctx.KeyResultText, "")
	c.Set(aplctx.KeyResultJSON, nil)
	c.Set(aplctx.KeyResultToolCalls, []any{})
	c.Set(aplctx.KeyResultImageURLs, []any{})
	c.Set(aplctx.KeyResultAudioInputs, []any{})
	c.Set(aplctx.KeyResultFiles, []any{})
	c.Set(aplctx.KeyResultRole, "")
}

func descriptorToMap(d aplctx.ToolDescriptor) map[string]any {
	return map[string]any{
		"type": d.Type,
		"function": map[string]any{
			"name":        d.Function.Name,
			"description": d.Function.Description,
			"parameters":  d.Function.Parameters,
		},
	}
}
