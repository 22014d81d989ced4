package aplrun

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ilkoid/apl/pkg/aplctx"
	"github.com/ilkoid/apl/pkg/aplprovider"
	"github.com/ilkoid/apl/pkg/aplschema"
	"github.com/ilkoid/apl/pkg/apltools"
)

// processResponse implements spec.md §4.7: normalize the provider
// envelope's first choice into the context's result_* fields, dispatch
// any tool calls, and attempt JSON/schema validation of structured
// output.
func processResponse(c *aplctx.Context, env aplprovider.Envelope, tools *apltools.Registry) {
	c.Set(aplctx.KeyResultImageURLs, []any{})
	c.Set(aplctx.KeyResultAudioInputs, []any{})
	c.Set(aplctx.KeyResultFiles, []any{})

	if len(env.Choices) == 0 {
		c.AppendError("Prompt phase error: provider returned no choices")
		return
	}
	msg := env.Choices[0].Message

	resultText := extractResultText(c, msg.Content)
	c.Set(aplctx.KeyResultText, resultText)
	c.Set(aplctx.KeyResultRole, msg.Role)

	if len(msg.ToolCalls) > 0 {
		calls := make([]aplctx.ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			calls = append(calls, aplctx.ToolCall{
				ID:   tc.ID,
				Type: tc.Type,
				Function: aplctx.ToolCallFunction{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		results := apltools.Dispatch(c, tools, calls)
		resultsAny := make([]any, len(results))
		for i, r := range results {
			resultsAny[i] = toolResultToMap(r)
		}
		c.Set(aplctx.KeyResultToolCalls, resultsAny)
	} else {
		c.Set(aplctx.KeyResultToolCalls, []any{})
	}

	if env.Usage != nil {
		c.Set(aplctx.KeyUsage, env.Usage)
	}

	c.Set(aplctx.KeyResultJSON, nil)
	outputMode, _ := c.Get(aplctx.KeyOutputMode, "").(string)
	if (outputMode == aplctx.OutputModeJSON || outputMode == aplctx.OutputModeStructuredOutput) && resultText != "" {
		var parsed any
		if err := json.Unmarshal([]byte(resultText), &parsed); err != nil {
			c.AppendError(fmt.Sprintf("Invalid JSON output: %v", err))
			return
		}
		c.Set(aplctx.KeyResultJSON, parsed)

		if outputMode == aplctx.OutputModeStructuredOutput {
			if schema, ok := c.Get(aplctx.KeyOutputStructure, nil).(map[string]any); ok && schema != nil {
				for _, violation := range aplschema.Validate(parsed, schema) {
					c.AppendError(violation)
				}
			}
		}
	}
}

// extractResultText implements spec §4.7 steps 3–4: join multipart text
// parts, or use a plain string verbatim, while also populating the
// image/audio/file result lists from multipart content.
func extractResultText(c *aplctx.Context, content any) string {
	switch v := content.(type) {
	case string:
		return v
	case []any:
		var texts []string
		var imgs, auds, files []any
		for _, p := range v {
			pm, ok := p.(map[string]any)
			if !ok {
				continue
			}
			kind, _ := pm["type"].(string)
			switch kind {
			case "text":
				if t, ok := pm["text"].(string); ok {
					texts = append(texts, t)
				}
			case "image_url":
				if u := partURL(pm, "image_url"); u != "" {
					imgs = append(imgs, u)
				}
			case "audio_input":
				if u := partURL(pm, "audio_input"); u != "" {
					auds = append(auds, u)
				}
			case "file":
				if u := partURL(pm, "file"); u != "" {
					files = append(files, u)
				}
			}
		}
		c.Set(aplctx.KeyResultImageURLs, toAnySlice(imgs))
		c.Set(aplctx.KeyResultAudioInputs, toAnySlice(auds))
		c.Set(aplctx.KeyResultFiles, toAnySlice(files))
		return strings.Join(texts, "\n")
	default:
		return ""
	}
}

func partURL(pm map[string]any, kind string) string {
	ref, ok := pm[kind].(map[string]any)
	if !ok {
		return ""
	}
	u, _ := ref["url"].(string)
	return u
}

func toAnySlice(v []any) []any {
	if v == nil {
		return []any{}
	}
	return v
}

func toolResultToMap(r aplctx.ToolCallResult) map[string]any {
	return map[string]any{
		"role":         r.Role,
		"tool_call_id": r.ToolCallID,
		"content":      r.Content,
		"with_error":   r.WithError,
	}
}
