package aplprovider

import (
	"context"
	"fmt"
)

// Default returns the fallback provider used when `with_providers` has no
// registration for the current `model` (spec §6.2: "A default provider is
// used when no registration matches model; it may be a mock for test
// environments"). It echoes the string content of the last entry in
// `prompts`, whatever its role, back as "echo: <text>" (multipart content
// echoes as empty text), which is enough to drive the seed-scenario-1
// "explicit termination" contract (`result_text` is the provider's
// stringified reply to "hi") without any network dependency.
func Default() Provider {
	return Func(func(_ context.Context, vars map[string]any) (Envelope, error) {
		prompts, _ := vars["prompts"].([]any)
		text := ""
		if len(prompts) > 0 {
			if last, ok := prompts[len(prompts)-1].(map[string]any); ok {
				if s, ok := last["content"].(string); ok {
					text = s
				}
			}
		}
		return Envelope{
			Choices: []Choice{{Message: Message{Role: "assistant", Content: fmt.Sprintf("echo: %s", text)}}},
		}, nil
	})
}
