// Package aplctx implements the Context data model described in spec.md §3:
// a single string-keyed mapping split between executor-maintained fields
// (written by the scheduler, read by templates) and user-settable fields
// (initialized from options, read and written by templates).
//
// Grounded on pkg/state/core.go and pkg/state/keys.go in the teacher
// repository: a typed Key constant set plus a thread-safe map-backed store,
// generalized from the teacher's fixed e-commerce fields to the open,
// APL-defined field set.
package aplctx

// Key names the executor-maintained fields of the Context (spec §3).
// These are not reserved from template writes (spec §4.1) — the executor
// simply owns the authoritative update timing for them.
const (
	KeyPrevStep          = "prev_step"
	KeyCurrentStep       = "current_step"
	KeyNextStep          = "next_step"
	KeyResultText        = "result_text"
	KeyResultJSON        = "result_json"
	KeyResultToolCalls   = "result_tool_calls"
	KeyResultImageURLs   = "result_image_urls"
	KeyResultAudioInputs = "result_audio_inputs"
	KeyResultFiles       = "result_files"
	KeyResultRole        = "result_role"
	KeyUsage             = "usage"
	KeyRuns              = "runs"
	KeyGlobalRuns        = "global_runs"
	KeyTimeElapsed       = "time_elapsed"
	KeyTimeElapsedGlobal = "time_elapsed_global"
	KeyErrors            = "errors"
	KeyPrompts           = "prompts"
	KeyTools             = "tools"

	// KeySelf and KeyHistory are synthesized on read (BuildVars) rather
	// than stored in the backing map, so Snapshot never needs to special
	// case stripping them (invariant 7 in spec.md §3).
	KeySelf    = "context"
	KeyHistory = "context_history"
)

// User-settable keys (spec §3). Defaults are applied by New.
const (
	KeyModel             = "model"
	KeyTemperature       = "temperature"
	KeyAllowedTools      = "allowed_tools"
	KeyOutputMode        = "output_mode"
	KeyOutputStructure   = "output_structure"
	KeyMaxTokens         = "max_tokens"
	KeyTopP              = "top_p"
	KeyPresencePenalty   = "presence_penalty"
	KeyFrequencyPenalty  = "frequency_penalty"
	KeyTopK              = "top_k"
	KeyRepetitionPenalty = "repetition_penalty"
	KeyStopSequences     = "stop_sequences"
	KeySeed              = "seed"
	KeyLogitBias         = "logit_bias"
)

// DefaultModel is the fallback model name when options do not set one.
const DefaultModel = "gpt-4o"

// Output modes (spec §3, user-settable `output_mode`).
const (
	OutputModeUnset             = ""
	OutputModeText              = "text"
	OutputModeJSON              = "json"
	OutputModeStructuredOutput  = "structured_output"
)

// synthesizedKeys are never stored in Context.data; they are computed by
// BuildVars on every render so that self-reference and history never need
// special-casing in Snapshot or in dotted-path navigation.
var synthesizedKeys = map[string]bool{
	KeySelf:    true,
	KeyHistory: true,
}
