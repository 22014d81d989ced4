package aplrun

import (
	"io"
	"time"

	"github.com/ilkoid/apl/pkg/aplprovider"
	"github.com/ilkoid/apl/pkg/apltools"
)

// DefaultTimeout is the wall-clock budget applied when Options.Timeout is
// zero (spec §6.4: "timeout (ms, default 120000)").
const DefaultTimeout = 120 * time.Second

// Options configures a single Start call (spec §6.4).
//
// Grounded on pkg/llm/options.go's GenerateOptions: a plain struct of
// tunables. WithTools and WithProviders are plain map fields that callers
// fill in directly; this package has no functional-option constructors.
type Options struct {
	// Timeout bounds the whole run (spec §4.4 step 1). Zero means
	// DefaultTimeout.
	Timeout time.Duration

	// MaxRuns bounds global_runs across the whole run (spec §4.4 step 2).
	// Zero means unbounded.
	MaxRuns int

	BaseURL string
	APIKey  string
	Debug   bool

	// Relaxed selects the sugarless-syntax lowerer for pre/post phases
	// (spec §4.2). Nil means enabled (spec §6.4 default true).
	Relaxed *bool

	WithTools     map[string]apltools.Registration
	WithProviders map[string]aplprovider.Provider

	// WithContext is shallow-merged into the context root during
	// initialization (spec §4.4 step 2).
	WithContext map[string]any

	// Vars seeds user-settable fields (model, temperature, ...) before
	// WithContext is merged in (spec §3).
	Vars map[string]any

	// DebugSink, if set, receives one JSON line per completed step
	// (name, runs, global_runs, elapsed, errors). Optional; nil by
	// default so it never violates the single-in-memory-context
	// invariant (spec §1) — it is a pure side channel, never read back.
	DebugSink io.Writer
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return DefaultTimeout
	}
	return o.Timeout
}

func (o Options) relaxed() bool {
	if o.Relaxed == nil {
		return true
	}
	return *o.Relaxed
}

func (o Options) provider(model string) aplprovider.Provider {
	if p, ok := o.WithProviders[model]; ok {
		return p
	}
	return aplprovider.Default()
}

func (o Options) toolRegistry() *apltools.Registry {
	reg := apltools.NewRegistry()
	for _, r := range o.WithTools {
		_ = reg.Register(r)
	}
	return reg
}
