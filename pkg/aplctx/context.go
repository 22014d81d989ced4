package aplctx

import (
	"fmt"
	"sync"
)

// Context is the single in-memory mapping described by spec.md §3.
//
// Grounded on pkg/state/core.go's CoreState: a mutex-guarded struct wrapping
// a single store, generalized from the teacher's fixed e-commerce fields to
// an open string-keyed map plus the fixed executor-maintained key set
// (spec §3 invariant 1–7).
type Context struct {
	mu      sync.RWMutex
	data    map[string]any
	history []map[string]any
}

// New builds the initial Context for a run: executor defaults, then the
// caller-supplied options (shallow merge), then options.with_context
// (shallow merge into the context root), matching spec §4.4 step 2.
func New(options map[string]any, withContext map[string]any) *Context {
	c := &Context{data: map[string]any{}}

	// Executor defaults.
	c.data[KeyPrevStep] = ""
	c.data[KeyCurrentStep] = ""
	c.data[KeyNextStep] = nil
	c.data[KeyResultText] = ""
	c.data[KeyResultJSON] = nil
	c.data[KeyResultToolCalls] = []any{}
	c.data[KeyResultImageURLs] = []any{}
	c.data[KeyResultAudioInputs] = []any{}
	c.data[KeyResultFiles] = []any{}
	c.data[KeyResultRole] = ""
	c.data[KeyUsage] = nil
	c.data[KeyRuns] = 0
	c.data[KeyGlobalRuns] = 0
	c.data[KeyTimeElapsed] = int64(0)
	c.data[KeyTimeElapsedGlobal] = int64(0)
	c.data[KeyErrors] = []any{}
	c.data[KeyPrompts] = []any{}
	c.data[KeyTools] = []any{}

	// User-settable defaults.
	c.data[KeyModel] = DefaultModel
	c.data[KeyTemperature] = 1.0
	c.data[KeyAllowedTools] = []any{}
	c.data[KeyOutputMode] = OutputModeUnset

	for k, v := range options {
		if synthesizedKeys[k] {
			continue // self-reference / history are never user-settable
		}
		c.data[k] = v
	}
	for k, v := range withContext {
		if synthesizedKeys[k] {
			continue
		}
		c.data[k] = v
	}

	c.history = make([]map[string]any, 0)
	return c
}

// Get reads a dotted path (spec §4.3). Returns def if the key is absent or
// the traversal hits a non-navigable element.
func (c *Context) Get(path string, def any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := navigateGet(c.data, splitPath(path))
	if !ok {
		return def
	}
	return v
}

// Set writes a dotted path, creating intermediate mappings/lists as needed
// (spec §4.3).
func (c *Context) Set(path string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(path, value)
}

func (c *Context) setLocked(path string, value any) {
	segments := splitPath(path)
	if len(segments) == 1 {
		c.data[segments[0]] = value
		return
	}
	c.data[segments[0]] = navigateSet(c.data[segments[0]], segments[1:], value)
}

func (c *Context) getLocked(path string) (any, bool) {
	return navigateGet(c.data, splitPath(path))
}

// Add implements the `add`/`add_context` helper (spec §4.3): initialize to
// def if unset, then combine with delta. Numeric values add, strings
// concatenate, []any lists concatenate.
func (c *Context) Add(path string, delta any, def any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.getLocked(path)
	if !ok || cur == nil {
		cur = def
	}
	result, err := combine(cur, delta, 1)
	if err != nil {
		return fmt.Errorf("add(%q): %w", path, err)
	}
	c.setLocked(path, result)
	return nil
}

// Rem implements the `rem`/`rem_context` helper (spec §4.3): initialize to
// def if unset, then subtract delta.
func (c *Context) Rem(path string, delta any, def any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, ok := c.getLocked(path)
	if !ok || cur == nil {
		cur = def
	}
	result, err := combine(cur, delta, -1)
	if err != nil {
		return fmt.Errorf("rem(%q): %w", path, err)
	}
	c.setLocked(path, result)
	return nil
}

// Inc is shorthand for Add(path, 1, def).
func (c *Context) Inc(path string, def any) error { return c.Add(path, 1, def) }

// Dec is shorthand for Rem(path, 1, def).
func (c *Context) Dec(path string, def any) error { return c.Rem(path, 1, def) }

// Snapshot returns a deep clone of the context for ContextSnapshot history
// (spec §3: self-reference and the history key itself are omitted).
func (c *Context) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return deepClone(c.data).(map[string]any)
}

// AppendSnapshot appends a snapshot to context_history (spec §4.4 step 10).
func (c *Context) AppendSnapshot() {
	snap := c.Snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, snap)
}

// History returns the recorded snapshots in order.
func (c *Context) History() []map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]map[string]any, len(c.history))
	copy(out, c.history)
	return out
}

// BuildVars returns the variable map exposed to template rendering: a
// top-level copy of the live data plus the synthesized self-reference and
// history entries (spec §3: `context`, `context_history`).
//
// Direct variable interpolation (`{{ name }}`) sees the state as of this
// call; helper calls (`get`/`set`/...) always observe the live Context, so
// ordering within a single render is guaranteed for helper-mediated access
// as spec §5 requires ("mutations via helpers are observed in textual
// left-to-right order").
func (c *Context) BuildVars() map[string]any {
	c.mu.RLock()
	vars := make(map[string]any, len(c.data)+2)
	for k, v := range c.data {
		vars[k] = v
	}
	history := make([]any, len(c.history))
	for i, h := range c.history {
		history[i] = h
	}
	c.mu.RUnlock()

	vars[KeyHistory] = history
	vars[KeySelf] = vars // self-reference: same map object
	return vars
}

// ResetForStep clears `runs` and `errors` when current_step changes (spec
// §3 invariant 3, §4.4 step 4).
func (c *Context) ResetForStep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[KeyRuns] = 0
	c.data[KeyErrors] = []any{}
}

// ClearErrors clears the `errors` list (spec §3 invariant 4).
func (c *Context) ClearErrors() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[KeyErrors] = []any{}
}

// AppendError appends a recoverable error message to `errors`.
func (c *Context) AppendError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	errs, _ := c.data[KeyErrors].([]any)
	c.data[KeyErrors] = append(errs, msg)
}

// IncRuns increments both `runs` and `global_runs` by one (spec §4.4 step 5).
func (c *Context) IncRuns() (runs int, globalRuns int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, _ := c.data[KeyRuns].(int)
	g, _ := c.data[KeyGlobalRuns].(int)
	r++
	g++
	c.data[KeyRuns] = r
	c.data[KeyGlobalRuns] = g
	return r, g
}

// GlobalRuns returns the current value of `global_runs`.
func (c *Context) GlobalRuns() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	g, _ := c.data[KeyGlobalRuns].(int)
	return g
}

// SetStep sets current_step/prev_step and clears next_step (spec §4.4
// steps 4 and 6).
func (c *Context) SetStep(current, prev string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[KeyCurrentStep] = current
	c.data[KeyPrevStep] = prev
	c.data[KeyNextStep] = nil
}

// NextStep returns the next_step field (empty string + false if unset).
func (c *Context) NextStep() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := c.data[KeyNextStep]
	if v == nil {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetTimeElapsed sets time_elapsed (per-step) and time_elapsed_global.
func (c *Context) SetTimeElapsed(stepMS, globalMS int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[KeyTimeElapsed] = stepMS
	c.data[KeyTimeElapsedGlobal] = globalMS
}

// withLock runs fn with exclusive access to the backing map, for
// multi-field updates that don't fit Get/Set.
func (c *Context) withLock(fn func(data map[string]any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.data)
}
