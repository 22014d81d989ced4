// Package apltools implements the tool description and dispatch layer
// described in spec.md §4.6: an OpenAI-style function-descriptor registry
// plus per-call error-isolated dispatch of provider-issued tool calls.
//
// Grounded on pkg/tools/types.go and pkg/tools/registry.go in the teacher
// repository (Tool interface, thread-safe Registry, schema validation on
// Register). Per spec.md §9's own design note — "a statically typed
// target [replaces native-signature introspection] with a builder API:
// the tool registrant supplies the descriptor explicitly" — registration
// here never inspects a Go function's reflect.Type; descriptors are
// either supplied outright or assembled from an explicit Parameters
// schema handed to the functional-option builder (pkg/llm/options.go's
// pattern).
package apltools

import "github.com/ilkoid/apl/pkg/aplctx"

// Func is a tool implementation with no context access.
type Func func(argsJSON string) (string, error)

// ContextFunc is a tool implementation that receives the live run Context
// (spec §4.6: "passing the context as an extra keyword argument when
// with_context is set").
type ContextFunc func(argsJSON string, c *aplctx.Context) (string, error)

// Registration is one entry under `with_tools` (spec §6.4): a name, its
// implementation, and either an explicit descriptor or the raw materials
// to build one.
type Registration struct {
	Name        string
	Description string
	Parameters  map[string]any
	WithContext bool
	Fn          Func
	CtxFn       ContextFunc
	Descriptor  *aplctx.ToolDescriptorBody
}

// Option configures a Registration via the functional-options pattern.
type Option func(*Registration)

// WithDescription sets the descriptor's free-text description.
func WithDescription(desc string) Option {
	return func(r *Registration) { r.Description = desc }
}

// WithParameters sets the JSON-schema parameter object used to synthesize
// a descriptor when none is supplied explicitly via WithDescriptor.
func WithParameters(params map[string]any) Option {
	return func(r *Registration) { r.Parameters = params }
}

// WithDescriptor supplies an explicit descriptor body, used verbatim
// instead of one synthesized from Description/Parameters (spec §4.6:
// "If the registration carries an explicit descriptor, use it verbatim").
func WithDescriptor(d aplctx.ToolDescriptorBody) Option {
	return func(r *Registration) { r.Descriptor = &d }
}

// New builds a context-free tool Registration.
func New(name string, fn Func, opts ...Option) Registration {
	r := Registration{Name: name, Fn: fn}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// NewWithContext builds a Registration whose implementation receives the
// live Context (spec §4.6 `with_context: true`).
func NewWithContext(name string, fn ContextFunc, opts ...Option) Registration {
	r := Registration{Name: name, WithContext: true, CtxFn: fn}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// descriptor returns the OpenAI-style function descriptor for this
// registration (spec §4.6 Describe).
func (r Registration) descriptor() aplctx.ToolDescriptor {
	if r.Descriptor != nil {
		return aplctx.ToolDescriptor{Type: "function", Function: *r.Descriptor}
	}
	params := r.Parameters
	if params == nil {
		params = map[string]any{"type": "object", "properties": map[string]any{}}
	}
	return aplctx.ToolDescriptor{
		Type: "function",
		Function: aplctx.ToolDescriptorBody{
			Name:        r.Name,
			Description: r.Description,
			Parameters:  params,
		},
	}
}
