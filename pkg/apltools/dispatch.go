package apltools

import (
	"encoding/json"
	"fmt"

	"github.com/ilkoid/apl/pkg/aplctx"
)

// Describe builds the OpenAI-style function descriptors for every name in
// allowedTools that has a registration in reg (spec §4.6 Describe). Names
// with no registration are silently skipped — the provider simply never
// sees a tool it can't resolve.
func Describe(allowedTools []string, reg *Registry) []aplctx.ToolDescriptor {
	out := make([]aplctx.ToolDescriptor, 0, len(allowedTools))
	for _, name := range allowedTools {
		r, ok := reg.Get(name)
		if !ok {
			continue
		}
		out = append(out, r.descriptor())
	}
	return out
}

// Dispatch runs every tool call the provider returned, isolating per-call
// errors so one failing call never aborts the rest (spec §4.6 Dispatch,
// seed scenario 7). Results are returned in call order.
func Dispatch(c *aplctx.Context, reg *Registry, calls []aplctx.ToolCall) []aplctx.ToolCallResult {
	results := make([]aplctx.ToolCallResult, 0, len(calls))
	for _, call := range calls {
		results = append(results, dispatchOne(c, reg, call))
	}
	return results
}

func dispatchOne(c *aplctx.Context, reg *Registry, call aplctx.ToolCall) (result aplctx.ToolCallResult) {
	result = aplctx.ToolCallResult{Role: "tool", ToolCallID: call.ID}

	defer func() {
		if rec := recover(); rec != nil {
			result.WithError = true
			result.Content = fmt.Sprintf("%v", rec)
		}
	}()

	args := call.Function.Arguments
	if !json.Valid([]byte(args)) {
		result.WithError = true
		result.Content = fmt.Sprintf("invalid JSON arguments for tool %q", call.Function.Name)
		return result
	}

	r, ok := reg.Get(call.Function.Name)
	if !ok {
		result.WithError = true
		result.Content = fmt.Sprintf("tool %q is not registered", call.Function.Name)
		return result
	}

	var (
		out string
		err error
	)
	if r.WithContext {
		out, err = r.CtxFn(args, c)
	} else {
		out, err = r.Fn(args)
	}

	if err != nil {
		result.WithError = true
		result.Content = err.Error()
		return result
	}
	result.Content = out
	return result
}
