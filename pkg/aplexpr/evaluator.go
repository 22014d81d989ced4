// Package aplexpr implements the templated expression layer described in
// spec.md §4.3: Jinja-style interpolation, control blocks, filters, and a
// fixed set of context-mutating helper functions, evaluated with
// strict-undefined semantics.
//
// Grounded on pkg/llm/options.go in the teacher repository for the
// functional-options register of doc comments, and on pkg/chain/context.go
// for the "helpers operate on a live per-run handle, never a process
// global" rule (spec.md §9's first design note makes this explicit: bind
// helpers to a closure captured per run, not a singleton).
package aplexpr

import (
	"fmt"

	"github.com/ilkoid/apl/pkg/aplctx"
	"github.com/nikolalohinski/gonja"
)

// Evaluator renders APL template text against a live Context. It holds no
// per-run state itself — every Render call binds a fresh set of helper
// closures to the Context passed in, so a single Evaluator is safe to reuse
// (and share) across concurrent runs.
type Evaluator struct{}

// New returns a ready-to-use Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Render evaluates source (a template string) against c and returns the
// rendered text. It fails fast, before invoking the template engine, if the
// source references a name that strict-undefined rules out (spec §4.3:
// "referencing an unbound name fails the render").
func (e *Evaluator) Render(source string, c *aplctx.Context) (out string, err error) {
	vars := c.BuildVars()

	if err := checkUndefined(source, vars); err != nil {
		return "", err
	}

	tpl, err := gonja.FromString(source)
	if err != nil {
		return "", fmt.Errorf("template parse error: %w", err)
	}

	ctx := gonja.Context{}
	for k, v := range vars {
		ctx[k] = v
	}
	bindHelpers(ctx, c)

	// Helper closures panic on unsupported accumulator combinations
	// (combine.go); recover here so a render error surfaces as a normal
	// error return rather than escaping as a Go panic (spec §9: replace
	// exception-based control flow with explicit results).
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("template render error: %w", RecoverHelperPanic(rec))
		}
	}()

	out, err = tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("template render error: %w", err)
	}
	return out, nil
}
