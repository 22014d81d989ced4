// Package aplrun implements the step scheduler / execution engine
// described in spec.md §4.4: the state machine that sequences phases,
// enforces global budgets, maintains and snapshots the shared context,
// and resolves the explicit-termination control-flow contract.
//
// Grounded on pkg/chain/executor.go's ReActExecutor in the teacher
// repository: a single Execute loop driving named steps to completion,
// generalized from the teacher's fixed LLM→Tools ReAct shape to the
// APL step table's pre/prompt/post phase order and explicit
// next_step-driven transitions.
package aplrun

import (
	"context"
	"fmt"
	"time"

	"github.com/ilkoid/apl/pkg/aplctx"
	"github.com/ilkoid/apl/pkg/aplexpr"
	"github.com/ilkoid/apl/pkg/aplparse"
)

// Start parses source, builds the initial Context, and drives the step
// loop to completion, returning the final Context (spec §4.4 top-level
// contract). On a RuntimeError the returned Context is nil — the partial
// context is discarded (spec §7). ctx governs only the provider call,
// the run's single suspension point besides tool dispatch (spec §5); it
// carries no deadline of its own; the run's own wall-clock budget is
// Options.Timeout.
func Start(ctx context.Context, source string, opts Options) (result *aplctx.Context, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = runtimeErrorf("Execution failed: %v", rec)
		}
	}()

	text := source
	if opts.relaxed() {
		text = aplparse.LowerDocument(text)
	}

	doc, err := aplparse.Parse(text)
	if err != nil {
		return nil, err
	}

	first, ok := doc.First()
	if !ok {
		return nil, runtimeErrorf("document has no steps")
	}

	c := aplctx.New(opts.Vars, opts.WithContext)
	eval := aplexpr.New()
	tools := opts.toolRegistry()

	runID := newRunID()
	startTime := time.Now()
	current := first
	prev := ""

	for current != "return" {
		if time.Since(startTime) > opts.timeout() {
			return nil, runtimeErrorf("timeout")
		}
		if opts.MaxRuns > 0 && c.GlobalRuns() >= opts.MaxRuns {
			return nil, runtimeErrorf("run budget exceeded")
		}

		step, ok := doc.Get(current)
		if !ok {
			return nil, runtimeErrorf("Unknown step: %s", current)
		}

		if current != prev {
			c.ResetForStep()
		}
		c.IncRuns()

		stepStart := time.Now()
		c.SetStep(current, prev)
		prev = current

		if step.Pre.Present {
			if _, renderErr := eval.Render(step.Pre.Text, c); renderErr != nil {
				c.AppendError(fmt.Sprintf("Pre phase error: %v", renderErr))
			}
		}

		runPromptPhase(ctx, step, c, eval, opts, tools)

		if step.Post.Present {
			if _, renderErr := eval.Render(step.Post.Text, c); renderErr != nil {
				c.AppendError(fmt.Sprintf("Post phase error: %v", renderErr))
			}
			c.ClearErrors()
		}

		c.SetTimeElapsed(time.Since(stepStart).Milliseconds(), time.Since(startTime).Milliseconds())
		c.AppendSnapshot()
		writeDebug(opts.DebugSink, runID, current, c)

		next, set := c.NextStep()
		if !set {
			break
		}
		current = next
	}

	c.Set(aplctx.KeyNextStep, nil)
	c.Set(aplctx.KeyTimeElapsedGlobal, time.Since(startTime).Milliseconds())

	return c, nil
}
