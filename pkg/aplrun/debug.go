package aplrun

import (
	"encoding/json"
	"io"

	"github.com/google/uuid"

	"github.com/ilkoid/apl/pkg/aplctx"
)

// debugRecord is one line written to Options.DebugSink per completed
// step.
//
// Grounded on pkg/chain/debug.go's ChainDebugRecorder, which records one
// structured entry per ReAct iteration to a file for offline inspection;
// generalized here to one entry per APL step and kept strictly optional
// (spec.md §1 non-goal: "no persistent storage of the context" — this
// sink never feeds back into the run, it only observes it).
type debugRecord struct {
	RunID      string   `json:"run_id"`
	Step       string   `json:"step"`
	Runs       int      `json:"runs"`
	GlobalRuns int      `json:"global_runs"`
	ElapsedMS  int64    `json:"elapsed_ms"`
	Errors     []string `json:"errors"`
}

// newRunID stamps a correlation ID once per Start call so every line a
// DebugSink receives for the same run can be grepped together, the way
// the teacher's debug recorder names one file per run.
func newRunID() string {
	return uuid.NewString()
}

func writeDebug(sink io.Writer, runID, step string, c *aplctx.Context) {
	if sink == nil {
		return
	}
	runs, _ := c.Get(aplctx.KeyRuns, 0).(int)
	globalRuns, _ := c.Get(aplctx.KeyGlobalRuns, 0).(int)
	elapsed, _ := c.Get(aplctx.KeyTimeElapsed, int64(0)).(int64)
	errsRaw, _ := c.Get(aplctx.KeyErrors, nil).([]any)

	errs := make([]string, 0, len(errsRaw))
	for _, e := range errsRaw {
		if s, ok := e.(string); ok {
			errs = append(errs, s)
		}
	}

	rec := debugRecord{RunID: runID, Step: step, Runs: runs, GlobalRuns: globalRuns, ElapsedMS: elapsed, Errors: errs}
	b, err := json.Marshal(rec)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = sink.Write(b)
}
