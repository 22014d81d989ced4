package aplrun

import "fmt"

// RuntimeError is the scheduler-fatal error kind (spec §7): an unknown
// step target, a timeout, a run-budget overrun, or the wrapped
// "Execution failed: …" form for any unhandled error escaping the step
// loop. Unlike aplparse.ValidationError, a RuntimeError always means the
// partial context is discarded (spec §7: "on a RuntimeError the final
// partial context is discarded").
type RuntimeError struct {
	Message string
}

func (e *RuntimeError) Error() string { return e.Message }

func runtimeErrorf(format string, args ...any) error {
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}
