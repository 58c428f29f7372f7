package sandbox

import (
	"errors"
	"fmt"
)

// ErrHostTimeout is recorded when a pass outlives the configured host timeout.
var ErrHostTimeout = errors.New("sandbox pass exceeded host timeout")

// LoopBudgetExceeded aborts a pass whose render call count passed the budget.
// Only the failing pass is affected.
type LoopBudgetExceeded struct {
	Entry  string
	Budget int
	Calls  int
}

func (e *LoopBudgetExceeded) Error() string {
	return fmt.Sprintf("loop budget exceeded in %s: %d render calls, budget %d", e.Entry, e.Calls, e.Budget)
}

// ScriptError is an exception thrown by the script itself. The trace recorded
// before the exception is kept.
type ScriptError struct {
	Entry   string
	Message string
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("script error in %s: %s", e.Entry, e.Message)
}
