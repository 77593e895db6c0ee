package runtime

import "fmt"

// ReasonAbortAction is the failure reason of a leaf whose tactic selected the Abort action.
const ReasonAbortAction = "abort action invoked"

// ActionError reports a failure inside a tick: an action body, the environment refresh,
// or the evaluation of a proposal. The goal stays in progress; the tick is still charged.
type ActionError struct {
	Goal   string
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("goal %q: %v", e.Goal, e.Err)
	}
	return fmt.Sprintf("goal %q, action %q: %v", e.Goal, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
