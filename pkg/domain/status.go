package domain

import "fmt"

// StatusKind is the coarse progress state of a goal-tree node.
type StatusKind string

const (
	StatusInProgress StatusKind = "in_progress"
	StatusSuccess    StatusKind = "success"
	StatusFailed     StatusKind = "failed"
)

// ReasonBudgetExhausted is the failure reason recorded when a node runs out of budget.
const ReasonBudgetExhausted = "budget exhausted"

// ProgressStatus is the status of exactly one goal-tree node.
// Once SUCCESS or FAILED it is terminal: the Mark* methods refuse to overwrite it.
// The zero value is IN_PROGRESS.
type ProgressStatus struct {
	kind      StatusKind
	reason    string
	exhausted bool
}

// Kind returns the status kind, defaulting to StatusInProgress.
func (s ProgressStatus) Kind() StatusKind {
	if s.kind == "" {
		return StatusInProgress
	}
	return s.kind
}

// Reason is the human readable explanation attached to a terminal status.
func (s ProgressStatus) Reason() string { return s.reason }

func (s ProgressStatus) InProgress() bool { return s.Kind() == StatusInProgress }
func (s ProgressStatus) Succeeded() bool  { return s.kind == StatusSuccess }
func (s ProgressStatus) Failed() bool     { return s.kind == StatusFailed }

// Terminal reports whether the status is SUCCESS or FAILED.
func (s ProgressStatus) Terminal() bool { return !s.InProgress() }

// Exhausted reports whether the node failed because its budget ran out.
func (s ProgressStatus) Exhausted() bool { return s.kind == StatusFailed && s.exhausted }

// MarkSuccess moves an in-progress status to SUCCESS.
// It returns false, leaving the status untouched, when the status is already terminal.
func (s *ProgressStatus) MarkSuccess(reason string) bool {
	if s.Terminal() {
		return false
	}
	s.kind, s.reason = StatusSuccess, reason
	return true
}

// MarkFailed moves an in-progress status to FAILED.
func (s *ProgressStatus) MarkFailed(reason string) bool {
	if s.Terminal() {
		return false
	}
	s.kind, s.reason = StatusFailed, reason
	return true
}

// MarkBudgetExhausted moves an in-progress status to FAILED with ReasonBudgetExhausted.
func (s *ProgressStatus) MarkBudgetExhausted() bool {
	if !s.MarkFailed(ReasonBudgetExhausted) {
		return false
	}
	s.exhausted = true
	return true
}

// Reopen puts a terminal status back to IN_PROGRESS.
// Only REPEAT re-entry may call this; every other transition goes through Mark*.
func (s *ProgressStatus) Reopen() {
	*s = ProgressStatus{}
}

func (s ProgressStatus) String() string {
	if s.reason == "" {
		return string(s.Kind())
	}
	return fmt.Sprintf("%s (%s)", s.Kind(), s.reason)
}
