package tactic

import (
	"context"
	"errors"
)

// ErrAbort is returned when an Abort action is executed.
var ErrAbort = errors.New("abort action invoked")

// Action is a guarded unit of work. Its body computes a proposal of type P from the
// agent state S; the guard decides whether the action may run on the current state.
type Action[S, P any] struct {
	name  string
	guard func(S) bool
	body  func(context.Context, S) (P, error)
	abort bool
}

// NewAction creates an action whose body may fail, e.g. because it talks to an environment.
func NewAction[S, P any](name string, body func(context.Context, S) (P, error)) *Action[S, P] {
	return &Action[S, P]{name: name, body: body}
}

// Do creates an action from a pure body that cannot fail.
func Do[S, P any](name string, body func(S) P) *Action[S, P] {
	return NewAction(name, func(_ context.Context, s S) (P, error) {
		return body(s), nil
	})
}

// Abort creates the always-failing action: its guard always holds, and executing it
// fails the goal that selected it.
func Abort[S, P any]() *Action[S, P] {
	return &Action[S, P]{name: "abort", abort: true}
}

// On sets the guard. A nil guard means the action is always enabled.
func (a *Action[S, P]) On(guard func(S) bool) *Action[S, P] {
	if !a.abort {
		a.guard = guard
	}
	return a
}

// Name returns the action name.
func (a *Action[S, P]) Name() string { return a.name }

// IsAbort reports whether this is the Abort action.
func (a *Action[S, P]) IsAbort() bool { return a.abort }

// Enabled evaluates the guard on the given state.
func (a *Action[S, P]) Enabled(state S) bool {
	if a.abort || a.guard == nil {
		return true
	}
	return a.guard(state)
}

// Execute runs the body. Abort actions, and actions without a body, return ErrAbort.
func (a *Action[S, P]) Execute(ctx context.Context, state S) (P, error) {
	if a.abort || a.body == nil {
		var zero P
		return zero, ErrAbort
	}
	return a.body(ctx, state)
}

// Lift wraps the action into a primitive tactic.
func (a *Action[S, P]) Lift() *Tactic[S, P] {
	return Lift(a)
}
