package env

import (
	"context"
	"fmt"
)

// Send dispatches a command and checks that the result has type R.
// A mismatch is reported as a *CommandError wrapping ErrUnexpectedResult.
func Send[R any](ctx context.Context, e *Environment, invoker, target, command string, arg any) (R, error) {
	var zero R
	res, err := e.SendCommand(ctx, invoker, target, command, arg)
	if err != nil {
		return zero, err
	}
	r, ok := res.(R)
	if !ok {
		op := Operation{Invoker: invoker, Target: target, Command: command, Arg: arg, Result: res}
		return zero, &CommandError{Op: op, Err: fmt.Errorf("%w: got %T, want %T", ErrUnexpectedResult, res, zero)}
	}
	return r, nil
}

// Command is a command whose argument and result types are fixed when it is declared.
type Command[A, R any] struct {
	Name string
}

// NewCommand declares a typed command.
func NewCommand[A, R any](name string) Command[A, R] {
	return Command[A, R]{Name: name}
}

// Dispatch sends cmd from invoker to target.
func Dispatch[A, R any](ctx context.Context, e *Environment, cmd Command[A, R], invoker, target string, arg A) (R, error) {
	return Send[R](ctx, e, invoker, target, cmd.Name, arg)
}
