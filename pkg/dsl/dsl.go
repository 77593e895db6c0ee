package dsl

import (
	"github.com/aretw0/arbor/pkg/goal"
	"github.com/aretw0/arbor/pkg/tactic"
)

// Lift turns a state predicate into a single-tick goal: when it becomes current it is
// solved if p holds on the state, and fails otherwise.
func Lift[S any](p func(S) bool) *goal.Structure[S] {
	check := tactic.Do("check predicate", func(S) bool { return true }).On(p)
	return goal.New[S, bool]("predicate holds").
		ToSolve(func(ok bool) bool { return ok }).
		WithTactic(tactic.FirstOf(check.Lift(), tactic.Abort[S, bool]().Lift())).
		Lift()
}

// Not negates a predicate.
func Not[S any](p func(S) bool) func(S) bool {
	return func(s S) bool { return !p(s) }
}

// While repeats body as long as p holds. The loop ends when p no longer holds when
// checked, when body succeeds, or when the loop runs out of budget.
func While[S any](p func(S) bool, body *goal.Structure[S]) *goal.Structure[S] {
	exit := Lift(Not(p)).Named("loop condition no longer holds")
	return goal.Repeat(goal.FirstOf(exit, body)).Named("WHILE")
}

// IfElse continues with then when p holds at the moment it becomes current, and with
// otherwise when it does not.
func IfElse[S any](p func(S) bool, then, otherwise *goal.Structure[S]) *goal.Structure[S] {
	cond := Lift(p).Named("if condition holds")
	return goal.FirstOf(goal.Seq(cond, then), otherwise).Named("IFELSE")
}

// Succeed is a goal solved on its first tick.
func Succeed[S any]() *goal.Structure[S] {
	return goal.New[S, bool]("success").
		ToSolve(func(bool) bool { return true }).
		WithTactic(tactic.Do("succeed", func(S) bool { return true }).Lift()).
		Lift()
}

// Fail is a goal that fails on its first tick.
func Fail[S any]() *goal.Structure[S] {
	return goal.New[S, bool]("fail").
		ToSolve(func(bool) bool { return false }).
		WithTactic(tactic.Abort[S, bool]().Lift()).
		Lift()
}
