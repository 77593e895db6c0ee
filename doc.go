/*
Package arbor runs goal-structured agents: an agent is given a tree of goals combined
with SEQ, FIRSTOF and REPEAT, and works on one leaf goal per tick, using the goal's
tactic to choose an action until a proposal solves the goal or the budget runs out.

# Concept

A goal tree is built from leaves (goal.Goal, goal.TestGoal, the predicates of package
dsl) and combinators (goal.Seq, goal.FirstOf, goal.Repeat). Every node may carry a
maximum budget. The root budget is a pool shared by all nodes; whatever a leaf spends is
charged to all of its ancestors, and a node whose budget runs out fails.

Tactics (package tactic) decide which action runs in a tick. Actions are guarded by
predicates over the agent state, so a tactic only ever picks among enabled actions.

# Usage

	type door struct{ open bool }

	open := goal.New[*door, bool]("door open").
		ToSolve(func(open bool) bool { return open }).
		WithTactic(tactic.Lift(tactic.Do("push", func(d *door) bool {
			d.open = true
			return d.open
		})))

	agent := arbor.New(&door{}, arbor.WithBudget(10))
	res, err := arbor.Solve(ctx, agent, open.Lift())

Scenarios (package scenario) describe the same trees in YAML; the arbor command runs
them, serves them over HTTP (pkg/adapters/http) and reports the verdicts of their
test oracles.
*/
package arbor
