/*
Package runner drives agents until their goal trees close.

A Runner ticks one agent (Run) or a fleet sharing an environment (RunAll) until every
agent is idle, a tick limit is hit, or the context is canceled. Cancellation and tick
limits abort the agent's goal tree, so hooks and snapshots always see a closed tree.
Action errors are logged and the goal stays open for the next tick unless
WithStopOnError is set.

# Usage

	r := runner.NewRunner(
		runner.WithMaxTicks(500),
		runner.WithBoard(board),
		runner.WithLogger(logger),
	)

	res, err := r.Run(ctx, agent)
*/
package runner
