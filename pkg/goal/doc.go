/*
Package goal implements goals and the goal trees that schedule them.

A Goal pairs a solving test with a tactic that proposes candidate solutions. Goals are
lifted into a Structure and combined bottom-up:

  - Seq: every subgoal must succeed, left to right; the first failure fails the sequence.
  - FirstOf: the first subgoal to succeed wins; it fails when every alternative failed.
  - Repeat: retries its subgoal until it succeeds; only budget exhaustion stops it.

Build turns a Structure into a Tree, an arena of nodes addressed by NodeID. The Tree
owns status and budget bookkeeping and implements the scheduling rules: budget
allocation on descent, the shared budget pool charged to every ancestor, status
propagation, and NextLeaf selection after a leaf closes.

Budget exhaustion is an ordinary FAILED status with reason domain.ReasonBudgetExhausted,
not an error. Errors returned by this package wrap domain.ErrConfiguration.
*/
package goal
