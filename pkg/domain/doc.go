/*
Package domain contains the core value types shared by every Arbor package.

It is kept pure and free of I/O: the scheduler, adapters and presentation layers all
depend on it, never the other way around.

# Key Entities

  - ProgressStatus: tri-state node status with a terminal-once state machine.
  - Verdict: judgment produced by a test oracle over an accepted proposal.
  - LifecycleHooks: observability callbacks fired by the agent driver.
  - TreeSnapshot: a detached copy of a goal tree for introspection.
*/
package domain
