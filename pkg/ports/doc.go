/*
Package ports defines the driven ports (interfaces) of the arbor engine.

These interfaces decouple the goal-tree core from the outside world: verdict storage for
test goals and the lock that serializes command dispatch to a shared environment.

# Key Interfaces

  - VerdictSink / VerdictLog: receive (and optionally keep) the verdicts produced by test goals.
  - Locker: mutual exclusion around environment commands, in-process or across replicas.

Adapters implementing them live under pkg/adapters. RunVerdictLogContract and
RunLockerContract are shared test suites every adapter runs.
*/
package ports
