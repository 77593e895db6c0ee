/*
Package observability provides tools for monitoring and introspecting running agents.

Metrics turns agent lifecycle hooks into prometheus collectors. Board keeps the latest
goal-tree snapshot of every agent so that other goroutines (the HTTP adapter, the CLI)
can read it without touching the agent itself.
*/
package observability
