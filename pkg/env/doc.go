/*
Package env provides the Environment agents use to observe and act on an external system.

An Environment wraps a Backend (refresh, reset, command dispatch) and adds what the
agents need around it: mutual exclusion through a ports.Locker, typed command results
(Send, Command, Dispatch), failures surfaced as *CommandError, and optional debug
instrumentation.

Goal trees never call the Environment directly. Action bodies do, and the agent
refreshes it at the start of every tick when configured with runtime.WithEnvironment.
*/
package env
