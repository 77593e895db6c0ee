package domain

import "errors"

// ErrConfiguration marks programmer errors: malformed trees, bad budget caps, missing
// collaborators. They are never retried.
var ErrConfiguration = errors.New("configuration error")

// ErrIdle is returned when an operation needs an active goal tree but the agent has none.
var ErrIdle = errors.New("agent is idle")

// ErrAgentNotFound is returned when an agent ID is unknown to a registry or board.
var ErrAgentNotFound = errors.New("agent not found")
