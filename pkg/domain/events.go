package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventGoalEnter       EventType = "goal_enter"
	EventGoalClose       EventType = "goal_close"
	EventBudgetExhausted EventType = "budget_exhausted"
	EventTick            EventType = "tick"
	EventVerdict         EventType = "verdict"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	AgentID   string    `json:"agent_id"`
}

// GoalEvent reports a goal-tree node becoming current or closing.
type GoalEvent struct {
	EventBase
	NodeID     int        `json:"node_id"`
	Name       string     `json:"name"`
	Combinator string     `json:"combinator"`
	Status     StatusKind `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	Consumed   float64    `json:"consumed"`
}

// TickEvent reports one completed agent tick.
type TickEvent struct {
	EventBase
	Tick     uint64        `json:"tick"`
	Goal     string        `json:"goal"`
	Action   string        `json:"action,omitempty"`
	Proposed bool          `json:"proposed"`
	Cost     float64       `json:"cost"`
	Elapsed  time.Duration `json:"elapsed"`
	IsError  bool          `json:"is_error,omitempty"`
}

// VerdictEvent reports a verdict forwarded by a test goal.
type VerdictEvent struct {
	EventBase
	Goal    string  `json:"goal"`
	Verdict Verdict `json:"verdict"`
}

// LifecycleHooks defines callbacks for agent observability.
// Every field is optional.
type LifecycleHooks struct {
	OnGoalEnter       func(context.Context, *GoalEvent)
	OnGoalClose       func(context.Context, *GoalEvent)
	OnBudgetExhausted func(context.Context, *GoalEvent)
	OnTick            func(context.Context, *TickEvent)
	OnVerdict         func(context.Context, *VerdictEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnGoalEnter:       chain(h.OnGoalEnter, other.OnGoalEnter),
		OnGoalClose:       chain(h.OnGoalClose, other.OnGoalClose),
		OnBudgetExhausted: chain(h.OnBudgetExhausted, other.OnBudgetExhausted),
		OnTick:            chain(h.OnTick, other.OnTick),
		OnVerdict:         chain(h.OnVerdict, other.OnVerdict),
	}
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
