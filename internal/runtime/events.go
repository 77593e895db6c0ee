package runtime

import (
	"context"
	"time"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/goal"
)

// flush delivers the tree notifications collected during the last operation.
func (a *Agent[S]) flush(ctx context.Context, tree *goal.Tree[S]) {
	events := a.pending
	a.pending = nil

	hooks := a.cfg.hooks
	for _, p := range events {
		ev := a.goalEvent(tree, p)
		switch p.kind {
		case domain.EventGoalEnter:
			a.logger.Debug("goal entered", "goal", ev.Name, "remaining", tree.Remaining(p.id))
			if hooks.OnGoalEnter != nil {
				hooks.OnGoalEnter(ctx, ev)
			}
		case domain.EventGoalClose:
			st := tree.Status(p.id)
			a.logger.Info("goal closed",
				"goal", ev.Name,
				"combinator", ev.Combinator,
				"status", ev.Status,
				"reason", ev.Reason,
				"consumed", ev.Consumed,
			)
			if hooks.OnGoalClose != nil {
				hooks.OnGoalClose(ctx, ev)
			}
			if st.Exhausted() && hooks.OnBudgetExhausted != nil {
				exhausted := *ev
				exhausted.Type = domain.EventBudgetExhausted
				hooks.OnBudgetExhausted(ctx, &exhausted)
			}
		}
	}
}

func (a *Agent[S]) goalEvent(tree *goal.Tree[S], p pendingEvent) *domain.GoalEvent {
	st := tree.Status(p.id)
	return &domain.GoalEvent{
		EventBase:  a.base(p.kind),
		NodeID:     int(p.id),
		Name:       tree.Name(p.id),
		Combinator: tree.Combinator(p.id).String(),
		Status:     st.Kind(),
		Reason:     st.Reason(),
		Consumed:   tree.Consumed(p.id),
	}
}

func (a *Agent[S]) emitTick(ctx context.Context, goalName string, at goal.Attempt, cost float64, elapsed time.Duration, isErr bool) {
	if a.cfg.hooks.OnTick == nil {
		return
	}
	a.cfg.hooks.OnTick(ctx, &domain.TickEvent{
		EventBase: a.base(domain.EventTick),
		Tick:      a.ticks,
		Goal:      goalName,
		Action:    at.Action,
		Proposed:  at.Proposed,
		Cost:      cost,
		Elapsed:   elapsed,
		IsError:   isErr,
	})
}

func (a *Agent[S]) emitVerdict(ctx context.Context, goalName string, v domain.Verdict) {
	a.logger.Info("verdict", "goal", goalName, "kind", v.Kind, "info", v.Info)
	if a.cfg.hooks.OnVerdict == nil {
		return
	}
	a.cfg.hooks.OnVerdict(ctx, &domain.VerdictEvent{
		EventBase: a.base(domain.EventVerdict),
		Goal:      goalName,
		Verdict:   v,
	})
}

func (a *Agent[S]) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: a.cfg.now(), Type: t, AgentID: a.cfg.id}
}
