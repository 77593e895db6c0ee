package runtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/arbor/internal/runtime"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/goal"
	"github.com/aretw0/arbor/pkg/tactic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type counterState struct {
	counter int
}

func increment() *tactic.Action[*counterState, int] {
	return tactic.Do("inc", func(s *counterState) int {
		s.counter++
		return s.counter
	})
}

func setTo(v int) *tactic.Action[*counterState, int] {
	return tactic.Do("set", func(s *counterState) int {
		s.counter = v
		return s.counter
	})
}

func reach(name string, k int, a *tactic.Action[*counterState, int]) *goal.Structure[*counterState] {
	return goal.New[*counterState, int](name).
		ToSolve(func(p int) bool { return p == k }).
		WithTactic(a.Lift()).
		Lift()
}

func TestAgent_OverBudget(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	top := reach("g", 3, increment()).WithMaxBudget(2)
	tree, err := agent.SetGoal(ctx, top)
	require.NoError(t, err)
	root := tree.Root()

	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(root).InProgress(), "still within budget")

	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(root).Failed())
	assert.True(t, tree.Status(root).Exhausted())
	assert.True(t, agent.Idle())
	assert.Equal(t, goal.NoNode, agent.Current())
}

func TestAgent_ExactlyAtBudget(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	tree, err := agent.SetGoal(ctx, reach("g", 3, increment()).WithMaxBudget(3))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, agent.Update(ctx))
		assert.True(t, tree.Status(tree.Root()).InProgress())
	}
	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(tree.Root()).Succeeded(), "success is checked before exhaustion")
	assert.True(t, agent.Idle())
	assert.Equal(t, uint64(3), agent.Ticks())
}

func TestAgent_SeqExhaustsBeforeFirstGoalIsMet(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	g2 := reach("g2", 4, increment())
	tree, err := agent.SetGoal(ctx, goal.Seq(reach("g1", 3, increment()), g2).WithMaxBudget(2))
	require.NoError(t, err)
	g2ID, _ := tree.Lookup(g2)

	require.NoError(t, agent.Update(ctx))
	require.NoError(t, agent.Update(ctx))

	assert.True(t, tree.Status(tree.Root()).Exhausted())
	assert.True(t, tree.Status(g2ID).InProgress(), "g2 is never started")
	assert.Equal(t, 2, agent.State().counter)
	assert.True(t, agent.Idle())
}

func TestAgent_SeqAtBudgetRunsSecondGoalOnce(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	g1 := reach("g1", 3, increment())
	g2 := reach("g2", 5, increment())
	tree, err := agent.SetGoal(ctx, goal.Seq(g1, g2).WithMaxBudget(3))
	require.NoError(t, err)
	g1ID, _ := tree.Lookup(g1)
	g2ID, _ := tree.Lookup(g2)

	for i := 0; i < 3; i++ {
		require.NoError(t, agent.Update(ctx))
	}
	assert.True(t, tree.Status(g1ID).Succeeded())
	assert.False(t, agent.Idle())
	assert.Equal(t, g2ID, agent.Current(), "g2 becomes current without budget")
	assert.Equal(t, 0.0, tree.Remaining(g2ID))

	require.NoError(t, agent.Update(ctx))
	assert.Equal(t, 4, agent.State().counter, "g2 gets one tick")
	assert.True(t, tree.Status(g2ID).Exhausted())
	assert.True(t, tree.Status(tree.Root()).Failed())
	assert.True(t, tree.Status(tree.Root()).Exhausted())
	assert.True(t, agent.Idle())
	assert.Equal(t, uint64(4), agent.Ticks())
}

func TestAgent_SeqAtBudgetSolvesSecondGoalInItsOnlyTick(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	g2 := reach("g2", 4, increment())
	tree, err := agent.SetGoal(ctx, goal.Seq(reach("g1", 3, increment()), g2).WithMaxBudget(3))
	require.NoError(t, err)
	g2ID, _ := tree.Lookup(g2)

	for i := 0; i < 4; i++ {
		require.NoError(t, agent.Update(ctx))
	}
	assert.True(t, tree.Status(g2ID).Succeeded())
	assert.True(t, tree.Status(tree.Root()).Succeeded())
	assert.Equal(t, -1.0, tree.Remaining(tree.Root()))
	assert.True(t, agent.Idle())
}

func TestAgent_FirstOfMovesOnAfterExhaustion(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	g1 := reach("g1", 6, setTo(5)).WithMaxBudget(2)
	g2 := reach("g2", 7, increment())
	tree, err := agent.SetGoal(ctx, goal.FirstOf(g1, g2).WithMaxBudget(10))
	require.NoError(t, err)
	g1ID, _ := tree.Lookup(g1)
	g2ID, _ := tree.Lookup(g2)

	assert.Equal(t, g1ID, agent.Current())

	require.NoError(t, agent.Update(ctx))
	assert.Equal(t, g1ID, agent.Current())
	assert.True(t, tree.Status(g1ID).InProgress())

	require.NoError(t, agent.Update(ctx))
	assert.Equal(t, g2ID, agent.Current())
	assert.True(t, tree.Status(g1ID).Exhausted())
	assert.True(t, tree.Status(g2ID).InProgress())
	assert.Equal(t, 8.0, tree.Remaining(g2ID), "g2 starts with a fresh allocation")

	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(g2ID).InProgress())

	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(g2ID).Succeeded())
	assert.True(t, tree.Status(tree.Root()).Succeeded())
	assert.True(t, agent.Idle())
	assert.Equal(t, 4.0, tree.Consumed(tree.Root()))
}

func TestAgent_NoActionStillChargesBudget(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	never := increment().On(func(*counterState) bool { return false })
	tree, err := agent.SetGoal(ctx, reach("g", 1, never).WithMaxBudget(3))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, agent.Update(ctx))
	}
	assert.Equal(t, 0, agent.State().counter)
	assert.Equal(t, 3.0, tree.Consumed(tree.Root()))
	assert.True(t, tree.Status(tree.Root()).Exhausted())
}

func TestAgent_AbortActionFailsLeaf(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	blocked := goal.New[*counterState, int]("blocked").
		ToSolve(func(int) bool { return true }).
		WithTactic(tactic.Abort[*counterState, int]().Lift()).
		Lift()
	tree, err := agent.SetGoal(ctx, goal.FirstOf(blocked, reach("fallback", 1, increment())))
	require.NoError(t, err)
	blockedID, _ := tree.Lookup(blocked)

	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(blockedID).Failed())
	assert.Equal(t, runtime.ReasonAbortAction, tree.Status(blockedID).Reason())
	assert.Equal(t, "fallback", tree.Name(agent.Current()))

	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(tree.Root()).Succeeded())
}

func TestAgent_ActionErrorKeepsGoalOpen(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	agent := runtime.New(&counterState{})

	flaky := tactic.NewAction("flaky", func(_ context.Context, s *counterState) (int, error) {
		s.counter++
		if s.counter == 1 {
			return 0, boom
		}
		return s.counter, nil
	})
	tree, err := agent.SetGoal(ctx, reach("g", 2, flaky))
	require.NoError(t, err)

	err = agent.Update(ctx)
	var actionErr *runtime.ActionError
	require.ErrorAs(t, err, &actionErr)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "g", actionErr.Goal)
	assert.Equal(t, "flaky", actionErr.Action)
	assert.True(t, tree.Status(tree.Root()).InProgress())
	assert.Equal(t, 1.0, tree.Consumed(tree.Root()), "failed ticks are charged")

	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(tree.Root()).Succeeded())
}

func TestAgent_Abort(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	first := reach("first", 1, increment())
	tree, err := agent.SetGoal(ctx, goal.Seq(first, reach("second", 100, increment())))
	require.NoError(t, err)

	require.NoError(t, agent.Update(ctx))
	require.NoError(t, agent.Update(ctx))
	cur := agent.Current()

	agent.Abort(ctx, "shutdown")
	assert.True(t, agent.Idle())
	assert.Equal(t, "shutdown", tree.Status(cur).Reason())
	assert.Equal(t, "shutdown", tree.Status(tree.Root()).Reason())
	firstID, _ := tree.Lookup(first)
	assert.True(t, tree.Status(firstID).Succeeded())

	// Idle agents ignore further ticks.
	require.NoError(t, agent.Update(ctx))
	assert.Equal(t, uint64(2), agent.Ticks())
}

func TestAgent_ClosedTreeIsFinal(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	tree, err := agent.SetGoal(ctx, reach("g", 1, increment()))
	require.NoError(t, err)
	require.NoError(t, agent.Update(ctx))
	require.True(t, tree.Status(tree.Root()).Succeeded())

	for i := 0; i < 3; i++ {
		require.NoError(t, agent.Update(ctx))
	}
	assert.True(t, tree.Status(tree.Root()).Succeeded())
	assert.Equal(t, 1, agent.State().counter)
	assert.Equal(t, 1.0, tree.Consumed(tree.Root()))
}

func TestAgent_SetGoalRejectsBadTree(t *testing.T) {
	agent := runtime.New(&counterState{})
	g := reach("g", 1, increment())

	_, err := agent.SetGoal(context.Background(), goal.Seq(g, g))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
	assert.True(t, agent.Idle())
}

func TestAgent_SetGoalReplacesActiveTree(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{})

	old, err := agent.SetGoal(ctx, reach("old", 100, increment()))
	require.NoError(t, err)
	require.NoError(t, agent.Update(ctx))

	_, err = agent.SetGoal(ctx, reach("new", 2, increment()))
	require.NoError(t, err)
	assert.True(t, old.Status(old.Root()).Failed())
	assert.Equal(t, "new", agent.Tree().Name(agent.Current()))
}

func TestAgent_LifecycleHooks(t *testing.T) {
	ctx := context.Background()
	var (
		entered, closed, exhausted []string
		ticks                      []*domain.TickEvent
	)
	hooks := domain.LifecycleHooks{
		OnGoalEnter:       func(_ context.Context, e *domain.GoalEvent) { entered = append(entered, e.Name) },
		OnGoalClose:       func(_ context.Context, e *domain.GoalEvent) { closed = append(closed, e.Name+":"+string(e.Status)) },
		OnBudgetExhausted: func(_ context.Context, e *domain.GoalEvent) { exhausted = append(exhausted, e.Name) },
		OnTick:            func(_ context.Context, e *domain.TickEvent) { ticks = append(ticks, e) },
	}
	agent := runtime.New(&counterState{}, runtime.WithLifecycleHooks(hooks), runtime.WithID("agent-1"))

	g1 := reach("g1", 6, setTo(5)).WithMaxBudget(2)
	g2 := reach("g2", 7, increment())
	_, err := agent.SetGoal(ctx, goal.FirstOf(g1, g2).Named("top"))
	require.NoError(t, err)
	for !agent.Idle() {
		require.NoError(t, agent.Update(ctx))
	}

	assert.Equal(t, []string{"g1", "g2"}, entered)
	assert.Equal(t, []string{"g1:failed", "g2:success", "top:success"}, closed)
	assert.Equal(t, []string{"g1"}, exhausted)
	require.Len(t, ticks, 4)
	assert.Equal(t, "agent-1", ticks[0].AgentID)
	assert.Equal(t, "set", ticks[0].Action)
	assert.True(t, ticks[0].Proposed)
	assert.Equal(t, uint64(4), ticks[3].Tick)
	assert.Equal(t, "g2", ticks[3].Goal)
}

type verdictLog struct{ verdicts []domain.Verdict }

func (v *verdictLog) RegisterVerdict(_ context.Context, _ string, verdict domain.Verdict) error {
	v.verdicts = append(v.verdicts, verdict)
	return nil
}

func TestAgent_TestGoalVerdict(t *testing.T) {
	ctx := context.Background()
	sink := &verdictLog{}
	var events []*domain.VerdictEvent
	agent := runtime.New(&counterState{}, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnVerdict: func(_ context.Context, e *domain.VerdictEvent) { events = append(events, e) },
	}))

	tg := goal.Test(goal.New[*counterState, int]("count-to-2").
		ToSolve(func(p int) bool { return p == 2 }).
		WithTactic(increment().Lift())).
		Oracle(sink, func(p int) domain.Verdict { return domain.Pass("reached 2") })

	_, err := agent.SetGoal(ctx, tg.Lift())
	require.NoError(t, err)
	for !agent.Idle() {
		require.NoError(t, agent.Update(ctx))
	}

	require.Len(t, sink.verdicts, 1)
	require.Len(t, events, 1)
	assert.Equal(t, "count-to-2", events[0].Goal)
	assert.Equal(t, domain.VerdictPass, events[0].Verdict.Kind)
}

type stubEnv struct {
	refreshes int
	err       error
}

func (e *stubEnv) Refresh(context.Context) error {
	e.refreshes++
	return e.err
}

func TestAgent_RefreshesEnvironment(t *testing.T) {
	ctx := context.Background()
	env := &stubEnv{}
	agent := runtime.New(&counterState{}, runtime.WithEnvironment(env))

	_, err := agent.SetGoal(ctx, reach("g", 2, increment()))
	require.NoError(t, err)
	require.NoError(t, agent.Update(ctx))
	require.NoError(t, agent.Update(ctx))
	assert.Equal(t, 2, env.refreshes)

	env.err = errors.New("connection lost")
	tree, err := agent.SetGoal(ctx, reach("h", 10, increment()))
	require.NoError(t, err)
	err = agent.Update(ctx)
	assert.ErrorContains(t, err, "refresh environment: connection lost")
	assert.Equal(t, 2, agent.State().counter, "no action runs on a failed refresh")
	assert.Equal(t, 1.0, tree.Consumed(tree.Root()))
}

func TestAgent_TimeCost(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(0, 0)
	clock := func() time.Time {
		now = now.Add(250 * time.Millisecond)
		return now
	}
	agent := runtime.New(&counterState{},
		runtime.WithClock(clock),
		runtime.WithCostPolicy(runtime.TimeCost),
	)

	tree, err := agent.SetGoal(ctx, reach("g", 100, increment()).WithMaxBudget(1))
	require.NoError(t, err)

	for !agent.Idle() {
		require.NoError(t, agent.Update(ctx))
	}
	// Each tick reads the clock twice, so one tick costs 0.25s.
	assert.Equal(t, uint64(4), agent.Ticks())
	assert.True(t, tree.Status(tree.Root()).Exhausted())
	assert.Equal(t, time.Second, tree.ConsumedTime(tree.Root()))
}

func TestAgent_ChooserPicksAmongAnyOf(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{}, runtime.WithChooser(func(n int) int { return n - 1 }))

	g := goal.New[*counterState, int]("g").
		ToSolve(func(p int) bool { return p == 42 }).
		WithTactic(tactic.AnyOf(increment().Lift(), setTo(42).Lift())).
		Lift()
	tree, err := agent.SetGoal(ctx, g)
	require.NoError(t, err)
	require.NoError(t, agent.Update(ctx))
	assert.True(t, tree.Status(tree.Root()).Succeeded())
}

func TestAgent_SnapshotAndReport(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{}, runtime.WithID("snap"))

	empty := agent.Snapshot()
	assert.Equal(t, "snap", empty.AgentID)
	assert.Empty(t, empty.Nodes)
	assert.Empty(t, agent.Report())

	_, err := agent.SetGoal(ctx, goal.Seq(reach("a", 1, increment()), reach("b", 2, increment())))
	require.NoError(t, err)
	require.NoError(t, agent.Update(ctx))

	snap := agent.Snapshot()
	assert.Equal(t, "snap", snap.AgentID)
	assert.Equal(t, uint64(1), snap.Tick)
	require.GreaterOrEqual(t, snap.Current, 0)
	assert.Equal(t, "b", snap.Nodes[snap.Current].Name)
	assert.Contains(t, agent.Report(), "a: success (solved)")
}

func TestAgent_WithBudget(t *testing.T) {
	ctx := context.Background()
	agent := runtime.New(&counterState{}, runtime.WithBudget(0))

	tree, err := agent.SetGoal(ctx, reach("g", 1, increment()))
	require.NoError(t, err)
	assert.True(t, agent.Idle(), "no budget, nothing to do")
	assert.True(t, tree.Status(tree.Root()).Exhausted())
}
