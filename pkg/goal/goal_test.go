package goal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/goal"
	"github.com/aretw0/arbor/pkg/tactic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	calls []domain.Verdict
	err   error
}

func (s *recordingSink) RegisterVerdict(_ context.Context, _ string, v domain.Verdict) error {
	s.calls = append(s.calls, v)
	return s.err
}

func identity() *tactic.Tactic[int, int] {
	return tactic.Do("identity", func(s int) int { return s }).Lift()
}

func TestGoal_ProposePredicate(t *testing.T) {
	g := goal.New[int, int]("is-three").ToSolve(func(p int) bool { return p == 3 })

	assert.False(t, g.Propose(2))
	_, ok := g.Solution()
	assert.False(t, ok)

	assert.True(t, g.Propose(3))
	sol, ok := g.Solution()
	require.True(t, ok)
	assert.Equal(t, 3, sol)
}

func TestGoal_ProposeObjective(t *testing.T) {
	g := goal.New[float64, float64]("near-ten").ToSolveF(func(p float64) float64 { return p - 10 })

	tests := []struct {
		candidate float64
		want      bool
	}{
		{9, false},
		{9.996, true},
		{10.004, true},
		{10.01, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g.Propose(tt.candidate), "candidate %v", tt.candidate)
	}

	g.WithEpsilon(2)
	assert.True(t, g.Propose(9))
}

func TestGoal_ToSolveClearsObjective(t *testing.T) {
	g := goal.New[int, int]("g").
		ToSolveF(func(int) float64 { return 0 }).
		ToSolve(func(p int) bool { return p > 0 })

	assert.False(t, g.Propose(0), "objective must no longer be active")
	assert.True(t, g.Propose(1))
}

func TestGoal_Step(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")

	t.Run("no action enabled", func(t *testing.T) {
		g := goal.New[int, int]("g").ToSolve(func(int) bool { return true }).
			WithTactic(tactic.Do("never", func(s int) int { return s }).On(func(int) bool { return false }).Lift())
		at, err := g.Step(ctx, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, at.Action)
		assert.False(t, at.Proposed)
		assert.False(t, at.Solved)
	})

	t.Run("abort", func(t *testing.T) {
		g := goal.New[int, int]("g").ToSolve(func(int) bool { return true }).
			WithTactic(tactic.Abort[int, int]().Lift())
		at, err := g.Step(ctx, 0, nil)
		require.NoError(t, err)
		assert.True(t, at.Aborted)
		assert.False(t, at.Solved)
	})

	t.Run("body error", func(t *testing.T) {
		g := goal.New[int, int]("g").ToSolve(func(int) bool { return true }).
			WithTactic(tactic.NewAction("fails", func(context.Context, int) (int, error) { return 0, boom }).Lift())
		at, err := g.Step(ctx, 0, nil)
		require.NoError(t, err)
		assert.ErrorIs(t, at.Err, boom)
		assert.Equal(t, "fails", at.Action)
		assert.False(t, at.Proposed)
	})

	t.Run("solved", func(t *testing.T) {
		g := goal.New[int, int]("g").ToSolve(func(p int) bool { return p == 7 }).WithTactic(identity())
		at, err := g.Step(ctx, 7, nil)
		require.NoError(t, err)
		assert.Equal(t, "identity", at.Action)
		assert.True(t, at.Proposed)
		assert.True(t, at.Solved)
		assert.Nil(t, at.Verdict)
	})
}

func TestTestGoal_OracleCalledOncePerSolve(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	var oracleCalls int

	tg := goal.Test(goal.New[int, int]("reach-5").ToSolve(func(p int) bool { return p >= 5 })).
		Oracle(sink, func(p int) domain.Verdict {
			oracleCalls++
			if p == 5 {
				return domain.Pass("exact")
			}
			return domain.Fail("overshoot")
		})

	ok, err := tg.Propose(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, oracleCalls, "unsolved proposals never reach the oracle")
	assert.Empty(t, sink.calls)

	ok, err = tg.Propose(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, oracleCalls)
	require.Len(t, sink.calls, 1)
	assert.Equal(t, domain.Pass("exact"), sink.calls[0])
}

func TestTestGoal_MissingCollaborators(t *testing.T) {
	ctx := context.Background()
	base := func() *goal.Goal[int, int] {
		return goal.New[int, int]("t").ToSolve(func(int) bool { return true }).WithTactic(identity())
	}

	tests := []struct {
		name string
		tg   *goal.TestGoal[int, int]
	}{
		{"no oracle", goal.Test(base()).Oracle(&recordingSink{}, nil)},
		{"no sink", goal.Test(base()).Oracle(nil, func(int) domain.Verdict { return domain.Pass("") })},
		{"nothing", goal.Test(base())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.tg.Propose(ctx, 1)
			var cfg *goal.ConfigurationError
			require.ErrorAs(t, err, &cfg)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			_, solved := tt.tg.Solution()
			assert.False(t, solved, "configuration is checked before evaluation")

			_, err = goal.Build(tt.tg.Lift())
			assert.ErrorIs(t, err, domain.ErrConfiguration, "Build rejects it as well")
		})
	}
}

func TestTestGoal_StepCarriesVerdict(t *testing.T) {
	sink := &recordingSink{err: errors.New("sink down")}
	tg := goal.Test(goal.New[int, int]("t").ToSolve(func(int) bool { return true }).WithTactic(identity())).
		Oracle(sink, func(int) domain.Verdict { return domain.Undecided("maybe") })

	at, err := tg.Step(context.Background(), 1, nil)
	assert.ErrorContains(t, err, "sink down")
	assert.True(t, at.Solved, "the goal is solved even if the sink fails")
	require.NotNil(t, at.Verdict)
	assert.Equal(t, domain.VerdictUndecided, at.Verdict.Kind)
}
