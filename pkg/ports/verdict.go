package ports

import (
	"context"

	"github.com/aretw0/arbor/pkg/domain"
)

// VerdictSink receives the verdict of every test goal that gets solved.
// It is the owning collaborator of a goal.TestGoal; no response is expected beyond an error.
type VerdictSink interface {
	RegisterVerdict(ctx context.Context, goal string, v domain.Verdict) error
}

// VerdictLog is a VerdictSink that keeps what it receives, in arrival order.
type VerdictLog interface {
	VerdictSink

	// List returns every recorded verdict, oldest first.
	List(ctx context.Context) ([]domain.VerdictRecord, error)

	// Clear drops all recorded verdicts.
	Clear(ctx context.Context) error
}
