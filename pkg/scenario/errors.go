package scenario

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// ValidationError reports a malformed scenario. Path locates the offending node,
// e.g. "goal.seq[1].tactic".
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid scenario at %s: %s", e.Path, e.Reason)
}

func (e *ValidationError) Unwrap() error { return domain.ErrConfiguration }
