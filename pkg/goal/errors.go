package goal

import (
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
)

// ConfigurationError reports a malformed goal or goal tree. It is a programmer error and
// wraps domain.ErrConfiguration.
type ConfigurationError struct {
	Node   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Node == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error at %q: %s", e.Node, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return domain.ErrConfiguration }

// InvariantError reports a scheduling call that is invalid for the current tree state,
// such as asking for the next leaf after a node that has not closed.
type InvariantError struct {
	Node   NodeID
	Op     string
	Status domain.StatusKind
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s on node %d with status %s", e.Op, e.Node, e.Status)
}

func (e *InvariantError) Unwrap() error { return domain.ErrConfiguration }
