package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"golang.org/x/term"
)

// createLogger configures the application logger. Logs go to w, stderr when nil, so
// they never mix with the report on Out.
func createLogger(cfg *Config, w io.Writer) *slog.Logger {
	return logging.New(cfg.LogOptions(w))
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnGoalEnter: func(ctx context.Context, e *domain.GoalEvent) {
			logger.Debug("Enter Goal", "agent", e.AgentID, "goal", e.Name, "combinator", e.Combinator)
		},
		OnGoalClose: func(ctx context.Context, e *domain.GoalEvent) {
			logger.Debug("Close Goal", "agent", e.AgentID, "goal", e.Name, "status", e.Status, "reason", e.Reason)
		},
		OnTick: func(ctx context.Context, e *domain.TickEvent) {
			if e.IsError {
				logger.Debug("Tick (Error)", "agent", e.AgentID, "tick", e.Tick, "goal", e.Goal, "action", e.Action)
			} else {
				logger.Debug("Tick", "agent", e.AgentID, "tick", e.Tick, "goal", e.Goal, "action", e.Action, "cost", e.Cost)
			}
		},
	}
}
