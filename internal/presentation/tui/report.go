package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/runner"
)

// Summary formats the outcome of a run as markdown: one row per agent, the verdicts
// collected during the run and the indented status report of each tree.
func Summary(title string, results []runner.Result, verdicts []domain.VerdictRecord, reports map[string]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", title)

	sb.WriteString("| agent | status | reason | ticks | errors |\n")
	sb.WriteString("|---|---|---|---|---|\n")
	for _, r := range results {
		fmt.Fprintf(&sb, "| %s | %s | %s | %d | %d |\n", r.AgentID, statusIcon(r.Status), r.Reason, r.Ticks, r.Errors)
	}

	if len(verdicts) > 0 {
		sb.WriteString("\n## Verdicts\n\n")
		for _, v := range verdicts {
			fmt.Fprintf(&sb, "- **%s** `%s`", v.Goal, v.Verdict.Kind)
			if v.Verdict.Info != "" {
				fmt.Fprintf(&sb, ": %s", v.Verdict.Info)
			}
			sb.WriteString("\n")
		}
	}

	for _, r := range results {
		report, ok := reports[r.AgentID]
		if !ok || report == "" {
			continue
		}
		fmt.Fprintf(&sb, "\n## %s\n\n```\n%s```\n", r.AgentID, report)
	}
	return sb.String()
}

func statusIcon(s domain.StatusKind) string {
	switch s {
	case domain.StatusSuccess:
		return "✅ success"
	case domain.StatusFailed:
		return "❌ failed"
	case domain.StatusInProgress:
		return "⏳ in progress"
	}
	return string(s)
}
