package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a goal tree. Node shapes follow the
// combinator:
// - SEQ: [[Subroutine]]
// - FIRSTOF: {Rhombus}
// - REPEAT: ((Circle))
// - Primitive goal: [Rectangle]
// SEQ edges are numbered in execution order. Closed nodes and the current leaf are
// styled from their status.
func GenerateMermaid(snap domain.TreeSnapshot) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	byID := make(map[int]domain.NodeSnapshot, len(snap.Nodes))
	for _, n := range snap.Nodes {
		byID[n.ID] = n
	}

	for _, n := range snap.Nodes {
		opener, closer := "[", "]"
		switch n.Combinator {
		case "SEQ":
			opener, closer = "[[", "]]"
		case "FIRSTOF":
			opener, closer = "{", "}"
		case "REPEAT":
			opener, closer = "((", "))"
		}

		label := escape(n.Name)
		if n.MaxBudget != nil {
			label = fmt.Sprintf("%s <br/> max %g", label, *n.MaxBudget)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", nodeID(n.ID), opener, label, closer))

		for i, c := range n.Children {
			if _, ok := byID[c]; !ok {
				continue
			}
			arrow := "-->"
			if n.Combinator == "SEQ" {
				arrow = fmt.Sprintf("-- \"%d\" -->", i+1)
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", nodeID(n.ID), arrow, nodeID(c)))
		}
	}

	sb.WriteString("\n    %% Status Styles\n")
	// Force black text (color:#000) for contrast on both light and dark themes
	sb.WriteString("    classDef success fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#c62828,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef exhausted fill:#ffe0b2,stroke:#ef6c00,stroke-width:2px,color:#000;\n")
	sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

	for _, n := range snap.Nodes {
		class := ""
		switch {
		case n.ID == snap.Current:
			class = "current"
		case n.Status == domain.StatusSuccess:
			class = "success"
		case n.Status == domain.StatusFailed && n.Reason == domain.ReasonBudgetExhausted:
			class = "exhausted"
		case n.Status == domain.StatusFailed:
			class = "failed"
		}
		if class != "" {
			sb.WriteString(fmt.Sprintf("    class %s %s;\n", nodeID(n.ID), class))
		}
	}

	return sb.String()
}

func nodeID(id int) string {
	return fmt.Sprintf("n%d", id)
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
