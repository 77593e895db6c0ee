package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/arbor/internal/presentation/graph"
	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/goal"
	"github.com/aretw0/arbor/pkg/scenario"
)

// GraphScenario writes the goal tree of a scenario as a mermaid flowchart.
func GraphScenario(w io.Writer, path string) error {
	spec, err := scenario.Load(path)
	if err != nil {
		return err
	}
	// The sink is never called: the tree is only built, not run.
	root, err := spec.Build(scenario.WithVerdictSink(memory.NewVerdictLog()))
	if err != nil {
		return err
	}
	tree, err := goal.Build(root)
	if err != nil {
		return fmt.Errorf("failed to build goal tree: %w", err)
	}
	_, err = io.WriteString(w, graph.GenerateMermaid(tree.Snapshot()))
	return err
}
