package runtime

import (
	"time"

	"github.com/aretw0/arbor/pkg/goal"
)

// CostPolicy decides how much budget one tick consumes. It is called once per tick,
// including ticks where no action was enabled.
type CostPolicy func(elapsed time.Duration, at goal.Attempt) float64

// UnitCost charges one unit per tick: budget counts attempted steps.
func UnitCost(time.Duration, goal.Attempt) float64 { return 1 }

// TimeCost charges the wall-clock duration of the tick, in seconds.
func TimeCost(elapsed time.Duration, _ goal.Attempt) float64 { return elapsed.Seconds() }
