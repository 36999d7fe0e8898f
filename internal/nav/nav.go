// Package nav defines the pluggable navigation strategy contract and the
// built-in strategies. Implementations consume read-only tick-scoped views
// and must be deterministic for a fixed seed and input sequence.
package nav

import (
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/geom"
	"github.com/driftlab/navsim/internal/predict"
	"github.com/driftlab/navsim/internal/radar"
)

// MotionCommand is a navigation decision: a linear speed and an absolute
// heading for the next tick. The loop clamps it to the robot's limits.
type MotionCommand struct {
	Speed      float64
	HeadingDeg float64
}

// Stop is the safe default command.
var Stop = MotionCommand{}

// MemoryView is the read-only query surface of the robot memory.
type MemoryView interface {
	Query(p r2.Vec) float64
	Enabled() bool
}

// Decision carries everything an algorithm may consult for one tick. All
// fields are tick-scoped; implementations must not retain references across
// ticks or mutate any of them.
type Decision struct {
	Tick        int
	Pose        geom.Pose
	Target      r2.Vec
	MaxSpeed    float64
	RadarRange  float64
	Scan        radar.Scan
	DynamicScan radar.Scan
	Memory      MemoryView
	Predictions []*predict.Prediction
}

// Algorithm is the pluggable strategy contract. Decide must return within a
// tick and treat missing predictions as "assume no predicted motion"; an
// infeasible situation yields a safe default command, not an error. A
// returned error is fatal to the run.
type Algorithm interface {
	Name() string
	Decide(d Decision) (MotionCommand, error)
}
