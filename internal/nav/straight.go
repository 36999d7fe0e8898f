package nav

import "github.com/driftlab/navsim/internal/geom"

// StraightLine heads directly at the target at full speed, ignoring
// obstacles, memory and predictions. It is the reference strategy for
// baseline and collision scenarios.
type StraightLine struct{}

// NewStraightLine returns the straight-to-target strategy.
func NewStraightLine() *StraightLine { return &StraightLine{} }

func (s *StraightLine) Name() string { return "straight" }

func (s *StraightLine) Decide(d Decision) (MotionCommand, error) {
	dist := geom.Dist(d.Pose.Pos, d.Target)
	if dist == 0 {
		return Stop, nil
	}
	speed := d.MaxSpeed
	if dist < speed {
		speed = dist // don't overshoot on the final approach
	}
	return MotionCommand{
		Speed:      speed,
		HeadingDeg: geom.AngleDegBetween(d.Pose.Pos, d.Target),
	}, nil
}
