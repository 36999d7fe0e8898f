// Package sim owns the map, the robot and the dynamic obstacles, and runs
// the per-tick simulation loop that wires sensing, memory, prediction and
// navigation into a deterministic cycle.
package sim

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/geom"
)

// DynamicObstacle is a circular obstacle re-posed every tick by its motion
// rule: waypoint looping when waypoints are set, otherwise constant velocity
// with boundary bounce.
type DynamicObstacle struct {
	ID     string
	Radius float64

	pos       r2.Vec
	vel       r2.Vec
	waypoints []r2.Vec
	wpIndex   int
	speed     float64
}

// NewLinearObstacle builds an obstacle moving at a constant velocity,
// reflecting off the map boundary.
func NewLinearObstacle(id string, pos r2.Vec, radius float64, vel r2.Vec) (*DynamicObstacle, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("obstacle %s radius must be positive, got %v", id, radius)
	}
	return &DynamicObstacle{ID: id, Radius: radius, pos: pos, vel: vel}, nil
}

// NewWaypointObstacle builds an obstacle looping through waypoints at a
// fixed speed.
func NewWaypointObstacle(id string, pos r2.Vec, radius float64, waypoints []r2.Vec, speed float64) (*DynamicObstacle, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("obstacle %s radius must be positive, got %v", id, radius)
	}
	if len(waypoints) == 0 {
		return nil, fmt.Errorf("obstacle %s needs at least one waypoint", id)
	}
	if speed <= 0 {
		return nil, fmt.Errorf("obstacle %s waypoint speed must be positive, got %v", id, speed)
	}
	wps := make([]r2.Vec, len(waypoints))
	copy(wps, waypoints)
	return &DynamicObstacle{ID: id, Radius: radius, pos: pos, waypoints: wps, speed: speed}, nil
}

// Pos returns the obstacle's current centre.
func (o *DynamicObstacle) Pos() r2.Vec { return o.pos }

// Body returns the obstacle's current footprint.
func (o *DynamicObstacle) Body() geom.Circle {
	return geom.Circle{Center: o.pos, Radius: o.Radius}
}

// step advances the obstacle one tick.
func (o *DynamicObstacle) step(bounds geom.Bounds) {
	if len(o.waypoints) > 0 {
		o.stepWaypoints()
		return
	}

	o.pos = r2.Add(o.pos, o.vel)
	// Reflect off walls component-wise, keeping the footprint inside.
	if o.pos.X-o.Radius < bounds.Min.X || o.pos.X+o.Radius > bounds.Max.X {
		o.vel.X = -o.vel.X
		o.pos.X = clamp(o.pos.X, bounds.Min.X+o.Radius, bounds.Max.X-o.Radius)
	}
	if o.pos.Y-o.Radius < bounds.Min.Y || o.pos.Y+o.Radius > bounds.Max.Y {
		o.vel.Y = -o.vel.Y
		o.pos.Y = clamp(o.pos.Y, bounds.Min.Y+o.Radius, bounds.Max.Y-o.Radius)
	}
}

func (o *DynamicObstacle) stepWaypoints() {
	wp := o.waypoints[o.wpIndex]
	d := geom.Dist(o.pos, wp)
	if d <= o.speed {
		o.pos = wp
		o.wpIndex = (o.wpIndex + 1) % len(o.waypoints)
		return
	}
	dir := r2.Scale(1/d, r2.Sub(wp, o.pos))
	o.pos = r2.Add(o.pos, r2.Scale(o.speed, dir))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Environment is the map: a boundary, static shapes, dynamic obstacles, the
// robot's start pose and the target. Statics and boundary are immutable once
// constructed; only the loop re-poses dynamic obstacles.
type Environment struct {
	bounds  geom.Bounds
	static  []geom.Shape
	dynamic []*DynamicObstacle
	start   geom.Pose
	target  r2.Vec
}

// NewEnvironment assembles an environment, validating the boundary and that
// start and target lie inside it.
func NewEnvironment(bounds geom.Bounds, static []geom.Shape, dynamic []*DynamicObstacle, start geom.Pose, target r2.Vec) (*Environment, error) {
	if !bounds.Contains(start.Pos) {
		return nil, fmt.Errorf("robot start %v outside bounds", start.Pos)
	}
	if !bounds.Contains(target) {
		return nil, fmt.Errorf("target %v outside bounds", target)
	}
	return &Environment{
		bounds:  bounds,
		static:  static,
		dynamic: dynamic,
		start:   start,
		target:  target,
	}, nil
}

// Bounds returns the map boundary.
func (e *Environment) Bounds() geom.Bounds { return e.bounds }

// StaticShapes returns the static obstacle shapes.
func (e *Environment) StaticShapes() []geom.Shape { return e.static }

// DynamicShapes returns the dynamic obstacles' current footprints.
func (e *Environment) DynamicShapes() []geom.Shape {
	shapes := make([]geom.Shape, len(e.dynamic))
	for i, o := range e.dynamic {
		shapes[i] = o.Body()
	}
	return shapes
}

// Dynamic returns the dynamic obstacles.
func (e *Environment) Dynamic() []*DynamicObstacle { return e.dynamic }

// Start returns the robot's initial pose.
func (e *Environment) Start() geom.Pose { return e.start }

// Target returns the target location.
func (e *Environment) Target() r2.Vec { return e.target }

// stepObstacles advances every dynamic obstacle one tick.
func (e *Environment) stepObstacles() {
	for _, o := range e.dynamic {
		o.step(e.bounds)
	}
}
