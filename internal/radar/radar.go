// Package radar implements the ray-fan range sensor. A scan casts evenly
// spaced rays from the robot pose against the environment shapes and records
// the nearest intersection per ray, up to the configured range.
package radar

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/geom"
)

// World is the read-only view of the environment the radar scans against.
type World interface {
	Bounds() geom.Bounds
	StaticShapes() []geom.Shape
	DynamicShapes() []geom.Shape
}

// Config holds radar construction parameters.
type Config struct {
	RangeMeters   float64 // maximum sensing distance
	ResolutionDeg float64 // angular spacing between adjacent rays
}

// Radar casts a full 360° fan of rays at a fixed angular resolution.
type Radar struct {
	rangeMeters   float64
	resolutionDeg float64
	rayCount      int
}

// New validates the configuration and builds a radar. Range and resolution
// errors are construction-time failures, never scan-time ones.
func New(cfg Config) (*Radar, error) {
	if cfg.RangeMeters <= 0 {
		return nil, fmt.Errorf("radar range must be positive, got %v", cfg.RangeMeters)
	}
	if cfg.ResolutionDeg <= 0 {
		return nil, fmt.Errorf("radar resolution must be positive, got %v", cfg.ResolutionDeg)
	}
	return &Radar{
		rangeMeters:   cfg.RangeMeters,
		resolutionDeg: cfg.ResolutionDeg,
		rayCount:      int(math.Ceil(360 / cfg.ResolutionDeg)),
	}, nil
}

// Range returns the configured maximum sensing distance.
func (r *Radar) Range() float64 { return r.rangeMeters }

// Resolution returns the configured angular resolution in degrees.
func (r *Radar) Resolution() float64 { return r.resolutionDeg }

// RayCount returns the number of rays per scan.
func (r *Radar) RayCount() int { return r.rayCount }

// Sample is one ray's measurement. Distance is +Inf when no intersection
// lies within range; a finite value is never fabricated.
type Sample struct {
	AngleDeg float64
	Distance float64
	Hit      bool
}

// Scan is an ordered angular sweep of samples, ascending by ray angle.
type Scan struct {
	Samples []Sample
}

// HitPoint returns the world-frame point of the i-th sample's hit.
func (s Scan) HitPoint(origin r2.Vec, i int) r2.Vec {
	smp := s.Samples[i]
	return r2.Add(origin, r2.Scale(smp.Distance, geom.HeadingVec(smp.AngleDeg)))
}

// Scan sweeps the boundary, static shapes and dynamic shapes.
func (r *Radar) Scan(pose geom.Pose, w World) Scan {
	shapes := make([]geom.Shape, 0, len(w.StaticShapes())+len(w.DynamicShapes()))
	shapes = append(shapes, w.StaticShapes()...)
	shapes = append(shapes, w.DynamicShapes()...)
	return r.sweep(pose.Pos, shapes, w.Bounds(), true)
}

// ScanDynamic sweeps only the dynamic shapes, ignoring the boundary and
// statics. Comparing it against the full scan separates moving returns from
// fixed ones.
func (r *Radar) ScanDynamic(pose geom.Pose, w World) Scan {
	return r.sweep(pose.Pos, w.DynamicShapes(), geom.Bounds{}, false)
}

func (r *Radar) sweep(origin r2.Vec, shapes []geom.Shape, bounds geom.Bounds, useBounds bool) Scan {
	samples := make([]Sample, 0, r.rayCount)
	for i := 0; i < r.rayCount; i++ {
		angle := float64(i) * r.resolutionDeg
		dir := geom.HeadingVec(angle)

		best := math.Inf(1)
		for _, sh := range shapes {
			center, radius := sh.BoundingCircle()
			// Coarse cull: the shape cannot be reached within range.
			if geom.Dist(origin, center)-radius > r.rangeMeters {
				continue
			}
			if t, ok := sh.RayIntersect(origin, dir); ok && t < best {
				best = t
			}
		}
		if useBounds {
			if t, ok := bounds.RayIntersect(origin, dir); ok && t < best {
				best = t
			}
		}

		if best <= r.rangeMeters {
			samples = append(samples, Sample{AngleDeg: angle, Distance: best, Hit: true})
		} else {
			samples = append(samples, Sample{AngleDeg: angle, Distance: math.Inf(1), Hit: false})
		}
	}
	return Scan{Samples: samples}
}
