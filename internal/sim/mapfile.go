package sim

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/driftlab/navsim/internal/geom"
)

// MapFile is the JSON map schema. Maps are loaded once before the loop
// starts and never re-parsed during a run.
type MapFile struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	Robot struct {
		X       float64 `json:"x"`
		Y       float64 `json:"y"`
		Heading float64 `json:"heading"`
	} `json:"robot"`

	Target struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"target"`

	Static  []ShapeSpec    `json:"static,omitempty"`
	Dynamic []ObstacleSpec `json:"dynamic,omitempty"`
}

// ShapeSpec describes one static shape: a circle (x, y, radius) or a polygon
// (points).
type ShapeSpec struct {
	Type   string       `json:"type"`
	X      float64      `json:"x,omitempty"`
	Y      float64      `json:"y,omitempty"`
	Radius float64      `json:"radius,omitempty"`
	Points [][2]float64 `json:"points,omitempty"`
}

// ObstacleSpec describes one dynamic obstacle. Waypoints and speed select
// the waypoint-loop motion rule; otherwise vx/vy select linear bounce.
type ObstacleSpec struct {
	ID        string       `json:"id"`
	X         float64      `json:"x"`
	Y         float64      `json:"y"`
	Radius    float64      `json:"radius"`
	VX        float64      `json:"vx,omitempty"`
	VY        float64      `json:"vy,omitempty"`
	Waypoints [][2]float64 `json:"waypoints,omitempty"`
	Speed     float64      `json:"speed,omitempty"`
}

// LoadMap reads and assembles an environment from a JSON map file.
func LoadMap(path string) (*Environment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read map file: %w", err)
	}
	var mf MapFile
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("parse map file %s: %w", path, err)
	}
	return BuildEnvironment(mf)
}

// BuildEnvironment assembles an Environment from a parsed map.
func BuildEnvironment(mf MapFile) (*Environment, error) {
	bounds, err := geom.NewBounds(r2.Vec{}, r2.Vec{X: mf.Width, Y: mf.Height})
	if err != nil {
		return nil, fmt.Errorf("map bounds: %w", err)
	}

	static := make([]geom.Shape, 0, len(mf.Static))
	for i, spec := range mf.Static {
		sh, err := buildShape(spec)
		if err != nil {
			return nil, fmt.Errorf("static shape %d: %w", i, err)
		}
		static = append(static, sh)
	}

	dynamic := make([]*DynamicObstacle, 0, len(mf.Dynamic))
	seen := make(map[string]bool)
	for i, spec := range mf.Dynamic {
		if spec.ID == "" {
			return nil, fmt.Errorf("dynamic obstacle %d: missing id", i)
		}
		if seen[spec.ID] {
			return nil, fmt.Errorf("dynamic obstacle %d: duplicate id %q", i, spec.ID)
		}
		seen[spec.ID] = true

		pos := r2.Vec{X: spec.X, Y: spec.Y}
		var o *DynamicObstacle
		if len(spec.Waypoints) > 0 {
			wps := make([]r2.Vec, len(spec.Waypoints))
			for j, p := range spec.Waypoints {
				wps[j] = r2.Vec{X: p[0], Y: p[1]}
			}
			o, err = NewWaypointObstacle(spec.ID, pos, spec.Radius, wps, spec.Speed)
		} else {
			o, err = NewLinearObstacle(spec.ID, pos, spec.Radius, r2.Vec{X: spec.VX, Y: spec.VY})
		}
		if err != nil {
			return nil, fmt.Errorf("dynamic obstacle %d: %w", i, err)
		}
		dynamic = append(dynamic, o)
	}

	start := geom.Pose{
		Pos:        r2.Vec{X: mf.Robot.X, Y: mf.Robot.Y},
		HeadingDeg: mf.Robot.Heading,
	}
	target := r2.Vec{X: mf.Target.X, Y: mf.Target.Y}

	return NewEnvironment(bounds, static, dynamic, start, target)
}

func buildShape(spec ShapeSpec) (geom.Shape, error) {
	switch spec.Type {
	case "circle":
		c, err := geom.NewCircle(r2.Vec{X: spec.X, Y: spec.Y}, spec.Radius)
		if err != nil {
			return nil, err
		}
		return c, nil
	case "polygon":
		pts := make([]r2.Vec, len(spec.Points))
		for i, p := range spec.Points {
			pts[i] = r2.Vec{X: p[0], Y: p[1]}
		}
		poly, err := geom.NewPolygon(pts)
		if err != nil {
			return nil, err
		}
		return poly, nil
	default:
		return nil, fmt.Errorf("unknown shape type %q", spec.Type)
	}
}
