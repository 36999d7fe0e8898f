// Package geom provides the 2D primitives shared by the radar, memory and
// simulation packages: vectors (gonum spatial/r2), poses, and the shape types
// used for both ray intersection and collision clearance tests.
package geom

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

const rayEpsilon = 1e-12

// Pose is a position plus heading and linear speed. It is owned by the entity
// it describes and mutated only by the simulation loop's move phase.
type Pose struct {
	Pos        r2.Vec
	HeadingDeg float64
	Speed      float64
}

// Shape is a geometric footprint testable by radar rays and clearance queries.
type Shape interface {
	// RayIntersect returns the distance along the ray (origin, unit dir) to
	// the nearest intersection with the shape, if any.
	RayIntersect(origin, dir r2.Vec) (float64, bool)

	// Clearance returns the distance from p to the shape surface.
	// Negative values mean p is inside the shape.
	Clearance(p r2.Vec) float64

	// BoundingCircle returns a circle enclosing the shape, used for coarse
	// out-of-range culling before exact intersection tests.
	BoundingCircle() (center r2.Vec, radius float64)
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 { return deg * math.Pi / 180 }

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 { return rad * 180 / math.Pi }

// NormalizeDeg maps an angle to [0, 360).
func NormalizeDeg(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// HeadingVec returns the unit vector pointing along the given heading.
func HeadingVec(deg float64) r2.Vec {
	rad := DegToRad(deg)
	return r2.Vec{X: math.Cos(rad), Y: math.Sin(rad)}
}

// AngleDegBetween returns the heading in degrees from `from` towards `to`,
// normalised to [0, 360).
func AngleDegBetween(from, to r2.Vec) float64 {
	d := r2.Sub(to, from)
	return NormalizeDeg(RadToDeg(math.Atan2(d.Y, d.X)))
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// Circle is a circular shape.
type Circle struct {
	Center r2.Vec
	Radius float64
}

// NewCircle builds a circle, rejecting non-positive extents.
func NewCircle(center r2.Vec, radius float64) (Circle, error) {
	if radius <= 0 {
		return Circle{}, fmt.Errorf("circle radius must be positive, got %v", radius)
	}
	return Circle{Center: center, Radius: radius}, nil
}

// RayIntersect solves the ray/circle quadratic and returns the nearest
// non-negative root.
func (c Circle) RayIntersect(origin, dir r2.Vec) (float64, bool) {
	oc := r2.Sub(origin, c.Center)
	b := r2.Dot(oc, dir)
	q := r2.Norm2(oc) - c.Radius*c.Radius
	disc := b*b - q
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return 0, false
	}
	return t, true
}

// Clearance returns the signed distance from p to the circle surface.
func (c Circle) Clearance(p r2.Vec) float64 {
	return Dist(p, c.Center) - c.Radius
}

// BoundingCircle returns the circle itself.
func (c Circle) BoundingCircle() (r2.Vec, float64) {
	return c.Center, c.Radius
}

// Polygon is a simple (non self-intersecting) polygon defined by its
// vertices in order.
type Polygon struct {
	vertices []r2.Vec
	center   r2.Vec
	bound    float64
}

// NewPolygon builds a polygon from at least three vertices with non-zero area.
func NewPolygon(vertices []r2.Vec) (Polygon, error) {
	if len(vertices) < 3 {
		return Polygon{}, fmt.Errorf("polygon needs at least 3 vertices, got %d", len(vertices))
	}
	// Shoelace area; zero area means a degenerate footprint.
	var area float64
	for i := range vertices {
		j := (i + 1) % len(vertices)
		area += r2.Cross(vertices[i], vertices[j])
	}
	if math.Abs(area/2) < 1e-9 {
		return Polygon{}, fmt.Errorf("polygon has zero area")
	}

	var center r2.Vec
	for _, v := range vertices {
		center = r2.Add(center, v)
	}
	center = r2.Scale(1/float64(len(vertices)), center)

	var bound float64
	for _, v := range vertices {
		if d := Dist(center, v); d > bound {
			bound = d
		}
	}

	vs := make([]r2.Vec, len(vertices))
	copy(vs, vertices)
	return Polygon{vertices: vs, center: center, bound: bound}, nil
}

// Vertices returns the polygon vertices.
func (p Polygon) Vertices() []r2.Vec { return p.vertices }

// RayIntersect returns the nearest edge intersection along the ray.
func (p Polygon) RayIntersect(origin, dir r2.Vec) (float64, bool) {
	best := math.Inf(1)
	hit := false
	for i := range p.vertices {
		j := (i + 1) % len(p.vertices)
		if t, ok := raySegment(origin, dir, p.vertices[i], p.vertices[j]); ok && t < best {
			best = t
			hit = true
		}
	}
	return best, hit
}

// Clearance returns the signed distance from pt to the polygon boundary,
// negative when pt is inside.
func (p Polygon) Clearance(pt r2.Vec) float64 {
	min := math.Inf(1)
	for i := range p.vertices {
		j := (i + 1) % len(p.vertices)
		if d := pointSegmentDist(pt, p.vertices[i], p.vertices[j]); d < min {
			min = d
		}
	}
	if p.contains(pt) {
		return -min
	}
	return min
}

// BoundingCircle returns the vertex-centroid circle enclosing the polygon.
func (p Polygon) BoundingCircle() (r2.Vec, float64) {
	return p.center, p.bound
}

// contains uses the even-odd crossing rule.
func (p Polygon) contains(pt r2.Vec) bool {
	inside := false
	n := len(p.vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		vi, vj := p.vertices[i], p.vertices[j]
		if (vi.Y > pt.Y) != (vj.Y > pt.Y) &&
			pt.X < (vj.X-vi.X)*(pt.Y-vi.Y)/(vj.Y-vi.Y)+vi.X {
			inside = !inside
		}
	}
	return inside
}

// Bounds is the rectangular map boundary. The interior is free space; rays
// hit it from the inside and the robot collides when its footprint crosses it.
type Bounds struct {
	Min, Max r2.Vec
}

// NewBounds builds a boundary rectangle with positive extent.
func NewBounds(min, max r2.Vec) (Bounds, error) {
	if max.X <= min.X || max.Y <= min.Y {
		return Bounds{}, fmt.Errorf("bounds must have positive extent, got min=%v max=%v", min, max)
	}
	return Bounds{Min: min, Max: max}, nil
}

// Contains reports whether p lies inside the boundary.
func (b Bounds) Contains(p r2.Vec) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Clearance returns the distance from p to the nearest wall, positive inside
// the boundary and negative outside.
func (b Bounds) Clearance(p r2.Vec) float64 {
	dx := math.Min(p.X-b.Min.X, b.Max.X-p.X)
	dy := math.Min(p.Y-b.Min.Y, b.Max.Y-p.Y)
	return math.Min(dx, dy)
}

// RayIntersect returns the distance to the nearest wall along the ray.
func (b Bounds) RayIntersect(origin, dir r2.Vec) (float64, bool) {
	corners := [4]r2.Vec{
		{X: b.Min.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Min.Y},
		{X: b.Max.X, Y: b.Max.Y},
		{X: b.Min.X, Y: b.Max.Y},
	}
	best := math.Inf(1)
	hit := false
	for i := range corners {
		j := (i + 1) % 4
		if t, ok := raySegment(origin, dir, corners[i], corners[j]); ok && t < best {
			best = t
			hit = true
		}
	}
	return best, hit
}

// raySegment intersects the ray (origin, unit dir) with segment ab.
func raySegment(origin, dir, a, b r2.Vec) (float64, bool) {
	e := r2.Sub(b, a)
	denom := r2.Cross(dir, e)
	if math.Abs(denom) < rayEpsilon {
		return 0, false // parallel or collinear
	}
	ao := r2.Sub(a, origin)
	t := r2.Cross(ao, e) / denom
	u := r2.Cross(ao, dir) / denom
	if t < 0 || u < 0 || u > 1 {
		return 0, false
	}
	return t, true
}

// pointSegmentDist returns the distance from p to segment ab.
func pointSegmentDist(p, a, b r2.Vec) float64 {
	ab := r2.Sub(b, a)
	l2 := r2.Norm2(ab)
	if l2 == 0 {
		return Dist(p, a)
	}
	t := r2.Dot(r2.Sub(p, a), ab) / l2
	t = math.Max(0, math.Min(1, t))
	proj := r2.Add(a, r2.Scale(t, ab))
	return Dist(p, proj)
}
