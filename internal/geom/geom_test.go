package geom

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"
)

func TestNewCircleRejectsNonPositiveRadius(t *testing.T) {
	if _, err := NewCircle(r2.Vec{}, 0); err == nil {
		t.Error("expected error for zero radius")
	}
	if _, err := NewCircle(r2.Vec{}, -1); err == nil {
		t.Error("expected error for negative radius")
	}
}

func TestCircleRayIntersect(t *testing.T) {
	c, err := NewCircle(r2.Vec{X: 10, Y: 0}, 2)
	if err != nil {
		t.Fatal(err)
	}

	// Ray straight at the circle hits the near surface.
	d, ok := c.RayIntersect(r2.Vec{}, r2.Vec{X: 1})
	if !ok {
		t.Fatal("expected hit")
	}
	if math.Abs(d-8) > 1e-9 {
		t.Errorf("expected distance 8, got %v", d)
	}

	// Ray pointing away misses.
	if _, ok := c.RayIntersect(r2.Vec{}, r2.Vec{X: -1}); ok {
		t.Error("expected miss for ray pointing away")
	}

	// Ray from inside hits the far surface.
	d, ok = c.RayIntersect(r2.Vec{X: 10, Y: 0}, r2.Vec{X: 1})
	if !ok || math.Abs(d-2) > 1e-9 {
		t.Errorf("expected hit at 2 from inside, got %v ok=%v", d, ok)
	}
}

func TestCircleClearance(t *testing.T) {
	c, _ := NewCircle(r2.Vec{X: 0, Y: 0}, 5)
	if d := c.Clearance(r2.Vec{X: 8, Y: 0}); math.Abs(d-3) > 1e-9 {
		t.Errorf("expected clearance 3, got %v", d)
	}
	if d := c.Clearance(r2.Vec{X: 1, Y: 0}); math.Abs(d+4) > 1e-9 {
		t.Errorf("expected clearance -4 inside, got %v", d)
	}
	// Tangent point is exactly zero.
	if d := c.Clearance(r2.Vec{X: 5, Y: 0}); d != 0 {
		t.Errorf("expected zero clearance on surface, got %v", d)
	}
}

func TestNewPolygonRejectsDegenerate(t *testing.T) {
	if _, err := NewPolygon([]r2.Vec{{X: 0}, {X: 1}}); err == nil {
		t.Error("expected error for two vertices")
	}
	collinear := []r2.Vec{{X: 0}, {X: 1}, {X: 2}}
	if _, err := NewPolygon(collinear); err == nil {
		t.Error("expected error for zero-area polygon")
	}
}

func TestPolygonRayAndClearance(t *testing.T) {
	square, err := NewPolygon([]r2.Vec{
		{X: 4, Y: -1}, {X: 6, Y: -1}, {X: 6, Y: 1}, {X: 4, Y: 1},
	})
	if err != nil {
		t.Fatal(err)
	}

	d, ok := square.RayIntersect(r2.Vec{}, r2.Vec{X: 1})
	if !ok || math.Abs(d-4) > 1e-9 {
		t.Errorf("expected hit at 4, got %v ok=%v", d, ok)
	}

	if _, ok := square.RayIntersect(r2.Vec{}, r2.Vec{Y: 1}); ok {
		t.Error("expected miss going north")
	}

	if c := square.Clearance(r2.Vec{X: 5, Y: 0}); c >= 0 {
		t.Errorf("expected negative clearance inside, got %v", c)
	}
	if c := square.Clearance(r2.Vec{X: 0, Y: 0}); math.Abs(c-4) > 1e-9 {
		t.Errorf("expected clearance 4, got %v", c)
	}
}

func TestBoundsRayIntersect(t *testing.T) {
	b, err := NewBounds(r2.Vec{}, r2.Vec{X: 100, Y: 60})
	if err != nil {
		t.Fatal(err)
	}

	d, ok := b.RayIntersect(r2.Vec{X: 50, Y: 30}, r2.Vec{X: 1})
	if !ok || math.Abs(d-50) > 1e-9 {
		t.Errorf("expected wall at 50, got %v ok=%v", d, ok)
	}
	d, ok = b.RayIntersect(r2.Vec{X: 50, Y: 30}, r2.Vec{Y: -1})
	if !ok || math.Abs(d-30) > 1e-9 {
		t.Errorf("expected wall at 30, got %v ok=%v", d, ok)
	}
}

func TestBoundsClearance(t *testing.T) {
	b, _ := NewBounds(r2.Vec{}, r2.Vec{X: 100, Y: 60})
	if c := b.Clearance(r2.Vec{X: 50, Y: 30}); math.Abs(c-30) > 1e-9 {
		t.Errorf("expected 30, got %v", c)
	}
	if c := b.Clearance(r2.Vec{X: 1, Y: 30}); math.Abs(c-1) > 1e-9 {
		t.Errorf("expected 1, got %v", c)
	}
	if c := b.Clearance(r2.Vec{X: -5, Y: 30}); c >= 0 {
		t.Errorf("expected negative clearance outside, got %v", c)
	}
}

func TestAngleHelpers(t *testing.T) {
	if a := AngleDegBetween(r2.Vec{}, r2.Vec{X: 1}); a != 0 {
		t.Errorf("expected 0, got %v", a)
	}
	if a := AngleDegBetween(r2.Vec{}, r2.Vec{Y: 1}); math.Abs(a-90) > 1e-9 {
		t.Errorf("expected 90, got %v", a)
	}
	if a := AngleDegBetween(r2.Vec{}, r2.Vec{X: -1}); math.Abs(a-180) > 1e-9 {
		t.Errorf("expected 180, got %v", a)
	}
	if n := NormalizeDeg(-90); math.Abs(n-270) > 1e-9 {
		t.Errorf("expected 270, got %v", n)
	}

	v := HeadingVec(90)
	if math.Abs(v.X) > 1e-12 || math.Abs(v.Y-1) > 1e-12 {
		t.Errorf("expected unit Y vector, got %v", v)
	}
}
