// Package geometry implements the region geometry pipeline: declarative
// shapes are resolved into clipper contours, combined with boolean
// union/difference batches into a tree of boundary polygons and holes, and
// queried through point/circle containment, bounds and triangulation.
package geometry

import "math"

// ClipperScale is the fixed-point scaling factor applied to all coordinates
// before boolean polygon operations. Coordinates are rounded to integers at
// this scale so clipping results are deterministic.
const ClipperScale = 256

// Point — 2D точка в пиксельных координатах сцены.
type Point struct {
	X, Y float64
}

// ElevatedPoint — точка с высотой.
type ElevatedPoint struct {
	X, Y, Elevation float64
}

func (p ElevatedPoint) XY() Point { return Point{X: p.X, Y: p.Y} }

// Bounds — ограничивающий прямоугольник.
type Bounds struct {
	Min, Max Point
}

func (b Bounds) Width() float64  { return b.Max.X - b.Min.X }
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

func (b Bounds) Empty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y
}

func (b Bounds) ContainsPoint(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

func (b Bounds) Intersects(o Bounds) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X &&
		b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}

func (b Bounds) Union(o Bounds) Bounds {
	if b.Empty() {
		return o
	}
	if o.Empty() {
		return b
	}
	return Bounds{
		Min: Point{X: math.Min(b.Min.X, o.Min.X), Y: math.Min(b.Min.Y, o.Min.Y)},
		Max: Point{X: math.Max(b.Max.X, o.Max.X), Y: math.Max(b.Max.Y, o.Max.Y)},
	}
}

// Pad expands the bounds by d in every direction.
func (b Bounds) Pad(d float64) Bounds {
	return Bounds{
		Min: Point{X: b.Min.X - d, Y: b.Min.Y - d},
		Max: Point{X: b.Max.X + d, Y: b.Max.Y + d},
	}
}

// EmptyBounds returns an inverted rectangle suitable as a union identity.
func EmptyBounds() Bounds {
	return Bounds{
		Min: Point{X: math.Inf(1), Y: math.Inf(1)},
		Max: Point{X: math.Inf(-1), Y: math.Inf(-1)},
	}
}

// BoundsOfPoints computes the bounding rectangle of a point list.
func BoundsOfPoints(points []Point) Bounds {
	b := EmptyBounds()
	for _, p := range points {
		if p.X < b.Min.X {
			b.Min.X = p.X
		}
		if p.Y < b.Min.Y {
			b.Min.Y = p.Y
		}
		if p.X > b.Max.X {
			b.Max.X = p.X
		}
		if p.Y > b.Max.Y {
			b.Max.Y = p.Y
		}
	}
	return b
}

// DistanceBetween вычисляет евклидово расстояние.
func DistanceBetween(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
