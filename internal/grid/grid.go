// Package grid carries the scene grid context that geometry and movement
// segmentation need: grid type, cell size in pixels and world distance per
// cell. Passed explicitly instead of read from scene globals so the engine
// stays testable.
package grid

import "math"

type Type int

const (
	Gridless Type = iota
	Square
	HexOddR
	HexEvenR
	HexOddQ
	HexEvenQ
)

// Context — параметры сетки сцены.
type Context struct {
	Type     Type
	Size     float64 // размер ячейки в пикселях
	Distance float64 // игровая дистанция на ячейку
}

// Gridless reports whether the scene has no grid. Segmentation uses the
// exact pixel walk in that case instead of grid-tolerant snapping.
func (c Context) Gridless() bool {
	return c.Type == Gridless || c.Size <= 0
}

// BoundaryTolerance — минимальная дистанция до границы региона, на которой
// точка считается однозначно внутри/снаружи на сценах с сеткой. Не даёт
// концам сегментов лечь ровно на ребро ячейки.
func (c Context) BoundaryTolerance() float64 {
	if c.Gridless() {
		return 0
	}
	return 1
}

// VerticalEpsilon is the elevation backoff used for synthetic near-vertical
// enter/exit segments: the elevation equivalent of one pixel (the scene
// distance/grid-size ratio, or one unit without a grid scale), capped by the
// actual elevation delta of the move.
func (c Context) VerticalEpsilon(elevationDelta float64) float64 {
	delta := math.Abs(elevationDelta)
	eps := 1.0
	if c.Size > 0 && c.Distance > 0 {
		eps = c.Distance / c.Size
	}
	if eps > delta {
		return delta
	}
	return eps
}

// SnapToPixel rounds a coordinate to pixel precision, the precision region
// geometry is stored at.
func SnapToPixel(v float64) float64 {
	return math.Round(v)
}
