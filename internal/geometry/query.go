package geometry

import "math"

// CircleStatus is the tri-state result of a circle containment test.
type CircleStatus int

const (
	CircleOutside CircleStatus = iota
	CircleIntersects
	CircleInside
)

// TestPoint reports whether p lies inside the region: in some fill node and
// not in any of its hole descendants. Elevation is not part of this test;
// callers check the elevation band separately.
func (t *PolygonTree) TestPoint(p Point) bool {
	for _, root := range t.Roots {
		if nodeContains(root, p) {
			return true
		}
	}
	return false
}

// nodeContains walks fill/hole alternation: the point is inside the node
// unless a hole child claims it, in which case the hole's own fill children
// get to reclaim it.
func nodeContains(n *TreeNode, p Point) bool {
	if !n.bounds.ContainsPoint(p) || !pointInRing(p, n.Points) {
		return false
	}
	for _, hole := range n.Children {
		if !hole.bounds.ContainsPoint(p) || !pointInRing(p, hole.Points) {
			continue
		}
		for _, island := range hole.Children {
			if nodeContains(island, p) {
				return true
			}
		}
		return false
	}
	return true
}

// TestCircle classifies a circle of the given radius around p: unambiguously
// inside the region, unambiguously outside, or within radius of a boundary.
// Segmentation uses it to keep probe positions clear of boundary-adjacent
// numerical ambiguity.
func (t *PolygonTree) TestCircle(p Point, radius float64) CircleStatus {
	inside := t.TestPoint(p)
	if radius <= 0 {
		if inside {
			return CircleInside
		}
		return CircleOutside
	}
	dist := t.boundaryDistance(p, radius)
	if dist <= radius {
		return CircleIntersects
	}
	if inside {
		return CircleInside
	}
	return CircleOutside
}

// boundaryDistance returns the distance from p to the nearest region edge,
// stopping early once any edge is closer than cutoff.
func (t *PolygonTree) boundaryDistance(p Point, cutoff float64) float64 {
	best := math.Inf(1)
	for _, n := range t.nodes {
		// Edges of a node whose padded bounds miss p are all beyond cutoff.
		if !n.bounds.Pad(cutoff).ContainsPoint(p) {
			continue
		}
		for i, a := range n.Points {
			b := n.Points[(i+1)%len(n.Points)]
			if d := pointSegmentDistance(p, a, b); d < best {
				best = d
				if best == 0 {
					return 0
				}
			}
		}
	}
	return best
}

func pointSegmentDistance(p, a, b Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return DistanceBetween(p, a)
	}
	u := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	if u < 0 {
		u = 0
	} else if u > 1 {
		u = 1
	}
	return DistanceBetween(p, Point{X: a.X + u*dx, Y: a.Y + u*dy})
}

// pointInRing — классический even-odd тест лучом по горизонтали.
func pointInRing(pt Point, ring []Point) bool {
	n := len(ring)
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].X, ring[i].Y
		xj, yj := ring[j].X, ring[j].Y
		if (yi > pt.Y) != (yj > pt.Y) &&
			pt.X < (xj-xi)*(pt.Y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}
