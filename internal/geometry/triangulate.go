package geometry

import (
	"math"
	"math/rand"

	"tabletop-core/internal/errs"
)

// Triangle is one triangle of the region triangulation.
type Triangle struct {
	A, B, C Point
}

func (t Triangle) Area() float64 {
	return math.Abs((t.B.X-t.A.X)*(t.C.Y-t.A.Y)-(t.C.X-t.A.X)*(t.B.Y-t.A.Y)) / 2
}

// Triangulation returns an ear-clipping triangulation of every fill node
// minus its holes. Computed once per tree and cached; used for area-weighted
// random interior sampling.
func (t *PolygonTree) Triangulation() []Triangle {
	if t.triOnce {
		return t.triangles
	}
	for _, n := range t.nodes {
		if n.Hole {
			continue
		}
		holes := make([][]Point, 0, len(n.Children))
		for _, h := range n.Children {
			holes = append(holes, h.Points)
		}
		t.triangles = append(t.triangles, triangulateRing(n.Points, holes)...)
	}
	t.triOnce = true
	return t.triangles
}

// SamplePoint picks a uniformly distributed interior point: a triangle is
// chosen with probability proportional to its area, then a point is sampled
// inside it with barycentric coordinates.
func SamplePoint(triangles []Triangle, rng *rand.Rand) (Point, error) {
	total := 0.0
	for _, tri := range triangles {
		total += tri.Area()
	}
	if total <= 0 {
		return Point{}, &errs.GeometryError{Reason: "triangulation has no area to sample"}
	}
	target := rng.Float64() * total
	chosen := triangles[len(triangles)-1]
	for _, tri := range triangles {
		target -= tri.Area()
		if target <= 0 {
			chosen = tri
			break
		}
	}
	r1 := math.Sqrt(rng.Float64())
	r2 := rng.Float64()
	return Point{
		X: (1-r1)*chosen.A.X + r1*(1-r2)*chosen.B.X + r1*r2*chosen.C.X,
		Y: (1-r1)*chosen.A.Y + r1*(1-r2)*chosen.B.Y + r1*r2*chosen.C.Y,
	}, nil
}

// triangulateRing triangulates one outer ring with holes. Holes are merged
// into the outer ring with bridge edges first, then the bridged ring is ear
// clipped. Same construction as the classic earcut family.
func triangulateRing(outer []Point, holes [][]Point) []Triangle {
	ring := ensureWinding(outer, true)
	for _, hole := range sortHolesByMaxX(holes) {
		ring = bridgeHole(ring, ensureWinding(hole, false))
	}
	return earClip(ring)
}

// ensureWinding returns the ring with counter-clockwise (positive signed
// area) or clockwise orientation.
func ensureWinding(ring []Point, ccw bool) []Point {
	if (signedArea(ring) > 0) == ccw {
		return ring
	}
	reversed := make([]Point, len(ring))
	for i, p := range ring {
		reversed[len(ring)-1-i] = p
	}
	return reversed
}

func sortHolesByMaxX(holes [][]Point) [][]Point {
	sorted := make([][]Point, len(holes))
	copy(sorted, holes)
	maxX := func(ring []Point) float64 {
		m := math.Inf(-1)
		for _, p := range ring {
			if p.X > m {
				m = p.X
			}
		}
		return m
	}
	// Rightmost hole first, so earlier bridges cannot block later ones.
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && maxX(sorted[j]) > maxX(sorted[j-1]); j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	return sorted
}

// bridgeHole splices a hole ring into the outer ring through a bridge edge
// from the hole's rightmost vertex to a visible outer vertex.
func bridgeHole(ring []Point, hole []Point) []Point {
	hm := 0
	for i, p := range hole {
		if p.X > hole[hm].X {
			hm = i
		}
	}
	m := hole[hm]

	// Cast a ray from m in +X and find the nearest crossing outer edge.
	bridgeIdx := -1
	bestX := math.Inf(1)
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]
		if (a.Y > m.Y) == (b.Y > m.Y) {
			continue
		}
		x := a.X + (m.Y-a.Y)/(b.Y-a.Y)*(b.X-a.X)
		if x >= m.X && x < bestX {
			bestX = x
			if a.X > b.X {
				bridgeIdx = i
			} else {
				bridgeIdx = (i + 1) % len(ring)
			}
		}
	}
	if bridgeIdx < 0 {
		// Hole outside the ring; nothing to merge.
		return ring
	}

	// If any reflex ring vertex lies inside triangle (m, intersection,
	// candidate), bridge to the one closest to m instead.
	candidate := ring[bridgeIdx]
	inters := Point{X: bestX, Y: m.Y}
	bestDist := math.Inf(1)
	for i, p := range ring {
		if p == candidate || !pointInTriangle(p, m, inters, candidate) {
			continue
		}
		if d := DistanceBetween(m, p); d < bestDist {
			bestDist = d
			bridgeIdx = i
		}
	}

	merged := make([]Point, 0, len(ring)+len(hole)+2)
	merged = append(merged, ring[:bridgeIdx+1]...)
	for i := 0; i <= len(hole); i++ {
		merged = append(merged, hole[(hm+i)%len(hole)])
	}
	merged = append(merged, ring[bridgeIdx:]...)
	return merged
}

func pointInTriangle(p, a, b, c Point) bool {
	d1 := cross(p, a, b)
	d2 := cross(p, b, c)
	d3 := cross(p, c, a)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}

func cross(p, a, b Point) float64 {
	return (a.X-p.X)*(b.Y-p.Y) - (b.X-p.X)*(a.Y-p.Y)
}

// earClip triangulates a counter-clockwise simple ring (bridge vertices may
// repeat) by repeatedly cutting ears.
func earClip(ring []Point) []Triangle {
	n := len(ring)
	if n < 3 {
		return nil
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	var triangles []Triangle
	guard := 0
	for len(idx) > 3 && guard < n*n {
		guard++
		clipped := false
		for i := 0; i < len(idx); i++ {
			prev := ring[idx[(i-1+len(idx))%len(idx)]]
			cur := ring[idx[i]]
			next := ring[idx[(i+1)%len(idx)]]
			if !isEar(ring, idx, i, prev, cur, next) {
				continue
			}
			if tri := (Triangle{A: prev, B: cur, C: next}); tri.Area() > 0 {
				triangles = append(triangles, tri)
			}
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// Degenerate remainder (grazing or collinear run); stop rather
			// than loop.
			break
		}
	}
	if len(idx) == 3 {
		tri := Triangle{A: ring[idx[0]], B: ring[idx[1]], C: ring[idx[2]]}
		if tri.Area() > 0 {
			triangles = append(triangles, tri)
		}
	}
	return triangles
}

func isEar(ring []Point, idx []int, i int, prev, cur, next Point) bool {
	// Convex corner in CCW winding.
	if cross(prev, cur, next) < 0 {
		return false
	}
	for _, j := range idx {
		p := ring[j]
		if p == prev || p == cur || p == next {
			continue
		}
		if pointInTriangle(p, prev, cur, next) {
			return false
		}
	}
	return true
}
