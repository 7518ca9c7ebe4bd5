package region

import (
	"math"
	"sort"

	"tabletop-core/internal/geometry"
	"tabletop-core/internal/grid"
)

// SegmentType classifies a movement segment relative to the region.
type SegmentType string

const (
	SegmentMove  SegmentType = "move"
	SegmentEnter SegmentType = "enter"
	SegmentExit  SegmentType = "exit"
)

// Waypoint — точка пути перемещения. Teleport на точке назначения означает
// мгновенный перенос без прохода по геометрии.
type Waypoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Elevation float64 `json:"elevation"`
	Teleport  bool    `json:"teleport,omitempty"`
}

func (w Waypoint) point() geometry.ElevatedPoint {
	return geometry.ElevatedPoint{X: w.X, Y: w.Y, Elevation: w.Elevation}
}

// MovementSegment is one classified sub-interval of a movement path.
// Segments of one path are in temporal order; gaps between consecutive
// segments are stretches outside the region.
type MovementSegment struct {
	Type     SegmentType            `json:"type"`
	From     geometry.ElevatedPoint `json:"from"`
	To       geometry.ElevatedPoint `json:"to"`
	Teleport bool                   `json:"teleport,omitempty"`
}

// CouldMovementIntersect is the cheap bounding-box pre-check: false means
// the broadened path cannot touch the region and segmentation can be
// skipped entirely.
func (r *Region) CouldMovementIntersect(waypoints []Waypoint, samples []geometry.Point) (bool, error) {
	tree, err := r.Tree()
	if err != nil {
		return false, err
	}
	if len(waypoints) == 0 {
		return false, nil
	}
	points := make([]geometry.Point, 0, len(waypoints))
	for _, w := range waypoints {
		points = append(points, geometry.Point{X: w.X, Y: w.Y})
	}
	return broadenedBounds(geometry.BoundsOfPoints(points), samples).Intersects(tree.Bounds()), nil
}

// SegmentizeMovementPath splits the path into enter/exit/move segments with
// respect to this region. samples are the probe offsets of the moving
// token's footprint; an empty list degenerates to the path points
// themselves. Geometry errors propagate: silently returning no segments
// would drop boundary events downstream.
func (r *Region) SegmentizeMovementPath(waypoints []Waypoint, samples []geometry.Point, g grid.Context) ([]MovementSegment, error) {
	if len(waypoints) < 2 {
		return nil, nil
	}
	if len(samples) == 0 {
		samples = []geometry.Point{{}}
	}
	tree, err := r.Tree()
	if err != nil {
		return nil, err
	}

	var segments []MovementSegment
	for i := 1; i < len(waypoints); i++ {
		a := waypoints[i-1].point()
		b := waypoints[i].point()
		var leg []MovementSegment
		switch {
		case waypoints[i].Teleport:
			leg = r.segmentizeTeleport(tree, a, b, samples)
		case a.Elevation == b.Elevation:
			// Entirely outside the elevation band: nothing to track.
			if r.elevation.Contains(a.Elevation) {
				leg = r.segmentizeLeg(tree, a, b, samples, g)
			}
		default:
			leg = r.segmentizeElevationChange(tree, a, b, samples, g)
		}
		segments = append(segments, leg...)
	}
	return segments, nil
}

// segmentizeTeleport classifies a teleport by its endpoints only. When the
// position is unchanged and only elevation moves, one shared 2D test is used
// for both endpoints so separately rounded coordinates cannot disagree.
func (r *Region) segmentizeTeleport(tree *geometry.PolygonTree, a, b geometry.ElevatedPoint, samples []geometry.Point) []MovementSegment {
	var originInside, destInside bool
	if math.Round(a.X) == math.Round(b.X) && math.Round(a.Y) == math.Round(b.Y) {
		inside2D := sampleInside(tree, a.XY(), samples)
		originInside = inside2D && r.elevation.Contains(a.Elevation)
		destInside = inside2D && r.elevation.Contains(b.Elevation)
	} else {
		originInside = sampleInside(tree, a.XY(), samples) && r.elevation.Contains(a.Elevation)
		destInside = sampleInside(tree, b.XY(), samples) && r.elevation.Contains(b.Elevation)
	}
	switch {
	case originInside && destInside:
		return []MovementSegment{{Type: SegmentMove, From: a, To: b, Teleport: true}}
	case destInside:
		return []MovementSegment{{Type: SegmentEnter, From: a, To: b, Teleport: true}}
	case originInside:
		return []MovementSegment{{Type: SegmentExit, From: a, To: b, Teleport: true}}
	default:
		return nil
	}
}

// segmentizeElevationChange clips the leg to the sub-interval where its
// linearly interpolated elevation is within the band, runs 2D segmentation
// on the clipped leg, then patches in synthetic vertical enter/exit
// segments where the band was crossed while horizontally inside.
func (r *Region) segmentizeElevationChange(tree *geometry.PolygonTree, a, b geometry.ElevatedPoint, samples []geometry.Point, g grid.Context) []MovementSegment {
	e0, e1 := a.Elevation, b.Elevation
	de := e1 - e0
	t0, t1 := 0.0, 1.0
	bandAt := func(bound float64) float64 { return (bound - e0) / de }
	if de > 0 {
		if e1 < r.elevation.Bottom || e0 > r.elevation.Top {
			return nil
		}
		if e0 < r.elevation.Bottom {
			t0 = bandAt(r.elevation.Bottom)
		}
		if e1 > r.elevation.Top {
			t1 = bandAt(r.elevation.Top)
		}
	} else {
		if e0 < r.elevation.Bottom || e1 > r.elevation.Top {
			return nil
		}
		if e0 > r.elevation.Top {
			t0 = bandAt(r.elevation.Top)
		}
		if e1 < r.elevation.Bottom {
			t1 = bandAt(r.elevation.Bottom)
		}
	}
	if t0 > t1 {
		return nil
	}

	ca := lerpElevated(a, b, t0)
	cb := lerpElevated(a, b, t1)
	segments := r.segmentizeLeg(tree, ca, cb, samples, g)

	eps := g.VerticalEpsilon(de)
	if t0 > 0 && sampleInside(tree, ca.XY(), samples) {
		from := ca
		if de > 0 {
			from.Elevation -= eps
		} else {
			from.Elevation += eps
		}
		segments = append([]MovementSegment{{Type: SegmentEnter, From: from, To: ca}}, segments...)
	}
	if t1 < 1 && sampleInside(tree, cb.XY(), samples) {
		to := cb
		if de > 0 {
			to.Elevation += eps
		} else {
			to.Elevation -= eps
		}
		segments = append(segments, MovementSegment{Type: SegmentExit, From: cb, To: to})
	}
	return segments
}

// segmentizeLeg is the core 2D routine shared by the same-elevation and
// elevation-change cases. The caller guarantees elevations along [a,b] are
// within the band.
func (r *Region) segmentizeLeg(tree *geometry.PolygonTree, a, b geometry.ElevatedPoint, samples []geometry.Point, g grid.Context) []MovementSegment {
	if !legCouldIntersect(tree, a, b, samples) {
		return nil
	}

	// Degenerate horizontal leg: pure elevation move or zero-length step.
	if math.Round(a.X) == math.Round(b.X) && math.Round(a.Y) == math.Round(b.Y) {
		if sampleInside(tree, a.XY(), samples) {
			return []MovementSegment{{Type: SegmentMove, From: a, To: b}}
		}
		return nil
	}

	originInside := sampleInside(tree, a.XY(), samples)
	destInside := sampleInside(tree, b.XY(), samples)

	var segments []MovementSegment
	for _, iv := range coveredIntervals(tree, a.XY(), b.XY(), samples) {
		segments = append(segments, r.intervalSegments(tree, a, b, iv, samples, g, originInside, destInside)...)
	}

	// Patch leading/trailing segments: an inside origin must have a segment
	// starting exactly at the origin, an inside destination a segment ending
	// exactly at the destination, even when the interval method missed them.
	if originInside {
		switch {
		case len(segments) == 0 && destInside:
			segments = []MovementSegment{{Type: SegmentMove, From: a, To: b}}
		case len(segments) == 0:
			exit := firstOutsideAlong(tree, a, b, samples, g)
			segments = []MovementSegment{{Type: SegmentExit, From: a, To: exit}}
		case segments[0].From != a:
			segments = append([]MovementSegment{{Type: SegmentMove, From: a, To: segments[0].From}}, segments...)
		}
	}
	if destInside {
		switch {
		case len(segments) == 0:
			enter := firstOutsideAlong(tree, b, a, samples, g)
			segments = []MovementSegment{{Type: SegmentEnter, From: enter, To: b}}
		case segments[len(segments)-1].To != b:
			segments = append(segments, MovementSegment{Type: SegmentMove, From: segments[len(segments)-1].To, To: b})
		}
	}
	return segments
}

// intervalSegments refines one covered parametric interval into concrete
// segments, walking pixel by pixel from each end to pinpoint the actual
// transitions.
func (r *Region) intervalSegments(tree *geometry.PolygonTree, a, b geometry.ElevatedPoint, iv interval, samples []geometry.Point, g grid.Context, originInside, destInside bool) []MovementSegment {
	p0 := lerpElevated(a, b, iv.start)
	p1 := lerpElevated(a, b, iv.end)
	startsAtOrigin := iv.start == 0 && originInside
	endsAtDest := iv.end == 1 && destInside

	walk := bresenhamPoints(p0.XY(), p1.XY())
	tol := g.BoundaryTolerance()
	firstIdx, lastIdx, ok := interiorSpan(tree, walk, samples, tol)
	if !ok && tol > 0 {
		// Thin region: fall back from the grid-tolerant test to the exact
		// one rather than drop the crossing.
		firstIdx, lastIdx, ok = interiorSpan(tree, walk, samples, 0)
	}
	if !ok {
		// Tangential graze with no interior pixel.
		return nil
	}

	elevate := func(p geometry.Point) geometry.ElevatedPoint {
		return elevateOnLeg(a, b, p)
	}

	var segs []MovementSegment
	start := elevate(walk[firstIdx])
	if startsAtOrigin {
		start = a
	} else {
		// Walk back toward the leg origin to the last position that still
		// tests outside: that is the enter transition point.
		from := walkUntilOutside(tree, walk[firstIdx], a.XY(), samples, g)
		if iv.start == 0 {
			from = a.XY()
		}
		segs = append(segs, MovementSegment{Type: SegmentEnter, From: elevate(from), To: start})
	}

	end := elevate(walk[lastIdx])
	if endsAtDest {
		end = b
	}
	if start != end {
		segs = append(segs, MovementSegment{Type: SegmentMove, From: start, To: end})
	}
	if !endsAtDest {
		to := walkUntilOutside(tree, walk[lastIdx], b.XY(), samples, g)
		if iv.end == 1 {
			to = b.XY()
		}
		segs = append(segs, MovementSegment{Type: SegmentExit, From: end, To: elevate(to)})
	}
	return segs
}

// interiorSpan finds the first and last pixel of the walk that test
// unambiguously inside. tol > 0 requires a minimum boundary distance, which
// keeps segment endpoints off grid-cell edges on gridded scenes.
func interiorSpan(tree *geometry.PolygonTree, walk []geometry.Point, samples []geometry.Point, tol float64) (int, int, bool) {
	first := -1
	last := -1
	for i, p := range walk {
		if sampleStrictlyInside(tree, p, samples, tol) {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return 0, 0, false
	}
	return first, last, true
}

// walkUntilOutside rasterizes the pixel line from p toward a point beyond
// the boundary and returns the first position that tests outside. Used to
// pinpoint enter and exit transition points.
func walkUntilOutside(tree *geometry.PolygonTree, p, toward geometry.Point, samples []geometry.Point, g grid.Context) geometry.Point {
	tol := g.BoundaryTolerance()
	walk := bresenhamPoints(p, toward)
	for _, q := range walk[1:] {
		if sampleStrictlyOutside(tree, q, samples, tol) {
			return q
		}
	}
	return toward
}

// firstOutsideAlong walks from a toward b and returns the first outside
// position, elevated onto the leg.
func firstOutsideAlong(tree *geometry.PolygonTree, a, b geometry.ElevatedPoint, samples []geometry.Point, g grid.Context) geometry.ElevatedPoint {
	q := walkUntilOutside(tree, a.XY(), b.XY(), samples, g)
	return elevateOnLeg(a, b, q)
}

// --- containment helpers over the sample footprint ---

// sampleInside: токен в регионе, если хотя бы одна точка футпринта внутри.
func sampleInside(tree *geometry.PolygonTree, p geometry.Point, samples []geometry.Point) bool {
	for _, s := range samples {
		if tree.TestPoint(geometry.Point{X: p.X + s.X, Y: p.Y + s.Y}) {
			return true
		}
	}
	return false
}

func sampleStrictlyInside(tree *geometry.PolygonTree, p geometry.Point, samples []geometry.Point, tol float64) bool {
	if tol <= 0 {
		return sampleInside(tree, p, samples)
	}
	for _, s := range samples {
		if tree.TestCircle(geometry.Point{X: p.X + s.X, Y: p.Y + s.Y}, tol) == geometry.CircleInside {
			return true
		}
	}
	return false
}

func sampleStrictlyOutside(tree *geometry.PolygonTree, p geometry.Point, samples []geometry.Point, tol float64) bool {
	if tol <= 0 {
		return !sampleInside(tree, p, samples)
	}
	for _, s := range samples {
		if tree.TestCircle(geometry.Point{X: p.X + s.X, Y: p.Y + s.Y}, tol) != geometry.CircleOutside {
			return false
		}
	}
	return true
}

// --- interval computation ---

type interval struct {
	start, end float64
}

// coveredIntervals computes the merged parametric sub-intervals of [0,1]
// during which any footprint sample is inside the region. Crossing
// parameters come from exact segment/edge intersection in the fixed-point
// contour space; the parity of each gap is resolved with a midpoint test.
func coveredIntervals(tree *geometry.PolygonTree, a, b geometry.Point, samples []geometry.Point) []interval {
	length := geometry.DistanceBetween(a, b)
	tol := 1.0 / math.Max(length, 1)

	var all []interval
	for _, s := range samples {
		p := geometry.Point{X: a.X + s.X, Y: a.Y + s.Y}
		q := geometry.Point{X: b.X + s.X, Y: b.Y + s.Y}
		all = append(all, sampleIntervals(tree, p, q)...)
	}
	if len(all) == 0 {
		return nil
	}
	sort.Slice(all, func(i, j int) bool { return all[i].start < all[j].start })

	merged := []interval{all[0]}
	for _, iv := range all[1:] {
		last := &merged[len(merged)-1]
		if iv.start <= last.end+tol {
			if iv.end > last.end {
				last.end = iv.end
			}
		} else {
			merged = append(merged, iv)
		}
	}
	return merged
}

// sampleIntervals computes covered intervals for one offset segment.
func sampleIntervals(tree *geometry.PolygonTree, p, q geometry.Point) []interval {
	segBounds := geometry.BoundsOfPoints([]geometry.Point{p, q}).Pad(1)
	ts := []float64{0, 1}
	for _, n := range tree.Nodes() {
		if !segBounds.Intersects(n.Bounds()) {
			continue
		}
		points := n.Points
		for i, u := range points {
			v := points[(i+1)%len(points)]
			if t, ok := segmentCrossing(p, q, u, v); ok {
				ts = append(ts, t)
			}
		}
	}
	sort.Float64s(ts)

	var ivs []interval
	for i := 0; i+1 < len(ts); i++ {
		if ts[i+1]-ts[i] <= 0 {
			continue
		}
		mid := lerpPoint(p, q, (ts[i]+ts[i+1])/2)
		if !tree.TestPoint(mid) {
			continue
		}
		if n := len(ivs); n > 0 && ivs[n-1].end == ts[i] {
			ivs[n-1].end = ts[i+1]
		} else {
			ivs = append(ivs, interval{start: ts[i], end: ts[i+1]})
		}
	}
	return ivs
}

// segmentCrossing returns the parameter on (p,q) where it crosses (u,v).
// Collinear overlaps report no crossing; the midpoint parity tests resolve
// them.
func segmentCrossing(p, q, u, v geometry.Point) (float64, bool) {
	d1x, d1y := q.X-p.X, q.Y-p.Y
	d2x, d2y := v.X-u.X, v.Y-u.Y
	denom := d1x*d2y - d1y*d2x
	if math.Abs(denom) < 1e-12 {
		return 0, false
	}
	ex, ey := u.X-p.X, u.Y-p.Y
	t := (ex*d2y - ey*d2x) / denom
	s := (ex*d1y - ey*d1x) / denom
	if t < 0 || t > 1 || s < 0 || s > 1 {
		return 0, false
	}
	return t, true
}

// --- small geometry helpers ---

func legCouldIntersect(tree *geometry.PolygonTree, a, b geometry.ElevatedPoint, samples []geometry.Point) bool {
	pathBounds := geometry.BoundsOfPoints([]geometry.Point{a.XY(), b.XY()})
	return broadenedBounds(pathBounds, samples).Intersects(tree.Bounds())
}

// broadenedBounds offsets the path bounds by the footprint extents plus one
// pixel of slack.
func broadenedBounds(b geometry.Bounds, samples []geometry.Point) geometry.Bounds {
	sb := geometry.BoundsOfPoints(samples)
	if sb.Empty() {
		sb = geometry.Bounds{}
	}
	return geometry.Bounds{
		Min: geometry.Point{X: b.Min.X + sb.Min.X, Y: b.Min.Y + sb.Min.Y},
		Max: geometry.Point{X: b.Max.X + sb.Max.X, Y: b.Max.Y + sb.Max.Y},
	}.Pad(1)
}

func lerpPoint(a, b geometry.Point, t float64) geometry.Point {
	return geometry.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func lerpElevated(a, b geometry.ElevatedPoint, t float64) geometry.ElevatedPoint {
	return geometry.ElevatedPoint{
		X:         a.X + (b.X-a.X)*t,
		Y:         a.Y + (b.Y-a.Y)*t,
		Elevation: a.Elevation + (b.Elevation-a.Elevation)*t,
	}
}

// elevateOnLeg projects a 2D point onto the leg and interpolates its
// elevation from the projection parameter.
func elevateOnLeg(a, b geometry.ElevatedPoint, p geometry.Point) geometry.ElevatedPoint {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
		if t < 0 {
			t = 0
		} else if t > 1 {
			t = 1
		}
	}
	return geometry.ElevatedPoint{X: p.X, Y: p.Y, Elevation: a.Elevation + (b.Elevation-a.Elevation)*t}
}

// bresenhamPoints rasterizes the pixel line between two points.
func bresenhamPoints(a, b geometry.Point) []geometry.Point {
	x0, y0 := int(math.Round(a.X)), int(math.Round(a.Y))
	x1, y1 := int(math.Round(b.X)), int(math.Round(b.Y))
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	errAcc := dx + dy
	points := make([]geometry.Point, 0, dx-dy+1)
	for {
		points = append(points, geometry.Point{X: float64(x0), Y: float64(y0)})
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * errAcc
		if e2 >= dy {
			errAcc += dy
			x0 += sx
		}
		if e2 <= dx {
			errAcc += dx
			y0 += sy
		}
	}
	return points
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
