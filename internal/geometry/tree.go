package geometry

import (
	"math"
	"sort"

	"github.com/ctessum/polyclip-go"

	"tabletop-core/internal/errs"
)

// TreeNode is one boundary component of the combined region geometry: an
// outer contour plus its direct children of the opposite polarity. The tree
// alternates fill/hole at every depth.
type TreeNode struct {
	Points   []Point
	Hole     bool
	Children []*TreeNode

	bounds      Bounds
	clipperPath polyclip.Contour
}

// Bounds returns the cached bounding rectangle of this contour.
func (n *TreeNode) Bounds() Bounds { return n.bounds }

// ClipperPath returns the cached fixed-point contour.
func (n *TreeNode) ClipperPath() polyclip.Contour { return n.clipperPath }

// PolygonTree is the combined region geometry with its derived read-only
// views. All views are computed once per tree; a tree is immutable after
// construction.
type PolygonTree struct {
	Roots []*TreeNode

	nodes  []*TreeNode // flattened, declaration order of contours
	bounds Bounds

	triangles []Triangle
	triOnce   bool
}

func emptyTree() *PolygonTree {
	return &PolygonTree{bounds: EmptyBounds()}
}

// Nodes returns every node of the tree in flattened order.
func (t *PolygonTree) Nodes() []*TreeNode { return t.nodes }

// Bounds returns the union of all top-level contour bounds.
func (t *PolygonTree) Bounds() Bounds { return t.bounds }

// ClipperPaths returns the fixed-point contours of every node. The even-odd
// rule over this set is equivalent to the fill/hole tree test.
func (t *PolygonTree) ClipperPaths() polyclip.Polygon {
	paths := make(polyclip.Polygon, 0, len(t.nodes))
	for _, n := range t.nodes {
		paths = append(paths, n.clipperPath)
	}
	return paths
}

// buildTree nests the clipper output contours by containment depth: a
// contour at even depth is a fill boundary, at odd depth a hole in its
// parent. The clipper itself does not report nesting, so each contour is
// classified by testing its own vertices against every other contour; a
// vertex of a ring can never lie strictly inside one of its descendants,
// which a derived interior point can.
func buildTree(paths polyclip.Polygon) (*PolygonTree, error) {
	type contour struct {
		node   *TreeNode
		area   float64
		depth  int
		parent int
	}

	contours := make([]*contour, 0, len(paths))
	for _, path := range paths {
		if len(path) < 3 {
			continue
		}
		points := unscalePoints(path)
		node := &TreeNode{
			Points:      points,
			bounds:      BoundsOfPoints(points),
			clipperPath: path,
		}
		if _, ok := interiorPoint(points); !ok {
			// Zero-area sliver from the clipper: keep it out of the tree.
			continue
		}
		contours = append(contours, &contour{
			node:   node,
			area:   math.Abs(signedArea(points)),
			parent: -1,
		})
	}

	for i, c := range contours {
		for j, other := range contours {
			if i == j || !boundsWithin(c.node.bounds, other.node.bounds) {
				continue
			}
			if ringContains(other.node.Points, c.node.Points) {
				c.depth++
			}
		}
		c.node.Hole = c.depth%2 == 1
	}

	// Parent of a contour: the smallest contour one level up that contains
	// it. Sorting by area makes the choice deterministic.
	order := make([]int, len(contours))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return contours[order[a]].area < contours[order[b]].area })

	tree := emptyTree()
	for _, i := range order {
		c := contours[i]
		if c.depth == 0 {
			continue
		}
		for _, j := range order {
			other := contours[j]
			if other.depth != c.depth-1 || other.area < c.area {
				continue
			}
			if boundsWithin(c.node.bounds, other.node.bounds) && ringContains(other.node.Points, c.node.Points) {
				c.parent = j
				break
			}
		}
		if c.parent < 0 {
			return nil, &errs.GeometryError{Reason: "nested contour without a parent"}
		}
	}

	for _, c := range contours {
		tree.nodes = append(tree.nodes, c.node)
		if c.parent < 0 {
			if c.node.Hole {
				return nil, &errs.GeometryError{Reason: "hole contour at tree root"}
			}
			tree.Roots = append(tree.Roots, c.node)
			tree.bounds = tree.bounds.Union(c.node.bounds)
		} else {
			parent := contours[c.parent].node
			if parent.Hole == c.node.Hole {
				return nil, &errs.GeometryError{Reason: "child contour with same polarity as parent"}
			}
			parent.Children = append(parent.Children, c.node)
		}
	}
	return tree, nil
}

func signedArea(points []Point) float64 {
	area := 0.0
	for i, p := range points {
		q := points[(i+1)%len(points)]
		area += p.X*q.Y - q.X*p.Y
	}
	return area / 2
}

// ringContains reports whether outer strictly contains inner. Clipper output
// rings never cross, so any vertex of inner that is off outer's boundary
// decides containment for the whole ring; coincident rings count as not
// nested.
func ringContains(outer, inner []Point) bool {
	for _, v := range inner {
		if pointOnRing(v, outer) {
			continue
		}
		return pointInRing(v, outer)
	}
	return false
}

// pointOnRing: точка лежит на одном из рёбер кольца.
func pointOnRing(p Point, ring []Point) bool {
	const eps = 1e-9
	for i, a := range ring {
		b := ring[(i+1)%len(ring)]
		if p.X < math.Min(a.X, b.X)-eps || p.X > math.Max(a.X, b.X)+eps ||
			p.Y < math.Min(a.Y, b.Y)-eps || p.Y > math.Max(a.Y, b.Y)+eps {
			continue
		}
		cross := (b.X-a.X)*(p.Y-a.Y) - (b.Y-a.Y)*(p.X-a.X)
		if math.Abs(cross) <= eps {
			return true
		}
	}
	return false
}

// boundsWithin: containment of non-crossing rings implies containment of
// their bounds, so this is a cheap prefilter for ringContains.
func boundsWithin(inner, outer Bounds) bool {
	return outer.Min.X <= inner.Min.X && outer.Min.Y <= inner.Min.Y &&
		inner.Max.X <= outer.Max.X && inner.Max.Y <= outer.Max.Y
}

// interiorPoint finds a point strictly inside the ring by cutting it with a
// horizontal scanline through the middle of its bounds and taking the
// midpoint of the widest covered span.
func interiorPoint(points []Point) (Point, bool) {
	if len(points) < 3 {
		return Point{}, false
	}
	b := BoundsOfPoints(points)
	y := (b.Min.Y + b.Max.Y) / 2
	var xs []float64
	for i, p := range points {
		q := points[(i+1)%len(points)]
		if (p.Y > y) == (q.Y > y) {
			continue
		}
		xs = append(xs, p.X+(y-p.Y)/(q.Y-p.Y)*(q.X-p.X))
	}
	if len(xs) < 2 {
		return Point{}, false
	}
	sort.Float64s(xs)
	best := Point{}
	bestWidth := 0.0
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > bestWidth {
			bestWidth = w
			best = Point{X: (xs[i] + xs[i+1]) / 2, Y: y}
		}
	}
	if bestWidth <= 0 {
		return Point{}, false
	}
	return best, true
}
