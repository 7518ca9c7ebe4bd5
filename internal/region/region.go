// Package region implements the Region aggregate: a set of declarative
// shapes plus an elevation band, a lazily computed geometry cache, and the
// movement-path segmentation engine built on top of it.
package region

import (
	"math"
	"math/rand"

	"tabletop-core/internal/errs"
	"tabletop-core/internal/geometry"
)

// ElevationRange — диапазон высот региона. Любая из границ может быть
// бесконечной (регион без потолка или без дна).
type ElevationRange struct {
	Bottom float64
	Top    float64
}

// UnboundedElevation returns a range open on both sides.
func UnboundedElevation() ElevationRange {
	return ElevationRange{Bottom: math.Inf(-1), Top: math.Inf(1)}
}

func (r ElevationRange) Contains(elevation float64) bool {
	return elevation >= r.Bottom && elevation <= r.Top
}

// Region owns its derived geometry exclusively: the polygon tree,
// triangulation and bounds handed out are read-only snapshots, invalidated
// wholesale by the next Update.
type Region struct {
	id        string
	name      string
	shapes    []geometry.ShapeData
	elevation ElevationRange

	// Derived geometry is memoized against a single version counter bumped
	// by every geometry-affecting mutation, so all cached fields invalidate
	// together and a reader can never observe a partially built tree.
	version      uint64
	cacheVersion uint64
	tree         *geometry.PolygonTree
	cacheErr     error
}

func New(id, name string, shapes []geometry.ShapeData, elevation ElevationRange) *Region {
	return &Region{
		id:        id,
		name:      name,
		shapes:    shapes,
		elevation: elevation,
		version:   1,
	}
}

func (r *Region) ID() string   { return r.id }
func (r *Region) Name() string { return r.name }

func (r *Region) Elevation() ElevationRange    { return r.elevation }
func (r *Region) Shapes() []geometry.ShapeData { return r.shapes }

// Update replaces shapes and elevation and invalidates all derived geometry
// at once. References handed out before the update stay valid as snapshots.
func (r *Region) Update(shapes []geometry.ShapeData, elevation ElevationRange) {
	r.shapes = shapes
	r.elevation = elevation
	r.version++
}

// Tree returns the combined polygon tree, computing it on first access
// after construction or invalidation. The new tree is published only after
// it is fully formed.
func (r *Region) Tree() (*geometry.PolygonTree, error) {
	if r.cacheVersion == r.version {
		return r.tree, r.cacheErr
	}
	resolved, err := geometry.ResolveShapes(r.shapes)
	var tree *geometry.PolygonTree
	if err == nil {
		tree, err = geometry.Combine(resolved)
	}
	r.tree = tree
	r.cacheErr = err
	r.cacheVersion = r.version
	return r.tree, r.cacheErr
}

// Bounds returns the union of all top-level boundary rectangles.
func (r *Region) Bounds() (geometry.Bounds, error) {
	tree, err := r.Tree()
	if err != nil {
		return geometry.Bounds{}, err
	}
	return tree.Bounds(), nil
}

// TestPoint reports whether the elevated point is inside the region: inside
// the 2D geometry and within the elevation band.
func (r *Region) TestPoint(p geometry.ElevatedPoint) (bool, error) {
	if !r.elevation.Contains(p.Elevation) {
		return false, nil
	}
	tree, err := r.Tree()
	if err != nil {
		return false, err
	}
	return tree.TestPoint(p.XY()), nil
}

// SampleInteriorPoint draws random interior points until one survives the
// optional snap function, with a bounded attempt count. entity names whoever
// is being placed; it only appears in the failure message.
func (r *Region) SampleInteriorPoint(entity string, rng *rand.Rand, attempts int, snap func(geometry.Point) geometry.Point) (geometry.Point, error) {
	tree, err := r.Tree()
	if err != nil {
		return geometry.Point{}, err
	}
	triangles := tree.Triangulation()
	if attempts <= 0 {
		attempts = 20
	}
	for i := 0; i < attempts; i++ {
		p, err := geometry.SamplePoint(triangles, rng)
		if err != nil {
			return geometry.Point{}, err
		}
		if snap != nil {
			p = snap(p)
		}
		if tree.TestPoint(p) {
			return p, nil
		}
	}
	return geometry.Point{}, &errs.PlacementError{Region: r.name, Entity: entity, Attempts: attempts}
}
