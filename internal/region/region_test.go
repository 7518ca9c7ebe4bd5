package region

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-core/internal/errs"
	"tabletop-core/internal/geometry"
)

func squareShapes(x, y, side float64) []geometry.ShapeData {
	return []geometry.ShapeData{
		{Type: geometry.ShapeTypeRectangle, X: x, Y: y, Width: side, Height: side},
	}
}

func TestRegionTestPoint(t *testing.T) {
	r := New("r1", "courtyard", squareShapes(0, 0, 100), UnboundedElevation())

	inside, err := r.TestPoint(geometry.ElevatedPoint{X: 50, Y: 50})
	require.NoError(t, err)
	assert.True(t, inside)

	inside, err = r.TestPoint(geometry.ElevatedPoint{X: 150, Y: 50})
	require.NoError(t, err)
	assert.False(t, inside)
}

func TestRegionElevationBand(t *testing.T) {
	r := New("r1", "mezzanine", squareShapes(0, 0, 100), ElevationRange{Bottom: 0, Top: 10})

	for _, tc := range []struct {
		elevation float64
		inside    bool
	}{
		{5, true},
		{0, true},  // границы включительно
		{10, true},
		{-1, false},
		{11, false},
	} {
		inside, err := r.TestPoint(geometry.ElevatedPoint{X: 50, Y: 50, Elevation: tc.elevation})
		require.NoError(t, err)
		assert.Equal(t, tc.inside, inside, "elevation %g", tc.elevation)
	}
}

func TestRegionUnboundedElevation(t *testing.T) {
	r := New("r1", "shaft", squareShapes(0, 0, 100), UnboundedElevation())
	inside, err := r.TestPoint(geometry.ElevatedPoint{X: 50, Y: 50, Elevation: math.Inf(1)})
	require.NoError(t, err)
	assert.True(t, inside)
}

// Дерево пересчитывается лениво и ровно один раз на версию геометрии.
func TestRegionTreeCache(t *testing.T) {
	r := New("r1", "cache", squareShapes(0, 0, 100), UnboundedElevation())

	first, err := r.Tree()
	require.NoError(t, err)
	second, err := r.Tree()
	require.NoError(t, err)
	assert.Same(t, first, second)

	r.Update(squareShapes(200, 200, 50), UnboundedElevation())
	third, err := r.Tree()
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	inside, err := r.TestPoint(geometry.ElevatedPoint{X: 50, Y: 50})
	require.NoError(t, err)
	assert.False(t, inside, "old geometry must not answer after update")

	inside, err = r.TestPoint(geometry.ElevatedPoint{X: 225, Y: 225})
	require.NoError(t, err)
	assert.True(t, inside)
}

func TestRegionTreeErrorCached(t *testing.T) {
	bad := []geometry.ShapeData{{Type: "blob"}}
	r := New("r1", "broken", bad, UnboundedElevation())

	_, err := r.Tree()
	var cfgErr *errs.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	_, again := r.Tree()
	assert.Equal(t, err, again)

	// Update чинит регион.
	r.Update(squareShapes(0, 0, 10), UnboundedElevation())
	_, err = r.Tree()
	assert.NoError(t, err)
}

func TestRegionBounds(t *testing.T) {
	r := New("r1", "bounds", squareShapes(10, 20, 30), UnboundedElevation())
	b, err := r.Bounds()
	require.NoError(t, err)
	assert.InDelta(t, 10, b.Min.X, 1e-9)
	assert.InDelta(t, 20, b.Min.Y, 1e-9)
	assert.InDelta(t, 40, b.Max.X, 1e-9)
	assert.InDelta(t, 50, b.Max.Y, 1e-9)
}

func TestSampleInteriorPoint(t *testing.T) {
	r := New("r1", "spawn", squareShapes(0, 0, 100), UnboundedElevation())
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		p, err := r.SampleInteriorPoint("goblin", rng, 0, nil)
		require.NoError(t, err)
		inside, err := r.TestPoint(geometry.ElevatedPoint{X: p.X, Y: p.Y})
		require.NoError(t, err)
		assert.True(t, inside)
	}
}

func TestSampleInteriorPointSnapRejection(t *testing.T) {
	r := New("r1", "spawn", squareShapes(0, 0, 100), UnboundedElevation())
	rng := rand.New(rand.NewSource(7))

	// Снап, выталкивающий любую точку из региона, исчерпывает попытки.
	_, err := r.SampleInteriorPoint("goblin", rng, 5, func(geometry.Point) geometry.Point {
		return geometry.Point{X: -1000, Y: -1000}
	})
	var placeErr *errs.PlacementError
	require.True(t, errors.As(err, &placeErr))
	assert.Equal(t, 5, placeErr.Attempts)
	assert.Equal(t, "goblin", placeErr.Entity)
}
