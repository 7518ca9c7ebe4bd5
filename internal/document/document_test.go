package document

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tabletop-core/internal/errs"
	"tabletop-core/internal/geometry"
	"tabletop-core/internal/grid"
	"tabletop-core/internal/schema"
)

func TestDecodeRegion(t *testing.T) {
	validator, err := schema.NewRegionValidator()
	require.NoError(t, err)

	raw := []byte(`{
		"id": "r1",
		"name": "courtyard",
		"elevation": {"bottom": 0, "top": 10},
		"shapes": [
			{"type": "rectangle", "x": 0, "y": 0, "width": 100, "height": 100},
			{"type": "circle", "hole": true, "x": 50, "y": 50, "radiusX": 20}
		],
		"behaviors": [{"id": "b1", "type": "echo", "events": ["tokenEnter"]}]
	}`)

	doc, err := DecodeRegion(raw, validator)
	require.NoError(t, err)
	assert.Equal(t, "r1", doc.ID)
	require.Len(t, doc.Shapes, 2)
	assert.True(t, doc.Shapes[1].Hole)
	require.Len(t, doc.Behaviors, 1)
	assert.Equal(t, []string{"tokenEnter"}, doc.Behaviors[0].Events)

	rng := doc.Elevation.Range()
	assert.Equal(t, 0.0, rng.Bottom)
	assert.Equal(t, 10.0, rng.Top)
}

func TestDecodeRegionRejectsMalformed(t *testing.T) {
	validator, err := schema.NewRegionValidator()
	require.NoError(t, err)

	cases := []struct {
		name string
		raw  string
	}{
		{"not JSON", `{{`},
		{"missing id", `{"shapes": []}`},
		{"missing shapes", `{"id": "r1"}`},
		{"unknown shape type", `{"id": "r1", "shapes": [{"type": "blob"}]}`},
		{"rectangle without dimensions", `{"id": "r1", "shapes": [{"type": "rectangle"}]}`},
		{"polygon without points", `{"id": "r1", "shapes": [{"type": "polygon"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRegion([]byte(tc.raw), validator)
			var cfgErr *errs.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "want ConfigurationError, got %v", err)
		})
	}
}

func TestElevationRangeOpenBounds(t *testing.T) {
	rng := Elevation{}.Range()
	assert.True(t, math.IsInf(rng.Bottom, -1))
	assert.True(t, math.IsInf(rng.Top, 1))

	bottom := -5.0
	rng = Elevation{Bottom: &bottom}.Range()
	assert.Equal(t, -5.0, rng.Bottom)
	assert.True(t, math.IsInf(rng.Top, 1))
}

func TestBuildRegion(t *testing.T) {
	doc := RegionDocument{
		ID:   "r1",
		Name: "courtyard",
		Shapes: []geometry.ShapeData{
			{Type: geometry.ShapeTypeRectangle, X: 0, Y: 0, Width: 100, Height: 100},
		},
	}
	r := doc.BuildRegion()
	inside, err := r.TestPoint(geometry.ElevatedPoint{X: 50, Y: 50, Elevation: 1000})
	require.NoError(t, err)
	assert.True(t, inside, "open elevation bounds admit any elevation")
}

func TestTokenSampleOffsets(t *testing.T) {
	tok := TokenDocument{ID: "tok1", X: 10, Y: 20, Elevation: 5}
	assert.Equal(t, []geometry.Point{{}}, tok.SampleOffsets())
	assert.Equal(t, geometry.ElevatedPoint{X: 10, Y: 20, Elevation: 5}, tok.Position())

	tok.Samples = []geometry.Point{{X: -1, Y: -1}, {X: 1, Y: 1}}
	assert.Len(t, tok.SampleOffsets(), 2)
}

func TestGridDocumentContext(t *testing.T) {
	cases := []struct {
		persisted string
		want      grid.Type
	}{
		{"square", grid.Square},
		{"hexOddR", grid.HexOddR},
		{"hexEvenR", grid.HexEvenR},
		{"hexOddQ", grid.HexOddQ},
		{"hexEvenQ", grid.HexEvenQ},
		{"", grid.Gridless},
		{"mystery", grid.Gridless},
	}
	for _, tc := range cases {
		c := GridDocument{Type: tc.persisted, Size: 100, Distance: 5}.Context()
		assert.Equal(t, tc.want, c.Type, "grid type %q", tc.persisted)
		assert.Equal(t, 100.0, c.Size)
	}
}
