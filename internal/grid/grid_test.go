package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGridless(t *testing.T) {
	assert.True(t, Context{}.Gridless())
	assert.True(t, Context{Type: Square}.Gridless(), "square grid with no size is gridless")
	assert.False(t, Context{Type: Square, Size: 100}.Gridless())
	assert.True(t, Context{Type: Gridless, Size: 100}.Gridless())
}

func TestBoundaryTolerance(t *testing.T) {
	assert.Equal(t, 0.0, Context{}.BoundaryTolerance())
	assert.Equal(t, 1.0, Context{Type: Square, Size: 100}.BoundaryTolerance())
	assert.Equal(t, 1.0, Context{Type: HexOddR, Size: 50}.BoundaryTolerance())
}

func TestVerticalEpsilon(t *testing.T) {
	g := Context{Type: Square, Size: 100, Distance: 5}
	assert.Equal(t, 0.05, g.VerticalEpsilon(40))
	// Отступ не превышает фактическую дельту высоты.
	assert.Equal(t, 0.01, g.VerticalEpsilon(0.01))
	assert.Equal(t, 0.01, g.VerticalEpsilon(-0.01))
	// Без сетки отступ — один пиксель, с тем же ограничением по дельте.
	assert.Equal(t, 1.0, Context{}.VerticalEpsilon(40))
	assert.Equal(t, 0.5, Context{}.VerticalEpsilon(0.5))
}

func TestSnapToPixel(t *testing.T) {
	assert.Equal(t, 3.0, SnapToPixel(2.5))
	assert.Equal(t, 2.0, SnapToPixel(2.4))
	assert.Equal(t, -2.0, SnapToPixel(-2.4))
}
