package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCombine(t *testing.T, shapes []ShapeData) *PolygonTree {
	t.Helper()
	resolved, err := ResolveShapes(shapes)
	require.NoError(t, err)
	tree, err := Combine(resolved)
	require.NoError(t, err)
	return tree
}

func TestCombineEmpty(t *testing.T) {
	tree, err := Combine(nil)
	require.NoError(t, err)
	assert.Empty(t, tree.Roots)
	assert.True(t, tree.Bounds().Empty())
	assert.False(t, tree.TestPoint(Point{X: 0, Y: 0}))
}

func TestCombineSingleShape(t *testing.T) {
	tree := mustCombine(t, []ShapeData{
		{Type: ShapeTypeRectangle, X: 0, Y: 0, Width: 100, Height: 100},
	})
	require.Len(t, tree.Roots, 1)
	assert.Empty(t, tree.Roots[0].Children)
	assert.True(t, tree.TestPoint(Point{X: 50, Y: 50}))
	assert.False(t, tree.TestPoint(Point{X: 150, Y: 50}))
}

func TestCombineRectangleWithCircleHole(t *testing.T) {
	tree := mustCombine(t, []ShapeData{
		{Type: ShapeTypeRectangle, X: 0, Y: 0, Width: 100, Height: 100},
		{Type: ShapeTypeCircle, Hole: true, X: 50, Y: 50, RadiusX: 20},
	})
	require.Len(t, tree.Roots, 1)
	require.Len(t, tree.Roots[0].Children, 1)
	assert.True(t, tree.Roots[0].Children[0].Hole)

	assert.False(t, tree.TestPoint(Point{X: 50, Y: 50}), "hole center must be outside")
	assert.True(t, tree.TestPoint(Point{X: 5, Y: 5}), "rim must be inside")
	assert.True(t, tree.TestPoint(Point{X: 50, Y: 75}), "just past the hole must be inside")
}

// Дыра по центру заливки: середина bounds внешнего контура попадает в дыру,
// классификация вложенности от выбора пробной точки зависеть не должна.
func TestCombineCenteredRectangularHole(t *testing.T) {
	tree := mustCombine(t, []ShapeData{
		{Type: ShapeTypeRectangle, X: 0, Y: 0, Width: 100, Height: 100},
		{Type: ShapeTypeRectangle, Hole: true, X: 25, Y: 25, Width: 50, Height: 50},
	})
	require.Len(t, tree.Roots, 1)
	root := tree.Roots[0]
	assert.False(t, root.Hole)
	require.Len(t, root.Children, 1)
	assert.True(t, root.Children[0].Hole)

	assert.False(t, tree.TestPoint(Point{X: 50, Y: 50}), "hole center must be outside")
	assert.True(t, tree.TestPoint(Point{X: 10, Y: 50}), "rim must be inside")
}

// Порядок объявления значим: дыра вычитается только из уже добавленной
// площади, последующая заливка может перекрыть дыру обратно.
func TestCombineBatchOrdering(t *testing.T) {
	base := ShapeData{Type: ShapeTypeRectangle, X: 0, Y: 0, Width: 100, Height: 100}
	hole := ShapeData{Type: ShapeTypeRectangle, Hole: true, X: 25, Y: 25, Width: 50, Height: 50}
	patch := ShapeData{Type: ShapeTypeRectangle, X: 40, Y: 40, Width: 10, Height: 10}

	// (base − hole) ∪ patch: заплатка возвращает центр.
	treePatched := mustCombine(t, []ShapeData{base, hole, patch})
	assert.True(t, treePatched.TestPoint(Point{X: 45, Y: 45}), "patch area must be inside")
	assert.False(t, treePatched.TestPoint(Point{X: 30, Y: 30}), "unpatched hole area must be outside")
	assert.True(t, treePatched.TestPoint(Point{X: 10, Y: 10}))

	// (base ∪ patch) − hole: та же геометрия, но дыра объявлена последней и
	// вырезает заплатку.
	treeCut := mustCombine(t, []ShapeData{base, patch, hole})
	assert.False(t, treeCut.TestPoint(Point{X: 45, Y: 45}), "hole declared last must cut the patch")
	assert.True(t, treeCut.TestPoint(Point{X: 10, Y: 10}))
}

func TestCombineLeadingHoleSkipped(t *testing.T) {
	tree := mustCombine(t, []ShapeData{
		{Type: ShapeTypeRectangle, Hole: true, X: 0, Y: 0, Width: 50, Height: 50},
		{Type: ShapeTypeRectangle, X: 0, Y: 0, Width: 100, Height: 100},
	})
	// Дыре в начале списка нечего вычитать; остаётся только заливка.
	assert.True(t, tree.TestPoint(Point{X: 25, Y: 25}))
	assert.True(t, tree.TestPoint(Point{X: 75, Y: 75}))
}

func TestCombineOnlyHoles(t *testing.T) {
	tree := mustCombine(t, []ShapeData{
		{Type: ShapeTypeRectangle, Hole: true, X: 0, Y: 0, Width: 50, Height: 50},
	})
	assert.Empty(t, tree.Roots)
	assert.False(t, tree.TestPoint(Point{X: 25, Y: 25}))
}

func TestCombineDisjointShapes(t *testing.T) {
	tree := mustCombine(t, []ShapeData{
		{Type: ShapeTypeRectangle, X: 0, Y: 0, Width: 10, Height: 10},
		{Type: ShapeTypeRectangle, X: 100, Y: 100, Width: 10, Height: 10},
	})
	assert.Len(t, tree.Roots, 2)
	assert.True(t, tree.TestPoint(Point{X: 5, Y: 5}))
	assert.True(t, tree.TestPoint(Point{X: 105, Y: 105}))
	assert.False(t, tree.TestPoint(Point{X: 50, Y: 50}))

	b := tree.Bounds()
	assert.InDelta(t, 0, b.Min.X, 1e-9)
	assert.InDelta(t, 110, b.Max.X, 1e-9)
}

// Остров: заливка внутри дыры даёт третий уровень дерева с чередованием
// полярности.
func TestCombineIslandNesting(t *testing.T) {
	tree := mustCombine(t, []ShapeData{
		{Type: ShapeTypeRectangle, X: 0, Y: 0, Width: 100, Height: 100},
		{Type: ShapeTypeRectangle, Hole: true, X: 20, Y: 20, Width: 60, Height: 60},
		{Type: ShapeTypeRectangle, X: 40, Y: 40, Width: 20, Height: 20},
	})
	require.Len(t, tree.Roots, 1)
	root := tree.Roots[0]
	require.Len(t, root.Children, 1)
	hole := root.Children[0]
	assert.True(t, hole.Hole)
	require.Len(t, hole.Children, 1)
	island := hole.Children[0]
	assert.False(t, island.Hole)

	assert.True(t, tree.TestPoint(Point{X: 50, Y: 50}), "island interior")
	assert.False(t, tree.TestPoint(Point{X: 25, Y: 25}), "ring of the hole")
	assert.True(t, tree.TestPoint(Point{X: 10, Y: 10}), "outer rim")
}

func TestCombineOverlappingFills(t *testing.T) {
	tree := mustCombine(t, []ShapeData{
		{Type: ShapeTypeRectangle, X: 0, Y: 0, Width: 60, Height: 60},
		{Type: ShapeTypeRectangle, X: 40, Y: 40, Width: 60, Height: 60},
	})
	require.Len(t, tree.Roots, 1)
	assert.True(t, tree.TestPoint(Point{X: 50, Y: 50}), "overlap area")
	assert.True(t, tree.TestPoint(Point{X: 10, Y: 10}))
	assert.True(t, tree.TestPoint(Point{X: 90, Y: 90}))
	assert.False(t, tree.TestPoint(Point{X: 10, Y: 90}))
}
