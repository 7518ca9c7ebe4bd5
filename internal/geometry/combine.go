package geometry

import (
	"github.com/ctessum/polyclip-go"

	"tabletop-core/internal/errs"
)

// shapeBatch is a maximal run of consecutive shapes with the same polarity.
type shapeBatch struct {
	hole   bool
	shapes []*ResolvedShape
}

// partitionBatches splits the ordered shape list into polarity runs.
// Leading hole shapes have nothing to subtract from and are skipped.
func partitionBatches(shapes []*ResolvedShape) []shapeBatch {
	var batches []shapeBatch
	for _, s := range shapes {
		if len(batches) == 0 {
			if s.Hole {
				continue
			}
			batches = append(batches, shapeBatch{hole: false})
		} else if last := &batches[len(batches)-1]; last.hole != s.Hole {
			batches = append(batches, shapeBatch{hole: s.Hole})
		}
		last := &batches[len(batches)-1]
		last.shapes = append(last.shapes, s)
	}
	return batches
}

// Combine unions non-hole shapes and subtracts hole shapes in declaration
// order batches and builds the polygon tree. Strict batch order gives the
// interleaved "add area, cut a hole, add more area" authoring semantics
// rather than one global union-then-subtract. Coincident and zero-area
// shapes go through the clipper unmodified; the non-zero fill rule applies.
func Combine(shapes []*ResolvedShape) (*PolygonTree, error) {
	batches := partitionBatches(shapes)
	if len(batches) == 0 {
		return emptyTree(), nil
	}

	// Single fill batch of one shape: its contour already is the tree.
	if len(batches) == 1 && len(batches[0].shapes) == 1 {
		return buildTree(polyclip.Polygon{batches[0].shapes[0].contour})
	}

	var acc polyclip.Polygon
	for i, batch := range batches {
		if batch.hole && len(acc) == 0 {
			// Subtracting from nothing cannot happen: the first batch is
			// always a fill batch.
			return nil, &errs.GeometryError{Reason: "hole batch with empty accumulator"}
		}
		for _, s := range batch.shapes {
			operand := polyclip.Polygon{s.contour}
			switch {
			case !batch.hole && i == 0 && len(acc) == 0:
				acc = operand
			case batch.hole:
				acc = acc.Construct(polyclip.DIFFERENCE, operand)
			default:
				acc = acc.Construct(polyclip.UNION, operand)
			}
		}
	}
	return buildTree(acc)
}
