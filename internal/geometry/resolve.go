package geometry

import (
	"fmt"
	"math"

	"github.com/ctessum/polyclip-go"

	"tabletop-core/internal/errs"
)

// ResolvedShape is one declarative shape converted to a clipper contour.
// Coordinates are rounded to integers at ClipperScale, so every boolean
// operation downstream runs in the fixed-point space.
type ResolvedShape struct {
	Hole    bool
	contour polyclip.Contour
	bounds  Bounds
}

// Bounds returns the unscaled bounding rectangle of the shape.
func (s *ResolvedShape) Bounds() Bounds { return s.bounds }

// ClipperContour returns the scaled fixed-point contour.
func (s *ResolvedShape) ClipperContour() polyclip.Contour { return s.contour }

// ResolveShapes converts shape descriptors to resolved shapes, preserving
// declaration order. A malformed or unsupported descriptor fails the whole
// resolution with a ConfigurationError; shapes are never silently dropped.
func ResolveShapes(shapes []ShapeData) ([]*ResolvedShape, error) {
	resolved := make([]*ResolvedShape, 0, len(shapes))
	for i, data := range shapes {
		points, err := shapePoints(data)
		if err != nil {
			return nil, &errs.ConfigurationError{Reason: fmt.Sprintf("shape %d: %v", i, err)}
		}
		resolved = append(resolved, &ResolvedShape{
			Hole:    data.Hole,
			contour: scaleContour(points),
			bounds:  BoundsOfPoints(points),
		})
	}
	return resolved, nil
}

func shapePoints(data ShapeData) ([]Point, error) {
	switch data.Type {
	case ShapeTypePolygon:
		if len(data.Points) < 6 {
			return nil, fmt.Errorf("polygon needs at least 3 points, got %d values", len(data.Points))
		}
		if len(data.Points)%2 != 0 {
			return nil, fmt.Errorf("polygon points must be x,y pairs, got %d values", len(data.Points))
		}
		points := make([]Point, 0, len(data.Points)/2)
		for i := 0; i < len(data.Points); i += 2 {
			points = append(points, Point{X: data.Points[i], Y: data.Points[i+1]})
		}
		return points, nil

	case ShapeTypeRectangle:
		if data.Width <= 0 || data.Height <= 0 {
			return nil, fmt.Errorf("rectangle needs positive width and height, got %gx%g", data.Width, data.Height)
		}
		cx := data.X + data.Width/2
		cy := data.Y + data.Height/2
		corners := []Point{
			{X: data.X, Y: data.Y},
			{X: data.X + data.Width, Y: data.Y},
			{X: data.X + data.Width, Y: data.Y + data.Height},
			{X: data.X, Y: data.Y + data.Height},
		}
		return rotatePoints(corners, Point{X: cx, Y: cy}, data.Rotation), nil

	case ShapeTypeCircle:
		if data.RadiusX <= 0 {
			return nil, fmt.Errorf("circle needs a positive radius, got %g", data.RadiusX)
		}
		return ellipsePoints(Point{X: data.X, Y: data.Y}, data.RadiusX, data.RadiusX, 0), nil

	case ShapeTypeEllipse:
		if data.RadiusX <= 0 || data.RadiusY <= 0 {
			return nil, fmt.Errorf("ellipse needs positive radii, got %gx%g", data.RadiusX, data.RadiusY)
		}
		return ellipsePoints(Point{X: data.X, Y: data.Y}, data.RadiusX, data.RadiusY, data.Rotation), nil

	default:
		return nil, fmt.Errorf("unsupported shape type %q", data.Type)
	}
}

// ellipsePoints approximates an ellipse with a vertex density proportional
// to its larger radius, clamped so small circles stay polygonal enough for
// containment tests and huge ones stay cheap to clip.
func ellipsePoints(center Point, rx, ry, rotation float64) []Point {
	n := int(math.Ceil(math.Pi * math.Max(rx, ry) / 8))
	if n < 16 {
		n = 16
	}
	if n > 128 {
		n = 128
	}
	points := make([]Point, 0, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		points = append(points, Point{
			X: center.X + rx*math.Cos(a),
			Y: center.Y + ry*math.Sin(a),
		})
	}
	if rotation != 0 {
		return rotatePoints(points, center, rotation)
	}
	return points
}

func rotatePoints(points []Point, center Point, degrees float64) []Point {
	if degrees == 0 {
		return points
	}
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	rotated := make([]Point, len(points))
	for i, p := range points {
		dx := p.X - center.X
		dy := p.Y - center.Y
		rotated[i] = Point{
			X: center.X + dx*cos - dy*sin,
			Y: center.Y + dx*sin + dy*cos,
		}
	}
	return rotated
}

// scaleContour snaps points to the fixed-point clipper space.
func scaleContour(points []Point) polyclip.Contour {
	contour := make(polyclip.Contour, len(points))
	for i, p := range points {
		contour[i] = polyclip.Point{
			X: math.Round(p.X * ClipperScale),
			Y: math.Round(p.Y * ClipperScale),
		}
	}
	return contour
}

// unscalePoints converts a clipper contour back to scene coordinates.
func unscalePoints(contour polyclip.Contour) []Point {
	points := make([]Point, len(contour))
	for i, p := range contour {
		points[i] = Point{X: p.X / ClipperScale, Y: p.Y / ClipperScale}
	}
	return points
}
