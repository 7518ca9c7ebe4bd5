package geometry

// ShapeType identifies a declarative region shape kind.
type ShapeType string

const (
	ShapeTypePolygon   ShapeType = "polygon"
	ShapeTypeRectangle ShapeType = "rectangle"
	ShapeTypeCircle    ShapeType = "circle"
	ShapeTypeEllipse   ShapeType = "ellipse"
)

// ShapeData is the persisted form of one region shape, as stored in the
// region document's shapes array. Field usage depends on Type:
//
//	polygon:   Points (flat x,y pairs)
//	rectangle: X, Y, Width, Height, Rotation
//	circle:    X, Y, RadiusX (center and radius)
//	ellipse:   X, Y, RadiusX, RadiusY, Rotation
//
// Hole marks the shape as subtractive. Declaration order matters: shapes are
// combined in maximal runs of equal polarity (see Combine).
type ShapeData struct {
	Type     ShapeType `json:"type"`
	Hole     bool      `json:"hole,omitempty"`
	Points   []float64 `json:"points,omitempty"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	Width    float64   `json:"width,omitempty"`
	Height   float64   `json:"height,omitempty"`
	RadiusX  float64   `json:"radiusX,omitempty"`
	RadiusY  float64   `json:"radiusY,omitempty"`
	Rotation float64   `json:"rotation,omitempty"` // degrees
}
