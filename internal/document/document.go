// Package document defines the persisted document shapes of a scene: the
// scene itself, its regions with attached behaviors, and its tokens. These
// are the JSON objects exchanged with the store and with other session
// participants; internal/region holds the live geometry built from them.
package document

import (
	"encoding/json"
	"fmt"
	"math"

	"tabletop-core/internal/errs"
	"tabletop-core/internal/geometry"
	"tabletop-core/internal/grid"
	"tabletop-core/internal/region"
	"tabletop-core/internal/schema"
)

// Elevation — диапазон высот в документе. nil означает открытую границу.
type Elevation struct {
	Bottom *float64 `json:"bottom,omitempty"`
	Top    *float64 `json:"top,omitempty"`
}

// Range converts the persisted form to the engine range, mapping open
// bounds to infinities.
func (e Elevation) Range() region.ElevationRange {
	r := region.UnboundedElevation()
	if e.Bottom != nil {
		r.Bottom = *e.Bottom
	}
	if e.Top != nil {
		r.Top = *e.Top
	}
	return r
}

// Behavior is one handler attachment of a region.
type Behavior struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Disabled bool     `json:"disabled,omitempty"`
	Events   []string `json:"events,omitempty"`
}

// RegionDocument is the persisted region.
type RegionDocument struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Elevation Elevation            `json:"elevation"`
	Shapes    []geometry.ShapeData `json:"shapes"`
	Behaviors []Behavior           `json:"behaviors,omitempty"`
}

// TokenDocument is the scene position of a moving entity; Samples is its
// footprint relative to (X, Y).
type TokenDocument struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	Elevation float64          `json:"elevation"`
	Samples   []geometry.Point `json:"samples,omitempty"`
}

func (t TokenDocument) Position() geometry.ElevatedPoint {
	return geometry.ElevatedPoint{X: t.X, Y: t.Y, Elevation: t.Elevation}
}

// SampleOffsets returns the footprint probe offsets, defaulting to the
// token's own position.
func (t TokenDocument) SampleOffsets() []geometry.Point {
	if len(t.Samples) == 0 {
		return []geometry.Point{{}}
	}
	return t.Samples
}

// GridDocument is the persisted grid configuration of a scene.
type GridDocument struct {
	Type     string  `json:"type"`
	Size     float64 `json:"size"`
	Distance float64 `json:"distance"`
}

// Context maps the persisted grid to the engine context.
func (g GridDocument) Context() grid.Context {
	c := grid.Context{Size: g.Size, Distance: g.Distance}
	switch g.Type {
	case "square":
		c.Type = grid.Square
	case "hexOddR":
		c.Type = grid.HexOddR
	case "hexEvenR":
		c.Type = grid.HexEvenR
	case "hexOddQ":
		c.Type = grid.HexOddQ
	case "hexEvenQ":
		c.Type = grid.HexEvenQ
	default:
		c.Type = grid.Gridless
	}
	return c
}

// SceneDocument aggregates a scene's grid, regions and tokens.
type SceneDocument struct {
	ID      string           `json:"id"`
	Name    string           `json:"name"`
	Grid    GridDocument     `json:"grid"`
	Regions []RegionDocument `json:"regions,omitempty"`
	Tokens  []TokenDocument  `json:"tokens,omitempty"`
}

// DecodeRegion validates raw JSON against the region schema and unmarshals
// it. Schema violations surface as ConfigurationError, the same failure mode
// the shape resolver uses, so a malformed document is rejected before any
// geometry is built.
func DecodeRegion(raw []byte, validator *schema.Validator) (*RegionDocument, error) {
	if validator != nil {
		if err := validator.ValidateBytes(raw); err != nil {
			return nil, &errs.ConfigurationError{Reason: err.Error()}
		}
	}
	var doc RegionDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &errs.ConfigurationError{Reason: fmt.Sprintf("invalid region JSON: %v", err)}
	}
	return &doc, nil
}

// BuildRegion constructs the live region aggregate from the document.
func (d *RegionDocument) BuildRegion() *region.Region {
	elev := d.Elevation.Range()
	if math.IsInf(elev.Bottom, 1) || math.IsInf(elev.Top, -1) {
		elev = region.UnboundedElevation()
	}
	return region.New(d.ID, d.Name, d.Shapes, elev)
}
