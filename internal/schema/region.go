package schema

// RegionSchema constrains the persisted region document: every shape must
// carry a known type with the fields that type requires. A document failing
// this schema never reaches the shape resolver.
const RegionSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "shapes"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "name": {"type": "string"},
    "elevation": {
      "type": "object",
      "properties": {
        "bottom": {"type": ["number", "null"]},
        "top": {"type": ["number", "null"]}
      }
    },
    "shapes": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["type"],
        "properties": {
          "type": {"enum": ["polygon", "rectangle", "circle", "ellipse"]},
          "hole": {"type": "boolean"},
          "points": {"type": "array", "items": {"type": "number"}},
          "x": {"type": "number"},
          "y": {"type": "number"},
          "width": {"type": "number"},
          "height": {"type": "number"},
          "radiusX": {"type": "number"},
          "radiusY": {"type": "number"},
          "rotation": {"type": "number"}
        },
        "allOf": [
          {
            "if": {"properties": {"type": {"const": "polygon"}}},
            "then": {"required": ["points"]}
          },
          {
            "if": {"properties": {"type": {"const": "rectangle"}}},
            "then": {"required": ["x", "y", "width", "height"]}
          },
          {
            "if": {"properties": {"type": {"const": "circle"}}},
            "then": {"required": ["x", "y", "radiusX"]}
          },
          {
            "if": {"properties": {"type": {"const": "ellipse"}}},
            "then": {"required": ["x", "y", "radiusX", "radiusY"]}
          }
        ]
      }
    },
    "behaviors": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "type"],
        "properties": {
          "id": {"type": "string"},
          "type": {"type": "string"},
          "disabled": {"type": "boolean"},
          "events": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// NewRegionValidator returns a validator for region documents.
func NewRegionValidator() (*Validator, error) {
	return NewValidator([]byte(RegionSchema))
}
