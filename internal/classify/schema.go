package classify

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dellqs/qsintake/constants"
)

// classificationSchema is compiled once; the schema is static and
// parseResponse runs per page.
var classificationSchema = func() *jsonschema.Schema {
	b, err := json.Marshal(buildClassificationSchema())
	if err != nil {
		panic(err)
	}
	return jsonschema.MustCompileString("classification.json", string(b))
}()

// buildClassificationSchema returns a JSON-Schema (draft 2020-12 subset) as
// a generic map, used locally to flag responses that drift from the prompt
// contract. Validation failures are advisory, never fatal.
func buildClassificationSchema() map[string]any {
	labels := make([]any, 0, 18)
	for _, dt := range []constants.DrawingType{
		constants.FloorPlan, constants.SitePlan, constants.Elevation,
		constants.Section, constants.Detail, constants.Schedule,
		constants.Specification, constants.RoofPlan, constants.ReflectedCeiling,
		constants.Structural, constants.Mechanical, constants.Electrical,
		constants.Plumbing, constants.Landscape, constants.Demolition,
		constants.CoverSheet, constants.Legend, constants.UnknownDrawing,
	} {
		labels = append(labels, string(dt))
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"drawing_type":          map[string]any{"type": "string", "enum": labels},
			"drawing_number":        map[string]any{"type": []any{"string", "null"}},
			"drawing_title":         map[string]any{"type": []any{"string", "null"}},
			"revision":              map[string]any{"type": []any{"string", "null"}},
			"scale":                 map[string]any{"type": []any{"string", "null"}},
			"dimensions_present":    map[string]any{"type": "boolean"},
			"annotations_present":   map[string]any{"type": "boolean"},
			"confidence":            map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"measurement_potential": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"notes":                 map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"drawing_type", "confidence"},
	}
}

// validateClassificationJSON validates data against the classification schema.
func validateClassificationJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := classificationSchema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
