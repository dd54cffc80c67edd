package classify

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/dellqs/qsintake/constants"
)

var fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// extractJSONBlock pulls the first JSON object from a free-text model
// response, preferring a fenced code block over a bare brace-delimited span.
func extractJSONBlock(s string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(s); m != nil {
		return m[1], true
	}
	open := strings.Index(s, "{")
	close := strings.LastIndex(s, "}")
	if open >= 0 && close > open {
		return s[open : close+1], true
	}
	return "", false
}

// parseResponse turns a model response into a Classification. It never
// fails: missing or malformed JSON degrades to UNKNOWN with a note.
func parseResponse(response string) Classification {
	block, ok := extractJSONBlock(response)
	if !ok {
		return Classification{
			DrawingType: constants.UnknownDrawing,
			Notes:       []string{"Failed to parse model response"},
			RawResponse: response,
		}
	}

	var schemaNotes []string
	if err := validateClassificationJSON([]byte(block)); err != nil {
		schemaNotes = append(schemaNotes, fmt.Sprintf("Response deviates from classification schema: %v", err))
	}

	var payload struct {
		DrawingType          string   `json:"drawing_type"`
		DrawingNumber        string   `json:"drawing_number"`
		DrawingTitle         string   `json:"drawing_title"`
		Revision             string   `json:"revision"`
		Scale                string   `json:"scale"`
		DimensionsPresent    bool     `json:"dimensions_present"`
		AnnotationsPresent   bool     `json:"annotations_present"`
		Confidence           *float64 `json:"confidence"`
		MeasurementPotential []string `json:"measurement_potential"`
		Notes                []string `json:"notes"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return Classification{
			DrawingType: constants.UnknownDrawing,
			Notes:       []string{fmt.Sprintf("JSON parse error: %v", err)},
			RawResponse: response,
		}
	}

	confidence := 0.5
	if payload.Confidence != nil {
		confidence = clamp01(*payload.Confidence)
	}

	return Classification{
		DrawingType:          constants.ParseDrawingType(payload.DrawingType),
		DrawingNumber:        strings.TrimSpace(payload.DrawingNumber),
		DrawingTitle:         strings.TrimSpace(payload.DrawingTitle),
		Revision:             strings.TrimSpace(payload.Revision),
		Scale:                strings.TrimSpace(payload.Scale),
		DimensionsPresent:    payload.DimensionsPresent,
		AnnotationsPresent:   payload.AnnotationsPresent,
		Confidence:           confidence,
		MeasurementPotential: payload.MeasurementPotential,
		Notes:                append(payload.Notes, schemaNotes...),
		RawResponse:          response,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
