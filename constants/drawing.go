package constants

import "strings"

// DrawingType is the canonical classification for a drawing page.
type DrawingType string

// Stable values (store these exact strings in the manifest).
const (
	FloorPlan        DrawingType = "floor_plan"
	SitePlan         DrawingType = "site_plan"
	Elevation        DrawingType = "elevation"
	Section          DrawingType = "section"
	Detail           DrawingType = "detail"
	Schedule         DrawingType = "schedule"
	Specification    DrawingType = "specification"
	RoofPlan         DrawingType = "roof_plan"
	ReflectedCeiling DrawingType = "reflected_ceiling"
	Structural       DrawingType = "structural"
	Mechanical       DrawingType = "mechanical"
	Electrical       DrawingType = "electrical"
	Plumbing         DrawingType = "plumbing"
	Landscape        DrawingType = "landscape"
	Demolition       DrawingType = "demolition"
	CoverSheet       DrawingType = "cover_sheet"
	Legend           DrawingType = "legend"
	UnknownDrawing   DrawingType = "unknown"
)

var drawingTypes = map[string]DrawingType{
	"floor_plan":        FloorPlan,
	"site_plan":         SitePlan,
	"elevation":         Elevation,
	"section":           Section,
	"detail":            Detail,
	"schedule":          Schedule,
	"specification":     Specification,
	"roof_plan":         RoofPlan,
	"reflected_ceiling": ReflectedCeiling,
	"structural":        Structural,
	"mechanical":        Mechanical,
	"electrical":        Electrical,
	"plumbing":          Plumbing,
	"landscape":         Landscape,
	"demolition":        Demolition,
	"cover_sheet":       CoverSheet,
	"legend":            Legend,
	"unknown":           UnknownDrawing,
}

// ParseDrawingType maps a label to its DrawingType. Unrecognized or malformed
// labels map to UnknownDrawing rather than an error.
func ParseDrawingType(s string) DrawingType {
	if dt, ok := drawingTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return dt
	}
	return UnknownDrawing
}

// Title renders the type for human-readable reports ("floor_plan" -> "Floor Plan").
func (d DrawingType) Title() string {
	words := strings.Split(string(d), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
