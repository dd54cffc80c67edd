package intake

import "github.com/dellqs/qsintake/constants"

// requiredDrawings is the drawing set a package must contain per project
// type. Types without a dedicated entry use the default set.
var requiredDrawings = map[constants.ProjectType][]constants.DrawingType{
	constants.NewBuildResidential: {
		constants.SitePlan,
		constants.FloorPlan,
		constants.Elevation,
		constants.Section,
	},
	constants.NewBuildCommercial: {
		constants.SitePlan,
		constants.FloorPlan,
		constants.Elevation,
		constants.Section,
		constants.RoofPlan,
	},
	constants.Refurbishment: {
		constants.FloorPlan,
		constants.Demolition,
	},
	constants.DefaultProject: {
		constants.FloorPlan,
	},
}

// measurementPotential maps each drawing type to the quantities that can be
// taken off from it.
var measurementPotential = map[constants.DrawingType][]string{
	constants.FloorPlan: {
		"Gross Internal Floor Area (GIFA)",
		"Net Internal Area (NIA)",
		"Room areas",
		"Wall lengths (internal)",
		"Door positions and counts",
		"Window positions",
		"Partition lengths",
	},
	constants.SitePlan: {
		"Site area",
		"Building footprint",
		"Hard landscaping areas",
		"Soft landscaping areas",
		"Boundary lengths",
		"Parking spaces",
		"Access road lengths",
	},
	constants.Elevation: {
		"External wall areas",
		"Window areas and counts",
		"Door areas and counts",
		"Cladding areas",
		"Building height",
	},
	constants.Section: {
		"Floor-to-floor heights",
		"Floor construction depths",
		"Roof construction depth",
		"Foundation depths",
		"Stair flights",
	},
	constants.RoofPlan: {
		"Roof area",
		"Roof perimeter",
		"Rainwater goods",
		"Rooflights",
	},
	constants.ReflectedCeiling: {
		"Ceiling areas",
		"Ceiling grid",
		"Light fittings count",
		"Access panels",
	},
	constants.Schedule: {
		"Door schedule quantities",
		"Window schedule quantities",
		"Finish schedule",
		"Room data",
	},
	constants.Structural: {
		"Foundation types/sizes",
		"Beam sizes",
		"Column positions",
		"Slab thicknesses",
	},
	constants.Detail: {
		"Construction build-ups",
		"Material specifications",
	},
}

// nrmReferences maps measurable elements to NRM1/NRM2 rule references.
var nrmReferences = map[string]string{
	"Gross Internal Floor Area (GIFA)": "NRM1 2.6",
	"Net Internal Area (NIA)":          "NRM1 2.7",
	"External wall areas":              "NRM1 2.5.1",
	"Roof area":                        "NRM1 2.5.2",
	"Site area":                        "NRM1 2.1",
	"Window areas and counts":          "NRM2 L10/L20",
	"Door areas and counts":            "NRM2 L20",
	"Ceiling areas":                    "NRM2 K10/K40",
	"Floor construction depths":        "NRM1 2.4.3",
}

// missingImpact describes what a missing drawing type blocks.
var missingImpact = map[constants.DrawingType]string{
	constants.FloorPlan:  "Cannot measure floor areas, partitions, doors, or internal elements",
	constants.SitePlan:   "Cannot measure external works, site area, or verify building position",
	constants.Elevation:  "Cannot measure external wall areas, windows, or cladding",
	constants.Section:    "Cannot verify floor-to-floor heights or construction build-ups",
	constants.RoofPlan:   "Cannot measure roof area or rainwater goods",
	constants.Demolition: "Cannot identify extent of demolition works for refurbishment",
	constants.Schedule:   "Must count elements manually from drawings",
	constants.Structural: "Cannot verify foundation type or structural frame",
}

func impactFor(dt constants.DrawingType) string {
	if impact, ok := missingImpact[dt]; ok {
		return impact
	}
	return "May affect measurement accuracy"
}

func requiredFor(pt constants.ProjectType) []constants.DrawingType {
	if req, ok := requiredDrawings[pt]; ok {
		return req
	}
	return requiredDrawings[constants.DefaultProject]
}
