package constants

import "strings"

// ProjectType selects the required-drawings table used by the completeness
// assessment. Types without a dedicated table fall back to the default set.
type ProjectType string

const (
	NewBuildResidential ProjectType = "new_build_residential"
	NewBuildCommercial  ProjectType = "new_build_commercial"
	Refurbishment       ProjectType = "refurbishment"
	TenderReview        ProjectType = "tender_review"
	VariationAssessment ProjectType = "variation_assessment"
	DefaultProject      ProjectType = "default"
)

// ProjectTypes lists the accepted CLI values.
var ProjectTypes = []ProjectType{
	NewBuildResidential,
	NewBuildCommercial,
	Refurbishment,
	TenderReview,
	VariationAssessment,
	DefaultProject,
}

// ParseProjectType maps a CLI value to a ProjectType, falling back to the
// default table for unknown values.
func ParseProjectType(s string) ProjectType {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, pt := range ProjectTypes {
		if string(pt) == s {
			return pt
		}
	}
	return DefaultProject
}
