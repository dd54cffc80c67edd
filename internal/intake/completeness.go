package intake

import (
	"fmt"
	"time"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/entity"
)

// assessCompleteness checks the classified drawings and merged metadata
// against the required set for the project type. Floor plan and site plan
// are the only critical types; a missing critical type forces a hold.
func (a *Analyst) assessCompleteness(projectID string, drawings []entity.DrawingInfo, meta *entity.ProjectMetadata) *entity.CompletenessReport {
	report := &entity.CompletenessReport{
		ProjectID:      projectID,
		AssessmentDate: time.Now().UTC(),
	}

	presentTypes := map[constants.DrawingType]bool{}
	for _, d := range drawings {
		if d.DrawingType != constants.UnknownDrawing {
			presentTypes[d.DrawingType] = true
		}
	}
	for dt := range presentTypes {
		report.DrawingTypesPresent = append(report.DrawingTypesPresent, dt)
	}
	report.SchedulesPresent = presentTypes[constants.Schedule]
	report.SpecificationsPresent = presentTypes[constants.Specification]

	required := requiredFor(a.cfg.ProjectType)
	presentRequired := 0
	for _, req := range required {
		if presentTypes[req] {
			presentRequired++
			continue
		}
		severity := constants.SeverityImportant
		if req == constants.FloorPlan || req == constants.SitePlan {
			severity = constants.SeverityCritical
		}
		report.MissingItems = append(report.MissingItems, entity.MissingItem{
			ItemType:       "drawing",
			Description:    fmt.Sprintf("%s drawing", req.Title()),
			Severity:       severity,
			Impact:         impactFor(req),
			Recommendation: fmt.Sprintf("Request %s from architect", req.Title()),
		})
	}

	if meta.ProjectName == "" {
		report.MissingItems = append(report.MissingItems, entity.MissingItem{
			ItemType:       "metadata",
			Description:    "Project name not identified",
			Severity:       constants.SeverityMinor,
			Impact:         "Project identification may be unclear",
			Recommendation: "Confirm project name with client",
		})
	}
	hasPostcode := meta.Location != nil && meta.Location.Postcode != ""
	if !hasPostcode {
		report.MissingItems = append(report.MissingItems, entity.MissingItem{
			ItemType:       "metadata",
			Description:    "Site location/postcode not identified",
			Severity:       constants.SeverityImportant,
			Impact:         "Cannot determine regional pricing factors",
			Recommendation: "Request site address from client",
		})
	}

	lowConfidence := 0
	noDimensions := 0
	for _, d := range drawings {
		if d.Confidence < 0.5 {
			lowConfidence++
		}
		keyType := d.DrawingType == constants.FloorPlan || d.DrawingType == constants.Elevation || d.DrawingType == constants.Section
		if keyType && !d.DimensionsPresent {
			noDimensions++
		}
	}
	if lowConfidence > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d drawings have low classification confidence - manual review recommended", lowConfidence))
	}
	if noDimensions > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("%d key drawings appear to lack dimensions", noDimensions))
	}

	// Required drawings plus three metadata checks: name, postcode, architect.
	totalChecks := len(required) + 3
	passedChecks := presentRequired
	if meta.ProjectName != "" {
		passedChecks++
	}
	if hasPostcode {
		passedChecks++
	}
	if meta.Architect != "" {
		passedChecks++
	}
	if totalChecks > 0 {
		report.OverallCompletenessPct = float64(passedChecks) / float64(totalChecks) * 100
	}

	var criticalMissing []string
	for _, m := range report.MissingItems {
		if m.Severity == constants.SeverityCritical {
			criticalMissing = append(criticalMissing, m.Description)
		}
	}

	switch {
	case len(criticalMissing) > 0:
		report.Status = constants.StatusCriticalGaps
		report.ProceedRecommendation = constants.Hold
		report.HoldReasons = criticalMissing
	case report.OverallCompletenessPct >= 80:
		report.Status = constants.StatusComplete
		report.ProceedRecommendation = constants.Proceed
	default:
		report.Status = constants.StatusIncomplete
		report.ProceedRecommendation = constants.ProceedWithCaution
		report.HoldReasons = []string{
			fmt.Sprintf("Completeness at %.0f%% - some assumptions may be required", report.OverallCompletenessPct),
		}
	}

	return report
}
