package intake

import (
	"fmt"
	"time"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/entity"
)

// determineScope maps each distinct present drawing type to its measurable
// quantities, grading confidence from average classification confidence and
// the presence of dimension annotations.
func (a *Analyst) determineScope(projectID string, drawings []entity.DrawingInfo) *entity.MeasurementScope {
	scope := &entity.MeasurementScope{
		ProjectID:      projectID,
		AssessmentDate: time.Now().UTC(),
	}

	byType := map[constants.DrawingType][]entity.DrawingInfo{}
	for _, d := range drawings {
		byType[d.DrawingType] = append(byType[d.DrawingType], d)
	}

	for drawingType, typeDrawings := range byType {
		if drawingType == constants.UnknownDrawing {
			continue
		}
		potential, ok := measurementPotential[drawingType]
		if !ok {
			continue
		}

		var sumConfidence float64
		hasDimensions := false
		for _, d := range typeDrawings {
			sumConfidence += d.Confidence
			if d.DimensionsPresent {
				hasDimensions = true
			}
		}
		avgConfidence := sumConfidence / float64(len(typeDrawings))

		var confidence constants.ConfidenceTier
		switch {
		case avgConfidence >= 0.8 && hasDimensions:
			confidence = constants.ConfidenceHigh
		case avgConfidence >= 0.5 || hasDimensions:
			confidence = constants.ConfidenceMedium
		default:
			confidence = constants.ConfidenceLow
		}

		sourceDrawings := make([]string, 0, len(typeDrawings))
		for _, d := range typeDrawings {
			label := d.DrawingNumber
			if label == "" {
				label = fmt.Sprintf("Page %d", d.PageNumber)
			}
			sourceDrawings = append(sourceDrawings, label)
		}

		var notes []string
		if !hasDimensions {
			notes = append(notes, "No dimension annotations detected - may need to scale from drawing")
		}
		if avgConfidence < 0.7 {
			notes = append(notes, "Drawing classification confidence is moderate")
		}

		for _, element := range potential {
			scope.MeasurableElements = append(scope.MeasurableElements, entity.MeasurableElement{
				ElementType:    element,
				NRMReference:   nrmReferences[element],
				SourceDrawings: sourceDrawings,
				Confidence:     confidence,
				Notes:          notes,
			})
		}
	}

	// Everything in the potential tables that no present drawing covers.
	measurable := map[string]bool{}
	for _, m := range scope.MeasurableElements {
		measurable[m.ElementType] = true
	}
	for drawingType, potentials := range measurementPotential {
		for _, element := range potentials {
			if measurable[element] {
				continue
			}
			measurable[element] = true // avoid duplicates across types
			scope.UnmeasurableElements = append(scope.UnmeasurableElements, entity.UnmeasurableElement{
				Element: element,
				Reason:  fmt.Sprintf("No %s drawing available", drawingType.Title()),
			})
		}
	}

	highConf, medConf, lowConf := 0, 0, 0
	for _, m := range scope.MeasurableElements {
		switch m.Confidence {
		case constants.ConfidenceHigh:
			highConf++
		case constants.ConfidenceMedium:
			medConf++
		default:
			lowConf++
		}
	}
	scope.CoverageSummary = fmt.Sprintf(
		"From %d drawings, %d element types can be measured: %d high confidence, %d medium confidence, %d low confidence. "+
			"%d element types cannot be measured from available information.",
		len(drawings), len(scope.MeasurableElements), highConf, medConf, lowConf, len(scope.UnmeasurableElements),
	)

	if _, ok := byType[constants.Section]; !ok {
		scope.RecommendedAssumptions = append(scope.RecommendedAssumptions,
			"Floor-to-floor height: Assume 3.0m for commercial, 2.7m for residential unless stated")
	}
	if _, ok := byType[constants.Structural]; !ok {
		scope.RecommendedAssumptions = append(scope.RecommendedAssumptions,
			"Foundation type: Assume strip foundations for loadbearing masonry, pad foundations for framed buildings")
	}

	return scope
}
