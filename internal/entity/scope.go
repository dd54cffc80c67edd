package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/dellqs/qsintake/constants"
)

// MeasurableElement is a quantity that can be taken off from the available
// drawings.
type MeasurableElement struct {
	ElementType    string                   `json:"element_type"`
	NRMReference   string                   `json:"nrm_reference,omitempty"`
	SourceDrawings []string                 `json:"source_drawings"`
	Confidence     constants.ConfidenceTier `json:"confidence"`
	Notes          []string                 `json:"notes,omitempty"`
}

// UnmeasurableElement records a quantity that cannot be measured and why.
type UnmeasurableElement struct {
	Element string `json:"element"`
	Reason  string `json:"reason"`
}

// MeasurementScope describes what can be measured from the package,
// persisted as measurement_scope.md.
type MeasurementScope struct {
	ProjectID      string    `json:"project_id"`
	AssessmentDate time.Time `json:"assessment_date"`

	MeasurableElements   []MeasurableElement   `json:"measurable_elements"`
	UnmeasurableElements []UnmeasurableElement `json:"unmeasurable_elements"`

	CoverageSummary        string   `json:"coverage_summary"`
	RecommendedAssumptions []string `json:"recommended_assumptions,omitempty"`
	Exclusions             []string `json:"exclusions,omitempty"`
}

// Markdown renders the human-readable report, grouped by confidence tier.
func (s *MeasurementScope) Markdown() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("# Measurement Scope")
	line("")
	line("**Project ID:** %s", s.ProjectID)
	line("**Assessment Date:** %s", s.AssessmentDate.Format("2006-01-02 15:04"))
	line("")
	line("## Summary")
	line("")
	line("%s", s.CoverageSummary)
	line("")
	line("## Measurable Elements")
	line("")

	if len(s.MeasurableElements) > 0 {
		if high := s.byConfidence(constants.ConfidenceHigh); len(high) > 0 {
			line("### High Confidence")
			line("| Element | NRM Ref | Source Drawings |")
			line("|---------|---------|-----------------|")
			for _, elem := range high {
				line("| %s | %s | %s |", elem.ElementType, orDash(elem.NRMReference), sourcesCell(elem.SourceDrawings))
			}
			line("")
		}

		if medium := s.byConfidence(constants.ConfidenceMedium); len(medium) > 0 {
			line("### Medium Confidence")
			line("| Element | NRM Ref | Notes |")
			line("|---------|---------|-------|")
			for _, elem := range medium {
				line("| %s | %s | %s |", elem.ElementType, orDash(elem.NRMReference), orDash(strings.Join(elem.Notes, "; ")))
			}
			line("")
		}

		if low := s.byConfidence(constants.ConfidenceLow); len(low) > 0 {
			line("### Low Confidence (Requires Assumptions)")
			for _, elem := range low {
				line("- **%s**", elem.ElementType)
				for _, note := range elem.Notes {
					line("  - %s", note)
				}
			}
			line("")
		}
	} else {
		line("*No elements identified for measurement*")
		line("")
	}

	if len(s.UnmeasurableElements) > 0 {
		line("## Cannot Be Measured")
		line("")
		for _, item := range s.UnmeasurableElements {
			line("- **%s**: %s", item.Element, item.Reason)
		}
		line("")
	}

	if len(s.RecommendedAssumptions) > 0 {
		line("## Recommended Assumptions")
		line("")
		for _, a := range s.RecommendedAssumptions {
			line("- %s", a)
		}
		line("")
	}

	if len(s.Exclusions) > 0 {
		line("## Exclusions")
		line("")
		for _, e := range s.Exclusions {
			line("- %s", e)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (s *MeasurementScope) byConfidence(tier constants.ConfidenceTier) []MeasurableElement {
	var out []MeasurableElement
	for _, m := range s.MeasurableElements {
		if m.Confidence == tier {
			out = append(out, m)
		}
	}
	return out
}

func sourcesCell(sources []string) string {
	if len(sources) <= 3 {
		return strings.Join(sources, ", ")
	}
	return fmt.Sprintf("%s (+%d more)", strings.Join(sources[:3], ", "), len(sources)-3)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
