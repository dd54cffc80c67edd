package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/dellqs/qsintake/constants"
)

// MissingItem is an item identified as missing from the document package.
type MissingItem struct {
	ItemType       string             `json:"item_type"` // "drawing", "specification", "metadata"
	Description    string             `json:"description"`
	Severity       constants.Severity `json:"severity"`
	Impact         string             `json:"impact"`
	Recommendation string             `json:"recommendation"`
}

// CompletenessReport assesses a document package against the required
// drawing set, persisted as completeness_report.md.
type CompletenessReport struct {
	ProjectID              string                       `json:"project_id"`
	AssessmentDate         time.Time                    `json:"assessment_date"`
	OverallCompletenessPct float64                      `json:"overall_completeness_pct"`
	Status                 constants.CompletenessStatus `json:"status"`

	DrawingTypesPresent   []constants.DrawingType `json:"drawing_types_present"`
	SpecificationsPresent bool                    `json:"specifications_present"`
	SchedulesPresent      bool                    `json:"schedules_present"`

	MissingItems []MissingItem `json:"missing_items"`

	Warnings []string `json:"warnings,omitempty"`
	Notes    []string `json:"notes,omitempty"`

	ProceedRecommendation constants.Recommendation `json:"proceed_recommendation"`
	HoldReasons           []string                 `json:"hold_reasons,omitempty"`
}

func titleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Markdown renders the human-readable report, grouped by severity.
func (r *CompletenessReport) Markdown() string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("# Completeness Report")
	line("")
	line("**Project ID:** %s", r.ProjectID)
	line("**Assessment Date:** %s", r.AssessmentDate.Format("2006-01-02 15:04"))
	line("**Overall Completeness:** %.0f%%", r.OverallCompletenessPct)
	line("**Status:** %s", titleCase(string(r.Status)))
	line("")
	line("## Recommendation")
	line("")
	line("**%s**", titleCase(string(r.ProceedRecommendation)))
	line("")

	if len(r.HoldReasons) > 0 {
		line("### Reasons")
		for _, reason := range r.HoldReasons {
			line("- %s", reason)
		}
		line("")
	}

	line("## Documents Received")
	line("")
	line("### Drawing Types Present")
	if len(r.DrawingTypesPresent) > 0 {
		for _, dt := range r.DrawingTypesPresent {
			line("- ✓ %s", dt.Title())
		}
	} else {
		line("- None identified")
	}
	line("")
	line("- Specifications: %s", presence(r.SpecificationsPresent))
	line("- Schedules: %s", presence(r.SchedulesPresent))
	line("")

	if len(r.MissingItems) > 0 {
		line("## Missing Items")
		line("")

		groups := []struct {
			severity constants.Severity
			heading  string
		}{
			{constants.SeverityCritical, "### Critical (Blocks Measurement)"},
			{constants.SeverityImportant, "### Important (Affects Accuracy)"},
		}
		for _, g := range groups {
			items := r.itemsBySeverity(g.severity)
			if len(items) == 0 {
				continue
			}
			line(g.heading)
			line("")
			line("| Item | Impact | Recommendation |")
			line("|------|--------|----------------|")
			for _, item := range items {
				line("| %s | %s | %s |", item.Description, item.Impact, item.Recommendation)
			}
			line("")
		}

		if minor := r.itemsBySeverity(constants.SeverityMinor); len(minor) > 0 {
			line("### Minor (Nice to Have)")
			for _, item := range minor {
				line("- %s", item.Description)
			}
			line("")
		}
	}

	if len(r.Warnings) > 0 {
		line("## Warnings")
		line("")
		for _, w := range r.Warnings {
			line("⚠️ %s", w)
		}
		line("")
	}

	if len(r.Notes) > 0 {
		line("## Notes")
		line("")
		for _, n := range r.Notes {
			line("- %s", n)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (r *CompletenessReport) itemsBySeverity(sev constants.Severity) []MissingItem {
	var out []MissingItem
	for _, m := range r.MissingItems {
		if m.Severity == sev {
			out = append(out, m)
		}
	}
	return out
}

func presence(present bool) string {
	if present {
		return "✓ Present"
	}
	return "✗ Missing"
}
