// Package metadata extracts project information from document text via
// ordered regex pattern tables with a weighted confidence score.
package metadata

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/common"
	"github.com/dellqs/qsintake/internal/entity"
)

// patternGroup is one named field with its ordered candidate patterns;
// the first match wins.
type patternGroup struct {
	field    string
	patterns []*regexp.Regexp
}

var patternTable = []patternGroup{
	{"project_name", compileAll(
		`(?im)(?:project|scheme|development)[\s:]+([A-Za-z0-9\s\-&,.']+?)(?:\n|$|revision|drawing)`,
		`(?im)(?:project title|site)[\s:]+([A-Za-z0-9\s\-&,.']+?)(?:\n|$)`,
	)},
	{"project_number", compileAll(
		`(?im)(?:project|job|ref)[\s.]*(?:no|number|ref)?[\s:.]*([A-Z0-9\-/]+)`,
		`(?im)(?:^|\s)([A-Z]{2,4}[\-/][0-9]{3,6})(?:\s|$)`,
	)},
	{"client", compileAll(
		`(?im)(?:client|employer|for)[\s:]+([A-Za-z0-9\s\-&,.']+?)(?:\n|$|project)`,
	)},
	{"architect", compileAll(
		`(?im)(?:architect|designed by|drawn by)[\s:]+([A-Za-z0-9\s\-&,.']+?)(?:\n|$)`,
		`(?im)(?:^|\n)([A-Za-z\s]+(?:architects?|associates|partnership|llp))(?:\n|$)`,
	)},
	{"structural_engineer", compileAll(
		`(?im)(?:structural|engineer|structures)[\s:]+([A-Za-z0-9\s\-&,.']+?)(?:\n|$)`,
	)},
	{"postcode", compileAll(
		`(?im)([A-Z]{1,2}[0-9][0-9A-Z]?\s*[0-9][A-Z]{2})`,
	)},
	{"scale", compileAll(
		`(?im)scale[\s:]*([0-9]+\s*:\s*[0-9]+)`,
		`(?im)@\s*([0-9]+\s*:\s*[0-9]+)`,
		`(?im)(?:^|\s)(1\s*:\s*(?:50|100|200|250|500|1000|1250|2500))(?:\s|$)`,
	)},
	{"date", compileAll(
		`(?im)(?:date|issued|drawn)[\s:]*(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`,
		`(?im)(\d{1,2}\s+(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{2,4})`,
		`(?im)((?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\s+\d{4})`,
	)},
	{"revision", compileAll(
		`(?im)(?:rev|revision)[\s:.]*([A-Z0-9]+)`,
		`(?im)(?:^|\s)rev[\s.]*([A-Z])(?:\s|$)`,
	)},
	{"stage", compileAll(
		`(?im)(?:riba\s+)?stage[\s:]*([0-9])`,
		`(?im)(concept|developed design|technical design|construction)`,
		`(?im)(planning|tender|construction)`,
	)},
	{"gia", compileAll(
		`(?im)(?:gia|gross internal area|floor area)[\s:]*([0-9,]+(?:\.[0-9]+)?)\s*(?:m2|sqm|m²)`,
	)},
	{"storeys", compileAll(
		`(?im)([0-9]+)\s*(?:storey|story|floor)s?`,
		`(?im)(?:^|\s)(basement|ground|\+[0-9]+)(?:\s|$)`,
	)},
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// dateFormats are the accepted issue-date layouts, tried in order.
var dateFormats = []string{
	"2/1/2006",
	"2-1-2006",
	"2.1.2006",
	"2/1/06",
	"2-1-06",
	"2 January 2006",
	"2 Jan 2006",
	"January 2006",
	"Jan 2006",
}

// ribaStages normalizes stage aliases to RIBA Plan of Work stage numbers.
var ribaStages = map[string]string{
	"concept":          "2",
	"developed design": "3",
	"technical design": "4",
	"construction":     "5",
	"planning":         "3",
	"tender":           "4",
}

// confidenceWeights sum to 1.0, heaviest on project name and location.
var confidenceWeights = map[string]float64{
	"project_name":   0.20,
	"project_number": 0.10,
	"client_name":    0.10,
	"architect":      0.10,
	"location":       0.15,
	"issue_date":     0.10,
	"stage":          0.05,
	"building_type":  0.10,
	"gia":            0.05,
	"storeys":        0.05,
}

// Result is the outcome of one extraction pass (or the merged passes).
type Result struct {
	Metadata   entity.ProjectMetadata
	Sources    []string
	Confidence float64
	Status     constants.StepStatus
	Warnings   []string
}

// Extractor pulls project metadata out of raw document text.
type Extractor struct {
	logger *slog.Logger
}

func NewExtractor(logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{logger: logger}
}

// Extract runs the pattern table against text. Empty input is the only
// fatal case; a sparse match set degrades to PARTIAL below 0.2 confidence.
func (e *Extractor) Extract(text, source string) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.NewFatalError("EMPTY_INPUT", "no text provided for extraction", common.ErrEmptyInput)
	}

	var warnings []string
	rawFields := map[string]string{}
	matched := func(field string) string {
		v := firstMatch(text, field)
		if v != "" {
			rawFields[field] = v
		}
		return v
	}

	meta := entity.ProjectMetadata{
		ProjectName:        matched("project_name"),
		ProjectNumber:      matched("project_number"),
		ClientName:         matched("client"),
		Architect:          matched("architect"),
		StructuralEngineer: matched("structural_engineer"),
	}

	if dateStr := matched("date"); dateStr != "" {
		if issued, ok := parseDate(dateStr); ok {
			meta.IssueDate = &issued
		} else {
			warnings = append(warnings, fmt.Sprintf("Could not parse date: %s", dateStr))
		}
	}

	if stageStr := matched("stage"); stageStr != "" {
		meta.Stage = normalizeStage(stageStr)
	}

	if giaStr := matched("gia"); giaStr != "" {
		if gia, err := strconv.ParseFloat(strings.ReplaceAll(giaStr, ",", ""), 64); err == nil {
			meta.GrossInternalAreaM2 = gia
		} else {
			warnings = append(warnings, fmt.Sprintf("Could not parse GIA: %s", giaStr))
		}
	}

	if storeys := countStoreys(text); storeys > 0 {
		meta.Storeys = storeys
		rawFields["storeys"] = strconv.Itoa(storeys)
	}

	if loc := extractLocation(text); loc != nil {
		meta.Location = loc
		if loc.Postcode != "" {
			rawFields["postcode"] = loc.Postcode
		}
	}

	meta.RawExtractedFields = rawFields
	confidence := calculateConfidence(&meta)

	res := &Result{
		Metadata:   meta,
		Confidence: confidence,
		Status:     constants.StepSuccess,
		Warnings:   warnings,
	}
	if source != "" {
		res.Sources = []string{source}
	}
	if confidence < 0.2 {
		res.Status = constants.StepPartial
		res.Warnings = append(res.Warnings, "Low extraction confidence - limited metadata found")
	}

	e.logger.Info("metadata.extract.ok",
		"source", source,
		"fields", len(rawFields),
		"confidence", confidence,
		"status", res.Status,
	)
	return res, nil
}

func firstMatch(text, field string) string {
	for _, group := range patternTable {
		if group.field != field {
			continue
		}
		for _, re := range group.patterns {
			if m := re.FindStringSubmatch(text); m != nil {
				return strings.TrimSpace(m[1])
			}
		}
	}
	return ""
}

func parseDate(s string) (time.Time, bool) {
	s = titleCaseMonths(strings.TrimSpace(s))
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// titleCaseMonths fixes casing of month names so time.Parse accepts matches
// captured case-insensitively ("12 march 2024" -> "12 March 2024").
func titleCaseMonths(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		lw := strings.ToLower(w)
		for _, month := range []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"} {
			if strings.HasPrefix(lw, month) {
				words[i] = strings.ToUpper(lw[:1]) + lw[1:]
				break
			}
		}
	}
	return strings.Join(words, " ")
}

func normalizeStage(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if num, ok := ribaStages[s]; ok {
		return "RIBA Stage " + num
	}
	if _, err := strconv.Atoi(s); err == nil {
		return "RIBA Stage " + s
	}
	return titleWords(s)
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var (
	explicitStoreys = regexp.MustCompile(`(?i)(\d+)\s*(?:storey|story|floor)`)
	plusLevel       = regexp.MustCompile(`\+(\d+)`)
	namedLevels     = []struct {
		re    *regexp.Regexp
		level int
	}{
		{regexp.MustCompile(`(?i)basement`), -1},
		{regexp.MustCompile(`(?i)ground\s*floor`), 0},
		{regexp.MustCompile(`(?i)first\s*floor`), 1},
		{regexp.MustCompile(`(?i)second\s*floor`), 2},
		{regexp.MustCompile(`(?i)third\s*floor`), 3},
		{regexp.MustCompile(`(?i)fourth\s*floor`), 4},
		{regexp.MustCompile(`(?i)fifth\s*floor`), 5},
	}
)

// countStoreys prefers an explicit numeric count, falling back to the span
// between the lowest and highest referenced floor level.
func countStoreys(text string) int {
	if m := explicitStoreys.FindStringSubmatch(text); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}

	levels := map[int]struct{}{}
	for _, nl := range namedLevels {
		if nl.re.MatchString(text) {
			levels[nl.level] = struct{}{}
		}
	}
	for _, m := range plusLevel.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			levels[n] = struct{}{}
		}
	}
	if len(levels) == 0 {
		return 0
	}

	lo, hi := 0, 0
	first := true
	for lvl := range levels {
		if first {
			lo, hi = lvl, lvl
			first = false
			continue
		}
		if lvl < lo {
			lo = lvl
		}
		if lvl > hi {
			hi = lvl
		}
	}
	return hi - lo + 1
}

// extractLocation pulls a UK postcode plus the address lines preceding it.
func extractLocation(text string) *entity.LocationInfo {
	postcode := firstMatch(text, "postcode")
	if postcode == "" {
		return nil
	}

	loc := &entity.LocationInfo{
		Postcode: strings.ReplaceAll(strings.ToUpper(postcode), "  ", " "),
		Country:  "UK",
	}

	addrRe, err := regexp.Compile(`(?im)([A-Za-z0-9\s,\-'.]+(?:\n[A-Za-z0-9\s,\-'.]+)*)\s*` + regexp.QuoteMeta(postcode))
	if err == nil {
		if m := addrRe.FindStringSubmatch(text); m != nil {
			var lines []string
			for _, line := range strings.Split(strings.TrimSpace(m[1]), "\n") {
				if line = strings.TrimSpace(line); line != "" {
					lines = append(lines, line)
				}
			}
			if len(lines) > 0 {
				loc.Address = strings.Join(lines, ", ") + ", " + postcode
			}
		}
	}
	return loc
}

func calculateConfidence(m *entity.ProjectMetadata) float64 {
	score := 0.0
	if m.ProjectName != "" {
		score += confidenceWeights["project_name"]
	}
	if m.ProjectNumber != "" {
		score += confidenceWeights["project_number"]
	}
	if m.ClientName != "" {
		score += confidenceWeights["client_name"]
	}
	if m.Architect != "" {
		score += confidenceWeights["architect"]
	}
	if m.Location != nil && (m.Location.Postcode != "" || m.Location.Address != "") {
		score += confidenceWeights["location"]
	}
	if m.IssueDate != nil {
		score += confidenceWeights["issue_date"]
	}
	if m.Stage != "" {
		score += confidenceWeights["stage"]
	}
	if m.BuildingType != "" {
		score += confidenceWeights["building_type"]
	}
	if m.GrossInternalAreaM2 > 0 {
		score += confidenceWeights["gia"]
	}
	if m.Storeys > 0 {
		score += confidenceWeights["storeys"]
	}
	return score
}
