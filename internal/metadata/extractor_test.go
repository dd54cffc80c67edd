package metadata

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dellqs/qsintake/constants"
)

func testExtractor() *Extractor {
	return NewExtractor(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const titleBlockText = `Project: Riverside House Development
Project No: RH-2024/001
Client: Thames Valley Homes Ltd
Architect: Smith and Jones Architects
Scale 1:100
Date: 12/03/2024
Rev: B
RIBA Stage 4
GIA: 1,250.5 m2
3 storey building
45 River Lane
Reading
RG1 8BT
`

func TestExtractTitleBlock(t *testing.T) {
	res, err := testExtractor().Extract(titleBlockText, "A-101.pdf")
	require.NoError(t, err)

	m := res.Metadata
	assert.Equal(t, "Riverside House Development", m.ProjectName)
	assert.NotEmpty(t, m.ProjectNumber)
	assert.Equal(t, "Thames Valley Homes Ltd", m.ClientName)
	assert.Equal(t, "Smith and Jones Architects", m.Architect)
	assert.Equal(t, "RIBA Stage 4", m.Stage)
	assert.InDelta(t, 1250.5, m.GrossInternalAreaM2, 1e-9)
	assert.Equal(t, 3, m.Storeys)

	require.NotNil(t, m.IssueDate)
	assert.Equal(t, time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC), *m.IssueDate)

	require.NotNil(t, m.Location)
	assert.Equal(t, "RG1 8BT", m.Location.Postcode)

	assert.Equal(t, constants.StepSuccess, res.Status)
	assert.GreaterOrEqual(t, res.Confidence, 0.5)
}

func TestExtractEmptyInputFails(t *testing.T) {
	_, err := testExtractor().Extract("   \n\t ", "empty.pdf")
	assert.Error(t, err)
}

func TestExtractLowConfidencePartial(t *testing.T) {
	res, err := testExtractor().Extract("Miscellaneous text with nothing useful in it whatsoever.", "misc.pdf")
	require.NoError(t, err)
	assert.Equal(t, constants.StepPartial, res.Status)
	assert.Less(t, res.Confidence, 0.2)
	assert.Contains(t, res.Warnings, "Low extraction confidence - limited metadata found")
}

func TestParseDateFormats(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"12/03/2024", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"1-2-2024", time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)},
		{"12.03.2024", time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		{"5 March 2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"5 mar 2024", time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{"March 2024", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, ok := parseDate(tt.in)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, ok := parseDate("not a date")
	assert.False(t, ok)
}

func TestNormalizeStage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"4", "RIBA Stage 4"},
		{"concept", "RIBA Stage 2"},
		{"Developed Design", "RIBA Stage 3"},
		{"technical design", "RIBA Stage 4"},
		{"planning", "RIBA Stage 3"},
		{"tender", "RIBA Stage 4"},
		{"construction", "RIBA Stage 5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeStage(tt.in), tt.in)
	}
}

func TestCountStoreys(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"explicit count", "A 4 storey residential block", 4},
		{"floor span with basement", "Basement level\nGround floor plan\nFirst floor plan\nSecond floor plan", 4},
		{"ground only", "Ground floor layout", 1},
		{"no floors", "Site boundary treatment", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countStoreys(tt.text))
		})
	}
}

func TestConfidenceWeightsSumToOne(t *testing.T) {
	sum := 0.0
	for _, w := range confidenceWeights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestExtractFromPagesPriorityWins(t *testing.T) {
	// Sparse title block: the priority pass stays under 0.5 so the full-text
	// pass runs, but the priority project name must survive the merge.
	pages := []string{
		"Project: Priority House\nsome text",
		"more text",
		"even more text",
		"Project: Fulltext Tower\nClient: Deep Pages Ltd\nArchitect: Late Partnership\nDate: 01/02/2024",
	}

	res, err := testExtractor().ExtractFromPages(pages, "set.pdf")
	require.NoError(t, err)

	assert.Equal(t, "Priority House", res.Metadata.ProjectName)
	assert.Equal(t, "Deep Pages Ltd", res.Metadata.ClientName)
	assert.Equal(t, "Late Partnership", res.Metadata.Architect)
	require.NotNil(t, res.Metadata.IssueDate)
}

func TestExtractFromPagesHighConfidenceSkipsFullPass(t *testing.T) {
	pages := []string{titleBlockText, "Project: Should Never Be Seen"}

	res, err := testExtractor().ExtractFromPages(pages, "set.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Riverside House Development", res.Metadata.ProjectName)
	assert.Len(t, res.Sources, 1)
}

func TestExtractFromPagesEmpty(t *testing.T) {
	_, err := testExtractor().ExtractFromPages(nil, "x.pdf")
	assert.Error(t, err)
}

func TestMergeMetadataRawFieldsOverlay(t *testing.T) {
	res, err := testExtractor().Extract(titleBlockText, "a.pdf")
	require.NoError(t, err)
	full, err := testExtractor().Extract("Project: Other Name\nRev: C", "a.pdf")
	require.NoError(t, err)

	merged := mergeMetadata(res.Metadata, full.Metadata)
	assert.Equal(t, "Riverside House Development", merged.ProjectName)
	// Priority raw match wins where both passes matched.
	assert.Equal(t, res.Metadata.RawExtractedFields["project_name"], merged.RawExtractedFields["project_name"])
}

func TestLocationAddressLines(t *testing.T) {
	text := strings.Join([]string{
		"Site Address",
		"45 River Lane",
		"Reading",
		"RG1 8BT",
	}, "\n")

	loc := extractLocation(text)
	require.NotNil(t, loc)
	assert.Equal(t, "RG1 8BT", loc.Postcode)
	assert.Contains(t, loc.Address, "45 River Lane")
	assert.Equal(t, "UK", loc.Country)
}
