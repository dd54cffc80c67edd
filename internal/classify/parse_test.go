package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dellqs/qsintake/constants"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name           string
		response       string
		wantType       constants.DrawingType
		wantConfidence float64
		wantNote       string
	}{
		{
			name: "fenced json block",
			response: "Here is my analysis:\n```json\n" +
				`{"drawing_type": "floor_plan", "drawing_number": "A-101", "confidence": 0.92, "dimensions_present": true}` +
				"\n```\nLet me know if you need more detail.",
			wantType:       constants.FloorPlan,
			wantConfidence: 0.92,
		},
		{
			name:           "bare json object",
			response:       `The result is {"drawing_type": "elevation", "confidence": 0.7} as requested.`,
			wantType:       constants.Elevation,
			wantConfidence: 0.7,
		},
		{
			name:           "no json block",
			response:       "I could not determine the drawing type from this image.",
			wantType:       constants.UnknownDrawing,
			wantConfidence: 0,
			wantNote:       "Failed to parse model response",
		},
		{
			name:           "malformed json",
			response:       `{"drawing_type": "floor_plan", "confidence": }`,
			wantType:       constants.UnknownDrawing,
			wantConfidence: 0,
		},
		{
			name:           "unknown type string",
			response:       `{"drawing_type": "blueprint", "confidence": 0.9}`,
			wantType:       constants.UnknownDrawing,
			wantConfidence: 0.9,
		},
		{
			name:           "missing confidence defaults to 0.5",
			response:       `{"drawing_type": "section"}`,
			wantType:       constants.Section,
			wantConfidence: 0.5,
		},
		{
			name:           "confidence clamped to 1",
			response:       `{"drawing_type": "site_plan", "confidence": 3.5}`,
			wantType:       constants.SitePlan,
			wantConfidence: 1.0,
		},
		{
			name:           "negative confidence clamped to 0",
			response:       `{"drawing_type": "detail", "confidence": -0.3}`,
			wantType:       constants.Detail,
			wantConfidence: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := parseResponse(tt.response)
			assert.Equal(t, tt.wantType, cls.DrawingType)
			assert.InDelta(t, tt.wantConfidence, cls.Confidence, 1e-9)
			if tt.wantNote != "" {
				assert.Contains(t, cls.Notes, tt.wantNote)
			}
			assert.Equal(t, tt.response, cls.RawResponse)
		})
	}
}

func TestExtractJSONBlock(t *testing.T) {
	block, ok := extractJSONBlock("prefix ```json\n{\"a\": 1}\n``` suffix")
	require.True(t, ok)
	assert.JSONEq(t, `{"a": 1}`, block)

	block, ok = extractJSONBlock(`text {"b": 2} more text`)
	require.True(t, ok)
	assert.JSONEq(t, `{"b": 2}`, block)

	_, ok = extractJSONBlock("no json here")
	assert.False(t, ok)
}

// stubBackend returns a canned response or error per call, in order.
type stubBackend struct {
	responses []string
	errs      []error
	calls     int
}

func (s *stubBackend) name() string { return "stub" }

func (s *stubBackend) complete(_ context.Context, _ string) (string, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	return s.responses[i], nil
}

func writeTestImage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("not really a png"), 0o644))
	return path
}

func TestClassifyStatusRules(t *testing.T) {
	dir := t.TempDir()
	img := writeTestImage(t, dir, "page-1.png")

	tests := []struct {
		name       string
		response   string
		wantStatus constants.StepStatus
	}{
		{
			name:       "known type high confidence",
			response:   `{"drawing_type": "floor_plan", "confidence": 0.9}`,
			wantStatus: constants.StepSuccess,
		},
		{
			name:       "known type low confidence",
			response:   `{"drawing_type": "floor_plan", "confidence": 0.3}`,
			wantStatus: constants.StepPartial,
		},
		{
			name:       "unknown type",
			response:   "nothing useful",
			wantStatus: constants.StepPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Classifier{
				cfg:     Config{Timeout: testTimeout},
				backend: &stubBackend{responses: []string{tt.response}},
				logger:  testLogger(),
			}
			res, err := c.Classify(context.Background(), img)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
		})
	}
}

func TestClassifyStructuralErrors(t *testing.T) {
	dir := t.TempDir()

	c := &Classifier{
		cfg:     Config{Timeout: testTimeout},
		backend: &stubBackend{},
		logger:  testLogger(),
	}

	_, err := c.Classify(context.Background(), filepath.Join(dir, "missing.png"))
	assert.Error(t, err)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("text"), 0o644))
	_, err = c.Classify(context.Background(), txt)
	assert.Error(t, err)
}

func TestClassifyBatchPlaceholders(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeTestImage(t, dir, "p1.png"),
		writeTestImage(t, dir, "p2.png"),
		writeTestImage(t, dir, "p3.png"),
	}

	backend := &stubBackend{
		responses: []string{
			`{"drawing_type": "floor_plan", "confidence": 0.9}`,
			"",
			`{"drawing_type": "elevation", "confidence": 0.8}`,
		},
		errs: []error{nil, errors.New("backend unavailable"), nil},
	}
	c := &Classifier{cfg: Config{Timeout: testTimeout}, backend: backend, logger: testLogger()}

	out, _, errs := c.ClassifyBatch(context.Background(), paths)
	require.Len(t, out, len(paths), "output length must equal input length")
	require.Len(t, errs, 1)

	assert.Equal(t, constants.FloorPlan, out[0].DrawingType)
	assert.Equal(t, constants.UnknownDrawing, out[1].DrawingType)
	assert.Contains(t, out[1].Notes, "Classification failed")
	assert.Equal(t, constants.Elevation, out[2].DrawingType)
}

func TestValidateClassificationJSON(t *testing.T) {
	valid := `{"drawing_type": "floor_plan", "confidence": 0.9}`
	assert.NoError(t, validateClassificationJSON([]byte(valid)))

	// Label outside the closed set fails validation.
	badLabel := `{"drawing_type": "blueprint", "confidence": 0.9}`
	assert.Error(t, validateClassificationJSON([]byte(badLabel)))

	// Missing required confidence fails validation.
	missing := `{"drawing_type": "floor_plan"}`
	assert.Error(t, validateClassificationJSON([]byte(missing)))
}
