// Package classify identifies architectural drawing types from rasterized
// page images using a vision-capable model.
package classify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/common"
	"github.com/dellqs/qsintake/internal/entity"
	"github.com/dellqs/qsintake/internal/runner"
)

// Config selects and configures the vision backend.
type Config struct {
	Provider  string // "claude" (CLI), "anthropic" or "openai"
	Model     string
	APIKey    string
	ClaudeBin string // binary name or absolute path; if empty -> "claude"
	BaseURL   string // API base override, mainly for tests
	Timeout   time.Duration
}

// Classification is the typed result of classifying one drawing image.
type Classification struct {
	DrawingType          constants.DrawingType `json:"drawing_type"`
	DrawingNumber        string                `json:"drawing_number,omitempty"`
	DrawingTitle         string                `json:"drawing_title,omitempty"`
	Revision             string                `json:"revision,omitempty"`
	Scale                string                `json:"scale,omitempty"`
	DimensionsPresent    bool                  `json:"dimensions_present"`
	AnnotationsPresent   bool                  `json:"annotations_present"`
	Confidence           float64               `json:"confidence"`
	MeasurementPotential []string              `json:"measurement_potential,omitempty"`
	Notes                []string              `json:"notes,omitempty"`
	RawResponse          string                `json:"-"`
}

// DrawingInfo converts the classification into a manifest drawing record.
func (c *Classification) DrawingInfo(filePath string, pageNumber int) entity.DrawingInfo {
	return entity.DrawingInfo{
		FilePath:             filePath,
		PageNumber:           pageNumber,
		DrawingType:          c.DrawingType,
		DrawingNumber:        c.DrawingNumber,
		DrawingTitle:         c.DrawingTitle,
		Revision:             c.Revision,
		Scale:                c.Scale,
		DimensionsPresent:    c.DimensionsPresent,
		AnnotationsPresent:   c.AnnotationsPresent,
		Confidence:           c.Confidence,
		MeasurementPotential: c.MeasurementPotential,
		Notes:                c.Notes,
	}
}

// Result wraps one classification with its step status and warnings.
type Result struct {
	Classification Classification
	Status         constants.StepStatus
	Warnings       []string
}

// backend is one interchangeable vision strategy, selected at construction.
type backend interface {
	name() string
	complete(ctx context.Context, imagePath string) (string, error)
}

// Classifier dispatches drawing images to the configured vision backend and
// parses the JSON block out of the free-text response.
type Classifier struct {
	cfg     Config
	backend backend
	logger  *slog.Logger
}

func New(cfg Config, run runner.Runner, logger *slog.Logger) (*Classifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if run == nil {
		run = runner.New()
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	if cfg.ClaudeBin == "" {
		cfg.ClaudeBin = "claude"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	// Direct API access needs a key; without one the authenticated local
	// CLI session is the only workable Anthropic route.
	if cfg.Provider == "anthropic" && cfg.APIKey == "" {
		cfg.Provider = "claude"
	}

	c := &Classifier{cfg: cfg, logger: logger}
	switch cfg.Provider {
	case "", "claude":
		c.backend = &claudeCLI{bin: cfg.ClaudeBin, runner: run}
	case "anthropic":
		c.backend = newAnthropicBackend(cfg)
	case "openai":
		c.backend = newOpenAIBackend(cfg)
	default:
		return nil, common.NewFatalError("INVALID_PROVIDER", fmt.Sprintf("unsupported vision provider: %s", cfg.Provider), common.ErrInvalidInput)
	}
	return c, nil
}

// Classify classifies a single drawing image. Structural input errors and
// transport errors are returned as errors; an unparseable model response is
// not an error, it degrades to an UNKNOWN classification with a note.
func (c *Classifier) Classify(ctx context.Context, imagePath string) (*Result, error) {
	start := time.Now()

	if _, err := os.Stat(imagePath); err != nil {
		return nil, common.NewFatalError("FILE_NOT_FOUND", fmt.Sprintf("image not found: %s", imagePath), common.ErrNotFound)
	}
	if !constants.IsImageExt(filepath.Ext(imagePath)) {
		return nil, common.NewFatalError("INVALID_FORMAT", fmt.Sprintf("unsupported image format: %s", filepath.Ext(imagePath)), common.ErrInvalidInput)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	response, err := c.backend.complete(ctx, imagePath)
	if err != nil {
		c.logger.Error("classify.backend_error",
			"provider", c.backend.name(),
			"image", filepath.Base(imagePath),
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.NewAppError("CLASSIFICATION_ERROR", fmt.Sprintf("failed to classify drawing: %s", imagePath), err)
	}

	cls := parseResponse(response)
	res := &Result{Classification: cls, Status: constants.StepSuccess}
	switch {
	case cls.DrawingType == constants.UnknownDrawing:
		res.Status = constants.StepPartial
		res.Warnings = append(res.Warnings, "Could not confidently classify drawing")
	case cls.Confidence < 0.5:
		res.Status = constants.StepPartial
		res.Warnings = append(res.Warnings, fmt.Sprintf("Low confidence classification: %.2f", cls.Confidence))
	}

	c.logger.Info("classify.ok",
		"provider", c.backend.name(),
		"image", filepath.Base(imagePath),
		"type", cls.DrawingType,
		"confidence", cls.Confidence,
		"status", res.Status,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// ClassifyBatch classifies images sequentially. Failed items become UNKNOWN
// placeholders so the output always has one entry per input; per-item errors
// and warnings are aggregated and never abort the batch.
func (c *Classifier) ClassifyBatch(ctx context.Context, imagePaths []string) ([]Classification, []string, []error) {
	out := make([]Classification, 0, len(imagePaths))
	var warnings []string
	var errs []error

	for _, imagePath := range imagePaths {
		res, err := c.Classify(ctx, imagePath)
		if err != nil {
			errs = append(errs, err)
			out = append(out, Classification{
				DrawingType: constants.UnknownDrawing,
				Notes:       []string{"Classification failed"},
			})
			continue
		}
		warnings = append(warnings, res.Warnings...)
		out = append(out, res.Classification)
	}
	return out, warnings, errs
}
