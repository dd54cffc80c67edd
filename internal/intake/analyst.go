// Package intake orchestrates the drawing intake pipeline: parse, extract,
// geocode, classify, assess, report.
package intake

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/classify"
	"github.com/dellqs/qsintake/internal/entity"
	"github.com/dellqs/qsintake/internal/geocode"
	"github.com/dellqs/qsintake/internal/metadata"
	"github.com/dellqs/qsintake/internal/pdfparse"
	"github.com/dellqs/qsintake/internal/repository"
)

// Config tunes one Analyst instance.
type Config struct {
	OutputDir   string // default ./intake_output
	ProjectType constants.ProjectType
	Recursive   bool // recurse into subdirectories when input is a directory
}

// Result is the complete outcome of one intake analysis.
type Result struct {
	ProjectID        string                     `json:"project_id"`
	Manifest         *entity.DocumentManifest   `json:"manifest"`
	Completeness     *entity.CompletenessReport `json:"completeness"`
	MeasurementScope *entity.MeasurementScope   `json:"measurement_scope"`
	ProcessingTimeMS int64                      `json:"processing_time_ms"`
	Errors           []string                   `json:"errors,omitempty"`
	Warnings         []string                   `json:"warnings,omitempty"`
}

// Analyst is the first set of eyes on every project: it catalogues the
// package before analysing it and flags missing information explicitly
// rather than assuming.
type Analyst struct {
	cfg        Config
	parser     *pdfparse.Parser
	classifier *classify.Classifier
	extractor  *metadata.Extractor
	geocoder   *geocode.Geocoder
	store      *repository.Store // optional run history
	logger     *slog.Logger
}

func NewAnalyst(
	cfg Config,
	parser *pdfparse.Parser,
	classifier *classify.Classifier,
	extractor *metadata.Extractor,
	geocoder *geocode.Geocoder,
	store *repository.Store,
	logger *slog.Logger,
) *Analyst {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./intake_output"
	}
	if cfg.ProjectType == "" {
		cfg.ProjectType = constants.DefaultProject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyst{
		cfg:        cfg,
		parser:     parser,
		classifier: classifier,
		extractor:  extractor,
		geocoder:   geocoder,
		store:      store,
		logger:     logger,
	}
}

// Analyze runs the full intake pipeline over a PDF file or a directory of
// PDFs. Recoverable problems accumulate into the result's warnings and
// errors; the pipeline aborts only on a missing input path.
func (a *Analyst) Analyze(ctx context.Context, inputPath, projectID string) (*Result, error) {
	start := time.Now()

	if projectID == "" {
		projectID = strings.ToUpper(uuid.New().String()[:8])
	}
	if err := os.MkdirAll(a.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var errs []string
	var warnings []string

	// Step 1: parse PDFs.
	a.logger.Info("intake.start", "project_id", projectID, "input", inputPath)
	imagesDir := filepath.Join(a.cfg.OutputDir, "images")

	var pdfResults []*pdfparse.Result
	st, err := os.Stat(inputPath)
	switch {
	case err != nil:
		return nil, err
	case st.IsDir():
		results, dirWarnings, dirErr := a.parser.ParseDirectory(ctx, inputPath, imagesDir, a.cfg.Recursive)
		warnings = append(warnings, dirWarnings...)
		if dirErr != nil {
			errs = append(errs, dirErr.Error())
		}
		pdfResults = results
	default:
		res, parseErr := a.parser.Parse(ctx, inputPath, imagesDir)
		if parseErr != nil {
			errs = append(errs, parseErr.Error())
		} else {
			warnings = append(warnings, res.Warnings...)
			pdfResults = append(pdfResults, res)
		}
	}

	if len(pdfResults) == 0 {
		res := a.emptyResult(projectID, inputPath, errs, append(warnings, "No PDF documents processed"))
		res.ProcessingTimeMS = time.Since(start).Milliseconds()
		return res, nil
	}

	// Step 2: extract metadata from all page texts.
	a.logger.Info("intake.metadata", "project_id", projectID, "documents", len(pdfResults))

	var allPageTexts []string
	for _, pdf := range pdfResults {
		for _, page := range pdf.Pages {
			allPageTexts = append(allPageTexts, page.Text)
		}
	}

	projectMetadata := &entity.ProjectMetadata{}
	metaRes, err := a.extractor.ExtractFromPages(allPageTexts, pdfResults[0].FileName)
	if err != nil {
		errs = append(errs, err.Error())
	} else {
		projectMetadata = &metaRes.Metadata
		warnings = append(warnings, metaRes.Warnings...)
	}

	// Step 3: geocode the extracted location.
	if projectMetadata.Location != nil && projectMetadata.Location.Postcode != "" {
		a.logger.Info("intake.geocode", "project_id", projectID, "postcode", projectMetadata.Location.Postcode)
		enriched, _, geoWarnings := a.geocoder.EnrichLocation(ctx, projectMetadata.Location)
		projectMetadata.Location = enriched
		warnings = append(warnings, geoWarnings...)
	}

	// Step 4: classify every rasterized page.
	a.logger.Info("intake.classify", "project_id", projectID)

	var allDrawings []entity.DrawingInfo
	var documents []entity.DocumentEntry

	for _, pdf := range pdfResults {
		docEntry := pdf.DocumentEntry()
		var docDrawings []entity.DrawingInfo

		var imagePaths []string
		for _, page := range pdf.Pages {
			if page.ImagePath != "" {
				imagePaths = append(imagePaths, page.ImagePath)
			}
		}

		if len(imagePaths) > 0 {
			classifications, classWarnings, classErrs := a.classifier.ClassifyBatch(ctx, imagePaths)
			warnings = append(warnings, classWarnings...)
			for _, cerr := range classErrs {
				errs = append(errs, cerr.Error())
			}

			for i, cls := range classifications {
				info := cls.DrawingInfo(pdf.FilePath, i+1)
				info.ImagePath = imagePaths[i]
				if potential, ok := measurementPotential[info.DrawingType]; ok {
					info.MeasurementPotential = potential
				}
				docDrawings = append(docDrawings, info)
				allDrawings = append(allDrawings, info)
			}
		} else {
			warnings = append(warnings, fmt.Sprintf("No images extracted from %s", pdf.FileName))
		}

		docEntry.Drawings = docDrawings
		documents = append(documents, docEntry)
	}

	// Step 5: build the manifest.
	totalPages := 0
	for _, doc := range documents {
		totalPages += doc.PageCount
	}
	manifest := &entity.DocumentManifest{
		ProjectID:       projectID,
		CreatedAt:       time.Now().UTC(),
		SourceDirectory: inputPath,
		Documents:       documents,
		Metadata:        projectMetadata,
		TotalPages:      totalPages,
		TotalDrawings:   len(allDrawings),
	}

	// Steps 6 and 7: completeness and measurement scope.
	completeness := a.assessCompleteness(projectID, allDrawings, projectMetadata)
	scope := a.determineScope(projectID, allDrawings)

	// Step 8: persist outputs.
	if err := a.saveOutputs(projectID, manifest, completeness, scope); err != nil {
		errs = append(errs, err.Error())
	}

	result := &Result{
		ProjectID:        projectID,
		Manifest:         manifest,
		Completeness:     completeness,
		MeasurementScope: scope,
		ProcessingTimeMS: time.Since(start).Milliseconds(),
		Errors:           errs,
		Warnings:         warnings,
	}
	a.recordRun(ctx, inputPath, result)

	a.logger.Info("intake.ok",
		"project_id", projectID,
		"documents", len(documents),
		"drawings", len(allDrawings),
		"completeness_pct", completeness.OverallCompletenessPct,
		"recommendation", completeness.ProceedRecommendation,
		"elapsed_ms", result.ProcessingTimeMS,
	)
	return result, nil
}

func (a *Analyst) emptyResult(projectID, inputPath string, errs, warnings []string) *Result {
	manifest := &entity.DocumentManifest{
		ProjectID:       projectID,
		CreatedAt:       time.Now().UTC(),
		SourceDirectory: inputPath,
	}
	completeness := &entity.CompletenessReport{
		ProjectID:             projectID,
		AssessmentDate:        time.Now().UTC(),
		Status:                constants.StatusCriticalGaps,
		ProceedRecommendation: constants.Hold,
		HoldReasons:           []string{"No documents processed"},
	}
	scope := &entity.MeasurementScope{
		ProjectID:       projectID,
		AssessmentDate:  time.Now().UTC(),
		CoverageSummary: "No drawings available for measurement",
	}
	return &Result{
		ProjectID:        projectID,
		Manifest:         manifest,
		Completeness:     completeness,
		MeasurementScope: scope,
		Errors:           errs,
		Warnings:         warnings,
	}
}

func (a *Analyst) saveOutputs(projectID string, manifest *entity.DocumentManifest, completeness *entity.CompletenessReport, scope *entity.MeasurementScope) error {
	projectDir := filepath.Join(a.cfg.OutputDir, projectID)
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return fmt.Errorf("create project directory: %w", err)
	}

	manifestJSON, err := manifest.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	outputs := []struct {
		name string
		data []byte
	}{
		{"project_manifest.json", manifestJSON},
		{"completeness_report.md", []byte(completeness.Markdown())},
		{"measurement_scope.md", []byte(scope.Markdown())},
	}
	for _, out := range outputs {
		path := filepath.Join(projectDir, out.name)
		if err := os.WriteFile(path, out.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out.name, err)
		}
		a.logger.Info("intake.output.saved", "path", path)
	}
	return nil
}

// recordRun saves run history when a store is configured. Failures are
// logged, never fatal.
func (a *Analyst) recordRun(ctx context.Context, inputPath string, res *Result) {
	if a.store == nil {
		return
	}
	rec := repository.RunRecord{
		ProjectID:        res.ProjectID,
		InputPath:        inputPath,
		ProjectType:      string(a.cfg.ProjectType),
		Status:           string(res.Completeness.Status),
		Recommendation:   string(res.Completeness.ProceedRecommendation),
		CompletenessPct:  res.Completeness.OverallCompletenessPct,
		TotalDocuments:   len(res.Manifest.Documents),
		TotalDrawings:    res.Manifest.TotalDrawings,
		WarningCount:     len(res.Warnings),
		ErrorCount:       len(res.Errors),
		ProcessingTimeMS: res.ProcessingTimeMS,
	}
	if err := a.store.SaveRun(ctx, rec); err != nil {
		a.logger.Warn("intake.store.save_failed", "project_id", res.ProjectID, "error", err)
	}
}
