package pdfparse

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/common"
	"github.com/dellqs/qsintake/internal/entity"
	"github.com/dellqs/qsintake/internal/runner"
)

// Config controls parsing and page rasterization.
type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	RasterDPI int    // rasterization DPI for vision processing, default 150
	Rasterize bool
}

// PageContent is the content extracted from a single PDF page.
type PageContent struct {
	PageNumber int     `json:"page_number"`
	Text       string  `json:"text"`
	HasImages  bool    `json:"has_images"`
	ImageCount int     `json:"image_count"`
	WidthPts   float64 `json:"width_pts"`
	HeightPts  float64 `json:"height_pts"`
	Rotation   int     `json:"rotation"`
	ImagePath  string  `json:"image_path,omitempty"`
}

// Result is the outcome of parsing one PDF file.
type Result struct {
	FilePath      string
	FileName      string
	FileSizeBytes int64
	HashMD5       string
	PageCount     int
	Pages         []PageContent
	DocInfo       map[string]string
	IsScanned     bool
	HasTextLayer  bool
	Quality       constants.ExtractionQuality
	Warnings      []string
}

// DocumentEntry converts the result into a manifest entry.
func (r *Result) DocumentEntry() entity.DocumentEntry {
	return entity.DocumentEntry{
		FileName:      r.FileName,
		FilePath:      r.FilePath,
		FileType:      "application/pdf",
		FileSizeBytes: r.FileSizeBytes,
		PageCount:     r.PageCount,
		Status:        constants.DocPresent,
		HashMD5:       r.HashMD5,
		ReceivedDate:  time.Now().UTC(),
	}
}

// Parser extracts text, geometry and rasterized page images from PDFs.
type Parser struct {
	cfg    Config
	runner runner.Runner
	logger *slog.Logger
}

func NewParser(cfg Config, run runner.Runner, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if run == nil {
		run = runner.New()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.RasterDPI <= 0 {
		cfg.RasterDPI = 150
	}
	return &Parser{cfg: cfg, runner: run, logger: logger}
}

// Parse reads one PDF and extracts per-page content. Rasterized page images
// are written under outputDir when rasterization is enabled. A missing path
// or a non-PDF extension is fatal; degraded text layers only add warnings.
func (p *Parser) Parse(ctx context.Context, path, outputDir string) (*Result, error) {
	start := time.Now()

	st, err := os.Stat(path)
	if err != nil {
		return nil, common.NewFatalError("FILE_NOT_FOUND", fmt.Sprintf("file not found: %s", path), common.ErrNotFound)
	}
	if constants.NormalizeExt(filepath.Ext(path)) != "pdf" {
		return nil, common.NewFatalError("INVALID_FILE_TYPE", fmt.Sprintf("expected PDF file, got: %s", filepath.Ext(path)), common.ErrInvalidInput)
	}

	sum, err := hashFile(path)
	if err != nil {
		return nil, common.NewFatalError("READ_ERROR", "hashing file", err)
	}

	res := &Result{
		FilePath:      path,
		FileName:      filepath.Base(path),
		FileSizeBytes: st.Size(),
		HashMD5:       sum,
	}

	pages, info, err := readPDF(path)
	if err != nil {
		return nil, common.NewFatalError("PARSE_ERROR", fmt.Sprintf("failed to parse PDF: %s", path), err)
	}
	res.Pages = pages
	res.PageCount = len(pages)
	res.DocInfo = info

	if p.cfg.Rasterize && outputDir != "" {
		if err := p.rasterize(ctx, path, outputDir, res); err != nil {
			// Recoverable: classification degrades, the pipeline continues.
			res.Warnings = append(res.Warnings, fmt.Sprintf("page rasterization failed: %v", err))
		}
	}

	res.IsScanned, res.HasTextLayer = detectScanned(res.Pages)
	switch {
	case res.IsScanned && !res.HasTextLayer:
		res.Quality = constants.QualityPoor
		res.Warnings = append(res.Warnings, "PDF appears to be scanned without OCR. Text extraction limited.")
	case res.IsScanned:
		res.Quality = constants.QualityPartial
		res.Warnings = append(res.Warnings, "PDF appears to be scanned with OCR. Text extraction may be imperfect.")
	default:
		res.Quality = constants.QualityGood
	}

	p.logger.Info("pdfparse.ok",
		"file", res.FileName,
		"pages", res.PageCount,
		"hash_md5", res.HashMD5,
		"scanned", res.IsScanned,
		"quality", res.Quality,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// readPDF pulls text, image counts and geometry per page. The pdf package
// panics on some malformed cross-reference tables, so recover into an error.
func readPDF(path string) (pages []PageContent, info map[string]string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	info = docInfo(r)

	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		pc := PageContent{PageNumber: i, WidthPts: 612, HeightPts: 792}
		if page.V.IsNull() {
			pages = append(pages, pc)
			continue
		}

		if text, terr := page.GetPlainText(nil); terr == nil {
			pc.Text = text
		}
		pc.ImageCount = countImages(page.V)
		pc.HasImages = pc.ImageCount > 0
		if box := page.V.Key("MediaBox"); !box.IsNull() && box.Len() == 4 {
			pc.WidthPts = box.Index(2).Float64() - box.Index(0).Float64()
			pc.HeightPts = box.Index(3).Float64() - box.Index(1).Float64()
		}
		pc.Rotation = int(page.V.Key("Rotate").Int64())

		pages = append(pages, pc)
	}
	return pages, info, nil
}

func countImages(page pdf.Value) int {
	xobjects := page.Key("Resources").Key("XObject")
	if xobjects.IsNull() {
		return 0
	}
	count := 0
	for _, name := range xobjects.Keys() {
		if xobjects.Key(name).Key("Subtype").Name() == "Image" {
			count++
		}
	}
	return count
}

func docInfo(r *pdf.Reader) map[string]string {
	out := map[string]string{}
	trailer := r.Trailer()
	if trailer.IsNull() {
		return out
	}
	info := trailer.Key("Info")
	if info.IsNull() {
		return out
	}
	for _, key := range []string{"Title", "Author", "Subject", "Creator", "Producer", "CreationDate", "ModDate", "Keywords"} {
		if v := info.Key(key); !v.IsNull() {
			if s := strings.TrimSpace(v.Text()); s != "" {
				out[strings.ToLower(key)] = s
			}
		}
	}
	return out
}

// detectScanned applies the text-density heuristic: very little text per
// page combined with embedded images means a scanned document.
func detectScanned(pages []PageContent) (isScanned, hasTextLayer bool) {
	if len(pages) == 0 {
		return false, false
	}

	totalText := 0
	totalImages := 0
	for _, p := range pages {
		totalText += len(strings.TrimSpace(p.Text))
		totalImages += p.ImageCount
	}
	avgTextPerPage := float64(totalText) / float64(len(pages))

	if avgTextPerPage < 50 && totalImages > 0 {
		return true, avgTextPerPage > 10
	}
	return false, totalText > 0
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("close file error", "path", path, "error", cerr)
		}
	}()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
