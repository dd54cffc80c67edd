package pdfparse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// rasterize renders every page to a PNG for vision classification and
// records the image path on the matching PageContent.
func (p *Parser) rasterize(ctx context.Context, path, outputDir string, res *Result) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	prefix := filepath.Join(outputDir, stem)

	// pdftoppm -r <dpi> -png <in.pdf> <out/stem>
	_, errb, err := p.runner.Run(ctx, p.cfg.Pdftoppm, "-r", fmt.Sprintf("%d", p.cfg.RasterDPI), "-png", path, prefix)
	if err != nil {
		return fmt.Errorf("pdftoppm: %w (%s)", err, truncateStderr(errb))
	}

	matches, err := collectRasterPages(outputDir, stem)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("pdftoppm produced no images")
	}

	for i := range res.Pages {
		if i < len(matches) {
			res.Pages[i].ImagePath = matches[i]
		}
	}
	if len(matches) != len(res.Pages) {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("rendered %d images for %d pages in %s", len(matches), len(res.Pages), res.FileName))
	}
	return nil
}

// collectRasterPages lists the PNGs pdftoppm wrote for one document
// (stem-1.png, stem-2.png, ...). Matching the page index digits exactly
// keeps documents with overlapping stems (plan.pdf, plan-2.pdf) in a shared
// output directory from claiming each other's pages. pdftoppm zero-pads the
// index, so lexicographic order is page order.
func collectRasterPages(outputDir, stem string) ([]string, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		return nil, err
	}
	pagePNG := regexp.MustCompile(`^` + regexp.QuoteMeta(stem) + `-\d+\.png$`)

	var matches []string
	for _, e := range entries {
		if !e.IsDir() && pagePNG.MatchString(e.Name()) {
			matches = append(matches, filepath.Join(outputDir, e.Name()))
		}
	}
	sort.Strings(matches)
	return matches, nil
}

func truncateStderr(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 256 {
		return s[:256] + "..."
	}
	return s
}
