package pdfparse

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dellqs/qsintake/constants"
	"github.com/dellqs/qsintake/internal/common"
)

// ParseDirectory parses every PDF found under dir. Individual parse failures
// become warnings; the batch fails only when the directory itself is missing
// or when PDFs were found but none parsed. An empty directory yields an
// empty result list plus a warning.
func (p *Parser) ParseDirectory(ctx context.Context, dir, outputDir string, recursive bool) ([]*Result, []string, error) {
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return nil, nil, common.NewFatalError("DIR_NOT_FOUND", fmt.Sprintf("directory not found: %s", dir), common.ErrNotFound)
	}

	files, err := findPDFs(dir, recursive)
	if err != nil {
		return nil, nil, common.NewFatalError("DIR_SCAN_ERROR", fmt.Sprintf("scanning directory: %s", dir), err)
	}
	if len(files) == 0 {
		return nil, []string{"No PDF files found in directory"}, nil
	}

	var (
		results  []*Result
		warnings []string
	)
	for _, file := range files {
		res, err := p.Parse(ctx, file, outputDir)
		if err != nil {
			p.logger.Warn("pdfparse.file_failed", "file", file, "error", err)
			warnings = append(warnings, fmt.Sprintf("failed to parse %s: %v", filepath.Base(file), err))
			continue
		}
		warnings = append(warnings, res.Warnings...)
		results = append(results, res)
	}

	if len(results) == 0 {
		return nil, warnings, common.NewFatalError("BATCH_FAILED", "no PDF files could be parsed", common.ErrInvalidInput)
	}
	return results, warnings, nil
}

func findPDFs(dir string, recursive bool) ([]string, error) {
	var files []string
	if recursive {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && constants.NormalizeExt(filepath.Ext(path)) == "pdf" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	} else {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && constants.NormalizeExt(filepath.Ext(e.Name())) == "pdf" {
				files = append(files, filepath.Join(dir, e.Name()))
			}
		}
	}
	sort.Strings(files)
	return files, nil
}
