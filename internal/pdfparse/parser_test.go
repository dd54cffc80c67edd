package pdfparse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dellqs/qsintake/constants"
)

func testParser() *Parser {
	return NewParser(Config{Rasterize: false}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// writeMinimalPDF assembles a single-page PDF by hand, tracking byte offsets
// so the cross-reference table is exact.
func writeMinimalPDF(t *testing.T, dir string) string {
	t.Helper()

	var buf bytes.Buffer
	offsets := make([]int, 6)
	buf.WriteString("%PDF-1.4\n")
	obj := func(num int, body string) {
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, body)
	}

	content := "BT /F1 12 Tf 72 720 Td (Ground Floor Plan 1:100) Tj ET"
	obj(1, "<< /Type /Catalog /Pages 2 0 R >>")
	obj(2, "<< /Type /Pages /Kids [3 0 R] /Count 1 >>")
	obj(3, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Rotate 0 "+
		"/Resources << /Font << /F1 5 0 R >> >> /Contents 4 0 R >>")
	obj(4, fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	obj(5, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	xref := buf.Len()
	buf.WriteString("xref\n0 6\n0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[i])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", xref)

	path := filepath.Join(dir, "plan.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestParseValidPDFDeterministic(t *testing.T) {
	path := writeMinimalPDF(t, t.TempDir())
	p := testParser()

	first, err := p.Parse(context.Background(), path, "")
	require.NoError(t, err)
	second, err := p.Parse(context.Background(), path, "")
	require.NoError(t, err)

	// Re-parsing the same file agrees on hash and structure.
	assert.Equal(t, first.HashMD5, second.HashMD5)
	assert.Equal(t, first.PageCount, second.PageCount)
	assert.Len(t, first.HashMD5, 32)

	require.Equal(t, 1, first.PageCount)
	require.Len(t, first.Pages, 1)
	page := first.Pages[0]
	assert.Equal(t, 1, page.PageNumber)
	assert.InDelta(t, 595.0, page.WidthPts, 1e-9)
	assert.InDelta(t, 842.0, page.HeightPts, 1e-9)
	assert.False(t, page.HasImages)
	assert.Equal(t, page.Text, second.Pages[0].Text)

	// A vector page with no embedded images is never flagged as scanned.
	assert.False(t, first.IsScanned)
	assert.Equal(t, constants.QualityGood, first.Quality)
	assert.Empty(t, first.Warnings)
}

func TestParseMissingFile(t *testing.T) {
	_, err := testParser().Parse(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), "")
	assert.Error(t, err)
}

func TestParseWrongExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drawing.dwg")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))

	_, err := testParser().Parse(context.Background(), path, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected PDF file")
}

func TestParseCorruptPDFIsFatal(t *testing.T) {
	// A .pdf extension with garbage content must fail cleanly, not panic.
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 garbage with no xref"), 0o644))

	_, err := testParser().Parse(context.Background(), path, "")
	assert.Error(t, err)
}

func TestParseDirectoryMissing(t *testing.T) {
	_, _, err := testParser().ParseDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "directory not found")
}

func TestParseDirectoryEmpty(t *testing.T) {
	results, warnings, err := testParser().ParseDirectory(context.Background(), t.TempDir(), "", false)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Contains(t, warnings, "No PDF files found in directory")
}

func TestParseDirectoryAllCorruptFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.pdf"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.pdf"), []byte("junk"), 0o644))

	_, warnings, err := testParser().ParseDirectory(context.Background(), dir, "", false)
	require.Error(t, err)
	assert.Len(t, warnings, 2)
}

func TestFindPDFs(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "revA")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	for _, name := range []string{"b.pdf", "a.PDF", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(sub, "c.pdf"), []byte("x"), 0o644))

	flat, err := findPDFs(dir, false)
	require.NoError(t, err)
	require.Len(t, flat, 2)
	assert.True(t, strings.HasSuffix(flat[0], "a.PDF"))
	assert.True(t, strings.HasSuffix(flat[1], "b.pdf"))

	recursive, err := findPDFs(dir, true)
	require.NoError(t, err)
	assert.Len(t, recursive, 3)
}

func TestHashFileDeterministic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, []byte("stable content"), 0o644))

	first, err := hashFile(path)
	require.NoError(t, err)
	second, err := hashFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestDetectScanned(t *testing.T) {
	tests := []struct {
		name          string
		pages         []PageContent
		wantScanned   bool
		wantTextLayer bool
	}{
		{
			name:          "text heavy document",
			pages:         []PageContent{{Text: strings.Repeat("specification text ", 20)}},
			wantScanned:   false,
			wantTextLayer: true,
		},
		{
			name:          "images with no text",
			pages:         []PageContent{{Text: "", ImageCount: 2}},
			wantScanned:   true,
			wantTextLayer: false,
		},
		{
			name:          "scanned with thin OCR layer",
			pages:         []PageContent{{Text: strings.Repeat("a", 30), ImageCount: 1}},
			wantScanned:   true,
			wantTextLayer: true,
		},
		{
			name:          "no pages",
			pages:         nil,
			wantScanned:   false,
			wantTextLayer: false,
		},
		{
			name:          "empty vector drawing",
			pages:         []PageContent{{Text: ""}},
			wantScanned:   false,
			wantTextLayer: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isScanned, hasText := detectScanned(tt.pages)
			assert.Equal(t, tt.wantScanned, isScanned)
			assert.Equal(t, tt.wantTextLayer, hasText)
		})
	}
}
