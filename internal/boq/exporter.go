package boq

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/dellqs/qsintake/internal/common"
)

const softwareName = "qsintake"

// Exporter collects BOQ items and writes them out in one of the supported
// interchange formats with a project header and a grand total.
type Exporter struct {
	ProjectName   string
	ProjectNumber string
	CreatedDate   time.Time

	items  []Item
	logger *slog.Logger
}

func NewExporter(projectName, projectNumber string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		ProjectName:   projectName,
		ProjectNumber: projectNumber,
		CreatedDate:   time.Now(),
		logger:        logger,
	}
}

// AddItems appends items, deriving amounts where missing.
func (e *Exporter) AddItems(items ...Item) {
	for _, it := range items {
		it.ResolveAmount()
		e.items = append(e.items, it)
	}
}

func (e *Exporter) Items() []Item { return e.items }

func (e *Exporter) createdDate() string {
	return e.CreatedDate.Format("2006-01-02 15:04:05")
}

// Export dispatches on format ("xlsx"/"excel", "csv", "xml", "json") and
// returns the written path.
func (e *Exporter) Export(outputPath, format string, includeCalculations bool) (string, error) {
	switch strings.ToLower(format) {
	case "xlsx", "excel":
		return e.ExportXLSX(outputPath, includeCalculations)
	case "csv":
		return e.ExportCSV(outputPath, includeCalculations)
	case "xml":
		return e.ExportXML(outputPath, includeCalculations)
	case "json":
		return e.ExportJSON(outputPath, includeCalculations)
	default:
		return "", common.NewAppError("INVALID_FORMAT",
			fmt.Sprintf("unsupported export format: %s (use xlsx, csv, xml or json)", format), common.ErrInvalidInput)
	}
}

// ExportXLSX writes a styled workbook: title row, project header block,
// section banner rows, number-formatted amounts, a TOTAL row and frozen
// column headers.
func (e *Exporter) ExportXLSX(outputPath string, includeCalculations bool) (string, error) {
	start := time.Now()
	if err := ensureDir(outputPath); err != nil {
		return "", err
	}

	f := excelize.NewFile()
	const sheet = "Bill of Quantities"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return "", err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if defIndex, _ := f.GetSheetIndex("Sheet1"); defIndex != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{"Item No.", "Section", "Subsection", "Description", "Unit", "Quantity", "Rate", "Amount"}
	colWidths := []float64{10, 20, 20, 50, 10, 12, 12, 15}
	if includeCalculations {
		headers = append(headers, "Calculation Notes", "Reference", "Rule")
		colWidths = append(colWidths, 40, 15, 15)
	}

	titleStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}})
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"366092"}},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	sectionStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	numFmt := "#,##0.00"
	numberStyle, _ := f.NewStyle(&excelize.Style{
		CustomNumFmt: &numFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})
	totalStyle, _ := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		CustomNumFmt: &numFmt,
		Alignment:    &excelize.Alignment{Horizontal: "right"},
	})

	set := func(col, row int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(sheet, cell, v)
	}

	row := 1
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.MergeCell(sheet, "A1", lastCol+"1")
	set(1, row, "BILL OF QUANTITIES - "+e.ProjectName)
	_ = f.SetCellStyle(sheet, "A1", "A1", titleStyle)

	row++
	set(1, row, "Project Number:")
	set(2, row, e.ProjectNumber)
	row++
	set(1, row, "Date:")
	set(2, row, e.createdDate())
	row++
	set(1, row, "Generated by:")
	set(2, row, softwareName)
	row += 2

	headerRow := row
	for i, h := range headers {
		set(i+1, row, h)
		colName, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, colName, colName, colWidths[i])
	}
	first, _ := excelize.CoordinatesToCellName(1, headerRow)
	last, _ := excelize.CoordinatesToCellName(len(headers), headerRow)
	_ = f.SetCellStyle(sheet, first, last, headerStyle)
	row++
	dataStartRow := row

	currentSection := ""
	for _, it := range e.items {
		if it.Section != "" && it.Section != currentSection {
			from, _ := excelize.CoordinatesToCellName(1, row)
			to, _ := excelize.CoordinatesToCellName(len(headers), row)
			_ = f.MergeCell(sheet, from, to)
			set(1, row, it.Section)
			_ = f.SetCellStyle(sheet, from, from, sectionStyle)
			currentSection = it.Section
			row++
		}

		values := []any{it.ItemNumber, it.Section, it.Subsection, it.Description, it.Unit, it.Quantity, it.Rate, it.Amount}
		if includeCalculations {
			values = append(values, it.CalculationNotes, it.ReferenceDrawing, it.MeasurementRule)
		}
		for col, v := range values {
			set(col+1, row, v)
		}
		qtyCell, _ := excelize.CoordinatesToCellName(6, row)
		amtCell, _ := excelize.CoordinatesToCellName(8, row)
		_ = f.SetCellStyle(sheet, qtyCell, amtCell, numberStyle)
		row++
	}

	row++
	from, _ := excelize.CoordinatesToCellName(1, row)
	to, _ := excelize.CoordinatesToCellName(len(headers)-1, row)
	_ = f.MergeCell(sheet, from, to)
	set(1, row, "TOTAL")
	set(len(headers), row, totalAmount(e.items))
	totalCell, _ := excelize.CoordinatesToCellName(len(headers), row)
	_ = f.SetCellStyle(sheet, from, from, totalStyle)
	_ = f.SetCellStyle(sheet, totalCell, totalCell, totalStyle)

	freezeCell, _ := excelize.CoordinatesToCellName(1, dataStartRow)
	_ = f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      dataStartRow - 1,
		TopLeftCell: freezeCell,
		ActivePane:  "bottomLeft",
	})

	if err := f.SaveAs(outputPath); err != nil {
		return "", fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"path", outputPath,
		"items", len(e.items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outputPath, nil
}

func ensureDir(outputPath string) error {
	dir := filepath.Dir(outputPath)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
