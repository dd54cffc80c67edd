package boq

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

var csvHeaders = []string{
	"Item Number", "Section", "Subsection", "Description",
	"Unit", "Quantity", "Rate", "Amount",
}

var calculationHeaders = []string{"Calculation Notes", "Reference Drawing", "Measurement Rule"}

// ExportCSV writes a project preamble, the column headers, one row per item
// and a trailing TOTAL row.
func (e *Exporter) ExportCSV(outputPath string, includeCalculations bool) (string, error) {
	start := time.Now()
	if err := ensureDir(outputPath); err != nil {
		return "", err
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	headers := csvHeaders
	if includeCalculations {
		headers = append(append([]string{}, csvHeaders...), calculationHeaders...)
	}
	width := len(headers)
	pad := func(cells ...string) []string {
		row := make([]string, width)
		copy(row, cells)
		return row
	}

	w := csv.NewWriter(f)
	rows := [][]string{
		pad("Project: " + e.ProjectName),
		pad("Project Number: " + e.ProjectNumber),
		pad("Date: " + e.createdDate()),
		pad("Software: " + softwareName),
		pad(),
		headers,
	}
	for _, it := range e.items {
		cells := []string{
			it.ItemNumber, it.Section, it.Subsection, it.Description, it.Unit,
			formatFloat(it.Quantity), formatFloat(it.Rate), formatFloat(it.Amount),
		}
		if includeCalculations {
			cells = append(cells, it.CalculationNotes, it.ReferenceDrawing, it.MeasurementRule)
		}
		rows = append(rows, pad(cells...))
	}

	totalRow := pad()
	totalRow[3] = "TOTAL"
	totalRow[7] = fmt.Sprintf("%.2f", totalAmount(e.items))
	rows = append(rows, pad(), totalRow)

	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("csv write: %w", err)
	}

	e.logger.Info("export.csv.ok",
		"path", outputPath,
		"items", len(e.items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outputPath, nil
}

type xmlItem struct {
	ItemNumber       string  `xml:"ItemNumber"`
	Section          string  `xml:"Section"`
	Subsection       string  `xml:"Subsection"`
	Description      string  `xml:"Description"`
	Unit             string  `xml:"Unit"`
	Quantity         float64 `xml:"Quantity"`
	Rate             float64 `xml:"Rate"`
	Amount           float64 `xml:"Amount"`
	CalculationNotes *string `xml:"CalculationNotes,omitempty"`
	ReferenceDrawing *string `xml:"ReferenceDrawing,omitempty"`
	MeasurementRule  *string `xml:"MeasurementRule,omitempty"`
}

type xmlDocument struct {
	XMLName     xml.Name `xml:"BillOfQuantities"`
	ProjectInfo struct {
		ProjectName   string `xml:"ProjectName"`
		ProjectNumber string `xml:"ProjectNumber"`
		CreatedDate   string `xml:"CreatedDate"`
		Software      string `xml:"Software"`
	} `xml:"ProjectInformation"`
	Items   []xmlItem `xml:"Items>Item"`
	Summary struct {
		TotalItems  int    `xml:"TotalItems"`
		TotalAmount string `xml:"TotalAmount"`
	} `xml:"Summary"`
}

// ExportXML writes an indented BillOfQuantities document.
func (e *Exporter) ExportXML(outputPath string, includeCalculations bool) (string, error) {
	start := time.Now()
	if err := ensureDir(outputPath); err != nil {
		return "", err
	}

	var doc xmlDocument
	doc.ProjectInfo.ProjectName = e.ProjectName
	doc.ProjectInfo.ProjectNumber = e.ProjectNumber
	doc.ProjectInfo.CreatedDate = e.createdDate()
	doc.ProjectInfo.Software = softwareName

	for _, it := range e.items {
		xi := xmlItem{
			ItemNumber:  it.ItemNumber,
			Section:     it.Section,
			Subsection:  it.Subsection,
			Description: it.Description,
			Unit:        it.Unit,
			Quantity:    it.Quantity,
			Rate:        it.Rate,
			Amount:      it.Amount,
		}
		if includeCalculations {
			notes, ref, rule := it.CalculationNotes, it.ReferenceDrawing, it.MeasurementRule
			xi.CalculationNotes = &notes
			xi.ReferenceDrawing = &ref
			xi.MeasurementRule = &rule
		}
		doc.Items = append(doc.Items, xi)
	}
	doc.Summary.TotalItems = len(e.items)
	doc.Summary.TotalAmount = fmt.Sprintf("%.2f", totalAmount(e.items))

	b, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("xml marshal: %w", err)
	}
	out := append([]byte(xml.Header), b...)
	out = append(out, '\n')
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return "", fmt.Errorf("xml write: %w", err)
	}

	e.logger.Info("export.xml.ok",
		"path", outputPath,
		"items", len(e.items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outputPath, nil
}

// ExportJSON writes project information, items and a summary whose
// total_amount is rounded to two decimals.
func (e *Exporter) ExportJSON(outputPath string, includeCalculations bool) (string, error) {
	start := time.Now()
	if err := ensureDir(outputPath); err != nil {
		return "", err
	}

	items := make([]map[string]any, 0, len(e.items))
	for _, it := range e.items {
		entry := map[string]any{
			"Item Number": it.ItemNumber,
			"Section":     it.Section,
			"Subsection":  it.Subsection,
			"Description": it.Description,
			"Unit":        it.Unit,
			"Quantity":    it.Quantity,
			"Rate":        it.Rate,
			"Amount":      it.Amount,
		}
		if includeCalculations {
			entry["Calculation Notes"] = it.CalculationNotes
			entry["Reference Drawing"] = it.ReferenceDrawing
			entry["Measurement Rule"] = it.MeasurementRule
		}
		items = append(items, entry)
	}

	data := map[string]any{
		"project_information": map[string]any{
			"project_name":   e.ProjectName,
			"project_number": e.ProjectNumber,
			"created_date":   e.createdDate(),
			"software":       softwareName,
		},
		"items": items,
		"summary": map[string]any{
			"total_items":  len(e.items),
			"total_amount": math.Round(totalAmount(e.items)*100) / 100,
		},
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("json marshal: %w", err)
	}
	if err := os.WriteFile(outputPath, append(b, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("json write: %w", err)
	}

	e.logger.Info("export.json.ok",
		"path", outputPath,
		"items", len(e.items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return outputPath, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
