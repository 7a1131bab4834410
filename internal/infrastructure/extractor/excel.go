// Package extractor reads spreadsheet workbooks into assistant-ready text.
package extractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
)

// Excel extracts content from xlsx/xls workbooks via excelize.
type Excel struct{}

// NewExcel builds the extractor.
func NewExcel() *Excel {
	return &Excel{}
}

// ExtractText flattens every sheet into a labeled plain text block. Rows are
// pipe-joined and empty rows are dropped.
func (e *Excel) ExtractText(content []byte) (string, error) {
	sheets, err := e.ExtractSheets(content)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, sheet := range sheets {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "=== Hoja: %s ===\n", sheet.Name)
		for _, row := range sheet.Rows {
			if emptyRow(row) {
				continue
			}
			b.WriteString(strings.Join(row, " | "))
			b.WriteString("\n")
		}
	}
	return b.String(), nil
}

// ExtractSheets returns the raw tabular content of every sheet.
func (e *Excel) ExtractSheets(content []byte) ([]document.Sheet, error) {
	workbook, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer workbook.Close()

	var sheets []document.Sheet
	for _, name := range workbook.GetSheetList() {
		rows, err := workbook.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("reading sheet %q: %w", name, err)
		}
		sheets = append(sheets, document.Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}

// ToCSV transcodes the first sheet into comma-delimited text.
func (e *Excel) ToCSV(content []byte) ([]byte, error) {
	sheets, err := e.ExtractSheets(content)
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range sheets[0].Rows {
		if emptyRow(row) {
			continue
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Ensure interface compliance.
var _ document.Extractor = (*Excel)(nil)
