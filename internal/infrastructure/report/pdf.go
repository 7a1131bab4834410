// Package report renders evaluation results as PDF documents.
package report

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
)

// PDF renders one table per sheet on A4 pages.
type PDF struct{}

// NewPDF builds the renderer.
func NewPDF() *PDF {
	return &PDF{}
}

// Render produces the PDF bytes for the given sheets. The first row of each
// sheet is treated as the header row.
func (p *PDF) Render(title string, sheets []document.Sheet) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.MultiCell(0, 8, tr(title), "", "L", false)
	pdf.Ln(4)

	for _, sheet := range sheets {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 7, tr(sheet.Name), "", 1, "L", false, 0, "")
		pdf.Ln(1)

		widths := columnWidths(pdf, sheet.Rows)
		for i, row := range sheet.Rows {
			if i == 0 {
				pdf.SetFont("Helvetica", "B", 9)
				pdf.SetFillColor(230, 230, 230)
			} else {
				pdf.SetFont("Helvetica", "", 9)
				pdf.SetFillColor(255, 255, 255)
			}
			for j, cell := range row {
				w := widths[len(widths)-1]
				if j < len(widths) {
					w = widths[j]
				}
				pdf.CellFormat(w, 6, tr(cell), "1", 0, "L", i == 0, 0, "")
			}
			pdf.Ln(-1)
		}
		pdf.Ln(6)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths spreads the printable width evenly over the widest row.
func columnWidths(pdf *fpdf.Fpdf, rows [][]string) []float64 {
	cols := 1
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	printable := pageW - left - right

	widths := make([]float64, cols)
	for i := range widths {
		widths[i] = printable / float64(cols)
	}
	return widths
}

// Ensure interface compliance.
var _ document.Renderer = (*PDF)(nil)
