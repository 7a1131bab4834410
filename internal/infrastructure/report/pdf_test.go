package report

import (
	"bytes"
	"testing"

	"github.com/danielespinosa-dev/rfp-agilismo-backend/internal/domain/document"
)

func TestRenderProducesPDF(t *testing.T) {
	sheets := []document.Sheet{
		{
			Name: "Evaluación",
			Rows: [][]string{
				{"Criterio", "Resultado"},
				{"puntaje", "92"},
				{"concepto", "favorable"},
			},
		},
	}

	out, err := NewPDF().Render("Evaluación PRY-001 - Aceros del Norte", sheets)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF: %q", out[:min(16, len(out))])
	}
}

func TestRenderHandlesUnevenRows(t *testing.T) {
	sheets := []document.Sheet{
		{
			Name: "Irregular",
			Rows: [][]string{
				{"a", "b", "c"},
				{"solo una"},
				{},
			},
		},
	}
	if _, err := NewPDF().Render("título con acentos: evaluación", sheets); err != nil {
		t.Fatalf("Render: %v", err)
	}
}

func TestRenderEmptySheets(t *testing.T) {
	out, err := NewPDF().Render("Sin datos", nil)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) == 0 {
		t.Fatal("empty output")
	}
}
