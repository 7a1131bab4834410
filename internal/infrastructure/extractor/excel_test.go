package extractor

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", "Preguntas")
	f.SetCellValue("Preguntas", "A1", "Pregunta")
	f.SetCellValue("Preguntas", "B1", "Respuesta esperada")
	f.SetCellValue("Preguntas", "A2", "¿Cumple ISO 9001?")
	f.SetCellValue("Preguntas", "B2", "Sí/No")
	// A4 left empty so row 3 is blank.
	f.SetCellValue("Preguntas", "A4", "¿Tiene cobertura nacional?")

	if _, err := f.NewSheet("Criterios"); err != nil {
		t.Fatalf("adding sheet: %v", err)
	}
	f.SetCellValue("Criterios", "A1", "Criterio")
	f.SetCellValue("Criterios", "A2", "Experiencia")

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("writing workbook: %v", err)
	}
	return buf.Bytes()
}

func TestExtractTextLabelsSheetsAndJoinsRows(t *testing.T) {
	text, err := NewExcel().ExtractText(buildWorkbook(t))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}

	if !strings.Contains(text, "=== Hoja: Preguntas ===") {
		t.Errorf("missing first sheet header:\n%s", text)
	}
	if !strings.Contains(text, "=== Hoja: Criterios ===") {
		t.Errorf("missing second sheet header:\n%s", text)
	}
	if !strings.Contains(text, "Pregunta | Respuesta esperada") {
		t.Errorf("rows not pipe-joined:\n%s", text)
	}
	if !strings.Contains(text, "¿Cumple ISO 9001? | Sí/No") {
		t.Errorf("content row missing:\n%s", text)
	}
}

func TestExtractTextDropsEmptyRows(t *testing.T) {
	text, err := NewExcel().ExtractText(buildWorkbook(t))
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(strings.ReplaceAll(line, "|", "")) == "" && line != "" {
			t.Errorf("empty row survived: %q", line)
		}
	}
}

func TestToCSVUsesFirstSheet(t *testing.T) {
	csvBytes, err := NewExcel().ToCSV(buildWorkbook(t))
	if err != nil {
		t.Fatalf("ToCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(csvBytes)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	if lines[0] != "Pregunta,Respuesta esperada" {
		t.Errorf("header = %q", lines[0])
	}
	// Second sheet content must not leak into the CSV.
	if strings.Contains(string(csvBytes), "Criterio") {
		t.Errorf("csv = %q", csvBytes)
	}
}

func TestExtractSheetsRejectsCorruptContent(t *testing.T) {
	if _, err := NewExcel().ExtractSheets([]byte("no es un workbook")); err == nil {
		t.Fatal("expected error for corrupt content")
	}
}
