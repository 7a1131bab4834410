// Package document declares the collaborators that turn an inbound submission
// into assistant-ready material: archive unpacking, spreadsheet extraction,
// and tabular report rendering.
package document

import (
	"context"
	"strings"
)

// File is one flat file recovered from a submission.
type File struct {
	Name    string
	Content []byte
}

// Unpacker recursively flattens nested compressed bundles into individual
// files. Non-archive entries pass through untouched.
type Unpacker interface {
	Unpack(ctx context.Context, files []File) ([]File, error)
}

// Sheet is one extracted spreadsheet tab.
type Sheet struct {
	Name string
	Rows [][]string
}

// Extractor converts a spreadsheet into assistant-ready content.
type Extractor interface {
	// ExtractText flattens every sheet into a plain text block the assistant
	// can read directly.
	ExtractText(content []byte) (string, error)

	// ExtractSheets returns the raw tabular content of every sheet.
	ExtractSheets(content []byte) ([]Sheet, error)

	// ToCSV transcodes the first sheet into comma-delimited text, header row
	// included. Used before uploading spreadsheets to the remote file store.
	ToCSV(content []byte) ([]byte, error)
}

// Renderer produces a tabular report document from extracted sheets.
type Renderer interface {
	Render(title string, sheets []Sheet) ([]byte, error)
}

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp"}

// IsImage reports whether the filename carries an image extension. Image
// attachments are dropped before upload.
func IsImage(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// IsSpreadsheet reports whether the filename is an Excel workbook.
func IsSpreadsheet(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}

// IsArchive reports whether the filename is a supported compressed bundle.
func IsArchive(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".zip") || strings.HasSuffix(lower, ".rar")
}

// SpreadsheetToTextName rewrites a workbook filename to its transcoded form.
func SpreadsheetToTextName(filename string) string {
	if idx := strings.LastIndex(filename, "."); idx > 0 {
		return filename[:idx] + ".txt"
	}
	return filename + ".txt"
}
