// Package testutil builds small PDF and DOCX documents for tests.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/require"

	"docgate/internal/pdftext"
)

// PDF returns a document with one page per entry of pages. Lines of a page
// are separated by "\n" and drawn top to bottom in Helvetica.
func PDF(t testing.TB, pages ...string) []byte {
	t.Helper()
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Helvetica", "", 12)
	for _, page := range pages {
		pdf.AddPage()
		for i, line := range strings.Split(page, "\n") {
			pdf.Text(20, 30+float64(i)*8, line)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	return buf.Bytes()
}

// DOCX returns a document with a title, a formatted paragraph, a two item
// list and a 2x2 table.
func DOCX(t testing.TB) []byte {
	t.Helper()
	doc := docx.New().WithDefaultTheme()

	doc.AddParagraph().Style("Heading1").AddText("Quarterly Report")

	p := doc.AddParagraph()
	p.AddText("Revenue grew ")
	p.AddText("strongly").Bold()
	p.AddText(" this quarter.")

	doc.AddParagraph().NumPr("1", "0").AddText("first item")
	doc.AddParagraph().NumPr("1", "0").AddText("second item")

	tbl := doc.AddTable(2, 2, 9000, nil)
	for i, row := range tbl.TableRows {
		for j, cell := range row.TableCells {
			cell.AddParagraph().AddText(string(rune('A'+i)) + string(rune('1'+j)))
		}
	}

	var buf bytes.Buffer
	_, err := doc.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

// WriteFile stores data under dir and returns its path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// PageCount returns the number of pages of the PDF in data.
func PageCount(t testing.TB, data []byte) int {
	t.Helper()
	path := WriteFile(t, t.TempDir(), "count.pdf", data)
	n, err := api.PageCountFile(path)
	require.NoError(t, err)
	return n
}

// Text returns the extracted text of every page of the PDF in data, joined
// the way the pdf-to-txt conversion joins them.
func Text(t testing.TB, data []byte) string {
	t.Helper()
	dir := t.TempDir()
	path := WriteFile(t, dir, "text.pdf", data)
	pages, err := pdftext.ExtractPages(path, filepath.Join(dir, "content"), nil, model.NewDefaultConfiguration())
	require.NoError(t, err)
	return pdftext.Join(pages)
}

// HasWatermarks reports whether pdfcpu finds a watermark in the PDF in data.
func HasWatermarks(t testing.TB, data []byte) bool {
	t.Helper()
	path := WriteFile(t, t.TempDir(), "marked.pdf", data)
	ok, err := api.HasWatermarksFile(path, model.NewDefaultConfiguration())
	require.NoError(t, err)
	return ok
}
