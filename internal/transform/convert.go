package transform

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"docgate/internal/docxhtml"
	"docgate/internal/htmlpdf"
	dmodel "docgate/internal/model"
	"docgate/internal/pdftext"
	"docgate/internal/storage"
)

type pdfToDOCX struct{}

// PDFToDOCX rebuilds the text of a PDF as a DOCX document, one paragraph per
// line and a page break between pages. StartPage and EndPage, when set,
// restrict the pages converted.
func PDFToDOCX() Capability { return pdfToDOCX{} }

func (pdfToDOCX) Kind() dmodel.Kind { return dmodel.KindPDFToDOCX }

func (pdfToDOCX) Validate(p dmodel.Params) error {
	if p.StartPage < 0 || p.EndPage < 0 {
		return invalid(fmt.Errorf("%w: pages start at 1", ErrInvalidPageRange))
	}
	if p.StartPage > 0 && p.EndPage > 0 && p.EndPage < p.StartPage {
		return invalid(fmt.Errorf("%w: end %d is before start %d", ErrInvalidPageRange, p.EndPage, p.StartPage))
	}
	return nil
}

func (pdfToDOCX) Apply(ctx context.Context, ws storage.Workspace, in Input, p dmodel.Params) (*dmodel.Result, error) {
	if err := started(ctx); err != nil {
		return nil, err
	}

	count, err := api.PageCountFile(in.Path)
	if err != nil {
		return nil, failed("page count", err)
	}
	selected, err := pageSelection(p.StartPage, p.EndPage, count)
	if err != nil {
		return nil, err
	}

	pages, err := pdftext.ExtractPages(in.Path, ws.Path("content"), selected, newConf())
	if err != nil {
		return nil, failed("pdf to docx", err)
	}

	out := ws.Path("converted_" + in.Stem + ".docx")
	if err := writeDOCX(out, pages); err != nil {
		return nil, failed("pdf to docx", err)
	}
	return result(out, in.Stem+".docx", mimeDOCX)
}

// pageSelection turns an optional 1-based inclusive range into a pdfcpu page
// selection. Zero means open-ended.
func pageSelection(start, end, count int) ([]string, error) {
	if start == 0 {
		start = 1
	}
	if end == 0 || end > count {
		end = count
	}
	if start > count {
		return nil, invalid(fmt.Errorf("%w: start %d exceeds page count %d", ErrInvalidPageRange, start, count))
	}
	if start == 1 && end == count {
		return nil, nil
	}
	return []string{strconv.Itoa(start) + "-" + strconv.Itoa(end)}, nil
}

func writeDOCX(path string, pages []pdftext.Page) error {
	doc := docx.New().WithDefaultTheme().WithA4Page()
	for i, page := range pages {
		if i > 0 {
			doc.AddParagraph().AddPageBreaks()
		}
		for _, line := range strings.Split(page.Text, "\n") {
			doc.AddParagraph().AddText(line)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type pdfToTXT struct{}

// PDFToTXT extracts the text of a PDF in document order. Pages are
// separated by a blank line.
func PDFToTXT() Capability { return pdfToTXT{} }

func (pdfToTXT) Kind() dmodel.Kind { return dmodel.KindPDFToTXT }
func (pdfToTXT) Validate(dmodel.Params) error { return nil }

func (pdfToTXT) Apply(ctx context.Context, ws storage.Workspace, in Input, _ dmodel.Params) (*dmodel.Result, error) {
	if err := started(ctx); err != nil {
		return nil, err
	}
	pages, err := pdftext.ExtractPages(in.Path, ws.Path("content"), nil, newConf())
	if err != nil {
		return nil, failed("pdf to txt", err)
	}

	out := ws.Path("extracted_" + in.Stem + ".txt")
	if err := os.WriteFile(out, []byte(pdftext.Join(pages)), 0o600); err != nil {
		return nil, failed("write text", err)
	}
	return result(out, in.Stem+".txt", mimeText)
}

type docxToPDF struct{}

// DOCXToPDF converts a DOCX document to HTML and renders that HTML onto A4
// pages.
func DOCXToPDF() Capability { return docxToPDF{} }

func (docxToPDF) Kind() dmodel.Kind { return dmodel.KindDOCXToPDF }
func (docxToPDF) Validate(dmodel.Params) error { return nil }

func (docxToPDF) Apply(ctx context.Context, ws storage.Workspace, in Input, _ dmodel.Params) (*dmodel.Result, error) {
	if err := started(ctx); err != nil {
		return nil, err
	}
	body, err := docxhtml.ConvertFile(in.Path)
	if err != nil {
		return nil, failed("docx to html", err)
	}

	out := ws.Path("converted_" + in.Stem + ".pdf")
	f, err := os.Create(out)
	if err != nil {
		return nil, failed("docx to pdf", err)
	}
	if err := htmlpdf.Render(ctx, htmlpdf.Shell(body), f); err != nil {
		f.Close()
		return nil, failed("docx to pdf", err)
	}
	if err := f.Close(); err != nil {
		return nil, failed("docx to pdf", err)
	}
	return result(out, in.Stem+".pdf", mimePDF)
}
