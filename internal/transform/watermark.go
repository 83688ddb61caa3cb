package transform

import (
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	dmodel "docgate/internal/model"
	"docgate/internal/storage"
)

// Overlay appearance.
const (
	overlayFontSize = 50
	overlayAngle    = 45
	overlayGrey     = 128
	overlayOpacity  = 0.3
)

type watermark struct{}

// Watermark stamps a diagonal text overlay onto every page of a PDF.
func Watermark() Capability { return watermark{} }

func (watermark) Kind() dmodel.Kind { return dmodel.KindWatermark }

func (watermark) Validate(p dmodel.Params) error {
	if p.Text == "" {
		return missing("text")
	}
	return nil
}

func (watermark) Apply(ctx context.Context, ws storage.Workspace, in Input, p dmodel.Params) (*dmodel.Result, error) {
	if err := started(ctx); err != nil {
		return nil, err
	}

	overlay := ws.Path("overlay.pdf")
	if err := writeOverlay(overlay, p.Text); err != nil {
		return nil, failed("watermark overlay", err)
	}

	wm, err := pdfcpu.ParsePDFWatermarkDetails(overlay+":1", "scalefactor:1 abs, rotation:0, position:c", true, types.POINTS)
	if err != nil {
		return nil, failed("watermark details", err)
	}

	out := ws.Path("watermarked_" + in.Name)
	if err := api.AddWatermarksFile(in.Path, out, nil, wm, newConf()); err != nil {
		return nil, failed("watermark", err)
	}
	return result(out, "Watermarked_"+in.Name, mimePDF)
}

// writeOverlay renders text rotated across the centre of a single Letter page.
func writeOverlay(path, text string) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetCompression(true)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	s := tr(text)

	pdf.SetFont("Helvetica", "B", overlayFontSize)
	pdf.SetTextColor(overlayGrey, overlayGrey, overlayGrey)
	pdf.SetAlpha(overlayOpacity, "Normal")

	w, h := pdf.GetPageSize()
	cx, cy := w/2, h/2
	pdf.TransformBegin()
	pdf.TransformRotate(overlayAngle, cx, cy)
	pdf.Text(cx-pdf.GetStringWidth(s)/2, cy, s)
	pdf.TransformEnd()

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write overlay: %w", err)
	}
	return nil
}
