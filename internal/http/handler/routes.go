package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"docgate/internal/model"
	"docgate/internal/service"
	"docgate/internal/storage"
)

// StatusMessage is reported by the root health endpoint.
const StatusMessage = "Document conversion gateway is running"

// RouteOptions configures optional endpoints.
type RouteOptions struct {
	// Gatherer, when set, is exposed at /metrics.
	Gatherer prometheus.Gatherer
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, svc service.TransformService, opts RouteOptions) {
	app.Get("/", Health())
	app.Get("/healthz", LivenessProbe())

	if opts.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api")
	api.Post("/compress", Compress(svc))
	api.Post("/encrypt", Encrypt(svc))
	api.Post("/decrypt", Decrypt(svc))
	api.Post("/watermark", Watermark(svc))
	api.Post("/convert/pdf-to-docx", PDFToDOCX(svc))
	api.Post("/convert/pdf-to-txt", PDFToTXT(svc))
	api.Post("/convert/docx-to-pdf", DOCXToPDF(svc))
}

// Health godoc
// @Summary Gateway status
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func Health() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": StatusMessage})
	}
}

// LivenessProbe answers 200 while the process is serving.
func LivenessProbe() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	}
}

// Compress godoc
// @Summary Compress a PDF
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Param file formData file true "PDF document"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/compress [post]
func Compress(svc service.TransformService) fiber.Handler {
	return Transform(model.KindCompress, svc)
}

// Encrypt godoc
// @Summary Password-protect a PDF
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Param file formData file true "PDF document"
// @Param password formData string true "user and owner password"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/encrypt [post]
func Encrypt(svc service.TransformService) fiber.Handler {
	return Transform(model.KindEncrypt, svc)
}

// Decrypt godoc
// @Summary Remove password protection from a PDF
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Param file formData file true "PDF document"
// @Param password formData string true "document password"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload "missing field or incorrect password"
// @Failure 500 {object} errorPayload
// @Router /api/decrypt [post]
func Decrypt(svc service.TransformService) fiber.Handler {
	return Transform(model.KindDecrypt, svc)
}

// Watermark godoc
// @Summary Stamp a text watermark on every page
// @Tags pdf
// @Accept multipart/form-data
// @Produce application/pdf
// @Param file formData file true "PDF document"
// @Param text formData string true "watermark text"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/watermark [post]
func Watermark(svc service.TransformService) fiber.Handler {
	return Transform(model.KindWatermark, svc)
}

// PDFToDOCX godoc
// @Summary Convert a PDF to DOCX
// @Tags convert
// @Accept multipart/form-data
// @Produce application/vnd.openxmlformats-officedocument.wordprocessingml.document
// @Param file formData file true "PDF document"
// @Param start formData int false "first page, 1-based"
// @Param end formData int false "last page, inclusive"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/convert/pdf-to-docx [post]
func PDFToDOCX(svc service.TransformService) fiber.Handler {
	return Transform(model.KindPDFToDOCX, svc)
}

// PDFToTXT godoc
// @Summary Extract the text of a PDF
// @Tags convert
// @Accept multipart/form-data
// @Produce plain
// @Param file formData file true "PDF document"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/convert/pdf-to-txt [post]
func PDFToTXT(svc service.TransformService) fiber.Handler {
	return Transform(model.KindPDFToTXT, svc)
}

// DOCXToPDF godoc
// @Summary Convert a DOCX to PDF
// @Tags convert
// @Accept multipart/form-data
// @Produce application/pdf
// @Param file formData file true "DOCX document"
// @Success 200 {file} file
// @Failure 400 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /api/convert/docx-to-pdf [post]
func DOCXToPDF(svc service.TransformService) fiber.Handler {
	return Transform(model.KindDOCXToPDF, svc)
}

// Transform handles a multipart upload (field "file") for one kind and
// streams the result back as an attachment. The workspace holding the
// result is released once the response body has been written.
func Transform(kind model.Kind, svc service.TransformService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := model.Request{
			Kind: kind,
			Params: model.Params{
				Password: c.FormValue("password"),
				Text:     c.FormValue("text"),
			},
		}
		if kind == model.KindPDFToDOCX {
			var ok bool
			if req.Params.StartPage, ok = pageParam(c, "start"); !ok {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "start must be a page number")
			}
			if req.Params.EndPage, ok = pageParam(c, "end"); !ok {
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "end must be a page number")
			}
		}

		// A missing file is reported by the service as a validation error.
		if fh, err := c.FormFile("file"); err == nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()

			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			req.File = model.Upload{Reader: f, Filename: fh.Filename, ContentType: ct, Size: fh.Size}
		}

		res, ws, err := svc.Transform(c.UserContext(), req)
		if err != nil {
			return writeTransformError(c, err)
		}

		body, size, err := storage.OpenDownload(ws, res.Path)
		if err != nil {
			_ = ws.Release()
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "cannot read transformation result")
		}

		c.Attachment(res.DownloadName)
		c.Set(fiber.HeaderContentType, res.ContentType)
		// fasthttp closes the stream after writing it, which releases ws.
		return c.SendStream(body, int(size))
	}
}

// pageParam reads an optional positive page number form field.
func pageParam(c *fiber.Ctx, key string) (int, bool) {
	v := strings.TrimSpace(c.FormValue(key))
	if v == "" {
		return 0, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
