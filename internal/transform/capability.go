// Package transform implements the document transformations offered by the
// gateway. Each transformation is a Capability that reads one input file
// from a workspace and writes exactly one output file next to it.
package transform

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	dmodel "docgate/internal/model"
	"docgate/internal/storage"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeText = "text/plain; charset=utf-8"
)

func init() {
	// Keep pdfcpu from creating a config directory under $HOME.
	api.DisableConfigDir()
}

// Input is the uploaded file after it has been saved into the workspace.
type Input struct {
	Path string // location inside the workspace
	Name string // sanitized original filename
	Stem string // Name without extension
}

// Capability is one transformation kind.
type Capability interface {
	Kind() dmodel.Kind
	// Validate checks the request parameters before any file I/O happens.
	Validate(p dmodel.Params) error
	// Apply runs the transformation and returns the output inside ws.
	Apply(ctx context.Context, ws storage.Workspace, in Input, p dmodel.Params) (*dmodel.Result, error)
}

// Registry maps each kind to its capability.
type Registry struct {
	caps map[dmodel.Kind]Capability
}

// NewRegistry builds a registry from caps. A later capability replaces an
// earlier one of the same kind.
func NewRegistry(caps ...Capability) *Registry {
	r := &Registry{caps: make(map[dmodel.Kind]Capability, len(caps))}
	for _, c := range caps {
		r.caps[c.Kind()] = c
	}
	return r
}

// DefaultRegistry holds every transformation the gateway serves.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Compress(),
		Encrypt(),
		Decrypt(),
		Watermark(),
		PDFToDOCX(),
		PDFToTXT(),
		DOCXToPDF(),
	)
}

// Get returns the capability for kind.
func (r *Registry) Get(kind dmodel.Kind) (Capability, error) {
	if !kind.Valid() {
		return nil, &Error{Kind: Validation, Err: fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)}
	}
	c, ok := r.caps[kind]
	if !ok {
		return nil, &Error{Kind: Validation, Err: fmt.Errorf("%w: %s", ErrUnsupportedKind, kind)}
	}
	return c, nil
}

// Kinds lists registered kinds in sorted order.
func (r *Registry) Kinds() []dmodel.Kind {
	out := make([]dmodel.Kind, 0, len(r.caps))
	for k := range r.caps {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func newConf() *model.Configuration {
	return model.NewDefaultConfiguration()
}

// result describes an output file that already exists at path.
func result(path, downloadName, contentType string) (*dmodel.Result, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, failed("stat output", err)
	}
	return &dmodel.Result{
		Path:         path,
		DownloadName: downloadName,
		ContentType:  contentType,
		Size:         st.Size(),
	}, nil
}

func started(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return failed("start", err)
	}
	return nil
}
