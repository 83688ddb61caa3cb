package model

import (
	"io"
	"path/filepath"
	"strings"
)

// Upload is a file received from a client. It is read once and never mutated.
type Upload struct {
	Reader      io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// Name returns the upload's filename reduced to its base name so it can be
// used safely inside a workspace. Empty or dot names fall back to "document".
func (u Upload) Name() string {
	name := filepath.Base(strings.ReplaceAll(u.Filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "document"
	}
	return name
}

// Stem is Name without its extension.
func (u Upload) Stem() string {
	name := u.Name()
	if stem := strings.TrimSuffix(name, filepath.Ext(name)); stem != "" {
		return stem
	}
	return name
}

// Params carries the kind-dependent form fields of a request.
type Params struct {
	Password  string
	Text      string
	StartPage int
	EndPage   int
}

// Request is exactly one transformation of one uploaded file.
type Request struct {
	Kind   Kind
	File   Upload
	Params Params
}

// Result describes the output of a successful transformation. Path points
// inside the request's workspace and is only valid until the workspace is released.
type Result struct {
	Path         string
	DownloadName string
	ContentType  string
	Size         int64
}
