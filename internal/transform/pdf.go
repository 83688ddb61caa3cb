package transform

import (
	"context"
	"errors"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	dmodel "docgate/internal/model"
	"docgate/internal/storage"
)

type compress struct{}

// Compress optimizes a PDF losslessly: it recompresses content streams,
// merges duplicate objects and writes object and xref streams.
func Compress() Capability { return compress{} }

func (compress) Kind() dmodel.Kind { return dmodel.KindCompress }
func (compress) Validate(dmodel.Params) error { return nil }

func (compress) Apply(ctx context.Context, ws storage.Workspace, in Input, _ dmodel.Params) (*dmodel.Result, error) {
	if err := started(ctx); err != nil {
		return nil, err
	}
	out := ws.Path("compressed_" + in.Name)
	if err := api.OptimizeFile(in.Path, out, newConf()); err != nil {
		return nil, failed("optimize", err)
	}
	return result(out, "Optimized_"+in.Name, mimePDF)
}

// aesKeyLength is the AES key size in bits used for encryption.
const aesKeyLength = 128

type encrypt struct{}

// Encrypt protects a PDF with AES-128, using the password as both the user
// and the owner password.
func Encrypt() Capability { return encrypt{} }

func (encrypt) Kind() dmodel.Kind { return dmodel.KindEncrypt }

func (encrypt) Validate(p dmodel.Params) error {
	if p.Password == "" {
		return missing("password")
	}
	return nil
}

func (encrypt) Apply(ctx context.Context, ws storage.Workspace, in Input, p dmodel.Params) (*dmodel.Result, error) {
	if err := started(ctx); err != nil {
		return nil, err
	}
	out := ws.Path("locked_" + in.Name)
	conf := model.NewAESConfiguration(p.Password, p.Password, aesKeyLength)
	if err := api.EncryptFile(in.Path, out, conf); err != nil {
		return nil, failed("encrypt", err)
	}
	return result(out, "Locked_"+in.Name, mimePDF)
}

type decrypt struct{}

// Decrypt removes password protection from a PDF. A document that is not
// encrypted is re-written unchanged in content.
func Decrypt() Capability { return decrypt{} }

func (decrypt) Kind() dmodel.Kind { return dmodel.KindDecrypt }

func (decrypt) Validate(p dmodel.Params) error {
	if p.Password == "" {
		return missing("password")
	}
	return nil
}

func (decrypt) Apply(ctx context.Context, ws storage.Workspace, in Input, p dmodel.Params) (*dmodel.Result, error) {
	if err := started(ctx); err != nil {
		return nil, err
	}
	out := ws.Path("unlocked_" + in.Name)

	conf := newConf()
	conf.UserPW = p.Password
	conf.OwnerPW = p.Password
	err := api.DecryptFile(in.Path, out, conf)
	switch {
	case err == nil:
	case isPasswordError(err):
		return nil, &Error{Kind: Auth, Op: "decrypt", Err: ErrIncorrectPassword}
	default:
		// Not encrypted: pass the pages through.
		if oerr := api.OptimizeFile(in.Path, out, newConf()); oerr != nil {
			return nil, failed("decrypt", err)
		}
	}
	return result(out, "Unlocked_"+in.Name, mimePDF)
}

// isPasswordError matches pdfcpu's wrong password error, wrapped or as
// plain text.
func isPasswordError(err error) bool {
	if errors.Is(err, ErrIncorrectPassword) || errors.Is(err, pdfcpu.ErrWrongPassword) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "password")
}
