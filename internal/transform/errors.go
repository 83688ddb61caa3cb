package transform

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a transformation failure for the transport layer.
type ErrorKind int

const (
	// Internal is an engine or I/O failure.
	Internal ErrorKind = iota
	// Validation is a problem with the request itself.
	Validation
	// Auth is a rejected credential, such as a wrong decrypt password.
	Auth
)

func (k ErrorKind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Auth:
		return "auth"
	default:
		return "internal"
	}
}

var (
	// ErrMissingFile is returned when a request carries no upload.
	ErrMissingFile       = errors.New("file is required")
	// ErrMissingParam is returned when a required form field is empty.
	ErrMissingParam      = errors.New("required field is missing")
	// ErrInvalidPageRange is returned for a start or end page outside the document.
	ErrInvalidPageRange  = errors.New("invalid page range")
	// ErrIncorrectPassword is returned when a PDF cannot be opened with the given password.
	ErrIncorrectPassword = errors.New("incorrect password")
	// ErrUnsupportedKind is returned for a kind with no registered capability.
	ErrUnsupportedKind   = errors.New("unsupported transformation")
)

// Error is the failure of one transformation step.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the classification of err. Errors that are not an *Error
// are Internal.
func KindOf(err error) ErrorKind {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	return Internal
}

// IsValidation reports whether err was caused by a bad request.
func IsValidation(err error) bool { return err != nil && KindOf(err) == Validation }

// IsAuth reports whether err was caused by a rejected credential.
func IsAuth(err error) bool { return err != nil && KindOf(err) == Auth }

func missing(field string) error {
	return &Error{Kind: Validation, Err: fmt.Errorf("%w: %s", ErrMissingParam, field)}
}

func invalid(err error) error {
	return &Error{Kind: Validation, Err: err}
}

func failed(op string, err error) error {
	return &Error{Kind: Internal, Op: op, Err: err}
}
