// Package errs defines the error taxonomy shared by the player, analysis and render packages.
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises an error so callers can branch with errors.Is.
type Kind string

const (
	KindResource          Kind = "resource"
	KindLoad              Kind = "load"
	KindGraphConstruction Kind = "graph-construction"
	KindValidation        Kind = "validation"
	KindTimeout           Kind = "timeout"
)

// Sentinels for errors.Is; any *Error of the same Kind matches.
var (
	ErrResource          = &Error{Kind: KindResource}
	ErrLoad              = &Error{Kind: KindLoad}
	ErrGraphConstruction = &Error{Kind: KindGraphConstruction}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrTimeout           = &Error{Kind: KindTimeout}
)

// Error wraps an underlying error with its Kind and the operation that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && (t.Op == "" || t.Op == e.Op)
}

// KindOf returns the Kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

func newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Resource reports a missing drawing or display target.
func Resource(op string, err error) error { return &Error{Kind: KindResource, Op: op, Err: err} }

// Load reports a fetch or decode failure.
func Load(op string, err error) error { return &Error{Kind: KindLoad, Op: op, Err: err} }

// GraphConstruction reports duplicate analysis wiring on one stream.
func GraphConstruction(op string, err error) error {
	return &Error{Kind: KindGraphConstruction, Op: op, Err: err}
}

// Validation reports an out-of-domain value such as a NaN time.
func Validation(op string, format string, args ...any) error {
	return newf(KindValidation, op, format, args...)
}

// Timeout reports a readiness wait that exceeded the caller's bound.
func Timeout(op string, err error) error { return &Error{Kind: KindTimeout, Op: op, Err: err} }
