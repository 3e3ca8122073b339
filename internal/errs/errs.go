// Package errs holds the error taxonomy shared by the game core.
//
// Every rejection the core produces is an *Error carrying one of four kinds.
// Callers branch with errors.Is against the Err* sentinels:
//
//	if errors.Is(err, errs.ErrCapacity) { ... }
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindConfig   Kind = "config"
	KindNotFound Kind = "not_found"
	KindState    Kind = "state"
	KindCapacity Kind = "capacity"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrConfig   = &Error{Kind: KindConfig}
	ErrNotFound = &Error{Kind: KindNotFound}
	ErrState    = &Error{Kind: KindState}
	ErrCapacity = &Error{Kind: KindCapacity}
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports a match against a bare sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func Config(format string, args ...any) error {
	return &Error{Kind: KindConfig, Message: fmt.Sprintf(format, args...)}
}

// WrapConfig tags err (usually a multierr bundle) as a config error for modeID.
func WrapConfig(modeID string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: KindConfig, Message: fmt.Sprintf("mode %q", modeID), Err: err}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func State(format string, args ...any) error {
	return &Error{Kind: KindState, Message: fmt.Sprintf(format, args...)}
}

func Capacity(format string, args ...any) error {
	return &Error{Kind: KindCapacity, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// HTTPStatus maps err to the status a transport should answer with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindState:
		return http.StatusConflict
	case KindCapacity:
		return http.StatusUnprocessableEntity
	case KindConfig:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
