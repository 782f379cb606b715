package core

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can branch without inspecting messages.
type Kind uint8

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUpstream
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUpstream:
		return "upstream"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// Error is the typed error carried across layers. Msg is safe to show to users.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.message(), e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.message())
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.message(), e.Err)
	default:
		return e.message()
	}
}

func (e *Error) message() string {
	if e.Msg != "" {
		return e.Msg
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches sentinel errors by kind and message so that wrapped copies of a
// sentinel still compare equal.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Msg == e.Msg && t.Op == "" && t.Err == nil
}

var (
	ErrDuplicateCategory   = &Error{Kind: KindConflict, Msg: "Ya existe una categoría con ese nombre"}
	ErrCategoryInUse       = &Error{Kind: KindConflict, Msg: "No se puede eliminar: hay gastos asociados a esta categoría"}
	ErrCategoryNotFound    = &Error{Kind: KindNotFound, Msg: "Categoría no encontrada"}
	ErrExpenseNotFound     = &Error{Kind: KindNotFound, Msg: "Gasto no encontrado"}
	ErrUnsupportedCurrency = &Error{Kind: KindValidation, Msg: "Moneda no soportada"}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized, Msg: "No autenticado"}
)

// Validation builds a validation error with a user facing message.
func Validation(op, msg string) *Error {
	return &Error{Kind: KindValidation, Op: op, Msg: msg}
}

// Internal wraps an unexpected failure.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// Upstream wraps a failure from an external dependency.
func Upstream(op string, err error) *Error {
	return &Error{Kind: KindUpstream, Op: op, Msg: "Servicio externo no disponible", Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the user facing message of err, or fallback when none is present.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return fallback
}
