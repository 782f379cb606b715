// Package actions holds the request handlers behind every mutating and
// read-model operation. Each handler takes a parsed input struct and returns
// a Result that is either success, a set of field errors, or a failure with
// a machine-readable kind.
package actions

import (
	"smartexpense/internal/core"
)

// FieldErrors maps a json field name to its validation messages.
type FieldErrors map[string][]string

// Failure describes a request that passed validation but could not be served.
type Failure struct {
	Kind    core.Kind `json:"-"`
	Code    string    `json:"kind"`
	Message string    `json:"message"`
}

// Result is the outcome of an action.
type Result[T any] struct {
	Success     bool        `json:"success"`
	Data        T           `json:"data,omitempty"`
	FieldErrors FieldErrors `json:"field_errors,omitempty"`
	Failure     *Failure    `json:"error,omitempty"`
}

func ok[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func invalid[T any](fields FieldErrors) Result[T] {
	return Result[T]{FieldErrors: fields}
}

// fail converts err into a Failure. Internal errors never leak their text;
// the fallback message is shown instead.
func fail[T any](err error, fallback string) Result[T] {
	kind := core.KindOf(err)
	msg := fallback
	if kind != core.KindInternal {
		msg = core.Message(err, fallback)
	}
	return Result[T]{Failure: &Failure{Kind: kind, Code: kind.String(), Message: msg}}
}

// Invalid reports whether the result carries field errors.
func (r Result[T]) Invalid() bool {
	return len(r.FieldErrors) > 0
}
