package feature

import (
	"errors"
	"fmt"
	"runtime/debug"
)

// Result is the outcome of a Service call: either a state or an error.
// The zero Result is a failure with ErrEmptyResult.
type Result[S any] struct {
	value S
	err   error
	ok    bool
}

// ErrEmptyResult is carried by the zero Result.
var ErrEmptyResult = errors.New("empty result")

// Success wraps a state.
func Success[S any](value S) Result[S] {
	return Result[S]{value: value, ok: true}
}

// Failure wraps an error. A nil error is replaced by ErrEmptyResult so a
// failure always carries a cause.
func Failure[S any](err error) Result[S] {
	if err == nil {
		err = ErrEmptyResult
	}
	return Result[S]{err: err}
}

// IsSuccess reports whether the result holds a value.
func (r Result[S]) IsSuccess() bool {
	return r.ok
}

// Err returns the failure cause, or nil on success.
func (r Result[S]) Err() error {
	if r.ok {
		return nil
	}
	if r.err == nil {
		return ErrEmptyResult
	}
	return r.err
}

// Get returns the value and the failure cause.
func (r Result[S]) Get() (S, error) {
	return r.value, r.Err()
}

// Fold collapses a Result into a single value.
func Fold[S, R any](r Result[S], onSuccess func(S) R, onFailure func(error) R) R {
	if r.ok {
		return onSuccess(r.value)
	}
	return onFailure(r.Err())
}

// Catch runs fn and turns both a returned error and a panic into a failure.
func Catch[S any](fn func() (S, error)) (result Result[S]) {
	defer func() {
		if rec := recover(); rec != nil {
			result = Failure[S](&PanicError{Value: rec, Stack: debug.Stack()})
		}
	}()

	value, err := fn()
	if err != nil {
		return Failure[S](err)
	}
	return Success(value)
}

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
