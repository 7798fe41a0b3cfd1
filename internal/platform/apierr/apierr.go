// Package apierr carries an HTTP status and a stable machine code alongside an error.
package apierr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func BadRequest(code string, err error) *Error { return New(http.StatusBadRequest, code, err) }

func NotFound(code string) *Error { return New(http.StatusNotFound, code, nil) }

func Conflict(code string, err error) *Error { return New(http.StatusConflict, code, err) }

// Unavailable marks a backing store or collaborator that could not be reached.
func Unavailable(code string, err error) *Error {
	return New(http.StatusServiceUnavailable, code, err)
}

// StatusOf maps err to an HTTP status and code. Deadline errors map to
// 504/timeout; everything unclassified is 500/internal_error.
func StatusOf(err error) (int, string) {
	var ae *Error
	if errors.As(err, &ae) && ae != nil {
		status := ae.Status
		if status == 0 {
			status = http.StatusInternalServerError
		}
		code := ae.Code
		if code == "" {
			code = "internal_error"
		}
		return status, code
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "timeout"
	}
	return http.StatusInternalServerError, "internal_error"
}
