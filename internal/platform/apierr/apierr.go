package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Stable error codes surfaced to transport. Retriability is part of the
// contract: conflict and persistence codes may be retried with the same
// idempotency key, validation codes must not be.
const (
	CodeInvalidScore       = "invalid_score"
	CodeUnitNotReachable   = "unit_not_reachable"
	CodeConcurrentConflict = "concurrent_update_conflict"
	CodePersistenceFailure = "persistence_failure"
	CodeNotFound           = "not_found"
	CodeUnauthorized       = "unauthorized"
	CodeInvalidRequest     = "invalid_request"
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

func InvalidScore(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidScore, err)
}

func UnitNotReachable(err error) *Error {
	return New(http.StatusUnprocessableEntity, CodeUnitNotReachable, err)
}

func ConcurrentConflict(err error) *Error {
	return New(http.StatusConflict, CodeConcurrentConflict, err)
}

func PersistenceFailure(err error) *Error {
	return New(http.StatusInternalServerError, CodePersistenceFailure, err)
}

func NotFound(err error) *Error {
	return New(http.StatusNotFound, CodeNotFound, err)
}

func Unauthorized(err error) *Error {
	return New(http.StatusUnauthorized, CodeUnauthorized, err)
}

func InvalidRequest(err error) *Error {
	return New(http.StatusBadRequest, CodeInvalidRequest, err)
}

// Retriable reports whether the caller may retry the operation with the same
// idempotency key.
func Retriable(err error) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Code == CodeConcurrentConflict || ae.Code == CodePersistenceFailure
}

func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
