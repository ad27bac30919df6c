package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError carries the HTTP status and stable code a handler answers with.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so that copies produced by WithMessage still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// WithMessage returns a copy of e carrying a more specific message.
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{Status: e.Status, Code: e.Code, Message: fmt.Sprintf(format, args...), Details: e.Details}
}

func New(status int, code, message string) *DomainError {
	return &DomainError{Status: status, Code: code, Message: message}
}

func BadRequest(code, message string) *DomainError {
	return New(http.StatusBadRequest, code, message)
}

func Forbidden(code, message string) *DomainError {
	return New(http.StatusForbidden, code, message)
}

func NotFound(code, message string) *DomainError {
	return New(http.StatusNotFound, code, message)
}

func Conflict(code, message string) *DomainError {
	return New(http.StatusConflict, code, message)
}

func Unprocessable(code, message string) *DomainError {
	return New(http.StatusUnprocessableEntity, code, message)
}

var (
	ErrUnauthorized    = New(http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	ErrForbidden       = Forbidden("FORBIDDEN", "forbidden")
	ErrInvalidID       = BadRequest("INVALID_ID", "invalid id")
	ErrInvalidBody     = BadRequest("INVALID_BODY", "invalid body")
	ErrVersionConflict = Conflict("VERSION_CONFLICT", "the resource was modified concurrently, retry the request")
)

// As unwraps err into a *DomainError when one is present in the chain.
func As(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
