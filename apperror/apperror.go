// Package apperror defines the error taxonomy shared by every route and the
// JSON shape errors are rendered with.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"gorm.io/gorm"
)

// Kind names an entry of the taxonomy. It is sent to clients as the "error" field.
type Kind string

const (
	KindValidation      Kind = "ValidationError"
	KindUnauthorized    Kind = "Unauthorized"
	KindForbidden       Kind = "Forbidden"
	KindNotFound        Kind = "NotFound"
	KindConflict        Kind = "Conflict"
	KindTooManyRequests Kind = "TooManyRequests"
	KindInternal        Kind = "InternalServerError"
)

// InternalMessage is the only message a 500 response ever carries.
const InternalMessage = "Something went wrong"

// Location is where a request field was read from.
type Location string

const (
	LocationBody  Location = "body"
	LocationQuery Location = "query"
	LocationParam Location = "params"
)

// FieldError is one violated input rule.
type FieldError struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Location Location `json:"location"`
}

// Error is an error that knows its HTTP status and client-facing message.
type Error struct {
	Status  int
	Kind    Kind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Body is the JSON document written for e.
func (e *Error) Body() Body {
	b := Body{Status: e.Status, Error: e.Kind}
	if e.Kind == KindValidation {
		b.Errors = e.Fields
		if b.Errors == nil {
			b.Errors = []FieldError{}
		}
		return b
	}
	b.Message = e.Message
	return b
}

// Body is the wire form of every error response.
type Body struct {
	Status  int          `json:"status"`
	Error   Kind         `json:"error"`
	Message string       `json:"message,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
	Path    string       `json:"path,omitempty"`
}

func newError(status int, kind Kind, msg string) *Error {
	return &Error{Status: status, Kind: kind, Message: msg}
}

func Validation(fields ...FieldError) *Error {
	e := newError(http.StatusBadRequest, KindValidation, "Validation failed")
	e.Fields = fields
	return e
}

func Unauthorized(msg string) *Error {
	return newError(http.StatusUnauthorized, KindUnauthorized, msg)
}

func Forbidden(msg string) *Error {
	return newError(http.StatusForbidden, KindForbidden, msg)
}

func NotFound(msg string) *Error {
	return newError(http.StatusNotFound, KindNotFound, msg)
}

func Conflict(msg string) *Error {
	return newError(http.StatusConflict, KindConflict, msg)
}

func TooManyRequests(msg string) *Error {
	return newError(http.StatusTooManyRequests, KindTooManyRequests, msg)
}

// Internal wraps err as a 500. The cause is kept for logging only.
func Internal(err error) *Error {
	e := newError(http.StatusInternalServerError, KindInternal, InternalMessage)
	e.Err = err
	return e
}

// IsUniqueViolation reports whether err comes from a uniqueness constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// From maps any error onto the taxonomy. Unknown errors become a generic 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		e := NotFound("Resource not found")
		e.Err = err
		return e
	case IsUniqueViolation(err):
		e := Conflict("Resource already exists")
		e.Err = err
		return e
	}
	return Internal(err)
}
