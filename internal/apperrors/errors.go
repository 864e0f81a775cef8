package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is a machine-readable error code returned to API clients.
type Code string

const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeInternal        Code = "INTERNAL"
)

// Error carries a code and HTTP status alongside the message so the API
// layer can render it without string matching.
type Error struct {
	Code    Code
	Message string
	Status  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...), Status: http.StatusNotFound}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...), Status: http.StatusConflict}
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

func Unauthorized(format string, args ...any) *Error {
	return &Error{Code: CodeUnauthorized, Message: fmt.Sprintf(format, args...), Status: http.StatusUnauthorized}
}

func Forbidden(format string, args ...any) *Error {
	return &Error{Code: CodeForbidden, Message: fmt.Sprintf(format, args...), Status: http.StatusForbidden}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidState, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

func Internal(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...), Status: http.StatusInternalServerError}
}

// Common cases, mirroring how callers hit them.

func BookNotFound(bookID int64) *Error {
	return NotFound("book %d not found", bookID)
}

func UserNotFound(username string) *Error {
	return NotFound("user %q not found", username)
}

func ExchangeNotFound(exchangeID int64) *Error {
	return NotFound("exchange %d not found", exchangeID)
}

func BookNotAvailable(bookID int64) *Error {
	return Conflict("book %d is not available for exchange", bookID)
}

func OwnBookRequest() *Error {
	return InvalidArgument("cannot request own book")
}

func NotExchangeOwner() *Error {
	return Forbidden("only the book owner may perform this action")
}

// From unwraps err into an *Error, or falls back to a generic internal
// error so storage failures never leak raw driver messages to clients.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("internal error")
}
