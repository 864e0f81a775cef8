package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestFrom_UnwrapsWrappedError(t *testing.T) {
	base := BookNotAvailable(42)
	wrapped := fmt.Errorf("creating exchange: %w", base)

	got := From(wrapped)
	if got.Code != CodeConflict {
		t.Errorf("expected code %s, got %s", CodeConflict, got.Code)
	}
	if got.Status != http.StatusConflict {
		t.Errorf("expected status 409, got %d", got.Status)
	}
}

func TestFrom_UnknownErrorIsInternal(t *testing.T) {
	got := From(errors.New("connection refused"))
	if got.Code != CodeInternal {
		t.Errorf("expected code %s, got %s", CodeInternal, got.Code)
	}
	if got.Message == "connection refused" {
		t.Error("internal errors must not leak the underlying message")
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		code   Code
		status int
	}{
		{"BookNotFound", BookNotFound(1), CodeNotFound, http.StatusNotFound},
		{"UserNotFound", UserNotFound("alice"), CodeNotFound, http.StatusNotFound},
		{"ExchangeNotFound", ExchangeNotFound(7), CodeNotFound, http.StatusNotFound},
		{"BookNotAvailable", BookNotAvailable(1), CodeConflict, http.StatusConflict},
		{"OwnBookRequest", OwnBookRequest(), CodeInvalidArgument, http.StatusBadRequest},
		{"NotExchangeOwner", NotExchangeOwner(), CodeForbidden, http.StatusForbidden},
		{"Unauthorized", Unauthorized("invalid or expired token"), CodeUnauthorized, http.StatusUnauthorized},
		{"InvalidState", InvalidState("cannot approve in status %s", "ACCEPTED"), CodeInvalidState, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.Status)
			}
			var appErr *Error
			if !errors.As(tt.err, &appErr) {
				t.Error("error does not satisfy errors.As")
			}
		})
	}
}
