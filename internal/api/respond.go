package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"

	"github.com/go-playground/validator/v10"
)

// errorResponse is the JSON envelope for every failure
type errorResponse struct {
	Error   string            `json:"error"`
	Code    apperrors.Code    `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error onto the envelope. Anything that is not an
// apperrors.Error is logged and reported as a generic internal error.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperrors.From(err)
	if appErr.Code == apperrors.CodeInternal {
		log.Printf("Internal error: %v", err)
	}
	writeJSON(w, appErr.Status, errorResponse{Error: appErr.Message, Code: appErr.Code})
}

// writeValidationError reports per-field validation failures
func writeValidationError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: "validation failed", Code: apperrors.CodeInvalidArgument}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		resp.Details = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			resp.Details[fe.Field()] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}
	}

	writeJSON(w, http.StatusBadRequest, resp)
}

// decodeAndValidate decodes the request body into dst and runs the
// validator over it.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body", Code: apperrors.CodeInvalidArgument})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeValidationError(w, err)
		return false
	}
	return true
}
