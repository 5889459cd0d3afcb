package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/furnhaven/cart-service/pkg/errors"
	"github.com/furnhaven/cart-service/pkg/logger"
	"github.com/furnhaven/cart-service/pkg/validator"
)

// Response is the standard JSON envelope for every endpoint.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse carries a stable code, a message, and optional per-field
// validation details.
type ErrorResponse struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto the envelope: AppErrors keep their code and
// status, validation errors become 400 with field details, everything else
// is a logged 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		WriteJSON(w, appErr.Status, Response{
			Error: &ErrorResponse{Code: appErr.Code, Message: appErr.Message},
		})
		return
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "VALIDATION_ERROR",
				Message: "request validation failed",
				Fields:  valErr.Fields(),
			},
		})
		return
	}

	status := apperrors.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		l := logger.FromContext(r.Context())
		if l == slog.Default() && fallback != nil {
			l = fallback
		}
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		WriteJSON(w, status, Response{
			Error: &ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"},
		})
		return
	}

	WriteJSON(w, status, Response{
		Error: &ErrorResponse{Code: "ERROR", Message: err.Error()},
	})
}
