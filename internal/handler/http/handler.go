// Package http contains the chi HTTP handlers for the cart service's
// public API surface.
package http

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/furnhaven/cart-service/pkg/errors"
	"github.com/furnhaven/cart-service/pkg/httputil"
	"github.com/furnhaven/cart-service/pkg/validator"
)

// decodeBody decodes and validates a JSON request body. On failure it writes
// the error response itself and returns a non-nil error so the caller can
// bail out.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return err
	}
	if err := validator.Validate(dst); err != nil {
		httputil.WriteError(w, r, err, nil)
		return err
	}
	return nil
}

func errMissingOwner() error {
	return apperrors.Unauthorized("request owner could not be resolved")
}
