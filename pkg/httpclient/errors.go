package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/furnhaven/cart-service/pkg/errors"
)

// DownstreamErrorResponse mirrors the httputil.ErrorResponse envelope returned
// by furnhaven services. It is used to parse structured error bodies from
// downstream HTTP calls.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an appropriate AppError. If the body matches the standard
// ErrorResponse format, the message is preserved; otherwise a generic error
// carries the status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Message, serviceName)
	}

	// Fallback: unstructured error body.
	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes))
}

// mapDownstreamError translates a downstream service's HTTP status code into
// an AppError that preserves the error semantics.
func mapDownstreamError(status int, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch status {
	case http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	default:
		return apperrors.Internal(fmt.Errorf("%s returned status %d: %s", serviceName, status, message))
	}
}
