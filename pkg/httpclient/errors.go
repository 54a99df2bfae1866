package httpclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
)

// GoogleErrorResponse mirrors the structured error body returned by Google
// REST APIs (including the YouTube Data API and the OAuth2 userinfo endpoint).
type GoogleErrorResponse struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx HTTP response from a Google
// API and translates it into an appropriate AppError. If the body matches the
// standard Google error format, its message is preserved. Otherwise a generic
// upstream error is returned with the status code and raw body.
//
// The caller should only invoke this when resp.StatusCode indicates an error
// (i.e., not 2xx). The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20)) // 1 MB limit
	if err != nil {
		return apperrors.Upstream(serviceName,
			fmt.Errorf("status %d (failed to read body: %w)", resp.StatusCode, err))
	}

	// Try to parse structured error response.
	var upstream GoogleErrorResponse
	if json.Unmarshal(bodyBytes, &upstream) == nil && upstream.Error != nil {
		return mapUpstreamError(resp.StatusCode, upstream.Error.Message, serviceName)
	}

	// Fallback: unstructured error body.
	return apperrors.Upstream(serviceName,
		fmt.Errorf("status %d: %s", resp.StatusCode, string(bodyBytes)))
}

// mapUpstreamError translates a Google API HTTP status code into an AppError
// that preserves the error semantics for our own callers.
func mapUpstreamError(status int, message, serviceName string) error {
	switch {
	case status == http.StatusUnauthorized:
		return apperrors.Unauthenticated(fmt.Sprintf("%s rejected credentials: %s", serviceName, message))
	case status == http.StatusForbidden:
		return apperrors.ConsentDenied(fmt.Sprintf("%s denied access: %s", serviceName, message))
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status >= 400 && status < 500:
		return apperrors.InvalidInput(fmt.Sprintf("%s: %s", serviceName, message))
	default:
		return apperrors.Upstream(serviceName, fmt.Errorf("status %d: %s", status, message))
	}
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
// Client errors should not be retried since the request itself was invalid.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
