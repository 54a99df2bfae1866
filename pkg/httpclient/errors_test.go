package httpclient

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/studiogate/pkg/errors"
)

func newResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestParseResponseError_StructuredForbidden(t *testing.T) {
	resp := newResponse(http.StatusForbidden,
		`{"error":{"code":403,"message":"The user has not granted the app","errors":[{"reason":"insufficientPermissions"}]}}`)

	err := ParseResponseError(resp, "youtube")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, http.StatusForbidden, appErr.Status)
	assert.True(t, errors.Is(err, apperrors.ErrConsentDenied))
	assert.Contains(t, appErr.Message, "youtube denied access")
}

func TestParseResponseError_StructuredUnauthorized(t *testing.T) {
	resp := newResponse(http.StatusUnauthorized,
		`{"error":{"code":401,"message":"Invalid Credentials"}}`)

	err := ParseResponseError(resp, "google-userinfo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthenticated))
	assert.Equal(t, http.StatusUnauthorized, apperrors.HTTPStatus(err))
}

func TestParseResponseError_StructuredBadRequest(t *testing.T) {
	resp := newResponse(http.StatusBadRequest,
		`{"error":{"code":400,"message":"Request contains an invalid argument."}}`)

	err := ParseResponseError(resp, "youtube")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestParseResponseError_StructuredServerError(t *testing.T) {
	resp := newResponse(http.StatusInternalServerError,
		`{"error":{"code":500,"message":"Backend Error"}}`)

	err := ParseResponseError(resp, "youtube")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstreamFailure))
	assert.Equal(t, http.StatusBadGateway, apperrors.HTTPStatus(err))
}

func TestParseResponseError_UnstructuredBody(t *testing.T) {
	resp := newResponse(http.StatusBadGateway, "<html>502 Bad Gateway</html>")

	err := ParseResponseError(resp, "youtube")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUpstreamFailure))

	// The raw body is preserved in the wrapped error, not the client-facing message.
	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.NotContains(t, appErr.Message, "502 Bad Gateway")
	assert.Contains(t, appErr.Err.Error(), "502 Bad Gateway")
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(http.StatusBadRequest))
	assert.True(t, IsClientError(http.StatusForbidden))
	assert.False(t, IsClientError(http.StatusOK))
	assert.False(t, IsClientError(http.StatusInternalServerError))
}
