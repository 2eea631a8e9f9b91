package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{ValidationError("bad id"), http.StatusBadRequest},
		{NotFoundError("no mapping"), http.StatusNotFound},
		{InternalError("boom", errors.New("x")), http.StatusInternalServerError},
		{UnavailableError("store down", errors.New("x")), http.StatusServiceUnavailable},
		{RateLimitedError("slow down"), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Type), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestError_MessageAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := InternalError("lookup failed", cause)

	assert.Equal(t, "internal: lookup failed: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "not_found: missing", NotFoundError("missing").Error())
}

func TestWithContext_AppearsInResponse(t *testing.T) {
	err := NotFoundError("mapping not found").WithContext("reference_id", "123")

	resp := err.ToResponse()
	assert.Equal(t, "mapping not found", resp.Error)
	assert.Equal(t, TypeNotFound, resp.Type)
	assert.Equal(t, "123", resp.Context["reference_id"])
}

func TestAsStructuredError(t *testing.T) {
	assert.Nil(t, AsStructuredError(nil))

	original := ValidationError("bad")
	wrapped := fmt.Errorf("handler: %w", original)
	assert.Same(t, original, AsStructuredError(wrapped))

	plain := errors.New("plain")
	got := AsStructuredError(plain)
	require.NotNil(t, got)
	assert.Equal(t, TypeInternal, got.Type)
	assert.ErrorIs(t, got, plain)
}
