//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-ocr-inventory/internal/config"
)

func TestSecurityHeadersOnResponses(t *testing.T) {
	t.Parallel()

	c := newConsole(t, nil)

	resp, _ := c.request(t, http.MethodGet, "/api/v1/documents", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	require.Equal(t, "no-referrer", resp.Header.Get("Referrer-Policy"))
}

func TestUploadRateLimitReturns429(t *testing.T) {
	t.Parallel()

	c := newConsole(t, func(cfg *config.Config) {
		cfg.UploadRateLimitRPM = 1
	})

	resp, _ := c.upload(t, "first.pdf", []byte("%PDF"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := c.upload(t, "second.pdf", []byte("%PDF"))
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	require.NotNil(t, body.Error)
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)

	// Other routes use the general bucket.
	resp, _ = c.request(t, http.MethodGet, "/api/v1/documents", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUploadTooLargeReturns413(t *testing.T) {
	t.Parallel()

	c := newConsole(t, func(cfg *config.Config) {
		cfg.MaxUploadSize = 1024
	})

	resp, body := c.upload(t, "huge.pdf", make([]byte, 64*1024))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	require.NotNil(t, body.Error)
	assert.Equal(t, "PAYLOAD_TOO_LARGE", body.Error.Code)
}

func TestTraversalDownloadRejected(t *testing.T) {
	t.Parallel()

	c := newConsole(t, nil)

	resp, _ := c.request(t, http.MethodGet, "/api/v1/files/download/a/../../secret", nil, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
