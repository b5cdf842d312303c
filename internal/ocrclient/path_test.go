package ocrclient

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"go-ocr-inventory/pkg/apierror"
)

func TestCleanRemotePath(t *testing.T) {
	t.Parallel()

	valid := map[string]string{
		"doc1":                    "doc1",
		"/doc1/":                  "doc1",
		`batch\2026`:              "batch/2026",
		"doc1//invoice_text.txt":  "doc1/invoice_text.txt",
		"./doc1/./invoice.json":   "doc1/invoice.json",
		"with space/report 1.pdf": "with space/report 1.pdf",
	}
	for input, want := range valid {
		got, err := CleanRemotePath(input)
		require.NoError(t, err, input)
		require.Equal(t, want, got, input)
	}
}

func TestCleanRemotePath_Rejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input  string
		code   string
		status int
	}{
		{"", "INVALID_PATH", http.StatusBadRequest},
		{"///", "INVALID_PATH", http.StatusBadRequest},
		{".", "INVALID_PATH", http.StatusBadRequest},
		{"doc\x00", "INVALID_PATH", http.StatusBadRequest},
		{"doc\n1", "INVALID_PATH", http.StatusBadRequest},
		{"../etc", "PATH_TRAVERSAL", http.StatusForbidden},
		{"doc1/../../etc", "PATH_TRAVERSAL", http.StatusForbidden},
		{`doc1\..\secret`, "PATH_TRAVERSAL", http.StatusForbidden},
	}

	for _, tc := range cases {
		_, err := CleanRemotePath(tc.input)
		require.Error(t, err, tc.input)

		var apiErr *apierror.APIError
		require.True(t, errors.As(err, &apiErr), tc.input)
		require.Equal(t, tc.code, apiErr.Code, tc.input)
		require.Equal(t, tc.status, apiErr.HTTPStatus, tc.input)
	}
}

func TestEscapePath(t *testing.T) {
	t.Parallel()

	require.Equal(t, "doc%201/a%3Fb.txt", escapePath("doc 1/a?b.txt"))
}
