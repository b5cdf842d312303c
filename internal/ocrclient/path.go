package ocrclient

import (
	"net/http"
	"net/url"
	"path"
	"strings"
	"unicode"

	"go-ocr-inventory/pkg/apierror"
)

// CleanRemotePath normalizes a storage path of the OCR service and rejects
// anything that could escape the service's document root.
func CleanRemotePath(remotePath string) (string, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(remotePath), `\`, "/")
	if strings.Trim(normalized, "/") == "" {
		return "", apierror.New("INVALID_PATH", "path cannot be empty", remotePath, http.StatusBadRequest)
	}

	if hasControlCharacters(normalized) {
		return "", apierror.New("INVALID_PATH", "path contains invalid characters", remotePath, http.StatusBadRequest)
	}

	for _, segment := range strings.Split(normalized, "/") {
		if segment == ".." {
			return "", apierror.New("PATH_TRAVERSAL", "path traversal attempt detected", remotePath, http.StatusForbidden)
		}
	}

	cleaned := path.Clean(strings.TrimLeft(normalized, "/"))
	if cleaned == "." {
		return "", apierror.New("INVALID_PATH", "path cannot be empty", remotePath, http.StatusBadRequest)
	}

	return cleaned, nil
}

// escapePath escapes every segment while keeping the separators.
func escapePath(cleaned string) string {
	segments := strings.Split(cleaned, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}
