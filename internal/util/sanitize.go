package util

import (
	"net/http"
	"strings"
	"unicode"

	"go-ocr-inventory/pkg/apierror"
)

// CleanUploadName reduces a client-declared file name to its base name and
// strips control and invisible characters. Browsers may send full local
// paths (C:\fakepath\scan.pdf), which never belong on the wire.
func CleanUploadName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", apierror.New("INVALID_FILENAME", "filename cannot be empty", "", http.StatusBadRequest)
	}

	if idx := strings.LastIndexAny(trimmed, `/\`); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}

	builder := strings.Builder{}
	builder.Grow(len(trimmed))
	for _, char := range trimmed {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(builder.String())
	if cleaned == "" || cleaned == "." || cleaned == ".." {
		return "", apierror.New("INVALID_FILENAME", "filename is invalid after sanitization", name, http.StatusBadRequest)
	}

	runes := []rune(cleaned)
	if len(runes) > 255 {
		cleaned = string(runes[len(runes)-255:])
	}

	return cleaned, nil
}

// isInvisibleUnicode reports zero-width and formatting characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case '\u200B', '\u200C', '\u200D', '\u200E', '\u200F', '\u2060', '\uFEFF':
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
