package util

import (
	"fmt"
	"strings"
)

// HasExtensionFold reports whether name ends with ext, ignoring case.
// ext may be given with or without its leading dot.
func HasExtensionFold(name string, ext string) bool {
	ext = strings.TrimSpace(ext)
	if ext == "" {
		return false
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	name = strings.TrimSpace(name)
	if len(name) <= len(ext) {
		return false
	}

	return strings.EqualFold(name[len(name)-len(ext):], ext)
}

// HasSuffixFold is strings.HasSuffix without case sensitivity.
func HasSuffixFold(value string, suffix string) bool {
	if len(value) < len(suffix) {
		return false
	}

	return strings.EqualFold(value[len(value)-len(suffix):], suffix)
}

var sizeUnits = []string{"KB", "MB", "GB", "TB", "PB"}

func HumanSize(size int64) string {
	if size < 0 {
		size = 0
	}
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}

	value := float64(size) / 1024
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
