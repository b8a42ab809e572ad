package errors

import (
	"strings"
	"unicode"
)

// maxPathLength bounds paths handed to the raster backend.
const maxPathLength = 4096

// ValidateImagePath validates a path before it is passed to an external
// raster tool as a command-line argument.
//
// The backend is invoked without a shell, so quoting is not a concern, but
// the tool still parses its own argv:
//   - No empty paths
//   - No NUL bytes or control characters
//   - No leading dash (would be read as an option)
//   - Maximum length of 4096 characters
func ValidateImagePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters: %q", path)
		}
	}

	if strings.HasPrefix(path, "-") {
		return New(ErrCodeInvalidPath, "path cannot start with '-': %q", path)
	}

	return nil
}

// ValidateConcurrency checks a worker limit.
// Zero selects the default; negative values mean unbounded.
func ValidateConcurrency(n int) error {
	const maxConcurrency = 4096
	if n > maxConcurrency {
		return New(ErrCodeInvalidOptions, "concurrency too large: %d (max %d)", n, maxConcurrency)
	}
	return nil
}
