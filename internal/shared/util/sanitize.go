package util

import (
	"errors"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// MaxFileNameLength bounds sanitized names in bytes.
const MaxFileNameLength = 120

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName returns a display-safe version of an uploaded file name:
// NFKC-normalised, without control characters or path separators, and no
// longer than MaxFileNameLength with the extension kept. Traversal patterns
// are rejected.
func SanitizeFileName(name string) (string, error) {
	s := norm.NFKC.String(strings.TrimSpace(name))
	if strings.Contains(s, "..") {
		return "", ErrInvalidFileName
	}
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return "", ErrInvalidFileName
	}
	if len(s) > MaxFileNameLength {
		ext := filepath.Ext(s)
		if len(ext) >= MaxFileNameLength/2 {
			ext = ""
		}
		s = truncateUTF8(strings.TrimSuffix(s, ext), MaxFileNameLength-len(ext)) + ext
	}
	return s, nil
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
