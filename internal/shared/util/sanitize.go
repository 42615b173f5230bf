package util

import (
	"errors"
	"strings"
	"unicode"
)

var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens path separators and control characters so the name
// is safe as a single storage key segment. Dot-only names are rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	if strings.Trim(s, ".") == "" || strings.Contains(s, "..") {
		return "", ErrInvalidFileName
	}
	return s, nil
}
