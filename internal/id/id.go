package id

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a fresh record identifier: 32 lowercase hex digits, the
// form GnuCash uses for its GUIDs.
func New() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Valid reports whether s looks like an identifier produced by New.
func Valid(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f':
		default:
			return false
		}
	}
	return true
}
