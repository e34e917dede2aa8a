package schema

import (
	"fmt"
	"path/filepath"
	"strings"
)

// DefaultTitle returns the title given to an unnamed tab with sequence n.
func DefaultTitle(n int) TabTitle {
	return TabTitle(fmt.Sprintf("Untitled %d", n))
}

// DefaultFilename returns the store key given to an unnamed tab with sequence n.
func DefaultFilename(n int) Filename {
	return Filename(fmt.Sprintf("document_%d.txt", n))
}

// ValidateFilename rejects names that would corrupt the colon-delimited
// command grammar.
func ValidateFilename(name Filename) error {
	raw := string(name)
	if strings.TrimSpace(raw) == "" {
		return ErrInvalidFilename
	}
	if strings.Contains(raw, "::") || strings.HasSuffix(raw, ":") || strings.ContainsAny(raw, "\r\n") {
		return ErrInvalidFilename
	}
	return nil
}

// Basename returns the display title for a path.
func Basename(path string) TabTitle {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return ""
	}
	return TabTitle(filepath.Base(trimmed))
}
