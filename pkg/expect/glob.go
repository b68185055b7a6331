// Glob pattern helpers for span name matching
package expect

import (
	"fmt"
	"path"
)

// validateGlob checks a pattern for the malformations path.Match reports
// lazily: an unterminated or empty character class, or a trailing escape.
// Called at rule construction so bad patterns fail before any span is read.
func validateGlob(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("empty glob pattern")
	}
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			i++
			if i == len(pattern) {
				return fmt.Errorf("invalid glob pattern %q: %w", pattern, path.ErrBadPattern)
			}
		case '[':
			i++
			if i < len(pattern) && pattern[i] == '^' {
				i++
			}
			start := i
			for i < len(pattern) && pattern[i] != ']' {
				if pattern[i] == '\\' {
					i++
				}
				i++
			}
			if i >= len(pattern) || i == start {
				return fmt.Errorf("invalid glob pattern %q: %w", pattern, path.ErrBadPattern)
			}
		}
	}
	return nil
}

// matchGlob reports whether name matches the already-validated pattern.
func matchGlob(pattern, name string) bool {
	ok, err := path.Match(pattern, name)
	return ok && err == nil
}
