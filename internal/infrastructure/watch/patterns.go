package watch

import (
	"path/filepath"
)

// editorNoise matches swap and backup files written next to the real file.
var editorNoise = []string{"*.swp", "*.swx", "*~", ".#*", "*.tmp"}

// PatternFilter selects file names by glob.
type PatternFilter struct {
	Include []string
	Exclude []string
}

// NewPatternFilter builds a filter that always excludes editor swap files.
func NewPatternFilter(include, exclude []string) *PatternFilter {
	return &PatternFilter{
		Include: include,
		Exclude: append(append([]string{}, editorNoise...), exclude...),
	}
}

// Matches reports whether path passes the filter. Patterns are matched
// against the base name; an empty Include admits everything not excluded.
func (f *PatternFilter) Matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range f.Exclude {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
