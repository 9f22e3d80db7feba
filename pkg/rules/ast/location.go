package ast

import "fmt"

// Location is the source position of a rule in its document, used for
// error reporting during load-time validation.
type Location struct {
	File   string // Path to the rule document
	Line   int    // Line number (1-based)
	Column int    // Column number (1-based)
}

// String returns "file:line:column", or "<unknown>" when unset.
func (l Location) String() string {
	if l.File == "" {
		return "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// IsValid returns true if the location has valid file and line information.
func (l Location) IsValid() bool {
	return l.File != "" && l.Line > 0
}
