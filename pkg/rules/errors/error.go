package errors

import (
	"fmt"
	"strings"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

// Type categorizes an error encountered while loading or validating a rule
// document.
type Type string

const (
	TypeSyntax     Type = "syntax"     // YAML syntax error
	TypeSchema     Type = "schema"     // JSON-schema violation
	TypeStructural Type = "structural" // Missing/invalid/unknown fields
	TypeSemantic   Type = "semantic"   // Unknown identifier, bad condition
	TypeSafeguard  Type = "safeguard"  // Rule/condition count limit exceeded
	TypeIO         Type = "io"         // File I/O error
)

// Error is a rich rule-source error with location, detail and an optional
// suggested fix.
type Error struct {
	Type       Type         // Category of error
	Message    string       // Error message
	Location   ast.Location // Source location (file, line, column)
	Suggestion string       // Suggested fix (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s] %s", e.Type, e.Message))
	if e.Location.IsValid() {
		sb.WriteString(fmt.Sprintf("\n  --> %s", e.Location.String()))
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n  = suggestion: %s", e.Suggestion))
	}
	return sb.String()
}

// List accumulates errors so a lint pass can report every problem in a
// document instead of stopping at the first.
type List struct {
	Errors []*Error
}

// NewList creates a new empty error list.
func NewList() *List {
	return &List{Errors: make([]*Error, 0)}
}

// Add appends an error to the list.
func (l *List) Add(err *Error) {
	l.Errors = append(l.Errors, err)
}

// AddError creates and adds a new error.
func (l *List) AddError(errType Type, message string, location ast.Location) {
	l.Add(&Error{Type: errType, Message: message, Location: location})
}

// AddErrorWithSuggestion creates and adds a new error with a suggestion.
func (l *List) AddErrorWithSuggestion(errType Type, message string, location ast.Location, suggestion string) {
	l.Add(&Error{Type: errType, Message: message, Location: location, Suggestion: suggestion})
}

// HasErrors returns true if the list contains any errors.
func (l *List) HasErrors() bool {
	return len(l.Errors) > 0
}

// Error implements the error interface by joining all accumulated errors.
func (l *List) Error() string {
	if len(l.Errors) == 0 {
		return "no errors"
	}
	msgs := make([]string, 0, len(l.Errors))
	for _, e := range l.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "\n")
}

// ConfigError is the fail-closed load error for a (jurisdiction, product)
// scope. A rule-set that produces a ConfigError is never partially served.
type ConfigError struct {
	Jurisdiction string
	Product      string
	Errors       *List
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	count := 0
	if e.Errors != nil {
		count = len(e.Errors.Errors)
	}
	return fmt.Sprintf("rule configuration for %s/%s is invalid (%d error(s)):\n%s",
		e.Jurisdiction, e.Product, count, e.Errors.Error())
}

// Unwrap exposes the underlying error list.
func (e *ConfigError) Unwrap() error {
	return e.Errors
}
