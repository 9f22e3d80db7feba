// Package errors provides rich error reporting for rule documents: typed
// errors with source locations and suggestions, accumulated into lists so
// linting reports every problem in one pass, and the fail-closed
// ConfigError surfaced when a document cannot be served.
package errors
