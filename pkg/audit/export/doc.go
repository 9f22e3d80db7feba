// Package export serializes audit entries for compliance hand-off, in JSON
// and CSV formats.
package export
