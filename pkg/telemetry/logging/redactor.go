package logging

import (
	"log/slog"
	"regexp"
)

// Redactor removes personal data from log output. Fact maps and audit
// reasons can carry tenant names, addresses, emails and phone numbers;
// none of that belongs in operational logs.
type Redactor struct {
	sensitiveKeys map[string]bool
	patterns      []*redactPattern
}

type redactPattern struct {
	name        string
	regex       *regexp.Regexp
	replacement string
}

// Keys whose values are always fully redacted, whatever they contain.
var defaultSensitiveKeys = map[string]bool{
	"tenant_name":      true,
	"landlord_name":    true,
	"property_address": true,
	"email":            true,
	"phone":            true,
	"password":         true,
	"api_key":          true,
}

// NewRedactor creates a redactor with the built-in patterns.
func NewRedactor() *Redactor {
	return &Redactor{
		sensitiveKeys: defaultSensitiveKeys,
		patterns: []*redactPattern{
			{
				name:        "email",
				regex:       regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
				replacement: "***@***",
			},
			{
				name: "uk_phone",
				regex: regexp.MustCompile(
					`\b(?:\+44\s?\d{4}|\(?0\d{4}\)?)\s?\d{3}\s?\d{3,4}\b`),
				replacement: "***********",
			},
			{
				name:        "uk_postcode",
				regex:       regexp.MustCompile(`\b[A-Z]{1,2}\d[A-Z\d]?\s?\d[A-Z]{2}\b`),
				replacement: "*** ***",
			},
			{
				name:        "national_insurance",
				regex:       regexp.MustCompile(`\b[A-CEGHJ-PR-TW-Z]{2}\s?\d{2}\s?\d{2}\s?\d{2}\s?[A-D]\b`),
				replacement: "** ** ** ** *",
			},
		},
	}
}

// RedactAttr redacts one slog attribute. Sensitive keys are replaced
// wholesale; string values are otherwise pattern-scrubbed.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if r.sensitiveKeys[a.Key] {
		return slog.String(a.Key, "[REDACTED]")
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	}
	return a
}

// RedactString scrubs every built-in pattern from a string.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}
