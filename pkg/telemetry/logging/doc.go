// Package logging builds the process-wide structured logger.
//
// All packages log through log/slog handlers constructed here, deriving
// component loggers with With("component", ...). When PII redaction is
// enabled, attribute values are scrubbed of emails, UK phone numbers,
// postcodes and national insurance numbers, and a fixed set of sensitive
// keys (tenant and landlord names, addresses) is redacted wholesale.
package logging
