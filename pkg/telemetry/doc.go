// Package telemetry provides observability for the rule engine.
//
// Subpackages:
//
//   - logging: structured log/slog logging with PII redaction
//   - metrics: Prometheus collectors for evaluations, shadow parity
//     and audit activity
//
// Shadow-mode rollback decisions depend on the metrics exported here:
// error rate, parity rate, and the latency delta between the legacy and
// declarative engines.
package telemetry
