// Package shadow manages the migration from the legacy hard-coded rule
// implementation to the declarative engine: dual execution of both
// engines per request, parity comparison over a bijective code map, a
// persisted telemetry trail, and the operator-driven rollout state
// machine.
//
// Parity mismatches are observability, never user-facing errors. Which
// engine's result the caller sees is decided solely by the rollout
// phase, and phase transitions happen only by explicit, audited operator
// action.
package shadow
