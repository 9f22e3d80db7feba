// Package metrics implements Prometheus collectors for the rule engine.
//
// The exported series cover evaluations, per-rule hits, runtime
// evaluation errors, tenant overrides, shadow-mode parity outcomes,
// legacy fallbacks and audit writes. Error rate, parity rate and the
// per-engine latency histograms are the inputs to the rollout rollback
// thresholds, which are enforced operationally from dashboards and
// alerts, not inside the engine.
package metrics
