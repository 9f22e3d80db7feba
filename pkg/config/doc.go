// Package config loads runtime configuration from YAML with LH_*
// environment overrides.
//
// Configuration covers the rule store, engine safeguards, shadow-mode
// rollout, audit persistence, telemetry and the emergency suppression
// list. These are operational settings, deliberately separate from
// business-rule inputs: nothing here may appear inside a rule's
// condition expressions.
//
// Loading order is file, defaults, environment, validation. The rollout
// phase flag is what makes single-flip rollback possible: setting
// LH_SHADOW_ROLLOUT_PHASE and restarting steps the process back one
// phase without a deploy.
package config
