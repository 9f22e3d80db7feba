package config

import (
	"fmt"

	"github.com/robfig/cron/v3"
)

var validPhases = map[string]bool{
	"shadow_mode":               true,
	"dual_run_with_metrics":     true,
	"new_primary_with_fallback": true,
	"new_only":                  true,
}

var validBackends = map[string]bool{
	"sqlite": true,
	"memory": true,
}

// Validate checks the configuration for internal consistency. It is
// called after defaults and env overrides are applied, so every field
// is checked against its final value.
func Validate(cfg *Config) error {
	if cfg.Rules.Dir == "" {
		return fmt.Errorf("rules.dir cannot be empty")
	}
	if cfg.Rules.MaxRulesPerDocument <= 0 {
		return fmt.Errorf("rules.max_rules_per_document must be positive, got %d", cfg.Rules.MaxRulesPerDocument)
	}
	if cfg.Rules.MaxConditionsPerRule <= 0 {
		return fmt.Errorf("rules.max_conditions_per_rule must be positive, got %d", cfg.Rules.MaxConditionsPerRule)
	}

	if cfg.Engine.MaxConditionsPerRule <= 0 {
		return fmt.Errorf("engine.max_conditions_per_rule must be positive, got %d", cfg.Engine.MaxConditionsPerRule)
	}
	if cfg.Engine.EvaluationTimeout <= 0 {
		return fmt.Errorf("engine.evaluation_timeout must be positive, got %s", cfg.Engine.EvaluationTimeout)
	}

	if !validPhases[cfg.Shadow.RolloutPhase] {
		return fmt.Errorf("shadow.rollout_phase %q is not a known phase", cfg.Shadow.RolloutPhase)
	}

	if !validBackends[cfg.Audit.Backend] {
		return fmt.Errorf("audit.backend %q must be one of sqlite, memory", cfg.Audit.Backend)
	}
	if cfg.Audit.Backend == "sqlite" && cfg.Audit.SQLitePath == "" {
		return fmt.Errorf("audit.sqlite_path is required for the sqlite backend")
	}
	if cfg.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit.retention_days must be positive, got %d", cfg.Audit.RetentionDays)
	}
	if cfg.Audit.PruneSchedule != "" {
		if _, err := cron.ParseStandard(cfg.Audit.PruneSchedule); err != nil {
			return fmt.Errorf("audit.prune_schedule %q: %w", cfg.Audit.PruneSchedule, err)
		}
	}

	for i, s := range cfg.Suppressions {
		if s.RuleID == "" {
			return fmt.Errorf("suppressions[%d]: rule_id is required", i)
		}
		if s.Actor == "" || s.Reason == "" || s.Ticket == "" {
			return fmt.Errorf("suppressions[%d] (%s): actor, reason and ticket are all required", i, s.RuleID)
		}
	}

	return nil
}
