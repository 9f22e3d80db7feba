package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate(DefaultConfig()) error = %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
rules:
  dir: /etc/landlord/rules
  watch: true
engine:
  evaluation_timeout: 250ms
shadow:
  rollout_phase: dual_run_with_metrics
audit:
  backend: memory
suppressions:
  - rule_id: epc_missing
    actor: ops@example.com
    reason: upstream data outage
    ticket: OPS-1421
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Rules.Dir != "/etc/landlord/rules" {
		t.Errorf("Rules.Dir = %q", cfg.Rules.Dir)
	}
	if cfg.Engine.EvaluationTimeout != 250*time.Millisecond {
		t.Errorf("EvaluationTimeout = %s", cfg.Engine.EvaluationTimeout)
	}
	if cfg.Shadow.RolloutPhase != "dual_run_with_metrics" {
		t.Errorf("RolloutPhase = %q", cfg.Shadow.RolloutPhase)
	}
	// Defaults fill unset fields.
	if cfg.Rules.MaxRulesPerDocument != 200 {
		t.Errorf("MaxRulesPerDocument = %d, want default 200", cfg.Rules.MaxRulesPerDocument)
	}
	if cfg.Audit.RetentionDays != 7*365 {
		t.Errorf("RetentionDays = %d, want default", cfg.Audit.RetentionDays)
	}
	if len(cfg.Suppressions) != 1 || cfg.Suppressions[0].RuleID != "epc_missing" {
		t.Errorf("Suppressions = %+v", cfg.Suppressions)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown rollout phase", "shadow:\n  rollout_phase: canary\n"},
		{"unknown audit backend", "audit:\n  backend: dynamodb\n"},
		{"bad prune schedule", "audit:\n  prune_schedule: whenever\n"},
		{"suppression without ticket", "suppressions:\n  - rule_id: epc_missing\n    actor: a\n    reason: r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("writing config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("LoadConfig() accepted invalid configuration")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LH_SHADOW_ROLLOUT_PHASE", "new_primary_with_fallback")
	t.Setenv("LH_ENGINE_EVALUATION_TIMEOUT", "100ms")
	t.Setenv("LH_TELEMETRY_METRICS_ENABLED", "false")
	t.Setenv("LH_SUPPRESS_RULES", "epc_missing, how_to_rent_missing")
	t.Setenv("LH_SUPPRESS_ACTOR", "oncall@example.com")
	t.Setenv("LH_SUPPRESS_REASON", "message template incident")
	t.Setenv("LH_SUPPRESS_TICKET", "OPS-2001")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() error = %v", err)
	}
	if cfg.Shadow.RolloutPhase != "new_primary_with_fallback" {
		t.Errorf("RolloutPhase = %q", cfg.Shadow.RolloutPhase)
	}
	if cfg.Engine.EvaluationTimeout != 100*time.Millisecond {
		t.Errorf("EvaluationTimeout = %s", cfg.Engine.EvaluationTimeout)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("Metrics.Enabled not overridden to false")
	}
	if len(cfg.Suppressions) != 2 {
		t.Fatalf("Suppressions = %d entries, want 2", len(cfg.Suppressions))
	}
	if cfg.Suppressions[1].RuleID != "how_to_rent_missing" || cfg.Suppressions[1].Ticket != "OPS-2001" {
		t.Errorf("Suppressions[1] = %+v", cfg.Suppressions[1])
	}
}

func TestEnvOverridesRevalidate(t *testing.T) {
	t.Setenv("LH_SHADOW_ROLLOUT_PHASE", "not_a_phase")

	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Error("invalid env override accepted")
	}
}
