package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file, applies defaults and
// validates the result. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration file %q: %w", path, err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies LH_SECTION_FIELD environment overrides on top. An empty path
// starts from the defaults instead of a file.
//
// Loading order: file, defaults, environment, validation.
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies LH_* environment variables. Unparseable
// values are ignored, leaving the file or default value in place.
func applyEnvOverrides(cfg *Config) {
	setString("LH_RULES_DIR", &cfg.Rules.Dir)
	setBool("LH_RULES_WATCH", &cfg.Rules.Watch)
	setInt("LH_RULES_MAX_RULES_PER_DOCUMENT", &cfg.Rules.MaxRulesPerDocument)
	setInt("LH_RULES_MAX_CONDITIONS_PER_RULE", &cfg.Rules.MaxConditionsPerRule)

	setInt("LH_ENGINE_MAX_CONDITIONS_PER_RULE", &cfg.Engine.MaxConditionsPerRule)
	setDuration("LH_ENGINE_EVALUATION_TIMEOUT", &cfg.Engine.EvaluationTimeout)

	setString("LH_SHADOW_ROLLOUT_PHASE", &cfg.Shadow.RolloutPhase)
	setString("LH_SHADOW_STORE_PATH", &cfg.Shadow.StorePath)
	if val := os.Getenv("LH_SHADOW_SUPERSET_JURISDICTIONS"); val != "" {
		cfg.Shadow.SupersetJurisdictions = splitList(val)
	}

	setString("LH_AUDIT_BACKEND", &cfg.Audit.Backend)
	setString("LH_AUDIT_SQLITE_PATH", &cfg.Audit.SQLitePath)
	setInt("LH_AUDIT_RETENTION_DAYS", &cfg.Audit.RetentionDays)
	setString("LH_AUDIT_PRUNE_SCHEDULE", &cfg.Audit.PruneSchedule)

	setString("LH_TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("LH_TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("LH_TELEMETRY_LOGGING_ADD_SOURCE", &cfg.Telemetry.Logging.AddSource)
	setBool("LH_TELEMETRY_LOGGING_REDACT_PII", &cfg.Telemetry.Logging.RedactPII)
	setBool("LH_TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("LH_TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	setString("LH_TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)

	// The suppression list can be supplied entirely from the environment
	// for emergency response: rule IDs only, with actor/reason/ticket in
	// the companion variables applied to every listed rule.
	if val := os.Getenv("LH_SUPPRESS_RULES"); val != "" {
		actor := os.Getenv("LH_SUPPRESS_ACTOR")
		reason := os.Getenv("LH_SUPPRESS_REASON")
		ticket := os.Getenv("LH_SUPPRESS_TICKET")
		for _, ruleID := range splitList(val) {
			cfg.Suppressions = append(cfg.Suppressions, SuppressionConfig{
				RuleID: ruleID,
				Actor:  actor,
				Reason: reason,
				Ticket: ticket,
			})
		}
	}
}

func setString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setBool(key string, dst *bool) {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func setDuration(key string, dst *time.Duration) {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}

func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
