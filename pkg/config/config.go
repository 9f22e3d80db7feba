package config

import "time"

// Config is the full runtime configuration, loaded from YAML with
// environment overrides. Rollout and suppression settings are
// operational levers, not business-rule inputs: they never appear
// inside condition expressions.
type Config struct {
	Rules     RulesConfig     `yaml:"rules"`
	Engine    EngineConfig    `yaml:"engine"`
	Shadow    ShadowConfig    `yaml:"shadow"`
	Audit     AuditConfig     `yaml:"audit"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Suppressions is the emergency suppression list, applied at startup
	// and on reload. Every entry needs an actor, reason and ticket.
	Suppressions []SuppressionConfig `yaml:"suppressions"`
}

// RulesConfig configures the rule document store.
type RulesConfig struct {
	// Dir is the root directory of rule documents
	// (<dir>/<jurisdiction>/<product>.yaml).
	Dir string `yaml:"dir"`

	// Watch enables filesystem invalidation of cached rule-sets.
	Watch bool `yaml:"watch"`

	// MaxRulesPerDocument is the load-time safeguard on document size.
	MaxRulesPerDocument int `yaml:"max_rules_per_document"`

	// MaxConditionsPerRule is the load-time safeguard on rule size.
	MaxConditionsPerRule int `yaml:"max_conditions_per_rule"`
}

// EngineConfig configures evaluation.
type EngineConfig struct {
	// MaxConditionsPerRule is the runtime cap; rules over it are skipped,
	// not failed.
	MaxConditionsPerRule int `yaml:"max_conditions_per_rule"`

	// EvaluationTimeout is the per-evaluation time budget backstop.
	EvaluationTimeout time.Duration `yaml:"evaluation_timeout"`
}

// ShadowConfig configures dual execution and rollout.
type ShadowConfig struct {
	// RolloutPhase is the starting phase. Transitions at runtime go
	// through the audited rollout controller; flipping this flag and
	// restarting is the documented single-step rollback path.
	RolloutPhase string `yaml:"rollout_phase"`

	// SupersetJurisdictions are granted the granular-superset parity
	// exception.
	SupersetJurisdictions []string `yaml:"superset_jurisdictions"`

	// StorePath is the parity telemetry database path.
	StorePath string `yaml:"store_path"`
}

// AuditConfig configures the governance log.
type AuditConfig struct {
	// Backend selects persistence: "sqlite" or "memory".
	Backend string `yaml:"backend"`

	// SQLitePath is the database path for the sqlite backend.
	SQLitePath string `yaml:"sqlite_path"`

	// RetentionDays is the compliance archive window.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for retention pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// SuppressionConfig is one emergency suppression list entry.
type SuppressionConfig struct {
	RuleID string `yaml:"rule_id"`
	Actor  string `yaml:"actor"`
	Reason string `yaml:"reason"`
	Ticket string `yaml:"ticket"`
}

// TelemetryConfig configures logging and metrics.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	AddSource bool   `yaml:"add_source"`
	RedactPII bool   `yaml:"redact_pii"`
}

// MetricsConfig configures Prometheus exposition.
type MetricsConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Namespace     string `yaml:"namespace"`
	Subsystem     string `yaml:"subsystem"`
	ListenAddress string `yaml:"listen_address"`
	Path          string `yaml:"path"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Rules: RulesConfig{
			Dir:                  "rules",
			Watch:                true,
			MaxRulesPerDocument:  200,
			MaxConditionsPerRule: 10,
		},
		Engine: EngineConfig{
			MaxConditionsPerRule: 10,
			EvaluationTimeout:    500 * time.Millisecond,
		},
		Shadow: ShadowConfig{
			RolloutPhase:          "shadow_mode",
			SupersetJurisdictions: []string{"wales"},
			StorePath:             "data/parity.db",
		},
		Audit: AuditConfig{
			Backend:       "sqlite",
			SQLitePath:    "data/audit.db",
			RetentionDays: 7 * 365,
			PruneSchedule: "0 3 * * *",
		},
		Telemetry: TelemetryConfig{
			Logging: LoggingConfig{
				Level:     "info",
				Format:    "json",
				RedactPII: true,
			},
			Metrics: MetricsConfig{
				Enabled:       true,
				Namespace:     "landlord",
				Subsystem:     "rules",
				ListenAddress: ":9090",
				Path:          "/metrics",
			},
		},
	}
}

// applyDefaults fills zero-valued fields from the defaults.
func applyDefaults(cfg *Config) {
	def := DefaultConfig()

	if cfg.Rules.Dir == "" {
		cfg.Rules.Dir = def.Rules.Dir
	}
	if cfg.Rules.MaxRulesPerDocument == 0 {
		cfg.Rules.MaxRulesPerDocument = def.Rules.MaxRulesPerDocument
	}
	if cfg.Rules.MaxConditionsPerRule == 0 {
		cfg.Rules.MaxConditionsPerRule = def.Rules.MaxConditionsPerRule
	}
	if cfg.Engine.MaxConditionsPerRule == 0 {
		cfg.Engine.MaxConditionsPerRule = def.Engine.MaxConditionsPerRule
	}
	if cfg.Engine.EvaluationTimeout == 0 {
		cfg.Engine.EvaluationTimeout = def.Engine.EvaluationTimeout
	}
	if cfg.Shadow.RolloutPhase == "" {
		cfg.Shadow.RolloutPhase = def.Shadow.RolloutPhase
	}
	if cfg.Shadow.SupersetJurisdictions == nil {
		cfg.Shadow.SupersetJurisdictions = def.Shadow.SupersetJurisdictions
	}
	if cfg.Shadow.StorePath == "" {
		cfg.Shadow.StorePath = def.Shadow.StorePath
	}
	if cfg.Audit.Backend == "" {
		cfg.Audit.Backend = def.Audit.Backend
	}
	if cfg.Audit.SQLitePath == "" {
		cfg.Audit.SQLitePath = def.Audit.SQLitePath
	}
	if cfg.Audit.RetentionDays == 0 {
		cfg.Audit.RetentionDays = def.Audit.RetentionDays
	}
	if cfg.Audit.PruneSchedule == "" {
		cfg.Audit.PruneSchedule = def.Audit.PruneSchedule
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = def.Telemetry.Logging.Level
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = def.Telemetry.Logging.Format
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = def.Telemetry.Metrics.Namespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = def.Telemetry.Metrics.Subsystem
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = def.Telemetry.Metrics.ListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = def.Telemetry.Metrics.Path
	}
}
