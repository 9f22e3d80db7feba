package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Enabled turns metric recording on. When false every Record call is
	// a no-op.
	Enabled bool

	// Namespace is the metric namespace. Default: "landlord"
	Namespace string

	// Subsystem is the metric subsystem. Default: "rules"
	Subsystem string

	// DurationBuckets are the histogram buckets for evaluation latency.
	// Evaluations are pure in-memory computations, so the default range
	// is sub-millisecond to tens of milliseconds.
	DurationBuckets []float64
}

// DefaultConfig returns the default metrics configuration.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Namespace: "landlord",
		Subsystem: "rules",
	}
}

// Collector registers and records all Prometheus metrics for the rule
// engine: evaluations, per-rule hits, shadow parity, fallbacks and audit
// activity. Rule IDs are a bounded label set (rule documents cap rule
// counts), but the cardinality limiter backstops tenant-authored IDs.
type Collector struct {
	config   *Config
	registry *prometheus.Registry

	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	ruleHits           *prometheus.CounterVec
	evaluationErrors   *prometheus.CounterVec
	overridesApplied   *prometheus.CounterVec
	parityComparisons  *prometheus.CounterVec
	fallbacks          prometheus.Counter
	auditEntries       *prometheus.CounterVec
	rolloutPhase       *prometheus.GaugeVec

	ruleIDLimiter *CardinalityLimiter
}

// NewCollector creates a metrics collector registered on the given
// registry. A nil registry creates a private one.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "landlord"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "rules"
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1}
	}

	c := &Collector{
		config:        cfg,
		registry:      registry,
		ruleIDLimiter: NewCardinalityLimiter(1000),
	}

	c.evaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "evaluations_total",
		Help:      "Rule-set evaluations by jurisdiction, product, route and status.",
	}, []string{"jurisdiction", "product", "route", "status"})

	c.evaluationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "evaluation_duration_seconds",
		Help:      "Evaluation latency per engine, for the shadow-mode latency delta.",
		Buckets:   cfg.DurationBuckets,
	}, []string{"jurisdiction", "route", "engine"})

	c.ruleHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "rule_hits_total",
		Help:      "Fired rules by rule ID and severity.",
	}, []string{"rule_id", "severity"})

	c.evaluationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "evaluation_errors_total",
		Help:      "Rules skipped by runtime condition failures.",
	}, []string{"rule_id"})

	c.overridesApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "overrides_applied_total",
		Help:      "Tenant override applications by action.",
	}, []string{"action"})

	c.parityComparisons = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "parity_comparisons_total",
		Help:      "Shadow-mode comparisons by jurisdiction, route and outcome.",
	}, []string{"jurisdiction", "route", "outcome"})

	c.fallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "fallbacks_total",
		Help:      "Requests served by the legacy engine after a new-engine error.",
	})

	c.auditEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "audit_entries_total",
		Help:      "Audit log writes by action.",
	}, []string{"action"})

	c.rolloutPhase = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: cfg.Subsystem,
		Name:      "rollout_phase",
		Help:      "Current rollout phase as a one-hot gauge over phase labels.",
	}, []string{"phase"})

	registry.MustRegister(
		c.evaluations,
		c.evaluationDuration,
		c.ruleHits,
		c.evaluationErrors,
		c.overridesApplied,
		c.parityComparisons,
		c.fallbacks,
		c.auditEntries,
		c.rolloutPhase,
	)

	return c
}

// Engine label values for RecordDuration.
const (
	EngineLegacy = "legacy"
	EngineNew    = "new"
)

// RecordEvaluation records one completed evaluation.
func (c *Collector) RecordEvaluation(jurisdiction, product, route, status string) {
	if !c.config.Enabled {
		return
	}
	c.evaluations.WithLabelValues(jurisdiction, product, route, status).Inc()
}

// RecordDuration records one engine's evaluation latency.
func (c *Collector) RecordDuration(jurisdiction, route, engine string, d time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.evaluationDuration.WithLabelValues(jurisdiction, route, engine).Observe(d.Seconds())
}

// RecordRuleHit records one fired rule.
func (c *Collector) RecordRuleHit(ruleID, severity string) {
	if !c.config.Enabled {
		return
	}
	c.ruleHits.WithLabelValues(c.boundRuleID(ruleID), severity).Inc()
}

// RecordEvaluationError records a rule skipped by a runtime condition
// failure.
func (c *Collector) RecordEvaluationError(ruleID string) {
	if !c.config.Enabled {
		return
	}
	c.evaluationErrors.WithLabelValues(c.boundRuleID(ruleID)).Inc()
}

// RecordOverride records one override application.
func (c *Collector) RecordOverride(action string) {
	if !c.config.Enabled {
		return
	}
	c.overridesApplied.WithLabelValues(action).Inc()
}

// Parity comparison outcomes.
const (
	ParityMatched  = "matched"
	ParitySuperset = "superset"
	ParityMismatch = "mismatch"
)

// RecordParity records one shadow comparison outcome.
func (c *Collector) RecordParity(jurisdiction, route, outcome string) {
	if !c.config.Enabled {
		return
	}
	c.parityComparisons.WithLabelValues(jurisdiction, route, outcome).Inc()
}

// RecordFallback records one legacy fallback.
func (c *Collector) RecordFallback() {
	if !c.config.Enabled {
		return
	}
	c.fallbacks.Inc()
}

// RecordAuditEntry records one audit log write.
func (c *Collector) RecordAuditEntry(action string) {
	if !c.config.Enabled {
		return
	}
	c.auditEntries.WithLabelValues(action).Inc()
}

// SetRolloutPhase sets the one-hot rollout phase gauge.
func (c *Collector) SetRolloutPhase(current string, phases []string) {
	if !c.config.Enabled {
		return
	}
	for _, phase := range phases {
		v := 0.0
		if phase == current {
			v = 1.0
		}
		c.rolloutPhase.WithLabelValues(phase).Set(v)
	}
}

// Registry returns the Prometheus registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// boundRuleID folds rule IDs beyond the cardinality limit into "other".
func (c *Collector) boundRuleID(ruleID string) string {
	if !c.ruleIDLimiter.Allow(ruleID) {
		return "other"
	}
	return ruleID
}

// CardinalityLimiter caps the number of unique label values recorded,
// protecting the registry from tenant-controlled identifiers.
type CardinalityLimiter struct {
	max     int
	current map[string]struct{}
	mu      sync.RWMutex
}

// NewCardinalityLimiter creates a limiter with the given maximum.
func NewCardinalityLimiter(max int) *CardinalityLimiter {
	return &CardinalityLimiter{
		max:     max,
		current: make(map[string]struct{}),
	}
}

// Allow reports whether the value may be recorded as its own label.
func (cl *CardinalityLimiter) Allow(value string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[value]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[value]; exists {
		return true
	}
	if len(cl.current) >= cl.max {
		return false
	}
	cl.current[value] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
