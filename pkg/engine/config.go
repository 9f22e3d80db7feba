package engine

import (
	"fmt"
	"time"
)

// Config contains engine configuration.
type Config struct {
	// MaxConditionsPerRule is the runtime cap on applies_when conditions.
	// A rule exceeding it is skipped with condition_count_exceeded rather
	// than failing the evaluation: a safety limit, not a validity
	// judgment. The store enforces its own fail-closed cap at load time.
	MaxConditionsPerRule int

	// EvaluationTimeout is the hard per-evaluation time budget. Evaluation
	// is bounded by construction, so the timeout is a defensive backstop;
	// rules not reached before it expires are skipped as evaluation
	// errors, never crashed.
	EvaluationTimeout time.Duration
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxConditionsPerRule: 10,
		EvaluationTimeout:    500 * time.Millisecond,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.MaxConditionsPerRule <= 0 {
		return fmt.Errorf("max conditions per rule must be positive, got %d", c.MaxConditionsPerRule)
	}
	if c.EvaluationTimeout <= 0 {
		return fmt.Errorf("evaluation timeout must be positive, got %s", c.EvaluationTimeout)
	}
	return nil
}
