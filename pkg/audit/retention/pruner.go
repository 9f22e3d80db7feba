package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
)

// Config contains retention configuration for the audit log.
type Config struct {
	// RetentionDays is how long entries are kept. The default matches the
	// six-year statutory limitation period for contract claims, plus a
	// year of margin.
	RetentionDays int

	// PruneSchedule is a cron expression for automatic pruning. Empty
	// disables the scheduler.
	PruneSchedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() *Config {
	return &Config{
		RetentionDays: 7 * 365,
		PruneSchedule: "0 3 * * *", // daily at 3 AM
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.RetentionDays <= 0 {
		return fmt.Errorf("retention days must be positive, got %d", c.RetentionDays)
	}
	return nil
}

// Pruner removes audit entries older than the retention window.
type Pruner struct {
	storage audit.Storage
	config  *Config
	logger  *slog.Logger
}

// NewPruner creates a pruner over the given storage.
func NewPruner(storage audit.Storage, config *Config) (*Pruner, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Pruner{
		storage: storage,
		config:  config,
		logger:  slog.Default().With("component", "audit.retention"),
	}, nil
}

// Prune removes entries older than the retention window and returns how
// many were removed.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)

	pruned, err := p.storage.PruneBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("retention prune failed: %w", err)
	}
	if pruned > 0 {
		p.logger.Info("retention prune completed",
			"pruned", pruned,
			"cutoff", cutoff.Format(time.RFC3339),
			"retention_days", p.config.RetentionDays,
		)
	}
	return pruned, nil
}
