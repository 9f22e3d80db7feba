package shadow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
)

// Phase is a rollout state. Phases form a strict line; transitions move
// exactly one step at a time and only by explicit operator action.
type Phase string

const (
	// PhaseShadowMode runs both engines; legacy is authoritative and the
	// comparison is silent telemetry.
	PhaseShadowMode Phase = "shadow_mode"

	// PhaseDualRun is shadow mode with alerting thresholds armed.
	PhaseDualRun Phase = "dual_run_with_metrics"

	// PhaseNewPrimary makes the new engine authoritative; legacy still
	// runs for verification and serves as the fallback on new-engine
	// error.
	PhaseNewPrimary Phase = "new_primary_with_fallback"

	// PhaseNewOnly removes legacy from the request path.
	PhaseNewOnly Phase = "new_only"
)

// phaseOrder defines the single permitted progression.
var phaseOrder = []Phase{PhaseShadowMode, PhaseDualRun, PhaseNewPrimary, PhaseNewOnly}

// Valid reports whether the phase is one of the defined states.
func (p Phase) Valid() bool {
	return p.index() >= 0
}

func (p Phase) index() int {
	for i, candidate := range phaseOrder {
		if candidate == p {
			return i
		}
	}
	return -1
}

// LegacyAuthoritative reports whether the legacy result is user-visible
// in this phase.
func (p Phase) LegacyAuthoritative() bool {
	return p == PhaseShadowMode || p == PhaseDualRun
}

// RunsLegacy reports whether the legacy engine executes at all.
func (p Phase) RunsLegacy() bool {
	return p != PhaseNewOnly
}

// Controller is the rollout state machine. Every transition is audited;
// there is no automatic advancement.
type Controller struct {
	mu       sync.RWMutex
	phase    Phase
	auditLog *audit.Log
	logger   *slog.Logger
}

// NewController creates a controller starting at the given phase.
func NewController(initial Phase, auditLog *audit.Log, logger *slog.Logger) (*Controller, error) {
	if !initial.Valid() {
		return nil, fmt.Errorf("unknown rollout phase %q", initial)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		phase:    initial,
		auditLog: auditLog,
		logger:   logger.With("component", "shadow.rollout"),
	}, nil
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.phase
}

// Advance moves one step forward. Advancing past new_only is an error.
func (c *Controller) Advance(ctx context.Context, actor, reason string) (Phase, error) {
	return c.transition(ctx, 1, audit.ActionRolloutAdvance, actor, reason)
}

// Rollback moves one step back. Every phase can step back to the
// previous one; rolling back from shadow_mode is an error.
func (c *Controller) Rollback(ctx context.Context, actor, reason string) (Phase, error) {
	return c.transition(ctx, -1, audit.ActionRolloutRollback, actor, reason)
}

func (c *Controller) transition(ctx context.Context, step int, action audit.Action, actor, reason string) (Phase, error) {
	if actor == "" || reason == "" {
		return "", fmt.Errorf("rollout transitions require an actor and a reason")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.phase.index() + step
	if idx < 0 || idx >= len(phaseOrder) {
		return "", fmt.Errorf("no phase %d steps from %s", step, c.phase)
	}
	from, to := c.phase, phaseOrder[idx]

	if c.auditLog != nil {
		entry := &audit.Entry{
			Action:     action,
			Reason:     fmt.Sprintf("%s -> %s: %s", from, to, reason),
			ApprovedBy: actor,
		}
		if err := c.auditLog.Record(ctx, entry); err != nil {
			// The transition does not happen if it cannot be recorded.
			return "", fmt.Errorf("recording rollout transition: %w", err)
		}
	}

	c.phase = to
	c.logger.Info("rollout phase changed",
		"from", from, "to", to, "actor", actor, "reason", reason)
	return to, nil
}
