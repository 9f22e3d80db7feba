package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Suppression is one emergency suppression: the named rule is excluded from
// evaluation entirely until explicitly restored. This is a higher-urgency
// mechanism than tenant overrides and always carries an actor, a reason and
// a ticket reference.
type Suppression struct {
	RuleID    string    `json:"rule_id"`
	Actor     string    `json:"actor"`
	Reason    string    `json:"reason"`
	Ticket    string    `json:"ticket"`
	CreatedAt time.Time `json:"created_at"`
}

// SuppressionRegistry tracks active emergency suppressions. Both
// suppression and restoration are explicit, audited actions.
type SuppressionRegistry struct {
	log    *Log
	logger *slog.Logger

	mu     sync.RWMutex
	active map[string]*Suppression
}

// NewSuppressionRegistry creates a registry recording into the given log.
func NewSuppressionRegistry(log *Log, logger *slog.Logger) *SuppressionRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuppressionRegistry{
		log:    log,
		logger: logger.With("component", "audit.suppression"),
		active: make(map[string]*Suppression),
	}
}

// Suppress activates an emergency suppression and records it. Suppressing
// an already-suppressed rule is a no-op and is not re-audited.
func (r *SuppressionRegistry) Suppress(ctx context.Context, s Suppression) error {
	if s.RuleID == "" {
		return fmt.Errorf("suppression requires a rule id")
	}
	if s.Actor == "" || s.Reason == "" || s.Ticket == "" {
		return fmt.Errorf("suppression of %q requires actor, reason and ticket", s.RuleID)
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	r.mu.Lock()
	if _, exists := r.active[s.RuleID]; exists {
		r.mu.Unlock()
		return nil
	}
	r.active[s.RuleID] = &s
	r.mu.Unlock()

	r.logger.Warn("rule emergency-suppressed",
		"rule_id", s.RuleID,
		"actor", s.Actor,
		"ticket", s.Ticket,
	)
	return r.log.Record(ctx, &Entry{
		RuleID:     s.RuleID,
		Action:     ActionEmergencySuppress,
		Reason:     s.Reason,
		ApprovedBy: s.Actor,
		Ticket:     s.Ticket,
	})
}

// Restore lifts a suppression. Restoring a rule that is not suppressed is
// an error: restoration must be a deliberate act against a known state.
func (r *SuppressionRegistry) Restore(ctx context.Context, ruleID, actor, reason string) error {
	if actor == "" || reason == "" {
		return fmt.Errorf("restoration of %q requires actor and reason", ruleID)
	}

	r.mu.Lock()
	s, exists := r.active[ruleID]
	if !exists {
		r.mu.Unlock()
		return &NotSuppressedError{RuleID: ruleID}
	}
	delete(r.active, ruleID)
	r.mu.Unlock()

	r.logger.Info("rule suppression restored",
		"rule_id", ruleID,
		"actor", actor,
		"ticket", s.Ticket,
	)
	return r.log.Record(ctx, &Entry{
		RuleID:     ruleID,
		Action:     ActionEmergencyRestore,
		Reason:     reason,
		ApprovedBy: actor,
		Ticket:     s.Ticket,
	})
}

// IsSuppressed reports whether the rule is currently suppressed.
func (r *SuppressionRegistry) IsSuppressed(ruleID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.active[ruleID]
	return ok
}

// Snapshot returns the currently suppressed rule IDs as a set, suitable for
// passing into an evaluation request.
func (r *SuppressionRegistry) Snapshot() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool, len(r.active))
	for id := range r.active {
		out[id] = true
	}
	return out
}

// Active returns the active suppressions.
func (r *SuppressionRegistry) Active() []*Suppression {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Suppression, 0, len(r.active))
	for _, s := range r.active {
		sCopy := *s
		out = append(out, &sCopy)
	}
	return out
}
