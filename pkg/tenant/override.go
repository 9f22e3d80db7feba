package tenant

import (
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

// OverrideAction is what an override does to a base rule's issue.
type OverrideAction string

const (
	// OverrideSuppress removes the issue from the result entirely.
	OverrideSuppress OverrideAction = "suppress"

	// OverrideDowngrade and OverrideUpgrade replace the issue severity,
	// moving it between the blocker/warning/suggestion lists.
	OverrideDowngrade OverrideAction = "downgrade"
	OverrideUpgrade   OverrideAction = "upgrade"

	// OverrideModify replaces the message only; severity is unchanged.
	OverrideModify OverrideAction = "modify"
)

// Valid returns true if the action is known.
func (a OverrideAction) Valid() bool {
	switch a {
	case OverrideSuppress, OverrideDowngrade, OverrideUpgrade, OverrideModify:
		return true
	default:
		return false
	}
}

// OverrideScope restricts where an override applies. Nil or empty
// dimensions match everything.
type OverrideScope struct {
	Jurisdictions []string
	Products      []string
	Routes        []string
}

// Override is a tenant-scoped modification of a base rule's outcome.
type Override struct {
	// RuleID names the base rule the override targets.
	RuleID string

	// Action is what the override does.
	Action OverrideAction

	// NewSeverity is required for downgrade/upgrade.
	NewSeverity ast.Severity

	// NewMessage is required for modify.
	NewMessage string

	// Reason is always required: an unexplained override is not auditable.
	Reason string

	// ApprovedBy is required when the override affects a blocker-severity
	// rule.
	ApprovedBy string

	// ExpiresAt makes the override time-bound. Expiry is verified at
	// apply time, not at creation time: an expired override is inert, not
	// an error.
	ExpiresAt *time.Time

	// CreatedAt breaks precedence ties between equally specific matches.
	CreatedAt time.Time

	// Conditions scopes the override to jurisdictions/products/routes.
	Conditions *OverrideScope
}

// Expired reports whether the override has expired as of now.
func (o *Override) Expired(now time.Time) bool {
	return o.ExpiresAt != nil && !now.Before(*o.ExpiresAt)
}

// matchesScope reports whether the override applies in the given scope.
func (o *Override) matchesScope(jurisdiction, product, route string) bool {
	if o.Conditions == nil {
		return true
	}
	return matchDim(o.Conditions.Jurisdictions, jurisdiction) &&
		matchDim(o.Conditions.Products, product) &&
		matchDim(o.Conditions.Routes, route)
}

// specificity counts how many scope dimensions the override pins down.
// More pinned dimensions beats fewer when several overrides match.
func (o *Override) specificity() int {
	if o.Conditions == nil {
		return 0
	}
	n := 0
	if len(o.Conditions.Jurisdictions) > 0 {
		n++
	}
	if len(o.Conditions.Products) > 0 {
		n++
	}
	if len(o.Conditions.Routes) > 0 {
		n++
	}
	return n
}

func matchDim(values []string, v string) bool {
	if len(values) == 0 {
		return true
	}
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// FindOverride selects the override to apply for a rule in a scope, or nil.
// Expired overrides are skipped. Among matches the most specific wins;
// among equally specific matches the most recently created wins, so
// double-matches resolve deterministically.
func FindOverride(overrides []*Override, ruleID, jurisdiction, product, route string, now time.Time) *Override {
	var best *Override
	for _, o := range overrides {
		if o.RuleID != ruleID || o.Expired(now) || !o.matchesScope(jurisdiction, product, route) {
			continue
		}
		if best == nil {
			best = o
			continue
		}
		switch {
		case o.specificity() > best.specificity():
			best = o
		case o.specificity() == best.specificity() && o.CreatedAt.After(best.CreatedAt):
			best = o
		}
	}
	return best
}
