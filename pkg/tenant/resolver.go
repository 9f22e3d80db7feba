package tenant

import (
	"context"
	"log/slog"
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/engine"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

// Resolver applies tenant overrides to base engine results and records
// every application in the audit log.
type Resolver struct {
	auditLog *audit.Log
	logger   *slog.Logger
	now      func() time.Time
}

// NewResolver creates a resolver. The audit log may be nil, in which case
// applications are logged but not persisted; production wiring always
// passes one.
func NewResolver(auditLog *audit.Log, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		auditLog: auditLog,
		logger:   logger.With("component", "tenant.resolver"),
		now:      time.Now,
	}
}

// Scope names the evaluation an override application belongs to.
type Scope struct {
	Jurisdiction string
	Product      string
	Route        string
}

// Applied records one override application for the evaluation report.
type Applied struct {
	RuleID string         `json:"rule_id"`
	Action OverrideAction `json:"action"`
	Reason string         `json:"reason"`
}

// ApplyOverrides rewrites a base result according to the tenant's
// overrides. The base result is not mutated; a new result is returned.
// Overrides never apply to issues raised by the tenant's own custom rules,
// only to base rules. Applying the same overrides twice yields the same
// result.
//
// Rejections are hard errors: an override on a blocker without ApprovedBy,
// or any override for a tenant whose tier lacks rule_overrides, fails the
// whole application rather than being silently dropped.
func (r *Resolver) ApplyOverrides(ctx context.Context, tc *Context, base *engine.ValidationResult, scope Scope) (*engine.ValidationResult, []Applied, error) {
	if base == nil {
		return nil, nil, &OverrideError{Message: "base result cannot be nil"}
	}
	if tc == nil || len(tc.Overrides) == 0 {
		return cloneResult(base), nil, nil
	}
	if !tc.CanUseRuleOverrides() {
		return nil, nil, &FeatureError{TenantID: tc.TenantID, Tier: tc.Tier, Feature: FeatureRuleOverrides}
	}

	now := r.now()
	result := engine.NewValidationResult()
	var applied []Applied

	for _, issue := range base.Issues() {
		if IsCustomRuleID(tc.TenantID, issue.RuleID) {
			result.Add(issue)
			continue
		}
		o := FindOverride(tc.Overrides, issue.RuleID, scope.Jurisdiction, scope.Product, scope.Route, now)
		if o == nil {
			result.Add(issue)
			continue
		}

		rewritten, keep, err := applyOne(o, issue)
		if err != nil {
			return nil, nil, err
		}
		if keep {
			result.Add(rewritten)
		}

		applied = append(applied, Applied{RuleID: issue.RuleID, Action: o.Action, Reason: o.Reason})
		if err := r.record(ctx, tc, o, scope); err != nil {
			return nil, nil, err
		}
	}

	result.Recalculate()
	return result, applied, nil
}

// applyOne rewrites a single issue under an override. keep is false when
// the issue is suppressed out of the result.
func applyOne(o *Override, issue engine.ValidationIssue) (engine.ValidationIssue, bool, error) {
	// Touching a blocker relaxes a legal safeguard, so it needs a named
	// approver regardless of the action.
	if issue.Severity == ast.SeverityBlocker && o.ApprovedBy == "" {
		return issue, false, &OverrideError{
			RuleID:  o.RuleID,
			Message: "overriding a blocker requires approved_by",
		}
	}

	switch o.Action {
	case OverrideSuppress:
		return issue, false, nil

	case OverrideDowngrade:
		if !o.NewSeverity.Valid() {
			return issue, false, &OverrideError{RuleID: o.RuleID, Message: "downgrade requires a valid new_severity"}
		}
		issue.Severity = o.NewSeverity
		return issue, true, nil

	case OverrideUpgrade:
		if !o.NewSeverity.Valid() {
			return issue, false, &OverrideError{RuleID: o.RuleID, Message: "upgrade requires a valid new_severity"}
		}
		issue.Severity = o.NewSeverity
		return issue, true, nil

	case OverrideModify:
		if o.NewMessage == "" {
			return issue, false, &OverrideError{RuleID: o.RuleID, Message: "modify requires a new_message"}
		}
		issue.Message = o.NewMessage
		return issue, true, nil

	default:
		return issue, false, &OverrideError{RuleID: o.RuleID, Message: "unknown override action " + string(o.Action)}
	}
}

func (r *Resolver) record(ctx context.Context, tc *Context, o *Override, scope Scope) error {
	if r.auditLog == nil {
		r.logger.Warn("override applied without audit persistence",
			"tenant_id", tc.TenantID, "rule_id", o.RuleID, "action", o.Action)
		return nil
	}
	return r.auditLog.Record(ctx, &audit.Entry{
		TenantID:     tc.TenantID,
		RuleID:       o.RuleID,
		Action:       auditAction(o.Action),
		Reason:       o.Reason,
		ApprovedBy:   o.ApprovedBy,
		Jurisdiction: scope.Jurisdiction,
		Product:      scope.Product,
		Route:        scope.Route,
	})
}

func auditAction(a OverrideAction) audit.Action {
	switch a {
	case OverrideSuppress:
		return audit.ActionSuppress
	case OverrideDowngrade:
		return audit.ActionDowngrade
	case OverrideUpgrade:
		return audit.ActionUpgrade
	default:
		return audit.ActionModify
	}
}

func cloneResult(base *engine.ValidationResult) *engine.ValidationResult {
	result := engine.NewValidationResult()
	for _, issue := range base.Issues() {
		result.Add(issue)
	}
	result.Recalculate()
	return result
}
