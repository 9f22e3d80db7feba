package engine

import (
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/condition"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/facts"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

// ValidationIssue is one instance of a fired rule.
type ValidationIssue struct {
	RuleID   string       `json:"rule_id"`
	Severity ast.Severity `json:"severity"`
	Message  string       `json:"message"`
	Field    string       `json:"field,omitempty"`
}

// ValidationResult is the classified outcome of one evaluation. IsValid is
// true exactly when there are no blockers.
type ValidationResult struct {
	IsValid     bool              `json:"is_valid"`
	Blockers    []ValidationIssue `json:"blockers"`
	Warnings    []ValidationIssue `json:"warnings"`
	Suggestions []ValidationIssue `json:"suggestions"`
}

// NewValidationResult returns an empty, valid result.
func NewValidationResult() *ValidationResult {
	return &ValidationResult{IsValid: true}
}

// Add appends an issue to the list matching its severity.
func (r *ValidationResult) Add(issue ValidationIssue) {
	switch issue.Severity {
	case ast.SeverityBlocker:
		r.Blockers = append(r.Blockers, issue)
	case ast.SeverityWarning:
		r.Warnings = append(r.Warnings, issue)
	default:
		r.Suggestions = append(r.Suggestions, issue)
	}
	r.Recalculate()
}

// Recalculate re-derives IsValid from the blocker list. Callers that move
// issues between lists (severity overrides) must call it afterwards.
func (r *ValidationResult) Recalculate() {
	r.IsValid = len(r.Blockers) == 0
}

// BlockerIDs returns the rule IDs of all blockers, in order.
func (r *ValidationResult) BlockerIDs() []string {
	ids := make([]string, 0, len(r.Blockers))
	for _, b := range r.Blockers {
		ids = append(ids, b.RuleID)
	}
	return ids
}

// Issues returns every issue across all severities.
func (r *ValidationResult) Issues() []ValidationIssue {
	all := make([]ValidationIssue, 0, len(r.Blockers)+len(r.Warnings)+len(r.Suggestions))
	all = append(all, r.Blockers...)
	all = append(all, r.Warnings...)
	all = append(all, r.Suggestions...)
	return all
}

// SkipReason records why a rule was not fully evaluated.
type SkipReason string

const (
	SkipNone                SkipReason = ""
	SkipRouteNotApplicable  SkipReason = "route_not_applicable"
	SkipFeatureFlagDisabled SkipReason = "feature_flag_disabled"
	SkipConditionCount      SkipReason = "condition_count_exceeded"
	SkipEvaluationError     SkipReason = "evaluation_error"
	SkipEmergencySuppressed SkipReason = "emergency_suppressed"
)

// ConditionExplanation reports the outcome of one condition within a rule.
type ConditionExplanation struct {
	Expression string `json:"expression"`
	Evaluated  bool   `json:"evaluated"`
	Result     bool   `json:"result"`
	Error      string `json:"error,omitempty"`
}

// RuleExplanation reports whether and why one rule fired. In explainable
// mode every rule in the rule-set appears exactly once.
type RuleExplanation struct {
	RuleID          string                 `json:"rule_id"`
	Severity        ast.Severity           `json:"severity"`
	Evaluated       bool                   `json:"evaluated"`
	SkipReason      SkipReason             `json:"skip_reason,omitempty"`
	Fired           bool                   `json:"fired"`
	Conditions      []ConditionExplanation `json:"conditions,omitempty"`
	FiringCondition string                 `json:"firing_condition,omitempty"`
}

// Timing reports wall-clock data for one evaluation.
type Timing struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// ExplainedResult is the full explainable-mode output.
type ExplainedResult struct {
	Result       *ValidationResult `json:"result"`
	Explanations []RuleExplanation `json:"explanations"`
	Computed     facts.Computed    `json:"computed"`
	Timing       Timing            `json:"timing"`
}

// Request carries everything one evaluation needs. All fields are treated
// as read-only: evaluation is a pure function of the request.
type Request struct {
	// RuleSet is the validated rule-set to evaluate.
	RuleSet *ast.RuleSet

	// Compiler is the condition compiler built from the rule-set's
	// identifier allow-list (served by the store alongside the set).
	Compiler *condition.Compiler

	// Facts is the caller-supplied case data.
	Facts facts.Facts

	// Computed is the derived context. When nil the engine derives it
	// from Facts.
	Computed facts.Computed

	// Route selects which rules apply.
	Route string

	// Features is the set of enabled feature flags for requires_feature
	// gating.
	Features map[string]bool

	// Suppressed lists rule IDs disabled by emergency suppression.
	Suppressed map[string]bool
}
