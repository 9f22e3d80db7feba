package ast

// Severity classifies the consequence of a fired rule.
// Blockers gate document generation; warnings and suggestions are advisory.
type Severity string

const (
	SeverityBlocker    Severity = "blocker"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Valid returns true if the severity is one of the known tiers.
func (s Severity) Valid() bool {
	switch s {
	case SeverityBlocker, SeverityWarning, SeveritySuggestion:
		return true
	default:
		return false
	}
}

// RouteAll is the wildcard route: a rule with applies_to [all] is evaluated
// for every route in the document.
const RouteAll = "all"

// Rule is one declarative validation rule. Rules are immutable after
// publication: changes to live rules are new rules or tracked edits, never
// in-place mutation.
type Rule struct {
	// ID is unique within a (jurisdiction, product) scope.
	ID string

	// Severity is the issue tier produced when the rule fires.
	Severity Severity

	// AppliesTo lists the routes this rule is evaluated for, or [all].
	AppliesTo []string

	// AppliesWhen holds the condition expressions, OR-combined: the rule
	// fires when any single condition is true.
	AppliesWhen []string

	// Message is the user-facing issue text.
	Message string

	// Rationale records the legal reasoning behind the rule.
	Rationale string

	// Field optionally names the case-input field the issue relates to.
	Field string

	// RequiresFeature optionally gates the rule behind a feature flag.
	RequiresFeature string

	// Group is the named rule list the rule was declared in.
	Group string

	// Location is the source position for error reporting.
	Location Location
}

// AppliesToRoute returns true if the rule applies to the given route.
func (r *Rule) AppliesToRoute(route string) bool {
	for _, rt := range r.AppliesTo {
		if rt == RouteAll || rt == route {
			return true
		}
	}
	return false
}
