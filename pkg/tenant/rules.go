package tenant

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/condition"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

// ruleIDPattern matches the base-rule naming convention. Custom rule IDs
// are the tenant ID, an underscore, then a name in this shape.
var ruleIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// maxCustomIdentifiers caps how many extra fact names one tenant may
// declare. Custom rules reference a handful of tenant-specific facts;
// anything larger belongs in a base document.
const maxCustomIdentifiers = 20

// CustomRuleID builds the namespaced ID for a tenant rule.
func CustomRuleID(tenantID, name string) string {
	return tenantID + "_" + name
}

// IsCustomRuleID reports whether a rule ID belongs to the tenant's
// namespace. Namespacing is what keeps custom rules from colliding with,
// or shadowing, base rules.
func IsCustomRuleID(tenantID, ruleID string) bool {
	return tenantID != "" && strings.HasPrefix(ruleID, tenantID+"_")
}

// RuleValidation is the outcome of validating one candidate custom rule.
type RuleValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

func (v *RuleValidation) add(format string, args ...any) {
	v.Valid = false
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validator checks tenant-authored rules against the same safeguards the
// store applies to base documents: known identifiers only (base plus any
// the tenant declares), compilable conditions, a condition cap, and the
// tenant namespace.
type Validator struct {
	compiler          *condition.Compiler
	maxConditions     int
	allowedSeverities []ast.Severity
}

// NewValidator creates a validator over the base rule-set's compiler.
// Custom rules see the base allow-list plus any identifiers the tenant
// declares for its own facts.
func NewValidator(compiler *condition.Compiler, maxConditions int) *Validator {
	if maxConditions <= 0 {
		maxConditions = 10
	}
	return &Validator{
		compiler:      compiler,
		maxConditions: maxConditions,
	}
}

// compilerFor returns the compiler custom-rule conditions compile against:
// the base compiler when the tenant declares no identifiers of its own,
// otherwise a derived compiler over the extended allow-list. Tenant
// identifiers must be facts.* names not already declared by the document.
func (v *Validator) compilerFor(tc *Context) (*condition.Compiler, error) {
	if tc == nil || len(tc.CustomIdentifiers) == 0 {
		return v.compiler, nil
	}
	if len(tc.CustomIdentifiers) > maxCustomIdentifiers {
		return nil, fmt.Errorf("tenant declares %d identifiers, maximum is %d",
			len(tc.CustomIdentifiers), maxCustomIdentifiers)
	}

	var base []string
	if v.compiler != nil {
		base = v.compiler.Identifiers()
	}
	declared := make(map[string]bool, len(base)+len(tc.CustomIdentifiers))
	for _, id := range base {
		declared[id] = true
	}

	extended := make([]string, 0, len(base)+len(tc.CustomIdentifiers))
	extended = append(extended, base...)
	for _, id := range tc.CustomIdentifiers {
		if !strings.HasPrefix(id, condition.IdentPrefixFacts) {
			return nil, fmt.Errorf("identifier %q is outside the facts.* namespace", id)
		}
		if declared[id] {
			return nil, fmt.Errorf("identifier %q is already declared", id)
		}
		declared[id] = true
		extended = append(extended, id)
	}
	return condition.NewCompiler(extended)
}

// ValidateRule checks one candidate rule for a tenant. It never returns an
// error for a merely invalid rule; invalidity is data in the result.
func (v *Validator) ValidateRule(tc *Context, rule *ast.Rule) *RuleValidation {
	compiler, err := v.compilerFor(tc)
	if err != nil {
		result := &RuleValidation{}
		result.add("custom identifiers: %v", err)
		return result
	}
	return v.validateRule(tc, rule, compiler)
}

func (v *Validator) validateRule(tc *Context, rule *ast.Rule, compiler *condition.Compiler) *RuleValidation {
	result := &RuleValidation{Valid: true}

	if tc == nil || tc.TenantID == "" {
		result.add("tenant context is required")
		return result
	}
	if !tc.CanUseCustomRules() {
		result.add("tier %s does not include custom rules", tc.Tier)
		return result
	}
	if rule == nil {
		result.add("rule is required")
		return result
	}

	if !IsCustomRuleID(tc.TenantID, rule.ID) {
		result.add("rule id %q must be namespaced as %s_<name>", rule.ID, tc.TenantID)
	} else {
		name := strings.TrimPrefix(rule.ID, tc.TenantID+"_")
		if !ruleIDPattern.MatchString(name) {
			result.add("rule name %q must match %s", name, ruleIDPattern.String())
		}
	}

	if !rule.Severity.Valid() {
		result.add("unknown severity %q", rule.Severity)
	}
	if rule.Message == "" {
		result.add("rule requires a message")
	}
	if len(rule.AppliesWhen) == 0 {
		result.add("rule requires at least one applies_when condition")
	}
	if len(rule.AppliesWhen) > v.maxConditions {
		result.add("rule has %d conditions, maximum is %d", len(rule.AppliesWhen), v.maxConditions)
	}

	if compiler != nil {
		for _, expr := range rule.AppliesWhen {
			if _, err := compiler.Compile(expr); err != nil {
				result.add("condition %q: %v", expr, err)
			}
		}
	}

	return result
}

// MergeCustomRules returns a derived rule-set with the tenant's custom
// rules appended after the base rules and the tenant's identifiers added
// to the allow-list, plus the compiler the merged set evaluates with.
// Base rules are never displaced; an invalid custom rule fails the merge
// rather than being silently skipped.
func (v *Validator) MergeCustomRules(tc *Context, base *ast.RuleSet) (*ast.RuleSet, *condition.Compiler, error) {
	if base == nil {
		return nil, nil, fmt.Errorf("base rule-set cannot be nil")
	}
	if tc == nil || len(tc.CustomRules) == 0 {
		return base, v.compiler, nil
	}
	if !tc.CanUseCustomRules() {
		return nil, nil, &FeatureError{TenantID: tc.TenantID, Tier: tc.Tier, Feature: FeatureCustomRules}
	}

	compiler, err := v.compilerFor(tc)
	if err != nil {
		return nil, nil, fmt.Errorf("custom identifiers: %w", err)
	}

	for _, rule := range tc.CustomRules {
		if validation := v.validateRule(tc, rule, compiler); !validation.Valid {
			return nil, nil, fmt.Errorf("custom rule %q: %s", rule.ID, strings.Join(validation.Errors, "; "))
		}
		if _, exists := base.Rule(rule.ID); exists {
			return nil, nil, fmt.Errorf("custom rule %q collides with an existing rule", rule.ID)
		}
	}

	merged := base
	if len(tc.CustomIdentifiers) > 0 {
		if merged, err = merged.WithIdentifiers(tc.CustomIdentifiers); err != nil {
			return nil, nil, fmt.Errorf("custom identifiers: %w", err)
		}
	}
	merged, err = merged.WithRules(tc.CustomRules)
	if err != nil {
		return nil, nil, err
	}
	return merged, compiler, nil
}
