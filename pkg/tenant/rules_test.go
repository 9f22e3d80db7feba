package tenant

import (
	"fmt"
	"strings"
	"testing"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/condition"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

func newTestValidator(t *testing.T) *Validator {
	t.Helper()
	compiler, err := condition.NewCompiler([]string{
		"facts.deposit_taken",
		"facts.deposit_protected",
		"computed.tenancy_months",
	})
	if err != nil {
		t.Fatalf("NewCompiler() error = %v", err)
	}
	return NewValidator(compiler, 10)
}

func validCustomRule() *ast.Rule {
	return &ast.Rule{
		ID:          "acme_deposit_check",
		Severity:    ast.SeverityWarning,
		AppliesWhen: []string{"facts.deposit_taken == true"},
		Message:     "Acme policy requires a protected deposit",
	}
}

func TestValidateRule(t *testing.T) {
	v := newTestValidator(t)
	tc := &Context{TenantID: "acme", Tier: TierEnterprise}

	tests := []struct {
		name    string
		mutate  func(*ast.Rule)
		wantErr string
	}{
		{"valid rule", func(r *ast.Rule) {}, ""},
		{"missing namespace", func(r *ast.Rule) { r.ID = "deposit_check" }, "namespaced"},
		{"foreign namespace", func(r *ast.Rule) { r.ID = "other_deposit_check" }, "namespaced"},
		{"bad severity", func(r *ast.Rule) { r.Severity = "critical" }, "severity"},
		{"missing message", func(r *ast.Rule) { r.Message = "" }, "message"},
		{"no conditions", func(r *ast.Rule) { r.AppliesWhen = nil }, "condition"},
		{"unknown identifier", func(r *ast.Rule) {
			r.AppliesWhen = []string{"facts.unknown_field == true"}
		}, "facts.unknown_field"},
		{"syntactically broken condition", func(r *ast.Rule) {
			r.AppliesWhen = []string{"facts.deposit_taken =="}
		}, "facts.deposit_taken =="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validCustomRule()
			tt.mutate(rule)
			got := v.ValidateRule(tc, rule)
			if tt.wantErr == "" {
				if !got.Valid {
					t.Fatalf("ValidateRule() invalid: %v", got.Errors)
				}
				return
			}
			if got.Valid {
				t.Fatal("ValidateRule() valid, want invalid")
			}
			if !containsError(got.Errors, tt.wantErr) {
				t.Errorf("errors %v do not mention %q", got.Errors, tt.wantErr)
			}
		})
	}
}

func TestValidateRuleWithTenantIdentifiers(t *testing.T) {
	v := newTestValidator(t)
	tc := &Context{
		TenantID:          "acme",
		Tier:              TierEnterprise,
		CustomIdentifiers: []string{"facts.internal_approval_complete"},
	}
	rule := validCustomRule()
	rule.AppliesWhen = []string{"facts.internal_approval_complete != true"}

	if got := v.ValidateRule(tc, rule); !got.Valid {
		t.Fatalf("ValidateRule() invalid: %v", got.Errors)
	}

	tc.CustomIdentifiers = []string{"not_namespaced"}
	if got := v.ValidateRule(tc, rule); got.Valid {
		t.Fatal("ValidateRule() accepted a bad identifier declaration")
	}
}

func TestValidateRuleConditionCap(t *testing.T) {
	v := NewValidator(nil, 2)
	tc := &Context{TenantID: "acme", Tier: TierEnterprise}
	rule := validCustomRule()
	rule.AppliesWhen = []string{"a", "b", "c"}

	got := v.ValidateRule(tc, rule)
	if got.Valid {
		t.Fatal("rule over the condition cap accepted")
	}
	if !containsError(got.Errors, "maximum") {
		t.Errorf("errors %v do not mention the cap", got.Errors)
	}
}

func TestValidateRuleTierGate(t *testing.T) {
	v := newTestValidator(t)
	got := v.ValidateRule(&Context{TenantID: "smallco", Tier: TierFree}, validCustomRule())
	if got.Valid {
		t.Fatal("free tier allowed to validate custom rules")
	}
}

func TestMergeCustomRules(t *testing.T) {
	v := newTestValidator(t)

	base := &ast.RuleSet{
		Jurisdiction: "england",
		Product:      "possession",
		Routes:       []string{"s21"},
		Identifiers:  []string{"facts.deposit_taken", "facts.deposit_protected", "computed.tenancy_months"},
		Rules: []*ast.Rule{{
			ID:          "s21_deposit_not_protected",
			Severity:    ast.SeverityBlocker,
			AppliesWhen: []string{"facts.deposit_taken == true && facts.deposit_protected == false"},
			Message:     "Deposit must be protected",
		}},
	}
	if err := base.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}

	t.Run("appends after base rules", func(t *testing.T) {
		tc := &Context{TenantID: "acme", Tier: TierEnterprise, CustomRules: []*ast.Rule{validCustomRule()}}
		merged, _, err := v.MergeCustomRules(tc, base)
		if err != nil {
			t.Fatalf("MergeCustomRules() error = %v", err)
		}
		if len(merged.Rules) != 2 {
			t.Fatalf("merged rules = %d, want 2", len(merged.Rules))
		}
		if merged.Rules[0].ID != "s21_deposit_not_protected" || merged.Rules[1].ID != "acme_deposit_check" {
			t.Errorf("rule order = %s, %s", merged.Rules[0].ID, merged.Rules[1].ID)
		}
		if len(base.Rules) != 1 {
			t.Error("merge mutated the base rule-set")
		}
	})

	t.Run("invalid custom rule fails the merge", func(t *testing.T) {
		bad := validCustomRule()
		bad.AppliesWhen = []string{"facts.nonexistent == true"}
		tc := &Context{TenantID: "acme", Tier: TierEnterprise, CustomRules: []*ast.Rule{bad}}
		if _, _, err := v.MergeCustomRules(tc, base); err == nil {
			t.Fatal("MergeCustomRules() accepted an invalid rule")
		}
	})

	t.Run("tier gate", func(t *testing.T) {
		tc := &Context{TenantID: "acme", Tier: TierPro, CustomRules: []*ast.Rule{validCustomRule()}}
		if _, _, err := v.MergeCustomRules(tc, base); err == nil {
			t.Fatal("MergeCustomRules() allowed custom rules on pro tier")
		}
	})

	t.Run("no custom rules returns the base set", func(t *testing.T) {
		merged, _, err := v.MergeCustomRules(&Context{TenantID: "acme", Tier: TierEnterprise}, base)
		if err != nil {
			t.Fatalf("MergeCustomRules() error = %v", err)
		}
		if merged != base {
			t.Error("expected the base set unchanged")
		}
	})
}

func TestMergeCustomRulesWithTenantIdentifiers(t *testing.T) {
	v := newTestValidator(t)

	base := &ast.RuleSet{
		Jurisdiction: "england",
		Product:      "possession",
		Routes:       []string{"s21"},
		Identifiers:  []string{"facts.deposit_taken", "facts.deposit_protected", "computed.tenancy_months"},
	}
	if err := base.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	approvalRule := &ast.Rule{
		ID:          "acme_manager_approval",
		Severity:    ast.SeverityBlocker,
		AppliesWhen: []string{"facts.internal_approval_complete != true"},
		Message:     "Manager approval is required before instruction",
	}

	t.Run("binds declared identifiers", func(t *testing.T) {
		tc := &Context{
			TenantID:          "acme",
			Tier:              TierEnterprise,
			CustomRules:       []*ast.Rule{approvalRule},
			CustomIdentifiers: []string{"facts.internal_approval_complete"},
		}
		merged, compiler, err := v.MergeCustomRules(tc, base)
		if err != nil {
			t.Fatalf("MergeCustomRules() error = %v", err)
		}
		if !merged.HasIdentifier("facts.internal_approval_complete") {
			t.Error("tenant identifier missing from the merged allow-list")
		}
		if base.HasIdentifier("facts.internal_approval_complete") {
			t.Error("merge mutated the base allow-list")
		}
		if _, err := compiler.Compile("facts.internal_approval_complete != true"); err != nil {
			t.Errorf("returned compiler rejects the tenant identifier: %v", err)
		}
	})

	t.Run("undeclared identifier still fails", func(t *testing.T) {
		tc := &Context{TenantID: "acme", Tier: TierEnterprise, CustomRules: []*ast.Rule{approvalRule}}
		if _, _, err := v.MergeCustomRules(tc, base); err == nil {
			t.Fatal("MergeCustomRules() accepted a rule over an undeclared identifier")
		}
	})

	t.Run("identifier outside facts namespace", func(t *testing.T) {
		tc := &Context{
			TenantID:          "acme",
			Tier:              TierEnterprise,
			CustomRules:       []*ast.Rule{validCustomRule()},
			CustomIdentifiers: []string{"computed.internal_score"},
		}
		if _, _, err := v.MergeCustomRules(tc, base); err == nil {
			t.Fatal("MergeCustomRules() accepted a computed.* tenant identifier")
		}
	})

	t.Run("identifier already declared", func(t *testing.T) {
		tc := &Context{
			TenantID:          "acme",
			Tier:              TierEnterprise,
			CustomRules:       []*ast.Rule{validCustomRule()},
			CustomIdentifiers: []string{"facts.deposit_taken"},
		}
		if _, _, err := v.MergeCustomRules(tc, base); err == nil {
			t.Fatal("MergeCustomRules() accepted a redeclared identifier")
		}
	})

	t.Run("identifier cap", func(t *testing.T) {
		ids := make([]string, 21)
		for i := range ids {
			ids[i] = fmt.Sprintf("facts.extra_%d", i)
		}
		tc := &Context{
			TenantID:          "acme",
			Tier:              TierEnterprise,
			CustomRules:       []*ast.Rule{validCustomRule()},
			CustomIdentifiers: ids,
		}
		if _, _, err := v.MergeCustomRules(tc, base); err == nil {
			t.Fatal("MergeCustomRules() accepted an oversized identifier list")
		}
	})
}

func TestIsCustomRuleID(t *testing.T) {
	tests := []struct {
		tenantID string
		ruleID   string
		want     bool
	}{
		{"acme", "acme_deposit_check", true},
		{"acme", "s21_deposit_not_protected", false},
		{"acme", "acmex_rule", false},
		{"", "anything", false},
	}
	for _, tt := range tests {
		if got := IsCustomRuleID(tt.tenantID, tt.ruleID); got != tt.want {
			t.Errorf("IsCustomRuleID(%q, %q) = %v, want %v", tt.tenantID, tt.ruleID, got, tt.want)
		}
	}
}

func containsError(errs []string, substr string) bool {
	for _, e := range errs {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}
