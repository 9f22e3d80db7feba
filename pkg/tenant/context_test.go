package tenant

import "testing"

func TestTierFeatureGating(t *testing.T) {
	tests := []struct {
		tier    Tier
		feature string
		want    bool
	}{
		{TierFree, FeatureCustomRules, false},
		{TierFree, FeatureRuleOverrides, false},
		{TierFree, FeatureExplainMode, false},
		{TierFree, FeatureAuditExport, false},
		{TierPro, FeatureExplainMode, true},
		{TierPro, FeatureCustomRules, false},
		{TierPro, FeatureRuleOverrides, false},
		{TierEnterprise, FeatureCustomRules, true},
		{TierEnterprise, FeatureRuleOverrides, true},
		{TierEnterprise, FeatureExplainMode, true},
		{TierEnterprise, FeatureAuditExport, true},
		{Tier("unknown"), FeatureExplainMode, false},
	}

	for _, tt := range tests {
		if got := IsFeatureAvailableForTier(tt.tier, tt.feature); got != tt.want {
			t.Errorf("IsFeatureAvailableForTier(%s, %s) = %v, want %v", tt.tier, tt.feature, got, tt.want)
		}
	}
}

func TestTierValid(t *testing.T) {
	for _, tier := range []Tier{TierFree, TierPro, TierEnterprise} {
		if !tier.Valid() {
			t.Errorf("Valid(%s) = false", tier)
		}
	}
	if Tier("platinum").Valid() {
		t.Error("Valid(platinum) = true, want false")
	}
}

func TestContextNilSafety(t *testing.T) {
	var c *Context

	if c.CanUseCustomRules() {
		t.Error("nil context must not permit custom rules")
	}
	if c.CanUseRuleOverrides() {
		t.Error("nil context must not permit overrides")
	}
	if c.FeatureSet() != nil {
		t.Error("nil context FeatureSet should be nil")
	}
}

func TestFeatureSet(t *testing.T) {
	c := &Context{
		TenantID: "acme",
		Tier:     TierEnterprise,
		Features: []string{"route_suggestions", "beta_rules"},
	}

	set := c.FeatureSet()
	if !set["route_suggestions"] || !set["beta_rules"] {
		t.Errorf("FeatureSet() = %v, want both flags", set)
	}
	if set["other"] {
		t.Error("FeatureSet() should not contain undeclared flags")
	}
}
