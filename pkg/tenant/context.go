package tenant

import "github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"

// Tier is a tenant's subscription tier.
type Tier string

const (
	TierFree       Tier = "free"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// Valid returns true if the tier is known.
func (t Tier) Valid() bool {
	switch t {
	case TierFree, TierPro, TierEnterprise:
		return true
	default:
		return false
	}
}

// Feature names gated by tier.
const (
	FeatureCustomRules   = "custom_rules"
	FeatureRuleOverrides = "rule_overrides"
	FeatureExplainMode   = "explain_mode"
	FeatureAuditExport   = "audit_export"
)

// tierFeatures is the tier gating table. Gates are data, not code branches:
// evaluation code asks this one table rather than switching on tier names.
var tierFeatures = map[Tier]map[string]bool{
	TierFree: {},
	TierPro: {
		FeatureExplainMode: true,
	},
	TierEnterprise: {
		FeatureCustomRules:   true,
		FeatureRuleOverrides: true,
		FeatureExplainMode:   true,
		FeatureAuditExport:   true,
	},
}

// IsFeatureAvailableForTier reports whether a tier includes a feature.
func IsFeatureAvailableForTier(tier Tier, feature string) bool {
	return tierFeatures[tier][feature]
}

// Context is the tenant context for one request. It is set when request
// handling starts, passed explicitly through the call chain, and dropped
// when the request ends. It is never stored in process-global state:
// concurrent requests for different tenants must not observe each other's
// context.
type Context struct {
	// TenantID identifies the tenant.
	TenantID string

	// Tier is the tenant's subscription tier.
	Tier Tier

	// Features lists feature flags enabled for this tenant, used for
	// requires_feature rule gating.
	Features []string

	// Overrides are the tenant's rule overrides, applied to engine output.
	Overrides []*Override

	// CustomRules are tenant-authored rules merged into evaluation.
	CustomRules []*ast.Rule

	// CustomIdentifiers are extra facts.* names the tenant's custom rules
	// may reference, declared the same way base documents declare theirs.
	// They are added to the condition allow-list when the rules merge;
	// facts the case does not supply resolve to null as usual.
	CustomIdentifiers []string
}

// CanUseCustomRules reports whether the tenant's tier permits custom rules.
func (c *Context) CanUseCustomRules() bool {
	return c != nil && IsFeatureAvailableForTier(c.Tier, FeatureCustomRules)
}

// CanUseRuleOverrides reports whether the tenant's tier permits overrides.
func (c *Context) CanUseRuleOverrides() bool {
	return c != nil && IsFeatureAvailableForTier(c.Tier, FeatureRuleOverrides)
}

// FeatureSet returns the tenant's feature flags as a set for the engine.
func (c *Context) FeatureSet() map[string]bool {
	if c == nil {
		return nil
	}
	set := make(map[string]bool, len(c.Features))
	for _, f := range c.Features {
		set[f] = true
	}
	return set
}
