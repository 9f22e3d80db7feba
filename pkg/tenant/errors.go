package tenant

import "fmt"

// FeatureError reports an operation gated behind a tier the tenant does
// not have. The caller should treat it as a hard rejection, not a skip.
type FeatureError struct {
	TenantID string
	Tier     Tier
	Feature  string
}

func (e *FeatureError) Error() string {
	return fmt.Sprintf("tenant %s (tier %s) does not have access to feature %q",
		e.TenantID, e.Tier, e.Feature)
}

// OverrideError reports an override rejected at apply time.
type OverrideError struct {
	RuleID  string
	Message string
}

func (e *OverrideError) Error() string {
	return fmt.Sprintf("override for rule %s rejected: %s", e.RuleID, e.Message)
}
