// Package tenant implements per-tenant customization of the rule engine:
// tier-gated feature access, rule overrides (suppress, downgrade, upgrade,
// modify), and tenant-authored custom rules.
//
// Overrides rewrite base results after evaluation and never touch the base
// rule documents; custom rules are namespaced under the tenant ID and merged
// into a derived rule-set, never into the base set. Every override
// application is recorded in the audit log.
package tenant
