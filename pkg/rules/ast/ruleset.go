package ast

import (
	"fmt"
	"time"
)

// RuleSet is a validated, immutable collection of rules for one
// (jurisdiction, product) scope. Once loaded it is shared freely across
// concurrent evaluations without locking; derived sets (for example with
// tenant rules merged in) are new values, never mutations.
type RuleSet struct {
	// Version is the document version declared by the author.
	Version string

	// Jurisdiction identifies the legal jurisdiction (e.g. "england").
	Jurisdiction string

	// Product identifies the product line (e.g. "possession_notice").
	Product string

	// Routes lists the valid routes for this document.
	Routes []string

	// Identifiers is the allow-list of facts.* and computed.* names that
	// conditions in this document may reference.
	Identifiers []string

	// Rules holds every rule, in declaration order.
	Rules []*Rule

	// SourceHash is the SHA-256 of the source document, used for cache
	// invalidation.
	SourceHash string

	// SourcePath is the file the document was loaded from.
	SourcePath string

	// LoadedAt is when the document was loaded and validated.
	LoadedAt time.Time

	index map[string]*Rule
}

// Key returns the cache key for a (jurisdiction, product) scope.
func Key(jurisdiction, product string) string {
	return jurisdiction + "/" + product
}

// Key returns this set's (jurisdiction, product) cache key.
func (rs *RuleSet) Key() string {
	return Key(rs.Jurisdiction, rs.Product)
}

// Rule returns the rule with the given ID, if present.
func (rs *RuleSet) Rule(id string) (*Rule, bool) {
	if rs.index == nil {
		return nil, false
	}
	r, ok := rs.index[id]
	return r, ok
}

// HasRoute returns true if the document declares the given route.
func (rs *RuleSet) HasRoute(route string) bool {
	for _, r := range rs.Routes {
		if r == route {
			return true
		}
	}
	return false
}

// HasIdentifier returns true if the name is in the condition allow-list.
func (rs *RuleSet) HasIdentifier(name string) bool {
	for _, id := range rs.Identifiers {
		if id == name {
			return true
		}
	}
	return false
}

// Finalize builds the rule index and checks ID uniqueness. It is called by
// the parser after all rules are collected.
func (rs *RuleSet) Finalize() error {
	rs.index = make(map[string]*Rule, len(rs.Rules))
	for _, r := range rs.Rules {
		if _, dup := rs.index[r.ID]; dup {
			return fmt.Errorf("duplicate rule id %q", r.ID)
		}
		rs.index[r.ID] = r
	}
	return nil
}

// WithRules returns a derived set containing this set's rules followed by
// extra. The receiver is not modified. Finalize is re-run so duplicate IDs
// across the merge are rejected.
func (rs *RuleSet) WithRules(extra []*Rule) (*RuleSet, error) {
	merged := *rs
	merged.Rules = make([]*Rule, 0, len(rs.Rules)+len(extra))
	merged.Rules = append(merged.Rules, rs.Rules...)
	merged.Rules = append(merged.Rules, extra...)
	if err := merged.Finalize(); err != nil {
		return nil, err
	}
	return &merged, nil
}

// WithIdentifiers returns a derived set whose condition allow-list is this
// set's identifiers followed by extra. The receiver is not modified. Names
// already declared are rejected rather than silently deduplicated.
func (rs *RuleSet) WithIdentifiers(extra []string) (*RuleSet, error) {
	derived := *rs
	derived.Identifiers = make([]string, 0, len(rs.Identifiers)+len(extra))
	derived.Identifiers = append(derived.Identifiers, rs.Identifiers...)
	for _, id := range extra {
		if derived.HasIdentifier(id) {
			return nil, fmt.Errorf("identifier %q is already declared", id)
		}
		derived.Identifiers = append(derived.Identifiers, id)
	}
	return &derived, nil
}
