package shadow

import (
	"sort"
	"time"
)

// Comparison is one shadow-mode telemetry record. Blocker IDs are stored
// normalized so records from before and after cutover compare directly.
type Comparison struct {
	ID               string        `json:"id"`
	Timestamp        time.Time     `json:"timestamp"`
	Jurisdiction     string        `json:"jurisdiction"`
	Product          string        `json:"product"`
	Route            string        `json:"route"`
	LegacyBlockerIDs []string      `json:"legacy_blocker_ids"`
	NewBlockerIDs    []string      `json:"new_blocker_ids"`
	Matched          bool          `json:"matched"`
	Superset         bool          `json:"superset,omitempty"`
	Mismatch         string        `json:"mismatch,omitempty"`
	LegacyDuration   time.Duration `json:"legacy_duration_ms"`
	NewDuration      time.Duration `json:"new_duration_ms"`
}

// Comparator checks the parity contract between the two engines.
type Comparator struct {
	idMap *IDMap

	// supersetJurisdictions may fire more granular blockers than the
	// legacy engine, provided every legacy blocker is present. Everywhere
	// else the sets must be equal.
	supersetJurisdictions map[string]bool
}

// NewComparator creates a comparator. supersetJurisdictions lists the
// jurisdictions granted the granular-superset exception.
func NewComparator(idMap *IDMap, supersetJurisdictions []string) *Comparator {
	allowed := make(map[string]bool, len(supersetJurisdictions))
	for _, j := range supersetJurisdictions {
		allowed[j] = true
	}
	return &Comparator{idMap: idMap, supersetJurisdictions: allowed}
}

// Compare evaluates the parity contract for one request. legacyCodes are
// raw legacy blocker codes; newIDs are declarative blocker rule IDs.
func (c *Comparator) Compare(jurisdiction, product, route string, legacyCodes, newIDs []string, legacyDur, newDur time.Duration) *Comparison {
	record := &Comparison{
		Timestamp:      time.Now().UTC(),
		Jurisdiction:   jurisdiction,
		Product:        product,
		Route:          route,
		NewBlockerIDs:  sortedCopy(newIDs),
		LegacyDuration: legacyDur,
		NewDuration:    newDur,
	}

	normalized, err := c.idMap.NormalizeAll(legacyCodes)
	if err != nil {
		record.LegacyBlockerIDs = sortedCopy(legacyCodes)
		record.Mismatch = err.Error()
		return record
	}
	record.LegacyBlockerIDs = sortedCopy(normalized)

	legacySet := toSet(normalized)
	newSet := toSet(newIDs)

	// Legacy may never fire a blocker the new engine misses.
	for id := range legacySet {
		if !newSet[id] {
			record.Mismatch = "legacy blocker " + id + " missing from new engine result"
			return record
		}
	}

	if len(newSet) == len(legacySet) {
		record.Matched = true
		return record
	}

	// New engine fired extra blockers: allowed only under the granular
	// superset exception.
	if c.supersetJurisdictions[jurisdiction] {
		record.Matched = true
		record.Superset = true
		return record
	}
	record.Mismatch = "new engine fired blockers absent from legacy result"
	return record
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func sortedCopy(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	sort.Strings(out)
	return out
}
