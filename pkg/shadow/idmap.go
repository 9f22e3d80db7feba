package shadow

import (
	"fmt"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/legacy"
)

// IDMap is the bijective translation between legacy blocker codes and
// declarative rule IDs. Comparison always goes through this map, never
// through string munging: the two naming conventions are unrelated and a
// missing mapping must fail loudly, not fuzzily match.
type IDMap struct {
	legacyToNew map[string]string
	newToLegacy map[string]string
}

// defaultPairs is the documented code translation table. Every legacy
// code has exactly one declarative counterpart.
var defaultPairs = map[string]string{
	legacy.CodeS21DepositNoncompliant:   "s21_deposit_not_protected",
	legacy.CodeS21GasCertMissing:        "gas_safety_cert_missing",
	legacy.CodeS21EPCMissing:            "epc_missing",
	legacy.CodeS21H2RMissing:            "how_to_rent_missing",
	legacy.CodeS21LicensingNoncompliant: "property_licence_missing",
	legacy.CodeS173NoticeUndetermined:   "s173_notice_period_undetermined",
}

// NewIDMap builds an ID map from legacy-to-new pairs, rejecting any
// mapping that is not bijective.
func NewIDMap(pairs map[string]string) (*IDMap, error) {
	m := &IDMap{
		legacyToNew: make(map[string]string, len(pairs)),
		newToLegacy: make(map[string]string, len(pairs)),
	}
	for legacyCode, newID := range pairs {
		if legacyCode == "" || newID == "" {
			return nil, fmt.Errorf("id map entries cannot be empty (%q -> %q)", legacyCode, newID)
		}
		if existing, ok := m.newToLegacy[newID]; ok {
			return nil, fmt.Errorf("id map is not bijective: %s and %s both map to %s",
				existing, legacyCode, newID)
		}
		m.legacyToNew[legacyCode] = newID
		m.newToLegacy[newID] = legacyCode
	}
	return m, nil
}

// DefaultIDMap returns the map for the documented legacy code set.
func DefaultIDMap() *IDMap {
	m, err := NewIDMap(defaultPairs)
	if err != nil {
		panic(err) // the default table is static and verified by tests
	}
	return m
}

// Normalize translates a legacy code to its declarative rule ID.
func (m *IDMap) Normalize(legacyCode string) (string, bool) {
	id, ok := m.legacyToNew[legacyCode]
	return id, ok
}

// LegacyCode translates a declarative rule ID back to its legacy code.
func (m *IDMap) LegacyCode(newID string) (string, bool) {
	code, ok := m.newToLegacy[newID]
	return code, ok
}

// NormalizeAll translates a list of legacy codes. Unmapped codes are an
// error: an unknown code means the translation table is stale.
func (m *IDMap) NormalizeAll(legacyCodes []string) ([]string, error) {
	out := make([]string, 0, len(legacyCodes))
	for _, code := range legacyCodes {
		id, ok := m.Normalize(code)
		if !ok {
			return nil, fmt.Errorf("no mapping for legacy code %s", code)
		}
		out = append(out, id)
	}
	return out, nil
}
