package legacy

import (
	"reflect"
	"testing"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/facts"
)

func compliantS21Facts() facts.Facts {
	return facts.Facts{
		"deposit_taken":             true,
		"deposit_protected":         true,
		"has_gas_appliances":        true,
		"gas_safety_cert_provided":  true,
		"epc_provided":              true,
		"how_to_rent_provided":      true,
		"property_requires_licence": false,
	}
}

func TestEvaluateEnglandS21(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(facts.Facts)
		wantCodes []string
	}{
		{
			name:      "fully compliant",
			mutate:    func(f facts.Facts) {},
			wantCodes: []string{},
		},
		{
			name:      "unprotected deposit",
			mutate:    func(f facts.Facts) { f["deposit_protected"] = false },
			wantCodes: []string{CodeS21DepositNoncompliant},
		},
		{
			name:      "no deposit taken needs no protection",
			mutate:    func(f facts.Facts) { f["deposit_taken"] = false; f["deposit_protected"] = false },
			wantCodes: []string{},
		},
		{
			name:      "missing gas cert",
			mutate:    func(f facts.Facts) { f["gas_safety_cert_provided"] = false },
			wantCodes: []string{CodeS21GasCertMissing},
		},
		{
			name:      "no gas appliances needs no cert",
			mutate:    func(f facts.Facts) { f["has_gas_appliances"] = false; f["gas_safety_cert_provided"] = false },
			wantCodes: []string{},
		},
		{
			name:      "unlicensed licensable property",
			mutate:    func(f facts.Facts) { f["property_requires_licence"] = true; f["property_licensed"] = false },
			wantCodes: []string{CodeS21LicensingNoncompliant},
		},
		{
			name: "multiple failures accumulate in check order",
			mutate: func(f facts.Facts) {
				f["deposit_protected"] = false
				f["epc_provided"] = false
				f["how_to_rent_provided"] = false
			},
			wantCodes: []string{CodeS21DepositNoncompliant, CodeS21EPCMissing, CodeS21H2RMissing},
		},
	}

	e := NewEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := compliantS21Facts()
			tt.mutate(f)
			got, err := e.Evaluate("england", "s21", f)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if !reflect.DeepEqual(got.Codes, tt.wantCodes) {
				t.Errorf("Codes = %v, want %v", got.Codes, tt.wantCodes)
			}
			if got.Valid != (len(tt.wantCodes) == 0) {
				t.Errorf("Valid = %v with %d codes", got.Valid, len(got.Codes))
			}
		})
	}
}

func TestEvaluateWalesS173(t *testing.T) {
	e := NewEngine(nil)

	tests := []struct {
		name      string
		facts     facts.Facts
		wantCodes []string
	}{
		{
			name: "both dates present",
			facts: facts.Facts{
				"contract_start_date": "2025-01-01",
				"notice_service_date": "2025-09-01",
			},
			wantCodes: []string{},
		},
		{
			name:      "both dates missing collapses to one code",
			facts:     facts.Facts{},
			wantCodes: []string{CodeS173NoticeUndetermined},
		},
		{
			name:      "one date missing",
			facts:     facts.Facts{"contract_start_date": "2025-01-01"},
			wantCodes: []string{CodeS173NoticeUndetermined},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Evaluate("wales", "s173", tt.facts)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if !reflect.DeepEqual(got.Codes, tt.wantCodes) {
				t.Errorf("Codes = %v, want %v", got.Codes, tt.wantCodes)
			}
		})
	}
}

func TestEvaluateCoverage(t *testing.T) {
	e := NewEngine(nil)

	if _, err := e.Evaluate("scotland", "s21", facts.Facts{}); err == nil {
		t.Error("Evaluate() accepted an uncovered jurisdiction")
	}
	if e.Covers("england", "s8") {
		t.Error("Covers() claims s8, which the legacy engine never implemented")
	}
	if !e.Covers("wales", "s173") {
		t.Error("Covers() denies wales/s173")
	}
}
