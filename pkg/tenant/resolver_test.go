package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit/storage"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/engine"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

func newTestResolver(t *testing.T) (*Resolver, *audit.Log) {
	t.Helper()
	log, err := audit.NewLog(storage.NewMemoryStorage(), nil)
	if err != nil {
		t.Fatalf("NewLog() error = %v", err)
	}
	r := NewResolver(log, nil)
	r.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r, log
}

func enterpriseContext(overrides ...*Override) *Context {
	return &Context{
		TenantID:  "acme",
		Tier:      TierEnterprise,
		Overrides: overrides,
	}
}

func baseResult(issues ...engine.ValidationIssue) *engine.ValidationResult {
	result := engine.NewValidationResult()
	for _, issue := range issues {
		result.Add(issue)
	}
	return result
}

func TestApplyOverridesSuppress(t *testing.T) {
	r, log := newTestResolver(t)
	tc := enterpriseContext(&Override{
		RuleID:     "epc_missing",
		Action:     OverrideSuppress,
		Reason:     "managed portfolio, EPC tracked externally",
		ApprovedBy: "legal@acme",
	})
	base := baseResult(
		engine.ValidationIssue{RuleID: "epc_missing", Severity: ast.SeverityWarning, Message: "EPC not provided"},
		engine.ValidationIssue{RuleID: "gas_cert_missing", Severity: ast.SeverityBlocker, Message: "Gas cert missing"},
	)

	got, applied, err := r.ApplyOverrides(context.Background(), tc, base, Scope{Jurisdiction: "england", Product: "possession", Route: "s21"})
	if err != nil {
		t.Fatalf("ApplyOverrides() error = %v", err)
	}
	if len(got.Warnings) != 0 {
		t.Errorf("suppressed warning still present: %+v", got.Warnings)
	}
	if len(got.Blockers) != 1 {
		t.Errorf("untouched blocker missing, got %+v", got.Blockers)
	}
	if got.IsValid {
		t.Error("result with a blocker must be invalid")
	}
	if len(applied) != 1 || applied[0].Action != OverrideSuppress {
		t.Errorf("applied = %+v, want one suppress application", applied)
	}

	entries, err := log.Query(context.Background(), &audit.Query{TenantID: "acme"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	if entries[0].Action != audit.ActionSuppress || entries[0].RuleID != "epc_missing" {
		t.Errorf("audit entry = %+v", entries[0])
	}
}

func TestApplyOverridesDowngradeBlocker(t *testing.T) {
	r, _ := newTestResolver(t)
	base := baseResult(engine.ValidationIssue{
		RuleID: "s21_deposit_not_protected", Severity: ast.SeverityBlocker, Message: "Deposit not protected",
	})

	t.Run("without approval is rejected", func(t *testing.T) {
		tc := enterpriseContext(&Override{
			RuleID:      "s21_deposit_not_protected",
			Action:      OverrideDowngrade,
			NewSeverity: ast.SeverityWarning,
			Reason:      "deposit returned in full before service",
		})
		_, _, err := r.ApplyOverrides(context.Background(), tc, base, Scope{})
		var oe *OverrideError
		if !errors.As(err, &oe) {
			t.Fatalf("ApplyOverrides() error = %v, want OverrideError", err)
		}
	})

	t.Run("with approval moves issue to warnings", func(t *testing.T) {
		tc := enterpriseContext(&Override{
			RuleID:      "s21_deposit_not_protected",
			Action:      OverrideDowngrade,
			NewSeverity: ast.SeverityWarning,
			Reason:      "deposit returned in full before service",
			ApprovedBy:  "counsel@acme",
		})
		got, _, err := r.ApplyOverrides(context.Background(), tc, base, Scope{})
		if err != nil {
			t.Fatalf("ApplyOverrides() error = %v", err)
		}
		if len(got.Blockers) != 0 || len(got.Warnings) != 1 {
			t.Fatalf("got %d blockers, %d warnings; want 0 and 1", len(got.Blockers), len(got.Warnings))
		}
		if !got.IsValid {
			t.Error("downgraded result should be valid")
		}
	})
}

func TestApplyOverridesModify(t *testing.T) {
	r, _ := newTestResolver(t)
	tc := enterpriseContext(&Override{
		RuleID:     "how_to_rent_missing",
		Action:     OverrideModify,
		NewMessage: "Use the Acme onboarding pack checklist instead",
		Reason:     "tenant-branded guidance",
	})
	base := baseResult(engine.ValidationIssue{
		RuleID: "how_to_rent_missing", Severity: ast.SeverityWarning, Message: "How to Rent guide not served",
	})

	got, _, err := r.ApplyOverrides(context.Background(), tc, base, Scope{})
	if err != nil {
		t.Fatalf("ApplyOverrides() error = %v", err)
	}
	if len(got.Warnings) != 1 {
		t.Fatalf("warnings = %d, want 1", len(got.Warnings))
	}
	if got.Warnings[0].Message != "Use the Acme onboarding pack checklist instead" {
		t.Errorf("message = %q", got.Warnings[0].Message)
	}
	if got.Warnings[0].Severity != ast.SeverityWarning {
		t.Errorf("modify changed severity to %q", got.Warnings[0].Severity)
	}
}

func TestApplyOverridesTierGate(t *testing.T) {
	r, _ := newTestResolver(t)
	tc := &Context{
		TenantID: "smallco",
		Tier:     TierPro,
		Overrides: []*Override{{
			RuleID: "epc_missing", Action: OverrideSuppress, Reason: "x",
		}},
	}
	base := baseResult(engine.ValidationIssue{RuleID: "epc_missing", Severity: ast.SeverityWarning})

	_, _, err := r.ApplyOverrides(context.Background(), tc, base, Scope{})
	var fe *FeatureError
	if !errors.As(err, &fe) {
		t.Fatalf("ApplyOverrides() error = %v, want FeatureError", err)
	}
	if fe.Feature != FeatureRuleOverrides {
		t.Errorf("gated feature = %q, want %q", fe.Feature, FeatureRuleOverrides)
	}
}

func TestApplyOverridesIdempotent(t *testing.T) {
	r, _ := newTestResolver(t)
	tc := enterpriseContext(&Override{
		RuleID:      "epc_missing",
		Action:      OverrideDowngrade,
		NewSeverity: ast.SeveritySuggestion,
		Reason:      "portfolio policy",
	})
	base := baseResult(engine.ValidationIssue{RuleID: "epc_missing", Severity: ast.SeverityWarning, Message: "m"})

	first, _, err := r.ApplyOverrides(context.Background(), tc, base, Scope{})
	if err != nil {
		t.Fatalf("first ApplyOverrides() error = %v", err)
	}
	second, _, err := r.ApplyOverrides(context.Background(), tc, first, Scope{})
	if err != nil {
		t.Fatalf("second ApplyOverrides() error = %v", err)
	}
	if len(second.Suggestions) != 1 || len(second.Warnings) != 0 {
		t.Fatalf("second application changed the result: %+v", second)
	}
}

func TestApplyOverridesSkipsCustomRuleIssues(t *testing.T) {
	r, _ := newTestResolver(t)
	tc := enterpriseContext(&Override{
		RuleID: "acme_inventory_photos", Action: OverrideSuppress, Reason: "x", ApprovedBy: "y",
	})
	base := baseResult(engine.ValidationIssue{
		RuleID: "acme_inventory_photos", Severity: ast.SeverityWarning, Message: "m",
	})

	got, applied, err := r.ApplyOverrides(context.Background(), tc, base, Scope{})
	if err != nil {
		t.Fatalf("ApplyOverrides() error = %v", err)
	}
	if len(applied) != 0 {
		t.Errorf("override applied to a custom-rule issue: %+v", applied)
	}
	if len(got.Warnings) != 1 {
		t.Errorf("custom-rule issue dropped: %+v", got)
	}
}

func TestApplyOverridesNoOverrides(t *testing.T) {
	r, _ := newTestResolver(t)
	base := baseResult(engine.ValidationIssue{RuleID: "r", Severity: ast.SeverityBlocker, Message: "m"})

	got, applied, err := r.ApplyOverrides(context.Background(), nil, base, Scope{})
	if err != nil {
		t.Fatalf("ApplyOverrides() error = %v", err)
	}
	if applied != nil {
		t.Errorf("applied = %+v, want none", applied)
	}
	if len(got.Blockers) != 1 || got.IsValid {
		t.Errorf("base result not preserved: %+v", got)
	}
	got.Blockers[0].Message = "mutated"
	if base.Blockers[0].Message == "mutated" {
		t.Error("returned result shares storage with the base result")
	}
}
