package service

import (
	"context"
	"errors"
	"testing"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit/storage"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/engine"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/facts"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/legacy"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/store"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/shadow"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/tenant"
)

// newTestService wires the full stack over the repository's real rule
// documents, with an in-memory audit log.
func newTestService(t *testing.T, phase shadow.Phase) (*Service, *audit.Log, *audit.SuppressionRegistry) {
	t.Helper()

	ruleStore, err := store.New(&store.Config{
		Dir:                  "../../rules",
		MaxRulesPerDocument:  200,
		MaxConditionsPerRule: 10,
	}, nil)
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}

	eng, err := engine.New(nil, nil)
	if err != nil {
		t.Fatalf("engine.New() error = %v", err)
	}

	log, err := audit.NewLog(storage.NewMemoryStorage(), nil)
	if err != nil {
		t.Fatalf("audit.NewLog() error = %v", err)
	}
	suppressions := audit.NewSuppressionRegistry(log, nil)

	controller, err := shadow.NewController(phase, log, nil)
	if err != nil {
		t.Fatalf("shadow.NewController() error = %v", err)
	}
	runner := shadow.NewRunner(
		legacy.NewEngine(nil),
		eng,
		shadow.NewComparator(shadow.DefaultIDMap(), []string{"wales"}),
		controller,
		nil,
		nil,
	)

	svc, err := New(Options{
		Store:        ruleStore,
		Engine:       eng,
		Runner:       runner,
		Suppressions: suppressions,
		AuditLog:     log,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return svc, log, suppressions
}

// compliantS21Facts describes an England s21 case that passes every rule
// except where a test mutates it.
func compliantS21Facts() facts.Facts {
	return facts.Facts{
		"current_date":                  "2026-04-01",
		"deposit_taken":                 true,
		"deposit_protected":             true,
		"deposit_prescribed_info_given": true,
		"epc_provided":                  true,
		"how_to_rent_provided":          true,
		"has_gas_appliances":            false,
		"property_requires_licence":     false,
		"notice_service_date":           "2026-01-01",
		"notice_expiry_date":            "2026-03-15",
		"monthly_rent":                  1000,
		"arrears_amount":                0,
	}
}

func TestEvaluateUnprotectedDeposit(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewPrimary)

	f := compliantS21Facts()
	f["deposit_protected"] = false

	resp, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Jurisdiction: "england",
		Product:      "possession",
		Route:        "s21",
		Facts:        f,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	ids := resp.Result.BlockerIDs()
	if len(ids) != 1 || ids[0] != "s21_deposit_not_protected" {
		t.Errorf("blockers = %v, want only the deposit rule", ids)
	}
	if resp.Result.IsValid {
		t.Error("result with a blocker reported valid")
	}
	if resp.Engine != shadow.EngineNew {
		t.Errorf("Engine = %s", resp.Engine)
	}
}

func TestEvaluateCompliantCase(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewPrimary)

	resp, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Jurisdiction: "england",
		Product:      "possession",
		Route:        "s21",
		Facts:        compliantS21Facts(),
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !resp.Result.IsValid {
		t.Errorf("compliant case invalid: blockers = %v", resp.Result.BlockerIDs())
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewPrimary)
	req := &EvaluateRequest{
		Jurisdiction: "england",
		Product:      "possession",
		Route:        "s21",
		Facts:        compliantS21Facts(),
	}

	first, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	second, err := svc.Evaluate(context.Background(), req)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if len(first.Result.Issues()) != len(second.Result.Issues()) {
		t.Error("repeated evaluation produced a different result")
	}
}

func TestEvaluateWalesSupersetParity(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseShadowMode)

	// Both dates missing: the legacy engine collapses this into one code,
	// the declarative rules fire three granular blockers.
	resp, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Jurisdiction: "wales",
		Product:      "possession",
		Route:        "s173",
		Facts: facts.Facts{
			"current_date":      "2026-04-01",
			"deposit_taken":     false,
			"deposit_protected": false,
		},
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	// Shadow mode: the legacy result is authoritative.
	ids := resp.Result.BlockerIDs()
	if len(ids) != 1 || ids[0] != legacy.CodeS173NoticeUndetermined {
		t.Errorf("blockers = %v, want the single legacy code", ids)
	}
	if resp.Engine != shadow.EngineLegacy {
		t.Errorf("Engine = %s, want legacy", resp.Engine)
	}
}

func TestEvaluateEmergencySuppression(t *testing.T) {
	svc, log, suppressions := newTestService(t, shadow.PhaseNewPrimary)
	ctx := context.Background()

	err := suppressions.Suppress(ctx, audit.Suppression{
		RuleID: "epc_missing",
		Actor:  "oncall@example.com",
		Reason: "certificate lookup outage",
		Ticket: "OPS-3100",
	})
	if err != nil {
		t.Fatalf("Suppress() error = %v", err)
	}

	f := compliantS21Facts()
	f["epc_provided"] = false

	resp, err := svc.Evaluate(ctx, &EvaluateRequest{
		Jurisdiction: "england", Product: "possession", Route: "s21", Facts: f,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for _, id := range resp.Result.BlockerIDs() {
		if id == "epc_missing" {
			t.Error("suppressed rule still fired")
		}
	}

	entries, err := log.Query(ctx, &audit.Query{Action: audit.ActionEmergencySuppress})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("suppression audit entries = %d, want 1", len(entries))
	}
}

func TestEvaluateWithTenantOverride(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewPrimary)

	f := compliantS21Facts()
	f["deposit_prescribed_info_given"] = false // fires a warning

	tc := &tenant.Context{
		TenantID: "acme",
		Tier:     tenant.TierEnterprise,
		Overrides: []*tenant.Override{{
			RuleID: "deposit_prescribed_info_missing",
			Action: tenant.OverrideSuppress,
			Reason: "prescribed information handled by managing agent",
		}},
	}

	resp, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Jurisdiction: "england", Product: "possession", Route: "s21",
		Facts: f, Tenant: tc,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for _, w := range resp.Result.Warnings {
		if w.RuleID == "deposit_prescribed_info_missing" {
			t.Error("suppressed warning still present")
		}
	}
	if len(resp.AppliedOverrides) != 1 {
		t.Errorf("AppliedOverrides = %+v, want one entry", resp.AppliedOverrides)
	}
}

func TestEvaluateWithCustomRule(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewOnly)

	tc := &tenant.Context{
		TenantID: "acme",
		Tier:     tenant.TierEnterprise,
		CustomRules: []*ast.Rule{{
			ID:          "acme_prescribed_info_strict",
			Severity:    ast.SeverityWarning,
			AppliesWhen: []string{"facts.deposit_prescribed_info_given != true"},
			Message:     "Acme policy requires prescribed information before instruction",
			Rationale:   "Internal compliance standard",
		}},
	}

	f := compliantS21Facts()
	f["deposit_prescribed_info_given"] = false

	resp, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Jurisdiction: "england", Product: "possession", Route: "s21",
		Facts: f, Tenant: tc,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	found := false
	for _, w := range resp.Result.Warnings {
		if w.RuleID == "acme_prescribed_info_strict" {
			found = true
		}
	}
	if !found {
		t.Errorf("custom rule did not fire: %+v", resp.Result.Warnings)
	}
}

func TestEvaluateCustomRuleOverTenantFact(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewOnly)

	// The approval fact is not declared by any base document; the tenant
	// declares it alongside the rule that needs it.
	tc := &tenant.Context{
		TenantID: "acme-corp",
		Tier:     tenant.TierEnterprise,
		CustomRules: []*ast.Rule{{
			ID:          "acme-corp_manager_approval",
			Severity:    ast.SeverityBlocker,
			AppliesWhen: []string{"facts.internal_approval_complete != true"},
			Message:     "Manager approval is required before instruction",
		}},
		CustomIdentifiers: []string{"facts.internal_approval_complete"},
	}

	// An otherwise-clean case blocks until the approval fact is true.
	resp, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Jurisdiction: "england", Product: "possession", Route: "s21",
		Facts: compliantS21Facts(), Tenant: tc,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	ids := resp.Result.BlockerIDs()
	if len(ids) != 1 || ids[0] != "acme-corp_manager_approval" {
		t.Errorf("blockers = %v, want only the tenant approval rule", ids)
	}
	if resp.Result.IsValid {
		t.Error("result with a blocker reported valid")
	}

	f := compliantS21Facts()
	f["internal_approval_complete"] = true
	resp, err = svc.Evaluate(context.Background(), &EvaluateRequest{
		Jurisdiction: "england", Product: "possession", Route: "s21",
		Facts: f, Tenant: tc,
	})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !resp.Result.IsValid {
		t.Errorf("approved case invalid: blockers = %v", resp.Result.BlockerIDs())
	}
}

func TestEvaluateCustomRulesTierGated(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewOnly)

	tc := &tenant.Context{
		TenantID: "smallco",
		Tier:     tenant.TierFree,
		CustomRules: []*ast.Rule{{
			ID:          "smallco_rule",
			Severity:    ast.SeverityWarning,
			AppliesWhen: []string{"facts.deposit_taken == true"},
			Message:     "m",
		}},
	}

	_, err := svc.Evaluate(context.Background(), &EvaluateRequest{
		Jurisdiction: "england", Product: "possession", Route: "s21",
		Facts: compliantS21Facts(), Tenant: tc,
	})
	var fe *tenant.FeatureError
	if !errors.As(err, &fe) {
		t.Fatalf("Evaluate() error = %v, want FeatureError", err)
	}
}

func TestEvaluateExplained(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewOnly)

	resp, err := svc.EvaluateExplained(context.Background(), &EvaluateRequest{
		Jurisdiction: "england", Product: "possession", Route: "s21",
		Facts: compliantS21Facts(),
	})
	if err != nil {
		t.Fatalf("EvaluateExplained() error = %v", err)
	}

	// Every rule in the document appears exactly once.
	seen := make(map[string]int)
	for _, exp := range resp.Explanations {
		seen[exp.RuleID]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("rule %s appears %d times in explanations", id, n)
		}
	}
	// s8-only rules are present but tagged as route-skipped.
	if exp, ok := findExplanation(resp.Explanations, "serious_arrears_required"); !ok {
		t.Error("s8 rule missing from explanations")
	} else if exp.Evaluated || exp.SkipReason != engine.SkipRouteNotApplicable {
		t.Errorf("s8 rule explanation = %+v", exp)
	}
	if resp.Computed["min_notice_days"] != 60 {
		t.Errorf("computed min_notice_days = %v", resp.Computed["min_notice_days"])
	}
	if resp.Timing.Duration < 0 {
		t.Error("negative evaluation duration")
	}
}

func TestEvaluateExplainedTierGate(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewOnly)

	_, err := svc.EvaluateExplained(context.Background(), &EvaluateRequest{
		Jurisdiction: "england", Product: "possession", Route: "s21",
		Facts:  compliantS21Facts(),
		Tenant: &tenant.Context{TenantID: "smallco", Tier: tenant.TierFree},
	})
	var fe *tenant.FeatureError
	if !errors.As(err, &fe) {
		t.Fatalf("EvaluateExplained() error = %v, want FeatureError", err)
	}
	if fe.Feature != tenant.FeatureExplainMode {
		t.Errorf("gated feature = %s", fe.Feature)
	}
}

func TestValidateTenantRule(t *testing.T) {
	svc, _, _ := newTestService(t, shadow.PhaseNewOnly)
	tc := &tenant.Context{TenantID: "acme", Tier: tenant.TierEnterprise}

	got, err := svc.ValidateTenantRule(context.Background(), tc, "england", "possession", &ast.Rule{
		ID:          "acme_check",
		Severity:    ast.SeverityWarning,
		AppliesWhen: []string{"facts.undeclared_identifier == true"},
		Message:     "m",
	})
	if err != nil {
		t.Fatalf("ValidateTenantRule() error = %v", err)
	}
	if got.Valid {
		t.Error("rule with an undeclared identifier validated")
	}
}

func TestOverrideAuditLog(t *testing.T) {
	svc, log, _ := newTestService(t, shadow.PhaseNewOnly)
	ctx := context.Background()

	if err := log.Record(ctx, &audit.Entry{
		TenantID: "acme",
		RuleID:   "epc_missing",
		Action:   audit.ActionSuppress,
		Reason:   "r",
	}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}

	entries, err := svc.OverrideAuditLog(ctx, &audit.Query{TenantID: "acme"})
	if err != nil {
		t.Fatalf("OverrideAuditLog() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("entries = %d, want 1", len(entries))
	}
}

func findExplanation(exps []engine.RuleExplanation, id string) (engine.RuleExplanation, bool) {
	for _, e := range exps {
		if e.RuleID == id {
			return e, true
		}
	}
	return engine.RuleExplanation{}, false
}
