package metrics

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollectorRecordsSeries(t *testing.T) {
	c := NewCollector(nil, prometheus.NewRegistry())

	c.RecordEvaluation("england", "possession", "s21", "success")
	c.RecordEvaluation("england", "possession", "s21", "success")
	c.RecordRuleHit("s21_deposit_not_protected", "blocker")
	c.RecordEvaluationError("epc_missing")
	c.RecordOverride("suppress")
	c.RecordParity("wales", "s173", ParitySuperset)
	c.RecordFallback()
	c.RecordAuditEntry("rollout_advance")
	c.RecordDuration("england", "s21", EngineNew, 2*time.Millisecond)

	if got := testutil.ToFloat64(c.evaluations.WithLabelValues("england", "possession", "s21", "success")); got != 2 {
		t.Errorf("evaluations = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.ruleHits.WithLabelValues("s21_deposit_not_protected", "blocker")); got != 1 {
		t.Errorf("rule hits = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.parityComparisons.WithLabelValues("wales", "s173", ParitySuperset)); got != 1 {
		t.Errorf("parity comparisons = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.fallbacks); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
}

func TestCollectorDisabled(t *testing.T) {
	c := NewCollector(&Config{Enabled: false}, prometheus.NewRegistry())

	c.RecordEvaluation("england", "possession", "s21", "success")
	c.RecordFallback()

	if got := testutil.ToFloat64(c.fallbacks); got != 0 {
		t.Errorf("disabled collector recorded %v fallbacks", got)
	}
}

func TestSetRolloutPhaseOneHot(t *testing.T) {
	c := NewCollector(nil, prometheus.NewRegistry())
	phases := []string{"shadow_mode", "dual_run_with_metrics", "new_primary_with_fallback", "new_only"}

	c.SetRolloutPhase("new_primary_with_fallback", phases)

	for _, phase := range phases {
		want := 0.0
		if phase == "new_primary_with_fallback" {
			want = 1.0
		}
		if got := testutil.ToFloat64(c.rolloutPhase.WithLabelValues(phase)); got != want {
			t.Errorf("rollout_phase{%s} = %v, want %v", phase, got, want)
		}
	}
}

func TestRuleIDCardinalityBound(t *testing.T) {
	c := NewCollector(nil, prometheus.NewRegistry())
	c.ruleIDLimiter = NewCardinalityLimiter(3)

	for i := 0; i < 10; i++ {
		c.RecordRuleHit(fmt.Sprintf("tenant_rule_%d", i), "warning")
	}

	if got := testutil.ToFloat64(c.ruleHits.WithLabelValues("other", "warning")); got != 7 {
		t.Errorf("overflow bucket = %v, want 7", got)
	}
}

func TestMetricNames(t *testing.T) {
	c := NewCollector(nil, prometheus.NewRegistry())
	c.RecordEvaluation("england", "possession", "s21", "success")

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	found := false
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "landlord_rules_") {
			found = true
		}
	}
	if !found {
		t.Error("no landlord_rules_ prefixed series registered")
	}
}
