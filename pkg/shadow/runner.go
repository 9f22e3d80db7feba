package shadow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/engine"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/legacy"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

// Outcome reports one dual-run evaluation: the authoritative result plus
// what the shadow side saw.
type Outcome struct {
	// Result is the user-visible outcome for the current phase.
	Result *engine.ValidationResult

	// Authoritative names which engine produced Result.
	Authoritative string

	// FellBack is true when the new engine errored in
	// new_primary_with_fallback and the legacy result was served instead.
	FellBack bool

	// Comparison is the parity record, nil when the phase or coverage
	// did not produce one.
	Comparison *Comparison
}

// Engine identifiers for Outcome.Authoritative.
const (
	EngineLegacy = "legacy"
	EngineNew    = "new"
)

// Runner executes the rollout-phase-appropriate combination of the two
// engines for each request.
type Runner struct {
	legacy     *legacy.Engine
	engine     *engine.Engine
	comparator *Comparator
	controller *Controller
	store      *Store
	logger     *slog.Logger
}

// NewRunner assembles a runner. The store may be nil; comparisons are
// then logged only.
func NewRunner(legacyEngine *legacy.Engine, newEngine *engine.Engine, comparator *Comparator, controller *Controller, store *Store, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		legacy:     legacyEngine,
		engine:     newEngine,
		comparator: comparator,
		controller: controller,
		store:      store,
		logger:     logger.With("component", "shadow.runner"),
	}
}

// Run evaluates one request under the current rollout phase. The two
// engines are pure computations with no shared state, so they run
// concurrently; results are reconciled after both finish.
//
// A parity mismatch never changes the returned result. Only the phase
// decides which engine the caller sees, and only a new-engine error (not
// a validation failure) triggers fallback.
//
// tenantID, when set, names the tenant whose custom rules were merged
// into the request; it may be empty for untenanted requests.
func (r *Runner) Run(ctx context.Context, req *engine.Request, jurisdiction, product, tenantID string) (*Outcome, error) {
	phase := r.controller.Phase()

	if phase == PhaseNewOnly || !r.legacy.Covers(jurisdiction, req.Route) {
		result, err := r.evaluateNew(ctx, req)
		if err != nil {
			return nil, err
		}
		return &Outcome{Result: result.result, Authoritative: EngineNew}, nil
	}

	legacyCh := make(chan legacyRun, 1)
	go func() {
		start := time.Now()
		res, err := r.legacy.Evaluate(jurisdiction, req.Route, req.Facts)
		legacyCh <- legacyRun{result: res, err: err, duration: time.Since(start)}
	}()

	newRes, newErr := r.evaluateNew(ctx, req)
	legacyRes := <-legacyCh

	outcome := &Outcome{}
	switch {
	case phase.LegacyAuthoritative():
		if legacyRes.err != nil {
			return nil, legacyRes.err
		}
		outcome.Result = legacyResultToValidation(legacyRes.result)
		outcome.Authoritative = EngineLegacy

	default: // new_primary_with_fallback
		if newErr != nil {
			if legacyRes.err != nil {
				return nil, newErr
			}
			r.logger.Error("new engine failed, serving legacy result",
				"jurisdiction", jurisdiction, "route", req.Route, "error", newErr)
			outcome.Result = legacyResultToValidation(legacyRes.result)
			outcome.Authoritative = EngineLegacy
			outcome.FellBack = true
		} else {
			outcome.Result = newRes.result
			outcome.Authoritative = EngineNew
		}
	}

	if legacyRes.err == nil && newErr == nil {
		outcome.Comparison = r.compare(ctx, jurisdiction, product, req.Route, tenantID, legacyRes, newRes)
	}
	if outcome.Authoritative == EngineLegacy && phase.LegacyAuthoritative() && newErr != nil {
		// Silent shadow failure still needs an operator trail.
		r.logger.Error("new engine failed in shadow mode",
			"jurisdiction", jurisdiction, "route", req.Route, "error", newErr)
	}

	return outcome, nil
}

type legacyRun struct {
	result   *legacy.Result
	err      error
	duration time.Duration
}

type newRun struct {
	result   *engine.ValidationResult
	duration time.Duration
}

func (r *Runner) evaluateNew(ctx context.Context, req *engine.Request) (newRun, error) {
	start := time.Now()
	result, err := r.engine.Evaluate(ctx, req)
	return newRun{result: result, duration: time.Since(start)}, err
}

func (r *Runner) compare(ctx context.Context, jurisdiction, product, route, tenantID string, legacyRes legacyRun, newRes newRun) *Comparison {
	// Parity measures agreement on the base rules. Tenant custom rules
	// only ever exist on the new side, so their blockers are excluded
	// before comparison rather than counted as mismatches.
	newIDs := newRes.result.BlockerIDs()
	if tenantID != "" {
		newIDs = withoutTenantRules(newIDs, tenantID)
	}

	c := r.comparator.Compare(jurisdiction, product, route,
		legacyRes.result.Codes, newIDs,
		legacyRes.duration, newRes.duration)

	if !c.Matched {
		r.logger.Warn("parity mismatch",
			"jurisdiction", jurisdiction,
			"product", product,
			"route", route,
			"legacy_blockers", c.LegacyBlockerIDs,
			"new_blockers", c.NewBlockerIDs,
			"mismatch", c.Mismatch,
		)
	}
	if r.store != nil {
		if err := r.store.Record(ctx, c); err != nil {
			r.logger.Error("recording parity comparison", "error", err)
		}
	}
	return c
}

// withoutTenantRules drops rule IDs in the tenant's namespace.
func withoutTenantRules(ids []string, tenantID string) []string {
	prefix := tenantID + "_"
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			out = append(out, id)
		}
	}
	return out
}

// legacyResultToValidation adapts the legacy code list to the result
// shape callers consume. Legacy codes were always blockers.
func legacyResultToValidation(res *legacy.Result) *engine.ValidationResult {
	out := engine.NewValidationResult()
	for _, code := range res.Codes {
		out.Add(engine.ValidationIssue{
			RuleID:   code,
			Severity: ast.SeverityBlocker,
			Message:  legacyMessages[code],
		})
	}
	return out
}

// legacyMessages are the frozen user-facing strings from the old
// implementation.
var legacyMessages = map[string]string{
	legacy.CodeS21DepositNoncompliant:   "Deposit must be protected in a government scheme",
	legacy.CodeS21GasCertMissing:        "A current gas safety certificate is required",
	legacy.CodeS21EPCMissing:            "An EPC must be provided to the tenant",
	legacy.CodeS21H2RMissing:            "The How to Rent guide must be provided",
	legacy.CodeS21LicensingNoncompliant: "The property must hold a valid licence",
	legacy.CodeS173NoticeUndetermined:   "The notice period cannot be determined",
}
