package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/engine"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/facts"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/store"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/shadow"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/telemetry/metrics"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/tenant"
)

// Service is the entry point consumed by the wizard and API layers. It
// wires the rule store, suppression registry, tenant customization, the
// dual-engine runner and the audit log into the four public operations.
type Service struct {
	store        *store.Store
	engine       *engine.Engine
	runner       *shadow.Runner
	resolver     *tenant.Resolver
	suppressions *audit.SuppressionRegistry
	auditLog     *audit.Log
	metrics      *metrics.Collector
	logger       *slog.Logger

	engineConfig *engine.Config
}

// Options bundles the service dependencies. Store, Engine and Runner are
// required; the rest degrade to no-ops when nil.
type Options struct {
	Store        *store.Store
	Engine       *engine.Engine
	EngineConfig *engine.Config
	Runner       *shadow.Runner
	Resolver     *tenant.Resolver
	Suppressions *audit.SuppressionRegistry
	AuditLog     *audit.Log
	Metrics      *metrics.Collector
	Logger       *slog.Logger
}

// New assembles a service.
func New(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	if opts.Engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if opts.Runner == nil {
		return nil, fmt.Errorf("shadow runner is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engineConfig := opts.EngineConfig
	if engineConfig == nil {
		engineConfig = engine.DefaultConfig()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = tenant.NewResolver(opts.AuditLog, logger)
	}
	return &Service{
		store:        opts.Store,
		engine:       opts.Engine,
		runner:       opts.Runner,
		resolver:     resolver,
		suppressions: opts.Suppressions,
		auditLog:     opts.AuditLog,
		metrics:      opts.Metrics,
		logger:       logger.With("component", "service"),
		engineConfig: engineConfig,
	}, nil
}

// EvaluateRequest is one evaluation call. Tenant is optional and
// request-scoped: it is passed through the call chain, never stored.
type EvaluateRequest struct {
	Jurisdiction string
	Product      string
	Route        string
	Facts        facts.Facts
	Tenant       *tenant.Context
}

func (r *EvaluateRequest) tenantID() string {
	if r.Tenant == nil {
		return ""
	}
	return r.Tenant.TenantID
}

// EvaluateResponse is the outcome plus tenant-customization detail.
type EvaluateResponse struct {
	Result           *engine.ValidationResult
	AppliedOverrides []tenant.Applied
	Engine           string
	FellBack         bool
}

// Evaluate runs one case through the phase-appropriate engines and the
// tenant's customizations.
func (s *Service) Evaluate(ctx context.Context, req *EvaluateRequest) (*EvaluateResponse, error) {
	engineReq, err := s.buildEngineRequest(ctx, req)
	if err != nil {
		s.recordEvaluation(req, "error")
		return nil, err
	}

	outcome, err := s.runner.Run(ctx, engineReq, req.Jurisdiction, req.Product, req.tenantID())
	if err != nil {
		s.recordEvaluation(req, "error")
		return nil, err
	}
	s.recordOutcome(req, outcome)

	result, applied, err := s.applyOverrides(ctx, req, outcome.Result)
	if err != nil {
		s.recordEvaluation(req, "error")
		return nil, err
	}

	s.recordEvaluation(req, "success")
	s.recordHits(result)
	return &EvaluateResponse{
		Result:           result,
		AppliedOverrides: applied,
		Engine:           outcome.Authoritative,
		FellBack:         outcome.FellBack,
	}, nil
}

// ExplainedResponse is the explainable-mode outcome.
type ExplainedResponse struct {
	Result           *engine.ValidationResult
	Explanations     []engine.RuleExplanation
	Computed         facts.Computed
	Timing           engine.Timing
	AppliedOverrides []tenant.Applied
}

// EvaluateExplained runs the declarative engine in explainable mode.
// Explanations are tier-gated; the shadow runner is bypassed because
// explanations only exist for declarative rules.
func (s *Service) EvaluateExplained(ctx context.Context, req *EvaluateRequest) (*ExplainedResponse, error) {
	if req.Tenant != nil && !tenant.IsFeatureAvailableForTier(req.Tenant.Tier, tenant.FeatureExplainMode) {
		return nil, &tenant.FeatureError{
			TenantID: req.Tenant.TenantID,
			Tier:     req.Tenant.Tier,
			Feature:  tenant.FeatureExplainMode,
		}
	}

	engineReq, err := s.buildEngineRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	explained, err := s.engine.EvaluateExplained(ctx, engineReq)
	if err != nil {
		return nil, err
	}

	result, applied, err := s.applyOverrides(ctx, req, explained.Result)
	if err != nil {
		return nil, err
	}

	s.recordEvaluation(req, "success")
	return &ExplainedResponse{
		Result:           result,
		Explanations:     explained.Explanations,
		Computed:         explained.Computed,
		Timing:           explained.Timing,
		AppliedOverrides: applied,
	}, nil
}

// ValidateTenantRule checks one candidate custom rule against the base
// rule-set's identifier allow-list and safeguards.
func (s *Service) ValidateTenantRule(ctx context.Context, tc *tenant.Context, jurisdiction, product string, rule *ast.Rule) (*tenant.RuleValidation, error) {
	loaded, err := s.store.Load(ctx, jurisdiction, product)
	if err != nil {
		return nil, err
	}
	validator := tenant.NewValidator(loaded.Compiler, s.engineConfig.MaxConditionsPerRule)
	return validator.ValidateRule(tc, rule), nil
}

// OverrideAuditLog returns audit entries matching the filter.
func (s *Service) OverrideAuditLog(ctx context.Context, query *audit.Query) ([]*audit.Entry, error) {
	if s.auditLog == nil {
		return nil, fmt.Errorf("audit log is not configured")
	}
	return s.auditLog.Query(ctx, query)
}

// buildEngineRequest loads the rule-set, merges tenant custom rules (with
// any tenant-declared fact identifiers extending the condition allow-list)
// and assembles the engine request.
func (s *Service) buildEngineRequest(ctx context.Context, req *EvaluateRequest) (*engine.Request, error) {
	loaded, err := s.store.Load(ctx, req.Jurisdiction, req.Product)
	if err != nil {
		return nil, err
	}

	set := loaded.Set
	compiler := loaded.Compiler
	if req.Tenant != nil && len(req.Tenant.CustomRules) > 0 {
		validator := tenant.NewValidator(loaded.Compiler, s.engineConfig.MaxConditionsPerRule)
		set, compiler, err = validator.MergeCustomRules(req.Tenant, loaded.Set)
		if err != nil {
			return nil, err
		}
	}

	var features map[string]bool
	if req.Tenant != nil {
		features = req.Tenant.FeatureSet()
	}
	var suppressed map[string]bool
	if s.suppressions != nil {
		suppressed = s.suppressions.Snapshot()
	}

	return &engine.Request{
		RuleSet:    set,
		Compiler:   compiler,
		Facts:      req.Facts,
		Route:      req.Route,
		Features:   features,
		Suppressed: suppressed,
	}, nil
}

func (s *Service) applyOverrides(ctx context.Context, req *EvaluateRequest, base *engine.ValidationResult) (*engine.ValidationResult, []tenant.Applied, error) {
	scope := tenant.Scope{
		Jurisdiction: req.Jurisdiction,
		Product:      req.Product,
		Route:        req.Route,
	}
	result, applied, err := s.resolver.ApplyOverrides(ctx, req.Tenant, base, scope)
	if err != nil {
		return nil, nil, err
	}
	if s.metrics != nil {
		for _, a := range applied {
			s.metrics.RecordOverride(string(a.Action))
		}
	}
	return result, applied, nil
}

func (s *Service) recordEvaluation(req *EvaluateRequest, status string) {
	if s.metrics != nil {
		s.metrics.RecordEvaluation(req.Jurisdiction, req.Product, req.Route, status)
	}
}

func (s *Service) recordOutcome(req *EvaluateRequest, outcome *shadow.Outcome) {
	if s.metrics == nil {
		return
	}
	if outcome.FellBack {
		s.metrics.RecordFallback()
	}
	if c := outcome.Comparison; c != nil {
		outcomeLabel := metrics.ParityMismatch
		switch {
		case c.Matched && c.Superset:
			outcomeLabel = metrics.ParitySuperset
		case c.Matched:
			outcomeLabel = metrics.ParityMatched
		}
		s.metrics.RecordParity(req.Jurisdiction, req.Route, outcomeLabel)
		s.metrics.RecordDuration(req.Jurisdiction, req.Route, metrics.EngineLegacy, c.LegacyDuration)
		s.metrics.RecordDuration(req.Jurisdiction, req.Route, metrics.EngineNew, c.NewDuration)
	}
}

func (s *Service) recordHits(result *engine.ValidationResult) {
	if s.metrics == nil {
		return
	}
	for _, issue := range result.Issues() {
		s.metrics.RecordRuleHit(issue.RuleID, string(issue.Severity))
	}
}
