package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/condition"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/facts"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
)

// Engine evaluates rule-sets against fact and computed contexts. It holds
// no per-request state: evaluation is a pure, synchronous function of the
// request, so one engine serves concurrent evaluations without locking.
type Engine struct {
	config *Config
	logger *slog.Logger
}

// New creates an evaluation engine.
func New(config *Config, logger *slog.Logger) (*Engine, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		config: config,
		logger: logger.With("component", "engine"),
	}, nil
}

// Evaluate runs the rule-set against the request and returns the classified
// result.
func (e *Engine) Evaluate(ctx context.Context, req *Request) (*ValidationResult, error) {
	explained, err := e.evaluate(ctx, req, false)
	if err != nil {
		return nil, err
	}
	return explained.Result, nil
}

// EvaluateExplained runs the rule-set and additionally reports, for every
// rule in the set, whether it was evaluated, why it was skipped, and which
// condition fired it.
func (e *Engine) EvaluateExplained(ctx context.Context, req *Request) (*ExplainedResult, error) {
	return e.evaluate(ctx, req, true)
}

func (e *Engine) evaluate(ctx context.Context, req *Request, explain bool) (*ExplainedResult, error) {
	if req == nil || req.RuleSet == nil {
		return nil, &RequestError{Message: "rule-set cannot be nil"}
	}
	if req.Compiler == nil {
		return nil, &RequestError{Message: "condition compiler cannot be nil"}
	}
	if !req.RuleSet.HasRoute(req.Route) {
		return nil, &RequestError{
			Message: fmt.Sprintf("route %q is not declared by %s", req.Route, req.RuleSet.Key()),
		}
	}

	computed := req.Computed
	if computed == nil {
		computed = facts.Derive(req.Facts, req.RuleSet.Jurisdiction, req.Route)
	}
	activation := condition.NewActivation(req.RuleSet.Identifiers, req.Facts, computed)

	evalCtx, cancel := context.WithTimeout(ctx, e.config.EvaluationTimeout)
	defer cancel()

	started := time.Now()
	result := NewValidationResult()
	var explanations []RuleExplanation
	if explain {
		explanations = make([]RuleExplanation, 0, len(req.RuleSet.Rules))
	}

	for _, rule := range req.RuleSet.Rules {
		exp := e.evaluateRule(evalCtx, req, rule, activation, result)
		if explain {
			explanations = append(explanations, exp)
		}
	}

	return &ExplainedResult{
		Result:       result,
		Explanations: explanations,
		Computed:     computed,
		Timing:       Timing{StartedAt: started.UTC(), Duration: time.Since(started)},
	}, nil
}

// evaluateRule evaluates one rule, appending any fired issue to result, and
// returns its explanation.
func (e *Engine) evaluateRule(ctx context.Context, req *Request, rule *ast.Rule, activation condition.Activation, result *ValidationResult) RuleExplanation {
	exp := RuleExplanation{RuleID: rule.ID, Severity: rule.Severity}

	if req.Suppressed[rule.ID] {
		exp.SkipReason = SkipEmergencySuppressed
		return exp
	}
	if !rule.AppliesToRoute(req.Route) {
		exp.SkipReason = SkipRouteNotApplicable
		return exp
	}
	if rule.RequiresFeature != "" && !req.Features[rule.RequiresFeature] {
		exp.SkipReason = SkipFeatureFlagDisabled
		return exp
	}
	if len(rule.AppliesWhen) > e.config.MaxConditionsPerRule {
		exp.SkipReason = SkipConditionCount
		e.logger.Warn("rule skipped: condition count exceeded",
			"rule_id", rule.ID,
			"conditions", len(rule.AppliesWhen),
			"max", e.config.MaxConditionsPerRule,
		)
		return exp
	}

	// The timeout backstop is checked between rules: a rule not reached in
	// time is an evaluation error, not a crash.
	if ctx.Err() != nil {
		exp.Evaluated = true
		exp.SkipReason = SkipEvaluationError
		exp.Conditions = append(exp.Conditions, ConditionExplanation{
			Error: "evaluation time budget exceeded",
		})
		e.logger.Error("rule skipped: evaluation time budget exceeded", "rule_id", rule.ID)
		return exp
	}

	exp.Evaluated = true

	// Conditions are OR-combined and evaluated in declaration order:
	// short-circuit at the first true condition, keeping the outcomes of
	// everything already evaluated for the explanation.
	for i, expr := range rule.AppliesWhen {
		prg, err := req.Compiler.Compile(expr)
		if err == nil {
			var matched bool
			matched, err = prg.Eval(activation)
			if err == nil {
				exp.Conditions = append(exp.Conditions, ConditionExplanation{
					Expression: expr,
					Evaluated:  true,
					Result:     matched,
				})
				if matched {
					exp.Fired = true
					exp.FiringCondition = expr
					break
				}
				continue
			}
		}

		// A failing condition skips the whole rule: a later condition
		// could have fired it, so a partial verdict would be misleading.
		exp.Conditions = append(exp.Conditions, ConditionExplanation{
			Expression: expr,
			Evaluated:  true,
			Error:      err.Error(),
		})
		exp.Fired = false
		exp.SkipReason = SkipEvaluationError
		e.logger.Error("rule skipped: condition failed",
			"rule_id", rule.ID,
			"condition", expr,
			"error", err,
		)
		markRemaining(&exp, rule.AppliesWhen[i+1:])
		return exp
	}

	if exp.Fired {
		markRemaining(&exp, rule.AppliesWhen[len(exp.Conditions):])
		result.Add(ValidationIssue{
			RuleID:   rule.ID,
			Severity: rule.Severity,
			Message:  rule.Message,
			Field:    rule.Field,
		})
	}
	return exp
}

// markRemaining records the conditions short-circuiting skipped, tagged as
// not evaluated.
func markRemaining(exp *RuleExplanation, remaining []string) {
	for _, expr := range remaining {
		exp.Conditions = append(exp.Conditions, ConditionExplanation{Expression: expr})
	}
}
