package condition

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
)

// Program is a compiled condition predicate. Evaluation is pure: the same
// activation always yields the same result, and no evaluation mutates the
// activation or any shared state.
type Program struct {
	expr string
	prg  cel.Program
}

// Expr returns the exact source text the program was compiled from.
func (p *Program) Expr() string {
	return p.expr
}

// Eval evaluates the predicate against the activation. A runtime type error
// (for example comparing a null fact with a number) is returned as an
// EvalError; callers treat it as a per-rule evaluation failure, not a fatal
// one.
func (p *Program) Eval(act Activation) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any(act))
	if err != nil {
		return false, &EvalError{Expr: p.expr, Cause: err}
	}

	b, ok := out.(types.Bool)
	if !ok {
		return false, &EvalError{
			Expr:  p.expr,
			Cause: fmt.Errorf("expression produced %s, want bool", out.Type().TypeName()),
		}
	}
	return bool(b), nil
}

// Activation is the variable binding for one evaluation. Every allow-listed
// identifier is present; identifiers with no corresponding fact or computed
// value are bound to null so defensively written conditions behave
// predictably instead of failing on lookup.
type Activation map[string]any

// NewActivation binds the allow-listed identifiers to their values from the
// fact and computed maps. Neither input map is mutated.
func NewActivation(identifiers []string, facts, computed map[string]any) Activation {
	act := make(Activation, len(identifiers))
	for _, id := range identifiers {
		switch {
		case strings.HasPrefix(id, IdentPrefixFacts):
			act[id] = lookup(facts, strings.TrimPrefix(id, IdentPrefixFacts))
		case strings.HasPrefix(id, IdentPrefixComputed):
			act[id] = lookup(computed, strings.TrimPrefix(id, IdentPrefixComputed))
		}
	}
	return act
}

func lookup(m map[string]any, key string) any {
	if m == nil {
		return nil
	}
	v, ok := m[key]
	if !ok {
		return nil
	}
	return v
}
