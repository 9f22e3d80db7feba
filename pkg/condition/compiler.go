package condition

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

const (
	// IdentPrefixFacts and IdentPrefixComputed are the only namespaces a
	// condition may reference.
	IdentPrefixFacts    = "facts."
	IdentPrefixComputed = "computed."

	// maxExpressionLength caps condition source size. Conditions are short
	// declarative predicates; anything larger is authored in the computed
	// context instead.
	maxExpressionLength = 1024
)

// Compiler turns condition expression strings into cached, pure predicates
// over (facts, computed). The grammar is CEL with macros disabled: equality
// and numeric comparisons, logical and/or/not, array membership via `in`,
// size(), and parenthesized sub-expressions. There are no comprehensions,
// no user function calls and no I/O surface.
//
// Every identifier a condition may reference must be declared up front;
// compilation of an expression naming anything outside the allow-list fails.
type Compiler struct {
	env         *cel.Env
	identifiers []string

	// programs caches compiled programs keyed by the exact expression text.
	// Two expressions differing only in whitespace are distinct cache
	// entries; rule documents treat canonical spelling as a style
	// convention rather than relying on normalization.
	programs sync.Map // map[string]*Program
}

// NewCompiler creates a compiler for the given identifier allow-list.
// Identifiers must be fully qualified facts.* or computed.* names.
func NewCompiler(identifiers []string) (*Compiler, error) {
	opts := []cel.EnvOption{cel.ClearMacros()}
	for _, id := range identifiers {
		if !strings.HasPrefix(id, IdentPrefixFacts) && !strings.HasPrefix(id, IdentPrefixComputed) {
			return nil, fmt.Errorf("identifier %q is outside the facts.*/computed.* namespaces", id)
		}
		opts = append(opts, cel.Variable(id, cel.DynType))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build condition environment: %w", err)
	}

	return &Compiler{
		env:         env,
		identifiers: identifiers,
	}, nil
}

// Identifiers returns the allow-list this compiler was built with.
func (c *Compiler) Identifiers() []string {
	return c.identifiers
}

// Compile returns the compiled program for the expression, compiling it on
// first use. Identical expression text always yields the same cached
// program. Compilation fails on syntax errors and on references to
// identifiers outside the allow-list.
func (c *Compiler) Compile(expr string) (*Program, error) {
	if v, ok := c.programs.Load(expr); ok {
		return v.(*Program), nil
	}

	if strings.TrimSpace(expr) == "" {
		return nil, &CompileError{Expr: expr, Message: "expression is empty"}
	}
	if len(expr) > maxExpressionLength {
		return nil, &CompileError{
			Expr:    expr,
			Message: fmt.Sprintf("expression is %d bytes, maximum is %d", len(expr), maxExpressionLength),
		}
	}

	astc, iss := c.env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, &CompileError{Expr: expr, Message: iss.Err().Error()}
	}

	// Conditions must produce a boolean. Dyn is accepted because the
	// fact/computed variables are dynamically typed, which makes most
	// comparison results dyn at check time; a non-boolean runtime result
	// is still rejected during evaluation.
	if out := astc.OutputType(); out != nil {
		if s := out.String(); s != "bool" && s != "dyn" {
			return nil, &CompileError{
				Expr:    expr,
				Message: fmt.Sprintf("expression produces %s, conditions must produce bool", s),
			}
		}
	}

	prg, err := c.env.Program(astc)
	if err != nil {
		return nil, &CompileError{Expr: expr, Message: err.Error()}
	}

	p := &Program{expr: expr, prg: prg}
	actual, _ := c.programs.LoadOrStore(expr, p)
	return actual.(*Program), nil
}

// CompileAll compiles every expression, returning the first error. Used by
// the rule store for fail-closed load-time linting.
func (c *Compiler) CompileAll(exprs []string) error {
	for _, expr := range exprs {
		if _, err := c.Compile(expr); err != nil {
			return err
		}
	}
	return nil
}
