package parser

import (
	"fmt"
	"os"
	"sort"
	"unicode/utf8"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
	rerrors "github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/errors"
)

// Parser parses rule documents into validated RuleSets. It performs three
// passes: YAML decoding with unknown-field rejection, JSON-schema
// validation of the document shape, and structural validation of the
// route/severity cross-references. Condition expressions are linted
// separately by the store, which owns the identifier allow-list compile.
type Parser struct {
	schema *jsonschema.Schema
}

// New creates a parser with the embedded document schema compiled.
func New() (*Parser, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}
	return &Parser{schema: schema}, nil
}

// ParseFile reads and parses a rule document from disk.
func (p *Parser) ParseFile(path string) (*ast.RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		errs := rerrors.NewList()
		errs.AddError(rerrors.TypeIO, fmt.Sprintf("failed to read rule document: %v", err), ast.Location{File: path})
		return nil, errs
	}
	return p.Parse(data, path)
}

// Parse parses a rule document from bytes. The path is used only for error
// locations. On failure it returns a *rerrors.List carrying every problem
// found; a document with any error is never partially loaded.
func (p *Parser) Parse(data []byte, path string) (*ast.RuleSet, error) {
	errs := rerrors.NewList()

	if !utf8.Valid(data) {
		errs.AddError(rerrors.TypeIO, "rule document contains invalid UTF-8", ast.Location{File: path})
		return nil, errs
	}

	// Schema validation runs on the generic decoding so shape problems are
	// reported before strict decoding obscures them.
	generic, err := decodeGeneric(data)
	if err != nil {
		errs.AddError(rerrors.TypeSyntax, fmt.Sprintf("YAML parsing failed: %v", err), ast.Location{File: path})
		return nil, errs
	}
	if err := p.schema.Validate(generic); err != nil {
		errs.AddError(rerrors.TypeSchema, err.Error(), ast.Location{File: path})
		return nil, errs
	}

	doc, err := decodeStrict(data)
	if err != nil {
		errs.AddErrorWithSuggestion(rerrors.TypeStructural,
			fmt.Sprintf("rule document has unknown or malformed fields: %v", err),
			ast.Location{File: path},
			"remove keys that are not part of the rule document contract")
		return nil, errs
	}

	locations := ruleLocations(data, path)

	rs := &ast.RuleSet{
		Version:      doc.Version,
		Jurisdiction: doc.Jurisdiction,
		Product:      doc.Product,
		Routes:       doc.Routes,
		Identifiers:  doc.Identifiers,
		SourcePath:   path,
	}

	// Group names are sorted so rule order, and therefore evaluation and
	// explanation order, is deterministic regardless of map iteration.
	groups := make([]string, 0, len(doc.RuleGroups))
	for name := range doc.RuleGroups {
		groups = append(groups, name)
	}
	sort.Strings(groups)

	for _, group := range groups {
		for i, yr := range doc.RuleGroups[group] {
			loc := ast.Location{File: path}
			if locs := locations[group]; i < len(locs) {
				loc = locs[i]
			}
			rule := &ast.Rule{
				ID:              yr.ID,
				Severity:        ast.Severity(yr.Severity),
				AppliesTo:       yr.AppliesTo,
				AppliesWhen:     yr.AppliesWhen,
				Message:         yr.Message,
				Rationale:       yr.Rationale,
				Field:           yr.Field,
				RequiresFeature: yr.RequiresFeature,
				Group:           group,
				Location:        loc,
			}
			p.validateRule(rs, rule, errs)
			rs.Rules = append(rs.Rules, rule)
		}
	}

	if err := rs.Finalize(); err != nil {
		errs.AddError(rerrors.TypeStructural, err.Error(), ast.Location{File: path})
	}

	if errs.HasErrors() {
		return nil, errs
	}
	return rs, nil
}

// validateRule checks cross-references the schema cannot express.
func (p *Parser) validateRule(rs *ast.RuleSet, rule *ast.Rule, errs *rerrors.List) {
	if !rule.Severity.Valid() {
		errs.AddError(rerrors.TypeStructural,
			fmt.Sprintf("rule %q has invalid severity %q", rule.ID, rule.Severity), rule.Location)
	}
	for _, route := range rule.AppliesTo {
		if route == ast.RouteAll {
			continue
		}
		if !rs.HasRoute(route) {
			errs.AddErrorWithSuggestion(rerrors.TypeSemantic,
				fmt.Sprintf("rule %q applies to undeclared route %q", rule.ID, route),
				rule.Location,
				fmt.Sprintf("declare %q in the document routes or use %q", route, ast.RouteAll))
		}
	}
}
