package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/condition"
	rerrors "github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/errors"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/parser"
)

var lintFlags struct {
	file   string
	dir    string
	format string
}

var lintCmd = &cobra.Command{
	Use:   "lint",
	Short: "Validate rule documents",
	Long: `Validate rule documents for syntax and semantic errors.

The lint command parses rule documents and performs full validation:
  - YAML syntax and schema validation
  - Route and severity cross-reference validation
  - Condition compilation against the document's declared identifiers

Examples:
  # Lint single file
  rulectl lint --file rules/england/possession.yaml

  # Lint directory (recursive)
  rulectl lint --dir rules/

  # JSON output for CI/CD
  rulectl lint --dir rules/ --format json`,
	RunE: lintRules,
}

func init() {
	rootCmd.AddCommand(lintCmd)

	lintCmd.Flags().StringVarP(&lintFlags.file, "file", "f", "", "rule document to validate")
	lintCmd.Flags().StringVarP(&lintFlags.dir, "dir", "d", "", "directory of rule documents")
	lintCmd.Flags().StringVar(&lintFlags.format, "format", "text", "output format: text, json")
}

func lintRules(cmd *cobra.Command, args []string) error {
	if lintFlags.file == "" && lintFlags.dir == "" {
		return fmt.Errorf("either --file or --dir must be specified")
	}

	var files []string

	if lintFlags.file != "" {
		files = append(files, lintFlags.file)
	}

	if lintFlags.dir != "" {
		err := filepath.WalkDir(lintFlags.dir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to list rule documents: %w", err)
		}
	}

	if len(files) == 0 {
		return fmt.Errorf("no rule documents found")
	}

	p, err := parser.New()
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	results := make([]LintResult, 0, len(files))
	for _, file := range files {
		results = append(results, lintRuleFile(p, file))
	}

	if lintFlags.format == "json" {
		return outputJSON(results)
	}
	return outputText(results)
}

// LintResult is the validation outcome for a single rule document.
type LintResult struct {
	File   string      `json:"file"`
	Valid  bool        `json:"valid"`
	Errors []LintError `json:"errors,omitempty"`
}

// LintError is a single problem found in a rule document.
type LintError struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Message    string `json:"message"`
	Type       string `json:"type,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func lintRuleFile(p *parser.Parser, path string) LintResult {
	result := LintResult{File: path, Valid: true}

	rs, err := p.ParseFile(path)
	if err != nil {
		result.Valid = false
		appendLintErrors(&result, err)
		return result
	}

	// The parser leaves condition compilation to the loader, so lint
	// compiles every expression here to catch bad CEL before deploy.
	compiler, err := condition.NewCompiler(rs.Identifiers)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, LintError{Message: err.Error(), Type: string(rerrors.TypeSemantic)})
		return result
	}
	for _, rule := range rs.Rules {
		if cerr := compiler.CompileAll(rule.AppliesWhen); cerr != nil {
			result.Valid = false
			result.Errors = append(result.Errors, LintError{
				Line:       rule.Location.Line,
				Column:     rule.Location.Column,
				Message:    fmt.Sprintf("rule %q: %v", rule.ID, cerr),
				Type:       string(rerrors.TypeSemantic),
				Suggestion: "declare every identifier the condition references in the document's identifiers list",
			})
		}
	}

	return result
}

func appendLintErrors(result *LintResult, err error) {
	var list *rerrors.List
	if errors.As(err, &list) {
		for _, e := range list.Errors {
			result.Errors = append(result.Errors, LintError{
				Line:       e.Location.Line,
				Column:     e.Location.Column,
				Message:    e.Message,
				Type:       string(e.Type),
				Suggestion: e.Suggestion,
			})
		}
		return
	}
	result.Errors = append(result.Errors, LintError{Message: err.Error()})
}

func outputText(results []LintResult) error {
	totalErrors := 0

	for _, result := range results {
		fmt.Printf("Validating %s...\n", result.File)

		if result.Valid {
			fmt.Println("✓ Document valid")
			fmt.Println("✓ All conditions compile")
			fmt.Println()
			continue
		}

		for _, err := range result.Errors {
			fmt.Printf("✗ Error: %s", err.Message)
			if err.Line > 0 {
				fmt.Printf(" (line %d", err.Line)
				if err.Column > 0 {
					fmt.Printf(", col %d", err.Column)
				}
				fmt.Print(")")
			}
			if err.Type != "" {
				fmt.Printf(" [%s]", err.Type)
			}
			fmt.Println()
			if err.Suggestion != "" {
				fmt.Printf("  suggestion: %s\n", err.Suggestion)
			}
			totalErrors++
		}
		fmt.Println()
	}

	fmt.Printf("%d file(s) checked, %d error(s)\n", len(results), totalErrors)
	if totalErrors > 0 {
		return fmt.Errorf("validation failed with %d error(s)", totalErrors)
	}
	return nil
}

func outputJSON(results []LintResult) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return err
	}
	for _, result := range results {
		if !result.Valid {
			return fmt.Errorf("validation failed")
		}
	}
	return nil
}
