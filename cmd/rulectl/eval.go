package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/facts"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/service"
)

var evalFlags struct {
	jurisdiction string
	product      string
	route        string
	factsFile    string
	explain      bool
}

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a facts file against a rule-set",
	Long: `Evaluate a case facts file against the rule-set for a
jurisdiction, product and route. The result is printed as JSON.

The evaluation runs through the same dual-engine pipeline as production,
so the configured rollout phase decides which engine's answer is served.
With --explain the declarative engine runs alone and reports the outcome
of every rule, including skipped ones.

Examples:
  # Evaluate a section 21 case
  rulectl eval --jurisdiction england --product possession --route s21 --facts case.json

  # Full per-rule explanation
  rulectl eval --jurisdiction wales --product possession --route s173 --facts case.json --explain`,
	RunE: evalFacts,
}

func init() {
	rootCmd.AddCommand(evalCmd)

	evalCmd.Flags().StringVarP(&evalFlags.jurisdiction, "jurisdiction", "j", "", "jurisdiction (e.g. england)")
	evalCmd.Flags().StringVarP(&evalFlags.product, "product", "p", "", "product (e.g. possession)")
	evalCmd.Flags().StringVarP(&evalFlags.route, "route", "r", "", "route (e.g. s21)")
	evalCmd.Flags().StringVar(&evalFlags.factsFile, "facts", "", "facts JSON file")
	evalCmd.Flags().BoolVar(&evalFlags.explain, "explain", false, "report every rule's outcome")

	evalCmd.MarkFlagRequired("jurisdiction")
	evalCmd.MarkFlagRequired("product")
	evalCmd.MarkFlagRequired("route")
	evalCmd.MarkFlagRequired("facts")
}

func evalFacts(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(evalFlags.factsFile)
	if err != nil {
		return fmt.Errorf("failed to read facts file: %w", err)
	}
	var f facts.Facts
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("facts file is not valid JSON: %w", err)
	}

	a, err := buildApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	req := &service.EvaluateRequest{
		Jurisdiction: evalFlags.jurisdiction,
		Product:      evalFlags.product,
		Route:        evalFlags.route,
		Facts:        f,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if evalFlags.explain {
		resp, err := a.svc.EvaluateExplained(ctx, req)
		if err != nil {
			return err
		}
		return enc.Encode(resp)
	}

	resp, err := a.svc.Evaluate(ctx, req)
	if err != nil {
		return err
	}
	out := struct {
		Result   any    `json:"result"`
		Engine   string `json:"engine"`
		FellBack bool   `json:"fell_back,omitempty"`
	}{Result: resp.Result, Engine: resp.Engine, FellBack: resp.FellBack}
	if err := enc.Encode(out); err != nil {
		return err
	}
	if !resp.Result.IsValid {
		return fmt.Errorf("case has %d blocking issue(s)", len(resp.Result.Blockers))
	}
	return nil
}
