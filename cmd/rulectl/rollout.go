package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/shadow"
)

var rolloutFlags struct {
	actor  string
	reason string
	window time.Duration
	format string
}

var rolloutCmd = &cobra.Command{
	Use:   "rollout",
	Short: "Inspect and transition the engine rollout phase",
	Long: `Inspect the dual-engine rollout and perform audited phase
transitions.

Phases progress one step at a time:
  shadow_mode -> dual_run_with_metrics -> new_primary_with_fallback -> new_only

Every transition requires an actor and a reason and is recorded in the
audit log before the phase changes. The transition applies to this
process; to make it permanent, update shadow.rollout_phase in the
config file (or set LH_SHADOW_ROLLOUT_PHASE) to the printed phase.`,
}

var rolloutStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current phase and recent parity",
	RunE:  rolloutStatus,
}

var rolloutAdvanceCmd = &cobra.Command{
	Use:   "advance",
	Short: "Advance the rollout one phase",
	RunE: func(cmd *cobra.Command, args []string) error {
		return rolloutTransition(cmd, true)
	},
}

var rolloutRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Roll the rollout back one phase",
	RunE: func(cmd *cobra.Command, args []string) error {
		return rolloutTransition(cmd, false)
	},
}

func init() {
	rootCmd.AddCommand(rolloutCmd)
	rolloutCmd.AddCommand(rolloutStatusCmd, rolloutAdvanceCmd, rolloutRollbackCmd)

	rolloutStatusCmd.Flags().DurationVar(&rolloutFlags.window, "window", 24*time.Hour, "parity window to report")
	rolloutStatusCmd.Flags().StringVar(&rolloutFlags.format, "format", "text", "output format: text, json")

	for _, c := range []*cobra.Command{rolloutAdvanceCmd, rolloutRollbackCmd} {
		c.Flags().StringVar(&rolloutFlags.actor, "actor", "", "person performing the transition")
		c.Flags().StringVar(&rolloutFlags.reason, "reason", "", "why the transition is happening")
		c.MarkFlagRequired("actor")
		c.MarkFlagRequired("reason")
	}
}

func rolloutStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	phase := a.controller.Phase()
	since := time.Now().Add(-rolloutFlags.window)
	rate, err := a.parity.ParityRate(ctx, since)
	if err != nil {
		return err
	}
	mismatches, err := a.parity.Mismatches(ctx, 10)
	if err != nil {
		return err
	}

	if rolloutFlags.format == "json" {
		out := struct {
			Phase               shadow.Phase `json:"phase"`
			LegacyAuthoritative bool         `json:"legacy_authoritative"`
			ParityWindow        string       `json:"parity_window"`
			ParityRate          float64      `json:"parity_rate"`
			RecentMismatches    int          `json:"recent_mismatches"`
		}{phase, phase.LegacyAuthoritative(), rolloutFlags.window.String(), rate, len(mismatches)}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Phase:       %s\n", phase)
	if phase.LegacyAuthoritative() {
		fmt.Println("Serving:     legacy engine")
	} else {
		fmt.Println("Serving:     new engine")
	}
	fmt.Printf("Parity:      %.2f%% over last %s\n", rate*100, rolloutFlags.window)
	fmt.Printf("Mismatches:  %d recent\n", len(mismatches))
	for _, m := range mismatches {
		fmt.Printf("  %s %s/%s/%s legacy=%v new=%v\n",
			m.Timestamp.Format(time.RFC3339), m.Jurisdiction, m.Product, m.Route,
			m.LegacyBlockerIDs, m.NewBlockerIDs)
	}
	return nil
}

func rolloutTransition(cmd *cobra.Command, advance bool) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	from := a.controller.Phase()
	var to shadow.Phase
	if advance {
		to, err = a.controller.Advance(ctx, rolloutFlags.actor, rolloutFlags.reason)
	} else {
		to, err = a.controller.Rollback(ctx, rolloutFlags.actor, rolloutFlags.reason)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Transitioned %s -> %s (recorded in audit log)\n", from, to)
	fmt.Printf("Set shadow.rollout_phase: %s (or LH_SHADOW_ROLLOUT_PHASE=%s) to persist.\n", to, to)
	return nil
}
