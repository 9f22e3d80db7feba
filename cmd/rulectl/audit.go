package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit/export"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit/retention"
)

var auditExportFlags struct {
	tenant string
	rule   string
	action string
	start  string
	end    string
	limit  int
	format string
	output string
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Work with the governance audit log",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit log entries",
	Long: `Export audit log entries matching the given filters.

Entries record override applications, emergency suppressions and
restorations, and rollout phase transitions. The export is read-only;
the log itself is append-only and never modified by this command.

Examples:
  # All entries for one tenant, as CSV
  rulectl audit export --tenant acme --format csv

  # Rollout transitions in a date window
  rulectl audit export --action rollout_advance --start 2026-01-01 --end 2026-02-01`,
	RunE: exportAuditLog,
}

var auditPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove entries older than the retention window",
	Long: `Remove audit entries older than the configured retention window
(audit.retention_days). This is the same prune the in-process scheduler
runs; the command exists for deployments that prefer an external cron.`,
	RunE: pruneAuditLog,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditExportCmd, auditPruneCmd)

	auditExportCmd.Flags().StringVar(&auditExportFlags.tenant, "tenant", "", "filter by tenant ID")
	auditExportCmd.Flags().StringVar(&auditExportFlags.rule, "rule", "", "filter by rule ID")
	auditExportCmd.Flags().StringVar(&auditExportFlags.action, "action", "", "filter by action")
	auditExportCmd.Flags().StringVar(&auditExportFlags.start, "start", "", "window start, inclusive (2006-01-02 or RFC 3339)")
	auditExportCmd.Flags().StringVar(&auditExportFlags.end, "end", "", "window end, exclusive (2006-01-02 or RFC 3339)")
	auditExportCmd.Flags().IntVar(&auditExportFlags.limit, "limit", 0, "maximum entries (0 = no limit)")
	auditExportCmd.Flags().StringVar(&auditExportFlags.format, "format", "json", "output format: json, csv")
	auditExportCmd.Flags().StringVarP(&auditExportFlags.output, "output", "o", "", "output file (default stdout)")
}

func exportAuditLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	query := &audit.Query{
		TenantID: auditExportFlags.tenant,
		RuleID:   auditExportFlags.rule,
		Action:   audit.Action(auditExportFlags.action),
		Limit:    auditExportFlags.limit,
	}
	var err error
	if query.Start, err = parseTimeFlag(auditExportFlags.start); err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	if query.End, err = parseTimeFlag(auditExportFlags.end); err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	a, err := buildApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.auditLog.Query(ctx, query)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if auditExportFlags.output != "" {
		f, err := os.Create(auditExportFlags.output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch auditExportFlags.format {
	case "json":
		return export.NewJSONExporter(true).Export(ctx, entries, w)
	case "csv":
		return export.NewCSVExporter(true).Export(ctx, entries, w)
	default:
		return fmt.Errorf("unknown format %q (want json or csv)", auditExportFlags.format)
	}
}

func pruneAuditLog(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	pruner, err := retention.NewPruner(a.auditStore, &retention.Config{
		RetentionDays: a.cfg.Audit.RetentionDays,
		PruneSchedule: a.cfg.Audit.PruneSchedule,
	})
	if err != nil {
		return err
	}
	pruned, err := pruner.Prune(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d entries older than %d days\n", pruned, a.cfg.Audit.RetentionDays)
	return nil
}

// parseTimeFlag accepts a bare date or a full RFC 3339 timestamp.
func parseTimeFlag(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
