package export

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
)

// CSVExporter exports audit entries to CSV.
type CSVExporter struct {
	// IncludeHeader includes a header row with column names.
	IncludeHeader bool
}

// NewCSVExporter creates a new CSV exporter.
func NewCSVExporter(includeHeader bool) *CSVExporter {
	return &CSVExporter{IncludeHeader: includeHeader}
}

// Export writes the entries to w in CSV format.
func (e *CSVExporter) Export(ctx context.Context, entries []*audit.Entry, w io.Writer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if e.IncludeHeader {
		if err := writer.Write(headerRow()); err != nil {
			return err
		}
	}

	for _, entry := range entries {
		if err := writer.Write(entryRow(entry)); err != nil {
			return err
		}
	}
	return nil
}

func headerRow() []string {
	return []string{
		"id", "timestamp", "tenant_id", "rule_id", "action",
		"reason", "approved_by", "jurisdiction", "product", "route", "ticket",
	}
}

func entryRow(e *audit.Entry) []string {
	return []string{
		e.ID,
		e.Timestamp.UTC().Format(time.RFC3339),
		e.TenantID,
		e.RuleID,
		string(e.Action),
		e.Reason,
		e.ApprovedBy,
		e.Jurisdiction,
		e.Product,
		e.Route,
		e.Ticket,
	}
}
