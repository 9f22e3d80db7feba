package export

import (
	"context"
	"encoding/json"
	"io"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
)

// JSONExporter exports audit entries to JSON.
type JSONExporter struct {
	// Pretty enables indented output.
	Pretty bool
}

// NewJSONExporter creates a new JSON exporter.
func NewJSONExporter(pretty bool) *JSONExporter {
	return &JSONExporter{Pretty: pretty}
}

// Export writes the entries to w as a JSON array.
func (e *JSONExporter) Export(ctx context.Context, entries []*audit.Entry, w io.Writer) error {
	if len(entries) == 0 {
		_, err := w.Write([]byte("[]"))
		return err
	}

	var (
		data []byte
		err  error
	)
	if e.Pretty {
		data, err = json.MarshalIndent(entries, "", "  ")
	} else {
		data, err = json.Marshal(entries)
	}
	if err != nil {
		return err
	}

	_, err = w.Write(data)
	return err
}
