package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Log is the append-only governance log. It assigns identities and
// timestamps, delegates persistence to a Storage backend, and exposes
// filtered queries for compliance export.
type Log struct {
	storage Storage
	logger  *slog.Logger
}

// NewLog creates an audit log over the given storage backend.
func NewLog(storage Storage, logger *slog.Logger) (*Log, error) {
	if storage == nil {
		return nil, fmt.Errorf("audit storage cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{
		storage: storage,
		logger:  logger.With("component", "audit.log"),
	}, nil
}

// Record appends one entry, assigning an ID and timestamp when unset.
// Recording must not be skipped on partial data: a reason-less entry is
// rejected so the trail stays reviewable.
func (l *Log) Record(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	if entry.Action == "" {
		return fmt.Errorf("audit entry requires an action")
	}
	if entry.Reason == "" {
		return fmt.Errorf("audit entry requires a reason")
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	if err := l.storage.Append(ctx, entry); err != nil {
		return err
	}

	l.logger.Info("audit entry recorded",
		"entry_id", entry.ID,
		"action", entry.Action,
		"tenant_id", entry.TenantID,
		"rule_id", entry.RuleID,
	)
	return nil
}

// Query returns entries matching the filter.
func (l *Log) Query(ctx context.Context, query *Query) ([]*Entry, error) {
	if query == nil {
		query = &Query{}
	}
	return l.storage.Query(ctx, query)
}

// Count returns the total number of entries.
func (l *Log) Count(ctx context.Context) (int64, error) {
	return l.storage.Count(ctx)
}

// Close releases the underlying storage.
func (l *Log) Close() error {
	return l.storage.Close()
}
