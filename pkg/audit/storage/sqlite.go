package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements audit.Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a SQLite storage backend, initializing the
// schema and WAL mode.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if config.WALMode {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, audit.NewStorageError("sqlite", "enable WAL", err)
		}
	}
	if config.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", config.BusyTimeout.Milliseconds())); err != nil {
			db.Close()
			return nil, audit.NewStorageError("sqlite", "set busy timeout", err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, audit.NewStorageError("sqlite", "create schema", err)
	}

	logger.Info("audit storage initialized", "path", config.Path, "wal", config.WALMode)
	return s, nil
}

// schema creates the append-only audit table. There are deliberately no
// UPDATE paths through this backend.
const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
    id TEXT PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL,
    tenant_id TEXT NOT NULL DEFAULT '',
    rule_id TEXT NOT NULL DEFAULT '',
    action TEXT NOT NULL,
    reason TEXT NOT NULL,
    approved_by TEXT NOT NULL DEFAULT '',
    jurisdiction TEXT NOT NULL DEFAULT '',
    product TEXT NOT NULL DEFAULT '',
    route TEXT NOT NULL DEFAULT '',
    ticket TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_entries(timestamp);
CREATE INDEX IF NOT EXISTS idx_audit_tenant ON audit_entries(tenant_id);
CREATE INDEX IF NOT EXISTS idx_audit_rule ON audit_entries(rule_id);
`

// Append persists an entry.
func (s *SQLiteStorage) Append(ctx context.Context, entry *audit.Entry) error {
	const insert = `
INSERT INTO audit_entries
    (id, timestamp, tenant_id, rule_id, action, reason, approved_by, jurisdiction, product, route, ticket)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, insert,
		entry.ID,
		entry.Timestamp.UTC(),
		entry.TenantID,
		entry.RuleID,
		string(entry.Action),
		entry.Reason,
		entry.ApprovedBy,
		entry.Jurisdiction,
		entry.Product,
		entry.Route,
		entry.Ticket,
	)
	if err != nil {
		return audit.NewStorageError("sqlite", "append", err)
	}
	return nil
}

// Query returns entries matching the filter, oldest first.
func (s *SQLiteStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Entry, error) {
	var (
		where []string
		args  []any
	)
	if query.TenantID != "" {
		where = append(where, "tenant_id = ?")
		args = append(args, query.TenantID)
	}
	if query.RuleID != "" {
		where = append(where, "rule_id = ?")
		args = append(args, query.RuleID)
	}
	if query.Action != "" {
		where = append(where, "action = ?")
		args = append(args, string(query.Action))
	}
	if query.Start != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, query.Start.UTC())
	}
	if query.End != nil {
		where = append(where, "timestamp < ?")
		args = append(args, query.End.UTC())
	}

	q := "SELECT id, timestamp, tenant_id, rule_id, action, reason, approved_by, jurisdiction, product, route, ticket FROM audit_entries"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY timestamp ASC"
	if query.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, query.Limit)
		if query.Offset > 0 {
			q += " OFFSET ?"
			args = append(args, query.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, audit.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var results []*audit.Entry
	for rows.Next() {
		var (
			e      audit.Entry
			action string
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.TenantID, &e.RuleID, &action,
			&e.Reason, &e.ApprovedBy, &e.Jurisdiction, &e.Product, &e.Route, &e.Ticket); err != nil {
			return nil, audit.NewStorageError("sqlite", "scan", err)
		}
		e.Action = audit.Action(action)
		results = append(results, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError("sqlite", "iterate", err)
	}
	return results, nil
}

// Count returns the total number of entries.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries").Scan(&count); err != nil {
		return 0, audit.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// PruneBefore removes entries older than the cutoff.
func (s *SQLiteStorage) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM audit_entries WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError("sqlite", "prune", err)
	}
	if n > 0 {
		s.logger.Info("audit entries pruned", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
