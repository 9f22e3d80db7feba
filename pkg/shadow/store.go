package shadow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// StoreConfig configures the parity telemetry store.
type StoreConfig struct {
	// Path is the database file path. Default: data/parity.db
	Path string

	// MaxOpenConns is the connection pool size. Default: 4
	MaxOpenConns int

	// BusyTimeout is how long to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultStoreConfig returns the default telemetry store configuration.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Path:         "data/parity.db",
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
	}
}

// Store persists shadow comparison records for offline parity analysis.
// Telemetry is advisory: a failed write is logged, never propagated into
// the request path.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS parity_comparisons (
    id TEXT PRIMARY KEY,
    timestamp TIMESTAMP NOT NULL,
    jurisdiction TEXT NOT NULL,
    product TEXT NOT NULL,
    route TEXT NOT NULL,
    legacy_blocker_ids TEXT NOT NULL,
    new_blocker_ids TEXT NOT NULL,
    matched INTEGER NOT NULL,
    superset INTEGER NOT NULL DEFAULT 0,
    mismatch TEXT NOT NULL DEFAULT '',
    legacy_duration_us INTEGER NOT NULL,
    new_duration_us INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parity_timestamp ON parity_comparisons(timestamp);
CREATE INDEX IF NOT EXISTS idx_parity_scope ON parity_comparisons(jurisdiction, product, route);
CREATE INDEX IF NOT EXISTS idx_parity_matched ON parity_comparisons(matched);
`

// NewStore opens the telemetry store, initializing the schema.
func NewStore(config *StoreConfig, logger *slog.Logger) (*Store, error) {
	if config == nil {
		config = DefaultStoreConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "shadow.store")

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening parity store: %w", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	if config.BusyTimeout > 0 {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", config.BusyTimeout.Milliseconds())); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting busy timeout: %w", err)
		}
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating parity schema: %w", err)
	}

	logger.Info("parity store initialized", "path", config.Path)
	return &Store{db: db, logger: logger}, nil
}

// Record persists one comparison, assigning an ID when unset.
func (s *Store) Record(ctx context.Context, c *Comparison) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now().UTC()
	}

	legacyIDs, err := json.Marshal(c.LegacyBlockerIDs)
	if err != nil {
		return fmt.Errorf("encoding legacy blocker ids: %w", err)
	}
	newIDs, err := json.Marshal(c.NewBlockerIDs)
	if err != nil {
		return fmt.Errorf("encoding new blocker ids: %w", err)
	}

	const insert = `
INSERT INTO parity_comparisons
    (id, timestamp, jurisdiction, product, route, legacy_blocker_ids, new_blocker_ids,
     matched, superset, mismatch, legacy_duration_us, new_duration_us)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, insert,
		c.ID,
		c.Timestamp.UTC(),
		c.Jurisdiction,
		c.Product,
		c.Route,
		string(legacyIDs),
		string(newIDs),
		boolInt(c.Matched),
		boolInt(c.Superset),
		c.Mismatch,
		c.LegacyDuration.Microseconds(),
		c.NewDuration.Microseconds(),
	)
	if err != nil {
		return fmt.Errorf("recording comparison: %w", err)
	}
	return nil
}

// Mismatches returns the most recent failed comparisons, newest first.
func (s *Store) Mismatches(ctx context.Context, limit int) ([]*Comparison, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `
SELECT id, timestamp, jurisdiction, product, route, legacy_blocker_ids, new_blocker_ids,
       matched, superset, mismatch, legacy_duration_us, new_duration_us
FROM parity_comparisons WHERE matched = 0 ORDER BY timestamp DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("querying mismatches: %w", err)
	}
	defer rows.Close()

	var results []*Comparison
	for rows.Next() {
		c, err := scanComparison(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

// ParityRate returns matched/total over comparisons since the cutoff.
// A window with no comparisons reports 1.0: no evidence of divergence.
func (s *Store) ParityRate(ctx context.Context, since time.Time) (float64, error) {
	var total, matched int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(matched), 0) FROM parity_comparisons WHERE timestamp >= ?",
		since.UTC()).Scan(&total, &matched)
	if err != nil {
		return 0, fmt.Errorf("computing parity rate: %w", err)
	}
	if total == 0 {
		return 1.0, nil
	}
	return float64(matched) / float64(total), nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func scanComparison(rows *sql.Rows) (*Comparison, error) {
	var (
		c                 Comparison
		legacyIDs, newIDs string
		matched, superset int
		legacyUs, newUs   int64
	)
	if err := rows.Scan(&c.ID, &c.Timestamp, &c.Jurisdiction, &c.Product, &c.Route,
		&legacyIDs, &newIDs, &matched, &superset, &c.Mismatch, &legacyUs, &newUs); err != nil {
		return nil, fmt.Errorf("scanning comparison: %w", err)
	}
	if err := json.Unmarshal([]byte(legacyIDs), &c.LegacyBlockerIDs); err != nil {
		return nil, fmt.Errorf("decoding legacy blocker ids: %w", err)
	}
	if err := json.Unmarshal([]byte(newIDs), &c.NewBlockerIDs); err != nil {
		return nil, fmt.Errorf("decoding new blocker ids: %w", err)
	}
	c.Matched = matched != 0
	c.Superset = superset != 0
	c.LegacyDuration = time.Duration(legacyUs) * time.Microsecond
	c.NewDuration = time.Duration(newUs) * time.Microsecond
	return &c, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
