package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/condition"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/ast"
	rerrors "github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/errors"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/parser"
)

// Config contains configuration for the rule store.
type Config struct {
	// Dir is the root directory of rule documents. A document for
	// (jurisdiction, product) lives at Dir/<jurisdiction>/<product>.yaml.
	Dir string

	// MaxRulesPerDocument caps how many rules one document may declare.
	// Exceeding it is a fail-closed load error.
	MaxRulesPerDocument int

	// MaxConditionsPerRule caps how many applies_when conditions one rule
	// may declare. Exceeding it is a fail-closed load error; the engine
	// applies its own (equal or lower) runtime cap as a second line.
	MaxConditionsPerRule int
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() *Config {
	return &Config{
		Dir:                  "rules",
		MaxRulesPerDocument:  200,
		MaxConditionsPerRule: 10,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("rules directory cannot be empty")
	}
	if c.MaxRulesPerDocument <= 0 {
		return fmt.Errorf("max rules per document must be positive, got %d", c.MaxRulesPerDocument)
	}
	if c.MaxConditionsPerRule <= 0 {
		return fmt.Errorf("max conditions per rule must be positive, got %d", c.MaxConditionsPerRule)
	}
	return nil
}

// Loaded pairs a validated rule-set with the condition compiler built from
// its identifier allow-list. Both are immutable and safe for concurrent use.
type Loaded struct {
	Set      *ast.RuleSet
	Compiler *condition.Compiler
}

// Store loads, validates and caches rule-sets per (jurisdiction, product).
// A cached set is served until its source document changes; invalidation is
// driven by content hash, never by a fixed TTL, so an evaluation mid-flight
// never observes a half-fresh set. Concurrent loads of the same key are
// collapsed into one.
type Store struct {
	cfg    *Config
	parser *parser.Parser
	logger *slog.Logger

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*cacheEntry
}

type cacheEntry struct {
	loaded *Loaded
	hash   string
	dirty  bool
}

// New creates a rule store.
func New(cfg *Config, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid store config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	p, err := parser.New()
	if err != nil {
		return nil, err
	}

	return &Store{
		cfg:    cfg,
		parser: p,
		logger: logger.With("component", "rules.store"),
		cache:  make(map[string]*cacheEntry),
	}, nil
}

// DocumentPath returns the expected document path for a scope.
func (s *Store) DocumentPath(jurisdiction, product string) string {
	return filepath.Join(s.cfg.Dir, jurisdiction, product+".yaml")
}

// Load returns the validated rule-set for (jurisdiction, product), loading
// and caching it on first use. It fails closed with a ConfigError when the
// document is malformed, declares duplicate IDs, references identifiers
// outside its allow-list, or violates a safeguard.
func (s *Store) Load(ctx context.Context, jurisdiction, product string) (*Loaded, error) {
	key := ast.Key(jurisdiction, product)

	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()

	if ok && !entry.dirty {
		return entry.loaded, nil
	}

	// singleflight collapses concurrent (re)loads of one scope so a
	// thundering herd performs the disk read and compile once.
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.load(jurisdiction, product)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Loaded), nil
}

// Invalidate marks a cached scope dirty so the next Load re-checks the
// source document. A document whose content hash is unchanged is served
// from cache again without a full reload.
func (s *Store) Invalidate(jurisdiction, product string) {
	key := ast.Key(jurisdiction, product)
	s.mu.Lock()
	if entry, ok := s.cache[key]; ok {
		entry.dirty = true
	}
	s.mu.Unlock()
}

// InvalidatePath marks whichever cached scope was loaded from path dirty.
// Used by the file watcher, which only knows paths.
func (s *Store) InvalidatePath(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	s.mu.Lock()
	for _, entry := range s.cache {
		src, err := filepath.Abs(entry.loaded.Set.SourcePath)
		if err != nil {
			src = entry.loaded.Set.SourcePath
		}
		if src == abs {
			entry.dirty = true
		}
	}
	s.mu.Unlock()
}

func (s *Store) load(jurisdiction, product string) (*Loaded, error) {
	key := ast.Key(jurisdiction, product)
	path := s.DocumentPath(jurisdiction, product)

	data, err := os.ReadFile(path)
	if err != nil {
		errs := rerrors.NewList()
		errs.AddError(rerrors.TypeIO, fmt.Sprintf("failed to read rule document: %v", err), ast.Location{File: path})
		return nil, &rerrors.ConfigError{Jurisdiction: jurisdiction, Product: product, Errors: errs}
	}

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	// Unchanged content means the dirty flag was a spurious or touch-only
	// event; keep serving the cached set.
	s.mu.RLock()
	entry, ok := s.cache[key]
	s.mu.RUnlock()
	if ok && entry.hash == hash {
		s.mu.Lock()
		entry.dirty = false
		s.mu.Unlock()
		return entry.loaded, nil
	}

	loaded, err := s.parseAndValidate(data, path, jurisdiction, product)
	if err != nil {
		return nil, err
	}
	loaded.Set.SourceHash = hash
	loaded.Set.LoadedAt = time.Now().UTC()

	s.mu.Lock()
	s.cache[key] = &cacheEntry{loaded: loaded, hash: hash}
	s.mu.Unlock()

	s.logger.Info("rule-set loaded",
		"jurisdiction", jurisdiction,
		"product", product,
		"rules", len(loaded.Set.Rules),
		"hash", hash[:12],
	)
	return loaded, nil
}

func (s *Store) parseAndValidate(data []byte, path, jurisdiction, product string) (*Loaded, error) {
	fail := func(errs *rerrors.List) error {
		return &rerrors.ConfigError{Jurisdiction: jurisdiction, Product: product, Errors: errs}
	}

	rs, err := s.parser.Parse(data, path)
	if err != nil {
		if list, ok := err.(*rerrors.List); ok {
			return nil, fail(list)
		}
		errs := rerrors.NewList()
		errs.AddError(rerrors.TypeStructural, err.Error(), ast.Location{File: path})
		return nil, fail(errs)
	}

	errs := rerrors.NewList()

	if rs.Jurisdiction != jurisdiction || rs.Product != product {
		errs.AddError(rerrors.TypeStructural,
			fmt.Sprintf("document declares scope %s/%s but was loaded for %s/%s",
				rs.Jurisdiction, rs.Product, jurisdiction, product),
			ast.Location{File: path})
	}

	// Safeguards: fail closed rather than serving an oversized document.
	if len(rs.Rules) > s.cfg.MaxRulesPerDocument {
		errs.AddError(rerrors.TypeSafeguard,
			fmt.Sprintf("document declares %d rules, maximum is %d", len(rs.Rules), s.cfg.MaxRulesPerDocument),
			ast.Location{File: path})
	}
	for _, rule := range rs.Rules {
		if len(rule.AppliesWhen) > s.cfg.MaxConditionsPerRule {
			errs.AddError(rerrors.TypeSafeguard,
				fmt.Sprintf("rule %q declares %d conditions, maximum is %d",
					rule.ID, len(rule.AppliesWhen), s.cfg.MaxConditionsPerRule),
				rule.Location)
		}
	}
	if errs.HasErrors() {
		return nil, fail(errs)
	}

	// Compile every condition now. An unknown identifier or syntax error
	// must fail at load time so a bad rule can never reach production
	// evaluation; the compile also warms the per-expression cache.
	compiler, err := condition.NewCompiler(rs.Identifiers)
	if err != nil {
		errs.AddError(rerrors.TypeSemantic, err.Error(), ast.Location{File: path})
		return nil, fail(errs)
	}
	for _, rule := range rs.Rules {
		for _, expr := range rule.AppliesWhen {
			if _, cerr := compiler.Compile(expr); cerr != nil {
				errs.AddErrorWithSuggestion(rerrors.TypeSemantic,
					fmt.Sprintf("rule %q: %v", rule.ID, cerr),
					rule.Location,
					"conditions may only reference identifiers in the document allow-list")
			}
		}
	}
	if errs.HasErrors() {
		return nil, fail(errs)
	}

	return &Loaded{Set: rs, Compiler: compiler}, nil
}
