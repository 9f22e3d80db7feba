package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
	auditstorage "github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit/storage"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/config"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/engine"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/legacy"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/rules/store"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/service"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/shadow"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/telemetry/logging"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

// app holds the wired-up stack shared by the eval, audit and rollout
// commands. Commands that only need the audit log still build the whole
// thing; startup is cheap and keeping one assembly path avoids drift.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	svc        *service.Service
	auditLog   *audit.Log
	auditStore audit.Storage
	controller *shadow.Controller
	parity     *shadow.Store
}

// buildApp assembles the service stack from configuration. CLI logs go
// to stderr so stdout stays clean for command output.
func buildApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgPath)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
		RedactPII: cfg.Telemetry.Logging.RedactPII,
		Writer:    os.Stderr,
	}
	if !verbose {
		logCfg.Level = "error"
	}
	logger, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}

	var backend audit.Storage
	switch cfg.Audit.Backend {
	case "sqlite":
		backend, err = auditstorage.NewSQLiteStorage(&auditstorage.SQLiteConfig{Path: cfg.Audit.SQLitePath})
		if err != nil {
			return nil, fmt.Errorf("failed to open audit storage: %w", err)
		}
	default:
		backend = auditstorage.NewMemoryStorage()
	}
	auditLog, err := audit.NewLog(backend, logger)
	if err != nil {
		return nil, err
	}

	suppressions := audit.NewSuppressionRegistry(auditLog, logger)
	for _, s := range cfg.Suppressions {
		err := suppressions.Suppress(ctx, audit.Suppression{
			RuleID: s.RuleID,
			Actor:  s.Actor,
			Reason: s.Reason,
			Ticket: s.Ticket,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to apply configured suppression for %s: %w", s.RuleID, err)
		}
	}

	ruleStore, err := store.New(&store.Config{
		Dir:                  cfg.Rules.Dir,
		MaxRulesPerDocument:  cfg.Rules.MaxRulesPerDocument,
		MaxConditionsPerRule: cfg.Rules.MaxConditionsPerRule,
	}, logger)
	if err != nil {
		return nil, err
	}

	engineCfg := &engine.Config{
		MaxConditionsPerRule: cfg.Engine.MaxConditionsPerRule,
		EvaluationTimeout:    cfg.Engine.EvaluationTimeout,
	}
	eng, err := engine.New(engineCfg, logger)
	if err != nil {
		return nil, err
	}

	controller, err := shadow.NewController(shadow.Phase(cfg.Shadow.RolloutPhase), auditLog, logger)
	if err != nil {
		return nil, err
	}
	parityCfg := shadow.DefaultStoreConfig()
	if cfg.Shadow.StorePath != "" {
		parityCfg.Path = cfg.Shadow.StorePath
	}
	parity, err := shadow.NewStore(parityCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open parity store: %w", err)
	}

	comparator := shadow.NewComparator(shadow.DefaultIDMap(), cfg.Shadow.SupersetJurisdictions)
	runner := shadow.NewRunner(legacy.NewEngine(logger), eng, comparator, controller, parity, logger)

	var collector *metrics.Collector
	if cfg.Telemetry.Metrics.Enabled {
		collector = metrics.NewCollector(&metrics.Config{
			Enabled:   true,
			Namespace: cfg.Telemetry.Metrics.Namespace,
			Subsystem: cfg.Telemetry.Metrics.Subsystem,
		}, prometheus.NewRegistry())
	}

	svc, err := service.New(service.Options{
		Store:        ruleStore,
		Engine:       eng,
		EngineConfig: engineCfg,
		Runner:       runner,
		Suppressions: suppressions,
		AuditLog:     auditLog,
		Metrics:      collector,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		svc:        svc,
		auditLog:   auditLog,
		auditStore: backend,
		controller: controller,
		parity:     parity,
	}, nil
}

// Close releases the persistent stores.
func (a *app) Close() error {
	var first error
	if err := a.parity.Close(); err != nil {
		first = err
	}
	if err := a.auditLog.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
