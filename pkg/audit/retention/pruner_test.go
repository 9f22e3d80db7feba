package retention

import (
	"context"
	"testing"
	"time"

	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit"
	"github.com/woodhall335/landlord-heavenv3-sub005/pkg/audit/storage"
)

func TestPrunerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero retention", &Config{RetentionDays: 0}, true},
		{"negative retention", &Config{RetentionDays: -1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPrune(t *testing.T) {
	st := storage.NewMemoryStorage()
	ctx := context.Background()

	now := time.Now().UTC()
	old := &audit.Entry{
		ID: "old", Timestamp: now.AddDate(0, 0, -40),
		Action: audit.ActionSuppress, Reason: "r",
	}
	recent := &audit.Entry{
		ID: "recent", Timestamp: now.AddDate(0, 0, -5),
		Action: audit.ActionSuppress, Reason: "r",
	}
	for _, e := range []*audit.Entry{old, recent} {
		if err := st.Append(ctx, e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	pruner, err := NewPruner(st, &Config{RetentionDays: 30})
	if err != nil {
		t.Fatalf("NewPruner() error = %v", err)
	}

	pruned, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 1 {
		t.Errorf("Prune() = %d, want 1", pruned)
	}

	remaining, err := st.Query(ctx, &audit.Query{})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(remaining) != 1 || remaining[0].ID != "recent" {
		t.Errorf("remaining = %+v, want only the recent entry", remaining)
	}
}

func TestPruneKeepsEverythingInsideWindow(t *testing.T) {
	st := storage.NewMemoryStorage()
	ctx := context.Background()

	e := &audit.Entry{
		ID: "e1", Timestamp: time.Now().UTC().AddDate(0, 0, -1),
		Action: audit.ActionSuppress, Reason: "r",
	}
	if err := st.Append(ctx, e); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	pruner, err := NewPruner(st, DefaultConfig())
	if err != nil {
		t.Fatalf("NewPruner() error = %v", err)
	}
	pruned, err := pruner.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if pruned != 0 {
		t.Errorf("Prune() = %d, want 0", pruned)
	}
}

func TestSchedulerRejectsBadCron(t *testing.T) {
	st := storage.NewMemoryStorage()
	pruner, err := NewPruner(st, &Config{RetentionDays: 30, PruneSchedule: "not a cron"})
	if err != nil {
		t.Fatalf("NewPruner() error = %v", err)
	}

	s := NewScheduler(pruner)
	if err := s.Start(context.Background()); err == nil {
		t.Error("Start() expected error for invalid cron expression")
	}
}

func TestSchedulerNoScheduleIsNoop(t *testing.T) {
	st := storage.NewMemoryStorage()
	pruner, err := NewPruner(st, &Config{RetentionDays: 30})
	if err != nil {
		t.Fatalf("NewPruner() error = %v", err)
	}

	s := NewScheduler(pruner)
	if err := s.Start(context.Background()); err != nil {
		t.Errorf("Start() error = %v, want nil with no schedule", err)
	}
	s.Stop()
}
