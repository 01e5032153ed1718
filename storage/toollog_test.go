package storage

import (
	"context"
	"testing"
	"time"
)

func TestToolLogRecordAndRecent(t *testing.T) {
	log, err := NewToolLog(t.TempDir())
	if err != nil {
		t.Fatalf("NewToolLog() error = %v", err)
	}
	defer log.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	entries := []ToolInvocation{
		{Tool: "memex_search", OK: true, Duration: 120 * time.Millisecond, OutputBytes: 64, Summary: "Found 2 results:", CreatedAt: base},
		{Tool: "memex_create_node", OK: false, Duration: 10 * time.Second, OutputBytes: 20, Summary: "Create failed: 500", CreatedAt: base.Add(time.Minute)},
		{Tool: "memex_search", OK: true, Duration: 80 * time.Millisecond, OutputBytes: 30, Summary: "No results for 'x'", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := log.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	recent, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("len(Recent) = %d, want 2", len(recent))
	}
	if recent[0].Summary != "No results for 'x'" || recent[1].Tool != "memex_create_node" {
		t.Errorf("Recent order = %+v", recent)
	}
	if recent[1].OK {
		t.Error("failed invocation read back as OK")
	}
	if recent[1].Duration != 10*time.Second {
		t.Errorf("Duration = %v, want 10s", recent[1].Duration)
	}
	if recent[0].ID == "" {
		t.Error("Record did not assign an ID")
	}

	stats, err := log.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if got := stats["memex_search"]; got.Calls != 2 || got.Failures != 0 {
		t.Errorf("memex_search stats = %+v", got)
	}
	if got := stats["memex_create_node"]; got.Calls != 1 || got.Failures != 1 {
		t.Errorf("memex_create_node stats = %+v", got)
	}
}

func TestToolLogPersists(t *testing.T) {
	dir := t.TempDir()

	log, err := NewToolLog(dir)
	if err != nil {
		t.Fatalf("NewToolLog() error = %v", err)
	}
	if err := log.Record(context.Background(), ToolInvocation{Tool: "dagit_whoami", OK: true}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
	log.Close()

	reopened, err := NewToolLog(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	recent, err := reopened.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(recent) != 1 || recent[0].Tool != "dagit_whoami" {
		t.Errorf("Recent() = %+v", recent)
	}
}
