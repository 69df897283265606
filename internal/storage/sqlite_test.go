//go:build sqlite

package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStoreRunAndSegmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "praxis.db")

	store := NewSQLiteStore(dbPath)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	run := testRun("run-1", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	if err := store.SaveRun(ctx, run); err != nil {
		t.Fatalf("save run: %v", err)
	}
	loadedRun, ok, err := store.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !ok {
		t.Fatalf("expected run %s", run.ID)
	}
	if loadedRun.Model != run.Model || loadedRun.Settings.Chains != run.Settings.Chains {
		t.Fatalf("unexpected run loaded: %+v", loadedRun)
	}

	for seg, samples := range [][][]float64{{{0.1}, {0.2}}, {{0.3}}} {
		if err := store.SaveSegment(ctx, testSegment(run.ID, 0, seg, samples)); err != nil {
			t.Fatalf("save segment %d: %v", seg, err)
		}
	}
	segments, err := store.GetSegments(ctx, run.ID, 0)
	if err != nil {
		t.Fatalf("get segments: %v", err)
	}
	draws, err := AssembleChain(segments)
	if err != nil {
		t.Fatalf("assemble chain: %v", err)
	}
	if len(draws) != 3 || draws[2][0] != 0.3 {
		t.Fatalf("unexpected draws: %+v", draws)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != run.ID {
		t.Fatalf("unexpected run list: %+v", runs)
	}
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "praxis.db")

	first := NewSQLiteStore(dbPath)
	if err := first.Init(ctx); err != nil {
		t.Fatalf("first init: %v", err)
	}
	run := testRun("persisted-run", time.Now().UTC())
	if err := first.SaveRun(ctx, run); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}

	second := NewSQLiteStore(dbPath)
	if err := second.Init(ctx); err != nil {
		t.Fatalf("second init: %v", err)
	}
	t.Cleanup(func() {
		_ = second.Close()
	})

	loaded, ok, err := second.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("second get: %v", err)
	}
	if !ok || loaded.ID != run.ID {
		t.Fatalf("expected persisted run, got ok=%t value=%+v", ok, loaded)
	}
}
