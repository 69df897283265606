package stats

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"praxis/internal/data"
	"praxis/internal/model"
)

func sampleArtifacts() RunArtifacts {
	return RunArtifacts{
		Run: model.RunRecord{
			ID:        "run-1",
			Model:     "rescorla_wagner",
			CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
			Settings:  model.SamplerSettings{Chains: 2, Samples: 100, Warmup: 50, Seed: 7},
			Sessions:  []string{"s1", "s2"},
		},
		Health: SamplerHealth{
			AcceptRates: []float64{0.55, 0.6},
			StepSizes:   []float64{0.12, 0.11},
		},
		ParameterSummary: data.Table{
			Columns: []string{"session", "parameter", "value"},
			Rows:    [][]string{{"s1", "learning_rate", "0.31"}},
		},
	}
}

func TestWriteAndReadRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()

	runDir, err := WriteRunArtifacts(baseDir, sampleArtifacts())
	if err != nil {
		t.Fatalf("write artifacts: %v", err)
	}
	if runDir != filepath.Join(baseDir, "run-1") {
		t.Fatalf("unexpected run dir: %s", runDir)
	}

	run, ok, err := ReadRunRecord(baseDir, "run-1")
	if err != nil {
		t.Fatalf("read run record: %v", err)
	}
	if !ok {
		t.Fatal("expected persisted run record")
	}
	if run.Model != "rescorla_wagner" || run.Settings.Chains != 2 {
		t.Fatalf("unexpected run record: %+v", run)
	}

	table, ok, err := ReadTableCSV(filepath.Join(runDir, "parameter_summary.csv"))
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	if !ok || len(table.Rows) != 1 || table.Rows[0][2] != "0.31" {
		t.Fatalf("unexpected summary: ok=%v %+v", ok, table)
	}

	// Trajectory summary was empty and must not exist.
	if _, err := os.Stat(filepath.Join(runDir, "trajectory_summary.csv")); !os.IsNotExist(err) {
		t.Fatalf("unexpected trajectory summary file: %v", err)
	}
}

func TestWriteRunArtifactsRequiresID(t *testing.T) {
	artifacts := sampleArtifacts()
	artifacts.Run.ID = ""
	if _, err := WriteRunArtifacts(t.TempDir(), artifacts); err == nil {
		t.Fatal("expected missing run id error")
	}
}

func TestReadRunRecordAbsent(t *testing.T) {
	run, ok, err := ReadRunRecord(t.TempDir(), "no-such-run")
	if err != nil {
		t.Fatalf("read absent record: %v", err)
	}
	if ok || run.ID != "" {
		t.Fatalf("expected absence, got %+v", run)
	}
}

func TestRunIndexAppendReplaceAndOrder(t *testing.T) {
	baseDir := t.TempDir()

	first := IndexEntryFor(sampleArtifacts().Run)
	if err := AppendRunIndex(baseDir, first); err != nil {
		t.Fatalf("append: %v", err)
	}

	second := first
	second.RunID = "run-2"
	second.CreatedAtUTC = "2025-03-02T12:00:00Z"
	if err := AppendRunIndex(baseDir, second); err != nil {
		t.Fatalf("append second: %v", err)
	}

	entries, err := ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 || entries[0].RunID != "run-2" || entries[1].RunID != "run-1" {
		t.Fatalf("unexpected order: %+v", entries)
	}

	// Re-appending run-1 with new settings replaces in place.
	updated := first
	updated.Samples = 999
	if err := AppendRunIndex(baseDir, updated); err != nil {
		t.Fatalf("replace: %v", err)
	}
	entries, err = ListRunIndex(baseDir)
	if err != nil {
		t.Fatalf("list after replace: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("replace duplicated the entry: %+v", entries)
	}
	for _, e := range entries {
		if e.RunID == "run-1" && e.Samples != 999 {
			t.Fatalf("entry not replaced: %+v", e)
		}
	}
}

func TestListRunIndexEmpty(t *testing.T) {
	entries, err := ListRunIndex(t.TempDir())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty index, got %+v", entries)
	}
}

func TestExportRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	if _, err := WriteRunArtifacts(baseDir, sampleArtifacts()); err != nil {
		t.Fatalf("write artifacts: %v", err)
	}

	outDir := t.TempDir()
	dst, err := ExportRunArtifacts(baseDir, "run-1", outDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	for _, file := range []string{"run.json", "sampler_health.json", "parameter_summary.csv"} {
		if _, err := os.Stat(filepath.Join(dst, file)); err != nil {
			t.Fatalf("exported file %s: %v", file, err)
		}
	}

	if _, err := ExportRunArtifacts(baseDir, "absent", outDir); err == nil {
		t.Fatal("expected missing run error")
	}
}
