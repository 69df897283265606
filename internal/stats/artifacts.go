// Package stats writes and reads the on-disk artifacts of fitting runs:
// a per-run directory with the run record, sampler health, and summary
// tables, plus a base-directory index listing every run.
package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"praxis/internal/data"
	"praxis/internal/model"
)

const runIndexFile = "run_index.json"

// SamplerHealth is the per-chain diagnostics persisted alongside a run.
type SamplerHealth struct {
	AcceptRates []float64 `json:"accept_rates"`
	StepSizes   []float64 `json:"step_sizes"`
}

// RunArtifacts bundles everything one run writes to disk.
type RunArtifacts struct {
	Run               model.RunRecord `json:"run"`
	Health            SamplerHealth   `json:"health"`
	ParameterSummary  data.Table      `json:"-"`
	TrajectorySummary data.Table      `json:"-"`
}

// RunIndexEntry is one line of the base directory's run index.
type RunIndexEntry struct {
	RunID        string `json:"run_id"`
	Model        string `json:"model"`
	Sessions     int    `json:"sessions"`
	Chains       int    `json:"chains"`
	Samples      int    `json:"samples"`
	Warmup       int    `json:"warmup"`
	Seed         int64  `json:"seed"`
	CreatedAtUTC string `json:"created_at_utc"`
}

// WriteRunArtifacts lays out one run's directory under baseDir and returns
// its path. Summary tables are optional; empty ones are skipped.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "sampler_health.json"), artifacts.Health); err != nil {
		return "", err
	}
	if len(artifacts.ParameterSummary.Rows) > 0 {
		if err := WriteTableCSV(filepath.Join(runDir, "parameter_summary.csv"), artifacts.ParameterSummary); err != nil {
			return "", err
		}
	}
	if len(artifacts.TrajectorySummary.Rows) > 0 {
		if err := WriteTableCSV(filepath.Join(runDir, "trajectory_summary.csv"), artifacts.TrajectorySummary); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

// ReadRunRecord loads the persisted run record, reporting absence without
// an error.
func ReadRunRecord(baseDir, runID string) (model.RunRecord, bool, error) {
	path := filepath.Join(baseDir, runID, "run.json")
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.RunRecord{}, false, nil
		}
		return model.RunRecord{}, false, err
	}

	var run model.RunRecord
	if err := json.Unmarshal(payload, &run); err != nil {
		return model.RunRecord{}, false, err
	}
	return run, true, nil
}

// AppendRunIndex inserts or replaces the entry for one run in the base
// directory's index.
func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns the run index, newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

// ExportRunArtifacts copies one run's directory to outDir for sharing.
func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	required := []string{"run.json", "sampler_health.json"}
	for _, file := range required {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	optional := []string{"parameter_summary.csv", "trajectory_summary.csv"}
	for _, file := range optional {
		path := filepath.Join(src, file)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", err
		}
		if err := copyFile(path, filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}

	return dst, nil
}

// WriteTableCSV persists one summary table.
func WriteTableCSV(path string, t data.Table) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadTableCSV loads a summary table, reporting absence without an error.
func ReadTableCSV(path string) (data.Table, bool, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return data.Table{}, false, nil
		}
		return data.Table{}, false, err
	}
	defer file.Close()

	t, err := data.ReadCSV(file)
	if err != nil {
		return data.Table{}, false, err
	}
	return t, true, nil
}

func writeJSON(path string, value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	payload = append(payload, '\n')
	return os.WriteFile(path, payload, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// IndexEntryFor derives the index line from a run record.
func IndexEntryFor(run model.RunRecord) RunIndexEntry {
	return RunIndexEntry{
		RunID:        run.ID,
		Model:        run.Model,
		Sessions:     len(run.Sessions),
		Chains:       run.Settings.Chains,
		Samples:      run.Settings.Samples,
		Warmup:       run.Settings.Warmup,
		Seed:         run.Settings.Seed,
		CreatedAtUTC: strings.TrimSpace(run.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")),
	}
}
