// Package model holds the persistent record types shared by the storage
// layer and the run artifacts.
package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// SamplerSettings is the persisted snapshot of one run's sampling
// configuration, enough to resume or reproduce it.
type SamplerSettings struct {
	Chains   int     `json:"chains"`
	Samples  int     `json:"samples"`
	Warmup   int     `json:"warmup"`
	StepSize float64 `json:"step_size"`
	Seed     int64   `json:"seed"`
}

// RunRecord describes one fitting run.
type RunRecord struct {
	VersionedRecord
	ID          string          `json:"id"`
	Model       string          `json:"model"`
	CreatedAt   time.Time       `json:"created_at"`
	Settings    SamplerSettings `json:"settings"`
	LatentNames []string        `json:"latent_names"`
	Sessions    []string        `json:"sessions"`
	Parameters  []string        `json:"parameters"`
}

// SegmentRecord is one persisted chunk of one chain's retained draws.
// Segments are numbered from zero per (run, chain) and reassembled in
// order; the digest guards the payload against partial writes.
type SegmentRecord struct {
	VersionedRecord
	RunID    string      `json:"run_id"`
	Chain    int         `json:"chain"`
	Segment  int         `json:"segment"`
	StepSize float64     `json:"step_size"`
	Samples  [][]float64 `json:"samples"`
	Digest   string      `json:"digest"`
}
