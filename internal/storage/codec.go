package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"praxis/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp fills in the current schema and codec versions.
func Stamp() model.VersionedRecord {
	return model.VersionedRecord{
		SchemaVersion: CurrentSchemaVersion,
		CodecVersion:  CurrentCodecVersion,
	}
}

func EncodeRun(r model.RunRecord) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeSegment(s model.SegmentRecord) ([]byte, error) {
	return json.Marshal(s)
}

func DecodeSegment(data []byte) (model.SegmentRecord, error) {
	var segment model.SegmentRecord
	if err := json.Unmarshal(data, &segment); err != nil {
		return model.SegmentRecord{}, err
	}
	if err := checkVersion(segment.VersionedRecord); err != nil {
		return model.SegmentRecord{}, err
	}
	return segment, nil
}

// SegmentDigest is the hex sha256 of the samples' canonical JSON encoding.
func SegmentDigest(samples [][]float64) (string, error) {
	payload, err := json.Marshal(samples)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
