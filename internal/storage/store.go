// Package storage persists fitting runs and their chain segments behind a
// backend-agnostic interface, with in-memory and sqlite implementations.
package storage

import (
	"context"
	"errors"
	"fmt"

	"praxis/internal/model"
)

// ErrSegmentGap signals that a chain's persisted segments are not a
// contiguous 0..n-1 sequence and the run cannot be reassembled.
var ErrSegmentGap = errors.New("chain segments are not contiguous")

// Store defines persistence operations for runs and chain segments.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveSegment(ctx context.Context, segment model.SegmentRecord) error
	GetSegments(ctx context.Context, runID string, chain int) ([]model.SegmentRecord, error)
}

// AssembleChain concatenates a chain's segments into one draw matrix. The
// segments may arrive in any order; they must form a contiguous sequence
// from zero and carry valid digests.
func AssembleChain(segments []model.SegmentRecord) ([][]float64, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no segments", ErrSegmentGap)
	}
	bySegment := make(map[int]model.SegmentRecord, len(segments))
	for _, seg := range segments {
		if _, dup := bySegment[seg.Segment]; dup {
			return nil, fmt.Errorf("segment %d appears twice", seg.Segment)
		}
		bySegment[seg.Segment] = seg
	}

	var out [][]float64
	for i := 0; i < len(segments); i++ {
		seg, ok := bySegment[i]
		if !ok {
			return nil, fmt.Errorf("%w: missing segment %d", ErrSegmentGap, i)
		}
		digest, err := SegmentDigest(seg.Samples)
		if err != nil {
			return nil, err
		}
		if digest != seg.Digest {
			return nil, fmt.Errorf("segment %d: digest mismatch", i)
		}
		out = append(out, seg.Samples...)
	}
	return out, nil
}
