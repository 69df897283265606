package storage

import (
	"context"
	"errors"
	"sort"
	"sync"

	"praxis/internal/model"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	runs        map[string]model.RunRecord
	segments    map[segmentKey]model.SegmentRecord
}

type segmentKey struct {
	runID   string
	chain   int
	segment int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.runs = make(map[string]model.RunRecord)
	s.segments = make(map[segmentKey]model.SegmentRecord)
	return nil
}

func (s *MemoryStore) SaveRun(_ context.Context, run model.RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id string) (model.RunRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return model.RunRecord{}, false, nil
	}
	return cloneRun(run), true, nil
}

func (s *MemoryStore) ListRuns(_ context.Context) ([]model.RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.RunRecord, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, cloneRun(run))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) SaveSegment(_ context.Context, segment model.SegmentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	key := segmentKey{runID: segment.RunID, chain: segment.Chain, segment: segment.Segment}
	s.segments[key] = cloneSegment(segment)
	return nil
}

func (s *MemoryStore) GetSegments(_ context.Context, runID string, chain int) ([]model.SegmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.SegmentRecord
	for key, seg := range s.segments {
		if key.runID == runID && key.chain == chain {
			out = append(out, cloneSegment(seg))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out, nil
}

func cloneRun(run model.RunRecord) model.RunRecord {
	run.LatentNames = append([]string(nil), run.LatentNames...)
	run.Sessions = append([]string(nil), run.Sessions...)
	run.Parameters = append([]string(nil), run.Parameters...)
	return run
}

func cloneSegment(seg model.SegmentRecord) model.SegmentRecord {
	samples := make([][]float64, len(seg.Samples))
	for i, row := range seg.Samples {
		samples[i] = append([]float64(nil), row...)
	}
	seg.Samples = samples
	return seg
}
