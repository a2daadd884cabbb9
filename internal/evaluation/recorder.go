package evaluation

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jonathan/competency-assessment/internal/scoring"
)

// MemoryRecorder keeps results in process. It backs offline runs and tests
// where no database is configured.
type MemoryRecorder struct {
	mu      sync.RWMutex
	results map[uuid.UUID]scoring.Snapshot
	order   []uuid.UUID
}

// NewMemoryRecorder creates an empty recorder.
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{results: map[uuid.UUID]scoring.Snapshot{}}
}

// SaveEvaluation implements Recorder. Saving the same result twice is a no-op.
func (m *MemoryRecorder) SaveEvaluation(_ context.Context, result *scoring.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.results[result.ID()]; ok {
		return nil
	}
	m.results[result.ID()] = result.Snapshot()
	m.order = append(m.order, result.ID())
	return nil
}

// GetEvaluation returns a stored result, or nil when id is unknown.
func (m *MemoryRecorder) GetEvaluation(_ context.Context, id uuid.UUID) (*scoring.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snapshot, ok := m.results[id]
	if !ok {
		return nil, nil
	}
	return &snapshot, nil
}

// IDs returns the stored result IDs in save order.
func (m *MemoryRecorder) IDs() []uuid.UUID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]uuid.UUID(nil), m.order...)
}
