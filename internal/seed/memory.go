package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jonathan/competency-assessment/internal/db"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/types"
)

// MemoryStore is an in-process Store with the same upsert rules as the
// database: unchanged content is not rewritten and published questionnaire
// versions are immutable.
type MemoryStore struct {
	mu             sync.RWMutex
	scenarios      map[string]stored
	questionnaires map[types.QuestionnaireRef]stored
	positionSets   map[string]stored
	writes         int
}

type stored struct {
	hash string
	data []byte
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scenarios:      map[string]stored{},
		questionnaires: map[types.QuestionnaireRef]stored{},
		positionSets:   map[string]stored{},
	}
}

// UpsertScenario stores a scenario keyed by its code.
func (m *MemoryStore) UpsertScenario(_ context.Context, s *types.ScenarioDefinition) (db.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsert(m.scenarios, s.Code, s)
}

// UpsertQuestionnaire stores a questionnaire keyed by tenant, code and version.
func (m *MemoryStore) UpsertQuestionnaire(_ context.Context, q *types.Questionnaire) (db.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ref := q.Ref()
	item, err := encode(q)
	if err != nil {
		return "", err
	}
	existing, ok := m.questionnaires[ref]
	switch {
	case !ok:
		m.questionnaires[ref] = item
		m.writes++
		return db.OutcomeInserted, nil
	case existing.hash == item.hash:
		return db.OutcomeUnchanged, nil
	}

	var prev types.Questionnaire
	if err := json.Unmarshal(existing.data, &prev); err != nil {
		return "", err
	}
	if prev.Published {
		return "", &db.PublishedVersionImmutableError{Ref: ref}
	}
	m.questionnaires[ref] = item
	m.writes++
	return db.OutcomeUpdated, nil
}

// UpsertPositionQuestionSet stores a position set keyed by version,
// language and position code.
func (m *MemoryStore) UpsertPositionQuestionSet(_ context.Context, p *types.PositionQuestionSet) (db.UpsertOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsert(m.positionSets, fmt.Sprintf("%d/%s/%s", p.Version, p.Language, p.PositionCode), p)
}

func (m *MemoryStore) upsert(table map[string]stored, key string, v any) (db.UpsertOutcome, error) {
	item, err := encode(v)
	if err != nil {
		return "", err
	}
	existing, ok := table[key]
	if ok && existing.hash == item.hash {
		return db.OutcomeUnchanged, nil
	}
	table[key] = item
	m.writes++
	if ok {
		return db.OutcomeUpdated, nil
	}
	return db.OutcomeInserted, nil
}

func encode(v any) (stored, error) {
	hash, err := scoring.ContentHash(v)
	if err != nil {
		return stored{}, err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return stored{}, err
	}
	return stored{hash: hash, data: data}, nil
}

// Scenario returns a copy of a stored scenario, or nil.
func (m *MemoryStore) Scenario(code string) (*types.ScenarioDefinition, error) {
	m.mu.RLock()
	item, ok := m.scenarios[code]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var s types.ScenarioDefinition
	if err := json.Unmarshal(item.data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Questionnaire returns a copy of a stored questionnaire, or nil.
func (m *MemoryStore) Questionnaire(ref types.QuestionnaireRef) (*types.Questionnaire, error) {
	m.mu.RLock()
	item, ok := m.questionnaires[ref]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	var q types.Questionnaire
	if err := json.Unmarshal(item.data, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// Len returns the number of stored documents.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.scenarios) + len(m.questionnaires) + len(m.positionSets)
}

// Writes returns how many inserts and updates the store has performed.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}
