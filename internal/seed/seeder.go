package seed

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/competency-assessment/internal/db"
	"github.com/jonathan/competency-assessment/internal/types"
)

// Store receives seeded content. *db.DB and *MemoryStore implement it.
type Store interface {
	UpsertScenario(ctx context.Context, s *types.ScenarioDefinition) (db.UpsertOutcome, error)
	UpsertQuestionnaire(ctx context.Context, q *types.Questionnaire) (db.UpsertOutcome, error)
	UpsertPositionQuestionSet(ctx context.Context, p *types.PositionQuestionSet) (db.UpsertOutcome, error)
}

// Options configures a Seeder.
type Options struct {
	Verbose bool
}

// Seeder writes a bundle to a Store.
type Seeder struct {
	store Store
	opts  Options
}

// NewSeeder creates a seeder for store.
func NewSeeder(store Store, opts Options) *Seeder {
	return &Seeder{store: store, opts: opts}
}

// Document kinds reported by the seeder.
const (
	KindScenario      = "scenario"
	KindQuestionnaire = "questionnaire"
	KindPositionSet   = "position_set"
)

// ReportEntry records the outcome for one document.
type ReportEntry struct {
	Kind    string           `json:"kind"`
	Key     string           `json:"key"`
	Outcome db.UpsertOutcome `json:"outcome"`
}

// Report summarizes a seed run.
type Report struct {
	Entries []ReportEntry `json:"entries"`
}

// Count returns how many documents had the given outcome.
func (r *Report) Count(outcome db.UpsertOutcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Outcome == outcome {
			n++
		}
	}
	return n
}

// CountKind returns how many documents of kind had the given outcome.
func (r *Report) CountKind(kind string, outcome db.UpsertOutcome) int {
	n := 0
	for _, e := range r.Entries {
		if e.Kind == kind && e.Outcome == outcome {
			n++
		}
	}
	return n
}

// Changed reports whether the run wrote anything.
func (r *Report) Changed() bool {
	return r.Count(db.OutcomeInserted)+r.Count(db.OutcomeUpdated) > 0
}

// Run validates the whole bundle and then upserts each document in order.
// Nothing is written when validation fails.
func (s *Seeder) Run(ctx context.Context, b *Bundle) (*Report, error) {
	if err := Validate(ctx, b); err != nil {
		return nil, fmt.Errorf("content validation failed: %w", err)
	}

	report := &Report{Entries: make([]ReportEntry, 0, b.Size())}
	record := func(kind, key string, outcome db.UpsertOutcome) {
		report.Entries = append(report.Entries, ReportEntry{Kind: kind, Key: key, Outcome: outcome})
		if s.opts.Verbose {
			log.Printf("[seed] %s %s: %s", kind, key, outcome)
		}
	}

	for _, sc := range b.Scenarios {
		outcome, err := s.store.UpsertScenario(ctx, sc)
		if err != nil {
			return report, b.documentError(sc, err)
		}
		record(KindScenario, fmt.Sprintf("%s@%d", sc.Code, sc.Version), outcome)
	}

	for _, q := range b.Questionnaires {
		outcome, err := s.store.UpsertQuestionnaire(ctx, q)
		if err != nil {
			return report, b.documentError(q, err)
		}
		record(KindQuestionnaire, refString(q.Ref()), outcome)
	}

	for _, ps := range b.PositionSets {
		outcome, err := s.store.UpsertPositionQuestionSet(ctx, ps)
		if err != nil {
			return report, b.documentError(ps, err)
		}
		record(KindPositionSet, fmt.Sprintf("%s/%s@%d", ps.PositionCode, ps.Language, ps.Version), outcome)
	}

	return report, nil
}
