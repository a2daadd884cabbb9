package seed

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonathan/competency-assessment/internal/db"
	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/types"
)

// Catalog serves a bundle as an evaluation.Source, for offline evaluation
// and tests.
type Catalog struct {
	scenarios      map[string]*types.ScenarioDefinition
	questionnaires map[types.QuestionnaireRef]*types.Questionnaire
	positionSets   map[string][]*types.PositionQuestionSet
}

// NewCatalog indexes the documents of b.
func NewCatalog(b *Bundle) *Catalog {
	c := &Catalog{
		scenarios:      make(map[string]*types.ScenarioDefinition, len(b.Scenarios)),
		questionnaires: make(map[types.QuestionnaireRef]*types.Questionnaire, len(b.Questionnaires)),
		positionSets:   map[string][]*types.PositionQuestionSet{},
	}
	for _, s := range b.Scenarios {
		c.scenarios[s.Code] = s
	}
	for _, q := range b.Questionnaires {
		c.questionnaires[q.Ref()] = q
	}
	for _, ps := range b.PositionSets {
		c.positionSets[ps.PositionCode] = append(c.positionSets[ps.PositionCode], ps)
	}
	return c
}

// Scenario implements evaluation.Source. A zero version matches any.
func (c *Catalog) Scenario(_ context.Context, code string, version int) (*types.ScenarioDefinition, error) {
	s, ok := c.scenarios[code]
	if !ok || (version != 0 && s.Version != version) {
		return nil, fmt.Errorf("scenario %s v%d: %w", code, version, evaluation.ErrNotFound)
	}
	return s, nil
}

// Questionnaire implements evaluation.Source. A tenant without its own
// version falls back to global content.
func (c *Catalog) Questionnaire(_ context.Context, ref types.QuestionnaireRef) (*types.Questionnaire, error) {
	if q, ok := c.questionnaires[ref]; ok {
		return q, nil
	}
	global := types.QuestionnaireRef{Code: ref.Code, Version: ref.Version}
	if q, ok := c.questionnaires[global]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("questionnaire %s v%d: %w", ref.Code, ref.Version, evaluation.ErrNotFound)
}

// ListScenarios summarizes the scenarios in code order.
func (c *Catalog) ListScenarios(_ context.Context) ([]db.ScenarioSummary, error) {
	summaries := make([]db.ScenarioSummary, 0, len(c.scenarios))
	for _, code := range c.ScenarioCodes() {
		s := c.scenarios[code]
		summaries = append(summaries, db.ScenarioSummary{
			Code:       s.Code,
			Version:    s.Version,
			Difficulty: s.Difficulty,
			Title:      s.Title.Clone(),
		})
	}
	return summaries, nil
}

// ScenarioCodes returns the scenario codes in sorted order.
func (c *Catalog) ScenarioCodes() []string {
	codes := make([]string, 0, len(c.scenarios))
	for code := range c.scenarios {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// PositionQuestionSet returns the latest set for a position in the language
// closest to requested.
func (c *Catalog) PositionQuestionSet(_ context.Context, positionCode, requested string) (*types.PositionQuestionSet, error) {
	sets := c.positionSets[positionCode]
	if len(sets) == 0 {
		return nil, fmt.Errorf("position set %s: %w", positionCode, evaluation.ErrNotFound)
	}

	for _, lang := range locale.Chain(requested) {
		var best *types.PositionQuestionSet
		for _, ps := range sets {
			if locale.Normalize(ps.Language) == lang && (best == nil || ps.Version > best.Version) {
				best = ps
			}
		}
		if best != nil {
			return best, nil
		}
	}
	return nil, fmt.Errorf("position set %s in %q: %w", positionCode, requested, evaluation.ErrNotFound)
}
