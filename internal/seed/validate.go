package seed

import (
	"context"
	"fmt"

	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/types"
	"golang.org/x/sync/errgroup"
)

// Validate checks every document in the bundle. Natural keys are checked
// first; struct and scoring validation then run in parallel. The first
// failure is returned.
func Validate(ctx context.Context, b *Bundle) error {
	if err := checkKeys(b); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, s := range b.Scenarios {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := s.Validate(); err != nil {
				return b.documentError(s, fmt.Errorf("scenario %s: %w", s.Code, err))
			}
			if _, err := scoring.ValidateRubric(s.Rubric); err != nil {
				return b.documentError(s, fmt.Errorf("scenario %s: %w", s.Code, err))
			}
			return nil
		})
	}

	for _, q := range b.Questionnaires {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			if err := q.Validate(); err != nil {
				return b.documentError(q, fmt.Errorf("questionnaire %s: %w", q.Code, err))
			}
			if _, err := scoring.ValidateLikert(q); err != nil {
				return b.documentError(q, fmt.Errorf("questionnaire %s: %w", q.Code, err))
			}
			return nil
		})
	}

	scenarioCodes := make(map[string]bool, len(b.Scenarios))
	for _, s := range b.Scenarios {
		scenarioCodes[s.Code] = true
	}
	for _, ps := range b.PositionSets {
		g.Go(func() error {
			if err := ps.Validate(); err != nil {
				return b.documentError(ps, fmt.Errorf("position set %s/%s: %w", ps.PositionCode, ps.Language, err))
			}
			for _, prompt := range ps.Prompts {
				for _, code := range prompt.ScenarioCodes {
					if !scenarioCodes[code] {
						return b.documentError(ps, fmt.Errorf("position set %s/%s prompt %d references unknown scenario %q",
							ps.PositionCode, ps.Language, prompt.Position, code))
					}
				}
			}
			return nil
		})
	}

	return g.Wait()
}

func checkKeys(b *Bundle) error {
	scenarios := map[string]bool{}
	for _, s := range b.Scenarios {
		if scenarios[s.Code] {
			return b.documentError(s, &scoring.DuplicateKeyError{Scope: "scenario", Name: s.Code})
		}
		scenarios[s.Code] = true
	}

	questionnaires := map[types.QuestionnaireRef]bool{}
	for _, q := range b.Questionnaires {
		ref := q.Ref()
		if questionnaires[ref] {
			return b.documentError(q, &scoring.DuplicateKeyError{Scope: "questionnaire", Name: refString(ref)})
		}
		questionnaires[ref] = true
	}

	positions := map[string]bool{}
	for _, ps := range b.PositionSets {
		key := fmt.Sprintf("%s/%s@%d", ps.PositionCode, ps.Language, ps.Version)
		if positions[key] {
			return b.documentError(ps, &scoring.DuplicateKeyError{Scope: "position set", Name: key})
		}
		positions[key] = true
	}
	return nil
}

func (b *Bundle) documentError(doc any, err error) error {
	if p := b.PathOf(doc); p != "" {
		return &DocumentError{Path: p, Cause: err}
	}
	return err
}

func refString(ref types.QuestionnaireRef) string {
	if ref.TenantID == "" {
		return fmt.Sprintf("%s@%d", ref.Code, ref.Version)
	}
	return fmt.Sprintf("%s/%s@%d", ref.TenantID, ref.Code, ref.Version)
}
