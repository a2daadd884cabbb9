package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/types"
)

// ---- Position Question Set Methods ----

// UpsertPositionQuestionSet inserts or updates a position question set keyed by
// (version, language, position_code).
func (db *DB) UpsertPositionQuestionSet(ctx context.Context, p *types.PositionQuestionSet) (UpsertOutcome, error) {
	hash, err := scoring.ContentHash(p)
	if err != nil {
		return "", fmt.Errorf("failed to hash position set %s: %w", p.PositionCode, err)
	}
	prompts, err := marshalColumn("prompts_json", p.Prompts)
	if err != nil {
		return "", err
	}

	var inserted bool
	err = db.pool.QueryRow(ctx,
		`INSERT INTO position_question_sets (position_code, language, version, title, prompts_json, content_hash)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (version, language, position_code) DO UPDATE SET
		     title = EXCLUDED.title,
		     prompts_json = EXCLUDED.prompts_json,
		     content_hash = EXCLUDED.content_hash,
		     updated_at = NOW()
		 WHERE position_question_sets.content_hash <> EXCLUDED.content_hash
		 RETURNING (xmax = 0)`,
		p.PositionCode, p.Language, p.Version, p.Title, prompts, hash,
	).Scan(&inserted)
	if err == pgx.ErrNoRows {
		return OutcomeUnchanged, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to upsert position set %s/%s: %w", p.PositionCode, p.Language, err)
	}
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

// GetPositionQuestionSet retrieves the latest version of a position's question set
// in the given language.
func (db *DB) GetPositionQuestionSet(ctx context.Context, positionCode, language string) (*types.PositionQuestionSet, error) {
	var (
		p       types.PositionQuestionSet
		prompts []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT position_code, language, version, title, prompts_json
		 FROM position_question_sets
		 WHERE position_code = $1 AND language = $2
		 ORDER BY version DESC
		 LIMIT 1`,
		positionCode, language,
	).Scan(&p.PositionCode, &p.Language, &p.Version, &p.Title, &prompts)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position set %s/%s: %w", positionCode, language, err)
	}
	if err := unmarshalColumn("prompts_json", prompts, &p.Prompts); err != nil {
		return nil, err
	}
	return &p, nil
}

// PositionQuestionSet returns the latest set for a position in the language
// closest to requested, following the locale fallback chain.
func (db *DB) PositionQuestionSet(ctx context.Context, positionCode, requested string) (*types.PositionQuestionSet, error) {
	for _, lang := range locale.Chain(requested) {
		p, err := db.GetPositionQuestionSet(ctx, positionCode, lang)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("position set %s in %q: %w", positionCode, requested, evaluation.ErrNotFound)
}
