package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/types"
)

// ---- Questionnaire Methods ----

// UpsertQuestionnaire writes a questionnaire and its questions in one
// transaction. A published version whose content changed is rejected with
// PublishedVersionImmutableError.
func (db *DB) UpsertQuestionnaire(ctx context.Context, q *types.Questionnaire) (UpsertOutcome, error) {
	hash, err := scoring.ContentHash(q)
	if err != nil {
		return "", fmt.Errorf("failed to hash questionnaire %s: %w", q.Code, err)
	}
	title, err := marshalColumn("title", q.Title)
	if err != nil {
		return "", err
	}
	scoringJSON, err := marshalColumn("scoring_json", q.Schema)
	if err != nil {
		return "", err
	}

	var outcome UpsertOutcome
	err = pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		var (
			id         uuid.UUID
			storedHash string
			published  bool
		)
		err := tx.QueryRow(ctx,
			`SELECT id, content_hash, published
			 FROM questionnaires
			 WHERE tenant_id = $1 AND code = $2 AND version = $3
			 FOR UPDATE`,
			q.TenantID, q.Code, q.Version,
		).Scan(&id, &storedHash, &published)

		switch {
		case err == pgx.ErrNoRows:
			err = tx.QueryRow(ctx,
				`INSERT INTO questionnaires (tenant_id, code, version, title, scoring_json, published, content_hash)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id`,
				q.TenantID, q.Code, q.Version, title, scoringJSON, q.Published, hash,
			).Scan(&id)
			if err != nil {
				return fmt.Errorf("failed to insert questionnaire %s: %w", q.Code, err)
			}
			outcome = OutcomeInserted
		case err != nil:
			return fmt.Errorf("failed to lock questionnaire %s: %w", q.Code, err)
		case storedHash == hash:
			outcome = OutcomeUnchanged
			return nil
		case published:
			return &PublishedVersionImmutableError{Ref: q.Ref()}
		default:
			_, err = tx.Exec(ctx,
				`UPDATE questionnaires
				 SET title = $2, scoring_json = $3, published = $4, content_hash = $5, updated_at = NOW()
				 WHERE id = $1`,
				id, title, scoringJSON, q.Published, hash,
			)
			if err != nil {
				return fmt.Errorf("failed to update questionnaire %s: %w", q.Code, err)
			}
			if _, err := tx.Exec(ctx, `DELETE FROM questionnaire_questions WHERE questionnaire_id = $1`, id); err != nil {
				return fmt.Errorf("failed to clear questions for %s: %w", q.Code, err)
			}
			outcome = OutcomeUpdated
		}

		return insertQuestions(ctx, tx, id, q.Questions)
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func insertQuestions(ctx context.Context, tx pgx.Tx, questionnaireID uuid.UUID, questions []types.Question) error {
	batch := &pgx.Batch{}
	for _, question := range questions {
		text, err := marshalColumn("text", question.Text)
		if err != nil {
			return err
		}
		batch.Queue(
			`INSERT INTO questionnaire_questions (questionnaire_id, question_key, dimension, is_reverse, sort_order, text)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			questionnaireID, question.Key, question.Dimension, question.IsReverse, question.SortOrder, text,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert questions: %w", err)
	}
	return nil
}

// GetQuestionnaire retrieves a questionnaire for a tenant. Global content
// (empty tenant) is returned when the tenant has no version of its own.
func (db *DB) GetQuestionnaire(ctx context.Context, ref types.QuestionnaireRef) (*types.Questionnaire, error) {
	var (
		q            types.Questionnaire
		id           uuid.UUID
		title, sjson []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, tenant_id, code, version, title, scoring_json, published
		 FROM questionnaires
		 WHERE code = $1 AND version = $2 AND tenant_id IN ($3, '')
		 ORDER BY tenant_id DESC
		 LIMIT 1`,
		ref.Code, ref.Version, ref.TenantID,
	).Scan(&id, &q.TenantID, &q.Code, &q.Version, &title, &sjson, &q.Published)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get questionnaire %s: %w", ref.Code, err)
	}
	if err := unmarshalColumn("title", title, &q.Title); err != nil {
		return nil, err
	}
	if err := unmarshalColumn("scoring_json", sjson, &q.Schema); err != nil {
		return nil, err
	}

	q.Questions, err = db.listQuestions(ctx, id)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (db *DB) listQuestions(ctx context.Context, questionnaireID uuid.UUID) ([]types.Question, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT question_key, dimension, is_reverse, sort_order, text
		 FROM questionnaire_questions
		 WHERE questionnaire_id = $1
		 ORDER BY sort_order`,
		questionnaireID)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []types.Question
	for rows.Next() {
		var (
			question types.Question
			text     []byte
		)
		if err := rows.Scan(&question.Key, &question.Dimension, &question.IsReverse, &question.SortOrder, &text); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		if err := unmarshalColumn("text", text, &question.Text); err != nil {
			return nil, err
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

// Questionnaire implements evaluation.Source.
func (db *DB) Questionnaire(ctx context.Context, ref types.QuestionnaireRef) (*types.Questionnaire, error) {
	q, err := db.GetQuestionnaire(ctx, ref)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("questionnaire %s v%d: %w", ref.Code, ref.Version, evaluation.ErrNotFound)
	}
	return q, nil
}
