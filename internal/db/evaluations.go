package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/competency-assessment/internal/scoring"
)

// ---- Evaluation Methods ----

// SaveEvaluation stores a finalized result. It implements evaluation.Recorder.
func (db *DB) SaveEvaluation(ctx context.Context, result *scoring.Result) error {
	snapshot := result.Snapshot()
	data, err := marshalColumn("result_json", snapshot)
	if err != nil {
		return err
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO evaluations (id, method, tenant_id, schema_code, schema_version, schema_hash,
		                          locale, composite_score, overridden, result_json, evaluated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (id) DO NOTHING`,
		snapshot.ID, string(snapshot.Method), snapshot.Schema.TenantID, snapshot.Schema.Code,
		snapshot.Schema.Version, snapshot.Schema.Hash, snapshot.Locale, snapshot.CompositeScore,
		snapshot.Overridden, data, snapshot.EvaluatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation %s: %w", snapshot.ID, err)
	}
	return nil
}

// GetEvaluation retrieves a stored result by ID
func (db *DB) GetEvaluation(ctx context.Context, id uuid.UUID) (*scoring.Snapshot, error) {
	var data []byte
	err := db.pool.QueryRow(ctx,
		`SELECT result_json FROM evaluations WHERE id = $1`, id,
	).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluation %s: %w", id, err)
	}

	var snapshot scoring.Snapshot
	if err := unmarshalColumn("result_json", data, &snapshot); err != nil {
		return nil, err
	}
	return &snapshot, nil
}
