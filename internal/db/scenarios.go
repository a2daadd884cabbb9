package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/types"
)

// ---- Scenario Methods ----

// UpsertScenario inserts or updates a scenario keyed by scenario_code.
// Rows whose content hash is unchanged are left untouched.
func (db *DB) UpsertScenario(ctx context.Context, s *types.ScenarioDefinition) (UpsertOutcome, error) {
	hash, err := scoring.ContentHash(s)
	if err != nil {
		return "", fmt.Errorf("failed to hash scenario %s: %w", s.Code, err)
	}

	cols, err := scenarioColumns(s)
	if err != nil {
		return "", err
	}

	var inserted bool
	err = db.pool.QueryRow(ctx,
		`INSERT INTO scenarios (scenario_code, version, difficulty, title, briefing, decision_prompt,
		                        expected_references, evaluation_axes_json, critical_omission_flags_json,
		                        red_flag_hooks_json, content_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (scenario_code) DO UPDATE SET
		     version = EXCLUDED.version,
		     difficulty = EXCLUDED.difficulty,
		     title = EXCLUDED.title,
		     briefing = EXCLUDED.briefing,
		     decision_prompt = EXCLUDED.decision_prompt,
		     expected_references = EXCLUDED.expected_references,
		     evaluation_axes_json = EXCLUDED.evaluation_axes_json,
		     critical_omission_flags_json = EXCLUDED.critical_omission_flags_json,
		     red_flag_hooks_json = EXCLUDED.red_flag_hooks_json,
		     content_hash = EXCLUDED.content_hash,
		     updated_at = NOW()
		 WHERE scenarios.content_hash <> EXCLUDED.content_hash
		 RETURNING (xmax = 0)`,
		s.Code, s.Version, nullIfEmpty(s.Difficulty), cols.title, cols.briefing, cols.decisionPrompt,
		cols.references, cols.axes, cols.omissions, cols.redFlags, hash,
	).Scan(&inserted)
	if err == pgx.ErrNoRows {
		return OutcomeUnchanged, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to upsert scenario %s: %w", s.Code, err)
	}
	if inserted {
		return OutcomeInserted, nil
	}
	return OutcomeUpdated, nil
}

// GetScenario retrieves a scenario by code. A non-zero version must match
// the stored version.
func (db *DB) GetScenario(ctx context.Context, code string, version int) (*types.ScenarioDefinition, error) {
	var (
		s                             types.ScenarioDefinition
		difficulty                    *string
		title, briefing, prompt, refs []byte
		axes, omissions, redFlags     []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT scenario_code, version, difficulty, title, briefing, decision_prompt,
		        expected_references, evaluation_axes_json, critical_omission_flags_json, red_flag_hooks_json
		 FROM scenarios
		 WHERE scenario_code = $1 AND ($2 = 0 OR version = $2)`,
		code, version,
	).Scan(&s.Code, &s.Version, &difficulty, &title, &briefing, &prompt, &refs, &axes, &omissions, &redFlags)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scenario %s: %w", code, err)
	}
	if difficulty != nil {
		s.Difficulty = *difficulty
	}

	columns := []struct {
		name string
		data []byte
		dst  any
	}{
		{"title", title, &s.Title},
		{"briefing", briefing, &s.Briefing},
		{"decision_prompt", prompt, &s.DecisionPrompt},
		{"expected_references", refs, &s.ExpectedReferences},
		{"evaluation_axes_json", axes, &s.Rubric.Axes},
		{"critical_omission_flags_json", omissions, &s.Rubric.CriticalOmissionFlags},
		{"red_flag_hooks_json", redFlags, &s.Rubric.RedFlagHooks},
	}
	for _, c := range columns {
		if err := unmarshalColumn(c.name, c.data, c.dst); err != nil {
			return nil, err
		}
	}
	return &s, nil
}

// ListScenarios returns all scenarios ordered by code
func (db *DB) ListScenarios(ctx context.Context) ([]ScenarioSummary, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT scenario_code, version, difficulty, title, updated_at
		 FROM scenarios
		 ORDER BY scenario_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to list scenarios: %w", err)
	}
	defer rows.Close()

	var summaries []ScenarioSummary
	for rows.Next() {
		var (
			sum        ScenarioSummary
			difficulty *string
			title      []byte
		)
		if err := rows.Scan(&sum.Code, &sum.Version, &difficulty, &title, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan scenario: %w", err)
		}
		if difficulty != nil {
			sum.Difficulty = *difficulty
		}
		if err := unmarshalColumn("title", title, &sum.Title); err != nil {
			return nil, err
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Scenario implements evaluation.Source.
func (db *DB) Scenario(ctx context.Context, code string, version int) (*types.ScenarioDefinition, error) {
	s, err := db.GetScenario(ctx, code, version)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("scenario %s v%d: %w", code, version, evaluation.ErrNotFound)
	}
	return s, nil
}

type scenarioJSON struct {
	title, briefing, decisionPrompt, references []byte
	axes, omissions, redFlags                   []byte
}

func scenarioColumns(s *types.ScenarioDefinition) (*scenarioJSON, error) {
	refs := s.ExpectedReferences
	if refs == nil {
		refs = []string{}
	}
	omissions := s.Rubric.CriticalOmissionFlags
	if omissions == nil {
		omissions = []types.OmissionFlag{}
	}
	redFlags := s.Rubric.RedFlagHooks
	if redFlags == nil {
		redFlags = []types.RedFlagHook{}
	}

	var (
		cols scenarioJSON
		err  error
	)
	fields := []struct {
		name string
		v    any
		dst  *[]byte
	}{
		{"title", s.Title, &cols.title},
		{"briefing", s.Briefing, &cols.briefing},
		{"decision_prompt", s.DecisionPrompt, &cols.decisionPrompt},
		{"expected_references", refs, &cols.references},
		{"evaluation_axes_json", s.Rubric.Axes, &cols.axes},
		{"critical_omission_flags_json", omissions, &cols.omissions},
		{"red_flag_hooks_json", redFlags, &cols.redFlags},
	}
	for _, f := range fields {
		if *f.dst, err = marshalColumn(f.name, f.v); err != nil {
			return nil, err
		}
	}
	return &cols, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
