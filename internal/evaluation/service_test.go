package evaluation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu             sync.Mutex
	scenarios      map[string]*types.ScenarioDefinition
	questionnaires map[types.QuestionnaireRef]*types.Questionnaire
	loads          int
}

func (f *fakeSource) Scenario(_ context.Context, code string, version int) (*types.ScenarioDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	s, ok := f.scenarios[fmt.Sprintf("%s@%d", code, version)]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (f *fakeSource) Questionnaire(_ context.Context, ref types.QuestionnaireRef) (*types.Questionnaire, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	q, ok := f.questionnaires[ref]
	if !ok {
		return nil, ErrNotFound
	}
	return q, nil
}

type fakeRecorder struct {
	saved []*scoring.Result
	err   error
}

func (r *fakeRecorder) SaveEvaluation(_ context.Context, result *scoring.Result) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, result)
	return nil
}

func levels() map[int]types.LocalizedText {
	out := map[int]types.LocalizedText{}
	for l := 1; l <= types.RubricLevelCount; l++ {
		out[l] = types.LocalizedText{"en": fmt.Sprintf("level %d", l)}
	}
	return out
}

func testScenario() *types.ScenarioDefinition {
	return &types.ScenarioDefinition{
		Code:    "engine_failure_tss",
		Version: 1,
		Title:   types.LocalizedText{"en": "Engine failure in a TSS lane", "ru": "Отказ двигателя в СРД"},
		Rubric: types.RubricSchema{
			Axes: []types.Axis{
				{Key: "immediate_actions", Weight: 0.5, RubricLevels: levels()},
				{Key: "colregs_compliance", Weight: 0.3, RubricLevels: levels()},
				{Key: "communication", Weight: 0.2, RubricLevels: levels()},
			},
			CriticalOmissionFlags: []types.OmissionFlag{
				{Code: "no_nuc_signal", Text: types.LocalizedText{"en": "NUC lights/shapes not displayed"}, Severity: types.SeverityCritical},
			},
		},
	}
}

func testQuestionnaire() *types.Questionnaire {
	return &types.Questionnaire{
		TenantID: "fleet-a",
		Code:     "pulse",
		Version:  1,
		Title:    types.LocalizedText{"en": "Pulse"},
		Schema: types.LikertSchema{
			Range: types.LikertRange{Min: 1, Max: 5},
			Dimensions: []types.Dimension{
				{Key: "engagement", ItemCount: 1},
				{Key: "retention_intent", ItemCount: 1},
			},
			Formulas: map[string]string{
				types.FormulaOverall: "avg(dimension_scores)",
				"burnout_proxy":      "((min + max - retention_intent.raw) / max) * 100",
			},
		},
		Questions: []types.Question{
			{Key: "q1", Dimension: "engagement", SortOrder: 1, Text: types.LocalizedText{"en": "I am motivated"}},
			{Key: "q2", Dimension: "retention_intent", SortOrder: 2, IsReverse: true, Text: types.LocalizedText{"en": "I plan to leave"}},
		},
	}
}

func newFixture(t *testing.T, opts Options) (*Service, *fakeSource) {
	t.Helper()
	src := &fakeSource{
		scenarios: map[string]*types.ScenarioDefinition{"engine_failure_tss@1": testScenario()},
		questionnaires: map[types.QuestionnaireRef]*types.Questionnaire{
			{TenantID: "fleet-a", Code: "pulse", Version: 1}: testQuestionnaire(),
		},
	}
	if opts.Policy.Rules == nil {
		opts.Policy = scoring.DefaultPolicy()
	}
	svc, err := NewService(src, opts)
	require.NoError(t, err)
	return svc, src
}

func TestNewService(t *testing.T) {
	_, err := NewService(nil, Options{Policy: scoring.DefaultPolicy()})
	assert.Error(t, err)

	_, err = NewService(&fakeSource{}, Options{Policy: scoring.NewPolicy(120, 15, false)})
	require.Error(t, err)
	assert.True(t, scoring.IsConfiguration(err))
}

func TestEvaluateRubric(t *testing.T) {
	recorder := &fakeRecorder{}
	svc, _ := newFixture(t, Options{Recorder: recorder})

	input := types.RubricInput{Levels: map[string]int{"immediate_actions": 5, "colregs_compliance": 5, "communication": 3}}
	result, err := svc.EvaluateRubric(context.Background(), "engine_failure_tss", 1, input, "ru")
	require.NoError(t, err)

	// 0.5*100 + 0.3*100 + 0.2*50
	assert.Equal(t, 90.0, result.Composite())
	assert.False(t, result.Overridden())
	assert.Equal(t, "Отказ двигателя в СРД", result.Title())
	require.Len(t, recorder.saved, 1)
	assert.Equal(t, result.ID(), recorder.saved[0].ID())

	input.Flags = []string{"no_nuc_signal"}
	result, err = svc.EvaluateRubric(context.Background(), "engine_failure_tss", 1, input, "")
	require.NoError(t, err)
	assert.Equal(t, 40.0, result.Composite())
	assert.Equal(t, 90.0, result.RawComposite())
	assert.Equal(t, "en", result.Locale())
}

func TestEvaluateRubric_Errors(t *testing.T) {
	svc, _ := newFixture(t, Options{})
	ctx := context.Background()

	_, err := svc.EvaluateRubric(ctx, "missing", 1, types.RubricInput{Levels: map[string]int{"a": 1}}, "en")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.EvaluateRubric(ctx, "engine_failure_tss", 1, types.RubricInput{}, "en")
	var reqErr *RequestError
	assert.True(t, errors.As(err, &reqErr))

	_, err = svc.EvaluateRubric(ctx, "engine_failure_tss", 1, types.RubricInput{Levels: map[string]int{"immediate_actions": 4}}, "en")
	var missing *scoring.MissingAxisScoreError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "colregs_compliance", missing.Axis)
}

func TestEvaluateRubric_InvalidSchemaIsConfiguration(t *testing.T) {
	svc, src := newFixture(t, Options{})
	bad := testScenario()
	bad.Version = 2
	bad.Rubric.Axes[0].Weight = 0.4
	src.scenarios["engine_failure_tss@2"] = bad

	input := types.RubricInput{Levels: map[string]int{"immediate_actions": 5, "colregs_compliance": 5, "communication": 3}}
	_, err := svc.EvaluateRubric(context.Background(), "engine_failure_tss", 2, input, "en")
	var sumErr *scoring.WeightSumError
	require.True(t, errors.As(err, &sumErr))
	assert.True(t, scoring.IsConfiguration(err))
}

func TestEvaluateLikert(t *testing.T) {
	svc, _ := newFixture(t, Options{})
	ref := types.QuestionnaireRef{TenantID: "fleet-a", Code: "pulse", Version: 1}

	result, err := svc.EvaluateLikert(context.Background(), ref, types.LikertInput{Answers: map[string]int{"q1": 3, "q2": 3}}, "tr")
	require.NoError(t, err)
	assert.Equal(t, 60.0, result.Composite())
	assert.InDelta(t, 60.0, result.DerivedIndices()["burnout_proxy"], 1e-9)
	assert.Equal(t, "fleet-a", result.Ref().TenantID)
	assert.Empty(t, result.Overrides())

	_, err = svc.EvaluateLikert(context.Background(), ref, types.LikertInput{Answers: map[string]int{"q1": 9, "q2": 3}}, "tr")
	var outOfRange *scoring.OutOfRangeAnswerError
	assert.True(t, errors.As(err, &outOfRange))

	_, err = svc.EvaluateLikert(context.Background(), types.QuestionnaireRef{Code: "pulse", Version: 1}, types.LikertInput{Answers: map[string]int{"q1": 3}}, "en")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSchemaCache(t *testing.T) {
	svc, src := newFixture(t, Options{})
	ctx := context.Background()
	input := types.RubricInput{Levels: map[string]int{"immediate_actions": 5, "colregs_compliance": 5, "communication": 3}}

	_, err := svc.EvaluateRubric(ctx, "engine_failure_tss", 1, input, "en")
	require.NoError(t, err)
	_, err = svc.EvaluateRubric(ctx, "engine_failure_tss", 1, input, "en")
	require.NoError(t, err)
	assert.Equal(t, 1, svc.CachedSchemas())

	key := cacheKey{kind: scoring.MethodRubric, code: "engine_failure_tss", version: 1}
	first, ok := svc.cache.entries[key]
	require.True(t, ok)

	// Re-seeding the same version with new weights replaces the entry.
	updated := testScenario()
	updated.Rubric.Axes[0].Weight = 0.6
	updated.Rubric.Axes[1].Weight = 0.2
	src.mu.Lock()
	src.scenarios["engine_failure_tss@1"] = updated
	src.mu.Unlock()

	result, err := svc.EvaluateRubric(ctx, "engine_failure_tss", 1, input, "en")
	require.NoError(t, err)
	assert.Equal(t, 90.0, result.Composite())
	second := svc.cache.entries[key]
	assert.NotEqual(t, first.hash, second.hash)
	assert.NotSame(t, first.schema, second.schema)
	assert.Equal(t, 1, svc.CachedSchemas())
}

func TestConcurrentEvaluations(t *testing.T) {
	svc, _ := newFixture(t, Options{})
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(level int) {
			defer wg.Done()
			input := types.RubricInput{Levels: map[string]int{"immediate_actions": level, "colregs_compliance": 3, "communication": 3}}
			if _, err := svc.EvaluateRubric(ctx, "engine_failure_tss", 1, input, "en"); err != nil {
				errs <- err
			}
		}(i%5 + 1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
