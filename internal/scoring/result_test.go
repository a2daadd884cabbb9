package scoring

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalize(t *testing.T, raw *RawAggregate, flags []string, requested string) *Result {
	t.Helper()
	adjusted, err := DefaultPolicy().Apply(raw, flags)
	require.NoError(t, err)
	result, err := Assemble(adjusted, Metadata{
		Ref:    SchemaRef{Code: "squat_shallow_channel", Version: 2},
		Title:  types.LocalizedText{"en": "Squat in a shallow channel", "tr": "Sığ kanalda çöküntü"},
		Locale: requested,
	})
	require.NoError(t, err)
	return result
}

func TestAssemble_Rubric(t *testing.T) {
	v := mustRubric(t, squatSchema())
	raw, err := AggregateRubric(v, types.RubricInput{Levels: map[string]int{
		"squat_and_ukc_management":  5,
		"speed_control":             5,
		"bridge_team_communication": 5,
		"contingency_planning":      4,
	}})
	require.NoError(t, err)

	result := finalize(t, raw, []string{"no_ukc_check"}, "tr-TR")
	assert.Equal(t, StageFinalized, result.Stage())
	assert.Equal(t, MethodRubric, result.Method())
	assert.NotEqual(t, uuid.Nil, result.ID())
	assert.False(t, result.EvaluatedAt().IsZero())
	assert.Equal(t, "tr-TR", result.Locale())
	assert.Equal(t, "Sığ kanalda çöküntü", result.Title())
	assert.Equal(t, v.Hash(), result.Ref().Hash)
	assert.Equal(t, "squat_shallow_channel", result.Ref().Code)

	assert.Equal(t, 40.0, result.Composite())
	assert.Equal(t, 96.25, result.RawComposite())
	assert.True(t, result.Overridden())

	breakdown := result.Breakdown()
	assert.Equal(t, "speed_control başlık", breakdown["speed_control"].Label)
	assert.Equal(t, 75.0, breakdown["contingency_planning"].Normalized)
	assert.Equal(t, v.AxisKeys(), result.Keys())

	overrides := result.Overrides()
	require.Len(t, overrides, 1)
	assert.Equal(t, "Kanala girmeden önce UKC kontrolü yok", overrides[0].Label)
	assert.Empty(t, result.DerivedIndices())
}

func TestAssemble_LabelFallback(t *testing.T) {
	v := mustLikert(t, pulseQuestionnaire())
	raw, err := AggregateLikert(v, answers(3, 3, 3, 3, 3))
	require.NoError(t, err)

	result := finalize(t, raw, nil, "az")
	assert.Equal(t, "Squat in a shallow channel", result.Title())
	assert.Equal(t, "engagement", result.Breakdown()["engagement"].Label)
	assert.Equal(t, 60.0, result.Composite())
	assert.InDelta(t, 60.0, result.DerivedIndices()["burnout_proxy"], 1e-9)
	assert.False(t, result.Overridden())
}

func TestAssemble_EmptyTitle(t *testing.T) {
	raw := rawWith(t, 3, 3, 3, 3, 3)
	adjusted, err := DefaultPolicy().Apply(raw, nil)
	require.NoError(t, err)

	_, err = Assemble(adjusted, Metadata{Locale: "en"})
	var noContent *locale.NoContentAvailableError
	require.True(t, errors.As(err, &noContent))
	assert.True(t, IsConfiguration(err))
	kind, _ := KindOf(err)
	assert.Equal(t, KindNoContentAvailable, kind)
}

func TestAssemble_KeepsSuppliedIdentity(t *testing.T) {
	raw := rawWith(t, 3, 3, 3, 3, 3)
	adjusted, err := DefaultPolicy().Apply(raw, nil)
	require.NoError(t, err)

	id := uuid.New()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	result, err := Assemble(adjusted, Metadata{Title: types.LocalizedText{"en": "T"}, ID: id, EvaluatedAt: at})
	require.NoError(t, err)
	assert.Equal(t, id, result.ID())
	assert.Equal(t, at, result.EvaluatedAt())
}

func TestResult_Immutable(t *testing.T) {
	v := mustLikert(t, pulseQuestionnaire())
	raw, err := AggregateLikert(v, answers(3, 3, 3, 3, 3))
	require.NoError(t, err)
	result := finalize(t, raw, nil, "en")

	breakdown := result.Breakdown()
	breakdown["engagement"] = Breakdown{Normalized: 0}
	delete(breakdown, "workload")
	require.NotNil(t, breakdown["psychological_safety"].Weight)
	*breakdown["psychological_safety"].Weight = 9
	derived := result.DerivedIndices()
	derived["burnout_proxy"] = 0
	keys := result.Keys()
	keys[0] = "tampered"

	assert.InDelta(t, 60.0, result.Breakdown()["engagement"].Normalized, 1e-9)
	assert.Contains(t, result.Breakdown(), "workload")
	assert.InDelta(t, 0.2, *result.Breakdown()["psychological_safety"].Weight, 1e-9)
	assert.InDelta(t, 60.0, result.DerivedIndices()["burnout_proxy"], 1e-9)
	assert.Equal(t, "engagement", result.Keys()[0])
}

func TestResult_UnweightedBreakdownOmitsWeights(t *testing.T) {
	q := pulseQuestionnaire()
	q.Schema.Formulas[types.FormulaOverall] = "min(dimension_scores)"
	raw, err := AggregateLikert(mustLikert(t, q), answers(3, 3, 3, 3, 3))
	require.NoError(t, err)
	result := finalize(t, raw, nil, "en")

	b := result.Breakdown()["engagement"]
	assert.Nil(t, b.Weight)
	assert.Nil(t, b.WeightedContribution)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "weighted_contribution")
	assert.Contains(t, string(data), `"per_axis_or_dimension"`)
}

func TestResult_MarshalJSON(t *testing.T) {
	raw := rawWith(t, 5, 5, 5, 5, 4)
	result := finalize(t, raw, []string{"no_ukc_check", "late_report"}, "en")

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result.ID(), decoded.ID)
	assert.Equal(t, 40.0, decoded.CompositeScore)
	assert.Equal(t, 95.0, decoded.RawComposite)
	assert.True(t, decoded.Overridden)
	require.Len(t, decoded.Overrides, 2)
	assert.Equal(t, EffectCap, decoded.Overrides[0].Effect)
	assert.Equal(t, EffectAdvisory, decoded.Overrides[1].Effect)
	assert.Contains(t, string(data), `"per_axis_or_dimension"`)
	assert.Contains(t, string(data), `"triggered_overrides"`)
}

func TestRoundHalfEven(t *testing.T) {
	assert.Equal(t, 0.12, RoundHalfEven(0.125, 2))
	assert.Equal(t, 0.38, RoundHalfEven(0.375, 2))
	assert.Equal(t, 2.0, RoundHalfEven(2.5, 0))
	assert.Equal(t, 4.0, RoundHalfEven(3.5, 0))
	assert.Equal(t, 66.67, RoundHalfEven(200.0/3.0, 2))
}
