package scoring

import (
	"errors"
	"testing"

	"github.com/jonathan/competency-assessment/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLevel(t *testing.T) {
	assert.Equal(t, 0.0, NormalizeLevel(1))
	assert.Equal(t, 25.0, NormalizeLevel(2))
	assert.Equal(t, 50.0, NormalizeLevel(3))
	assert.Equal(t, 75.0, NormalizeLevel(4))
	assert.Equal(t, 100.0, NormalizeLevel(5))
}

func TestAggregateRubric(t *testing.T) {
	v := mustRubric(t, squatSchema())
	input := types.RubricInput{Levels: map[string]int{
		"squat_and_ukc_management":  5,
		"speed_control":             4,
		"bridge_team_communication": 3,
		"contingency_planning":      1,
	}}

	raw, err := AggregateRubric(v, input)
	require.NoError(t, err)
	assert.Equal(t, StageRawAggregated, raw.Stage())
	assert.Equal(t, MethodRubric, raw.Method())
	assert.Equal(t, v.Hash(), raw.SchemaHash())

	// 0.30*100 + 0.30*75 + 0.25*50 + 0.15*0
	assert.InDelta(t, 65.0, raw.composite, 1e-9)

	scores := raw.Scores()
	require.Len(t, scores, 4)
	assert.Equal(t, "squat_and_ukc_management", scores[0].Key)
	assert.Equal(t, 5.0, scores[0].Raw)
	assert.Equal(t, 100.0, scores[0].Normalized)
	assert.InDelta(t, 30.0, scores[0].WeightedContribution, 1e-9)
	assert.InDelta(t, 22.5, scores[1].WeightedContribution, 1e-9)
}

func TestAggregateRubric_Bounds(t *testing.T) {
	v := mustRubric(t, squatSchema())
	all := func(level int) types.RubricInput {
		in := types.RubricInput{Levels: map[string]int{}}
		for _, key := range v.AxisKeys() {
			in.Levels[key] = level
		}
		return in
	}

	low, err := AggregateRubric(v, all(1))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, low.composite, 1e-9)

	high, err := AggregateRubric(v, all(5))
	require.NoError(t, err)
	assert.InDelta(t, 100.0, high.composite, 1e-9)
}

func TestAggregateRubric_Monotonicity(t *testing.T) {
	v := mustRubric(t, squatSchema())
	keys := v.AxisKeys()
	base := map[string]int{}
	for _, key := range keys {
		base[key] = 3
	}

	for _, key := range keys {
		prev := -1.0
		for level := 1; level <= types.RubricLevelCount; level++ {
			levels := map[string]int{}
			for k, l := range base {
				levels[k] = l
			}
			levels[key] = level

			raw, err := AggregateRubric(v, types.RubricInput{Levels: levels})
			require.NoError(t, err)
			assert.GreaterOrEqual(t, raw.composite, prev, "axis %s level %d", key, level)
			prev = raw.composite
		}
	}
}

func TestAggregateRubric_InputErrors(t *testing.T) {
	v := mustRubric(t, squatSchema())
	complete := func() map[string]int {
		return map[string]int{
			"squat_and_ukc_management":  3,
			"speed_control":             3,
			"bridge_team_communication": 3,
			"contingency_planning":      3,
		}
	}

	t.Run("missing axis is never defaulted", func(t *testing.T) {
		levels := complete()
		delete(levels, "contingency_planning")
		_, err := AggregateRubric(v, types.RubricInput{Levels: levels})
		var missing *MissingAxisScoreError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, "contingency_planning", missing.Axis)
		assert.True(t, IsInput(err))
	})

	t.Run("unknown axis", func(t *testing.T) {
		levels := complete()
		levels["helm_orders"] = 4
		_, err := AggregateRubric(v, types.RubricInput{Levels: levels})
		var unknown *UnknownAxisError
		require.True(t, errors.As(err, &unknown))
		assert.Equal(t, "helm_orders", unknown.Axis)
	})

	for _, level := range []int{0, 6, -1} {
		levels := complete()
		levels["speed_control"] = level
		_, err := AggregateRubric(v, types.RubricInput{Levels: levels})
		var invalid *InvalidLevelError
		require.True(t, errors.As(err, &invalid), "level %d", level)
		assert.Equal(t, level, invalid.Level)
		assert.True(t, IsInput(err))
	}
}
