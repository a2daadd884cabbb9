package evaluation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jonathan/competency-assessment/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecorder(t *testing.T) {
	recorder := NewMemoryRecorder()
	svc, _ := newFixture(t, Options{Recorder: recorder})
	ctx := context.Background()

	input := types.RubricInput{
		Levels: map[string]int{"immediate_actions": 5, "colregs_compliance": 5, "communication": 3},
		Flags:  []string{"no_nuc_signal"},
	}
	result, err := svc.EvaluateRubric(ctx, "engine_failure_tss", 1, input, "en")
	require.NoError(t, err)

	snapshot, err := recorder.GetEvaluation(ctx, result.ID())
	require.NoError(t, err)
	require.NotNil(t, snapshot)
	assert.Equal(t, 40.0, snapshot.CompositeScore)
	assert.Equal(t, 90.0, snapshot.RawComposite)
	assert.True(t, snapshot.Overridden)

	// Saving again keeps a single entry.
	require.NoError(t, recorder.SaveEvaluation(ctx, result))
	assert.Equal(t, []uuid.UUID{result.ID()}, recorder.IDs())

	missing, err := recorder.GetEvaluation(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
