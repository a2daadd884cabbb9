package seed

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/jonathan/competency-assessment/internal/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbedded(t *testing.T) {
	b, err := LoadEmbedded()
	require.NoError(t, err)

	assert.Len(t, b.Scenarios, 3)
	assert.Len(t, b.Questionnaires, 2)
	assert.Len(t, b.PositionSets, 3)
	assert.Equal(t, 8, b.Size())

	for _, s := range b.Scenarios {
		assert.NotEmpty(t, b.PathOf(s), s.Code)
	}
}

func TestLoadEmbedded_RubricLevelsDecodeAsInts(t *testing.T) {
	b, err := LoadEmbedded()
	require.NoError(t, err)

	for _, s := range b.Scenarios {
		for _, axis := range s.Rubric.Axes {
			for level := 1; level <= 5; level++ {
				assert.NotEmpty(t, axis.RubricLevels[level]["en"], "%s/%s level %d", s.Code, axis.Key, level)
			}
		}
	}
}

const minimalScenario = `
scenario_code: test_case
version: 1
title: {en: Test}
briefing: {en: Brief}
decision_prompt: {en: Decide}
evaluation:
  axes:
    - key: only
      weight: 1
      rubric_levels:
        1: {en: a}
        2: {en: b}
        3: {en: c}
        4: {en: d}
        5: {en: e}
`

func TestLoad_MapFS(t *testing.T) {
	fsys := fstest.MapFS{
		"root/scenarios/test.yaml": {Data: []byte(minimalScenario)},
		"root/scenarios/README.md": {Data: []byte("ignored")},
	}

	b, err := Load(fsys, "root")
	require.NoError(t, err)
	require.Len(t, b.Scenarios, 1)
	assert.Empty(t, b.Questionnaires)
	assert.Equal(t, "root/scenarios/test.yaml", b.PathOf(b.Scenarios[0]))
	assert.Equal(t, "a", b.Scenarios[0].Rubric.Axes[0].RubricLevels[1]["en"])
}

func TestPathOf_EditedCopyKeepsPath(t *testing.T) {
	b := mustLoad(t)
	original := b.PathOf(b.Questionnaires[0])
	require.NotEmpty(t, original)

	edited := *b.Questionnaires[0]
	edited.Title = map[string]string{"en": "Renamed"}
	assert.Equal(t, original, b.PathOf(&edited))

	other := edited
	other.Version = 99
	assert.Empty(t, b.PathOf(&other))
	assert.Empty(t, b.PathOf("not a document"))
}

func TestLoad_SchemaViolation(t *testing.T) {
	fsys := fstest.MapFS{
		"root/scenarios/bad.yaml": {Data: []byte(minimalScenario + "extra_field: true\n")},
	}

	_, err := Load(fsys, "root")
	require.Error(t, err)

	var docErr *DocumentError
	require.True(t, errors.As(err, &docErr))
	assert.Equal(t, "root/scenarios/bad.yaml", docErr.Path)

	var validationErr *schemas.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}

func TestLoad_InvalidYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"root/questionnaires/broken.yaml": {Data: []byte("code: [unterminated\n")},
	}

	_, err := Load(fsys, "root")
	var docErr *DocumentError
	require.True(t, errors.As(err, &docErr))
	assert.Contains(t, err.Error(), "invalid YAML")
}

func TestNormalizeYAML(t *testing.T) {
	in := map[string]any{
		"levels": map[any]any{1: "a", 2: []any{map[any]any{"x": 3}}},
	}
	out := normalizeYAML(in).(map[string]any)
	levels := out["levels"].(map[string]any)
	assert.Equal(t, "a", levels["1"])
	inner := levels["2"].([]any)[0].(map[string]any)
	assert.Equal(t, 3, inner["x"])
}
