package db

import (
	"strings"
	"testing"

	"github.com/jonathan/competency-assessment/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertOutcomeConstants(t *testing.T) {
	outcomes := []UpsertOutcome{OutcomeInserted, OutcomeUpdated, OutcomeUnchanged}
	seen := map[UpsertOutcome]bool{}
	for _, o := range outcomes {
		assert.NotEmpty(t, o)
		assert.False(t, seen[o], "duplicate outcome %q", o)
		seen[o] = true
	}
}

func TestMigrationNames_Sorted(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)
	require.Equal(t, []string{"001_content.sql", "002_evaluations.sql"}, names)
}

func TestExtractUpMigration(t *testing.T) {
	content := "-- +migrate Up\nCREATE TABLE a (id INT);\n-- +migrate Down\nDROP TABLE a;\n"
	up := ExtractUpMigration(content)
	assert.Contains(t, up, "CREATE TABLE a")
	assert.NotContains(t, up, "DROP TABLE")

	assert.Equal(t, "SELECT 1;", ExtractUpMigration("SELECT 1;"))
	assert.Equal(t, "\nSELECT 1;", ExtractUpMigration("-- +migrate Up\nSELECT 1;"))
}

func TestEmbeddedMigrations_CreateEveryTable(t *testing.T) {
	names, err := MigrationNames()
	require.NoError(t, err)

	var all strings.Builder
	for _, name := range names {
		data, err := migrationFS.ReadFile("migrations/" + name)
		require.NoError(t, err)
		all.WriteString(ExtractUpMigration(string(data)))
	}
	for _, table := range []string{"scenarios", "questionnaires", "questionnaire_questions", "position_question_sets", "evaluations"} {
		assert.Contains(t, all.String(), "CREATE TABLE IF NOT EXISTS "+table+" (")
	}
}

func TestPublishedVersionImmutableError(t *testing.T) {
	err := &PublishedVersionImmutableError{Ref: types.QuestionnaireRef{Code: "crew_pulse", Version: 2}}
	assert.Contains(t, err.Error(), "crew_pulse v2")
	assert.Contains(t, err.Error(), "global")

	err = &PublishedVersionImmutableError{Ref: types.QuestionnaireRef{TenantID: "fleet-a", Code: "crew_pulse", Version: 1}}
	assert.Contains(t, err.Error(), "fleet-a")
}

func TestScenarioColumns_EmptyListsEncodeAsArrays(t *testing.T) {
	s := &types.ScenarioDefinition{
		Code:           "x",
		Version:        1,
		Title:          types.LocalizedText{"en": "X"},
		Briefing:       types.LocalizedText{"en": "b"},
		DecisionPrompt: types.LocalizedText{"en": "p"},
		Rubric:         types.RubricSchema{Axes: []types.Axis{{Key: "a", Weight: 1}}},
	}
	cols, err := scenarioColumns(s)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(cols.references))
	assert.JSONEq(t, `[]`, string(cols.omissions))
	assert.JSONEq(t, `[]`, string(cols.redFlags))
	assert.JSONEq(t, `{"en":"X"}`, string(cols.title))
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	require.NotNil(t, nullIfEmpty("basic"))
	assert.Equal(t, "basic", *nullIfEmpty("basic"))
}
