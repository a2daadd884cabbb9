//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validScenario() ScenarioDefinition {
	return ScenarioDefinition{
		Code:           "restricted_water_transit",
		Version:        1,
		Difficulty:     "advanced",
		Title:          LocalizedText{"en": "Restricted water transit"},
		Briefing:       LocalizedText{"en": "You are approaching the channel."},
		DecisionPrompt: LocalizedText{"en": "State your plan."},
		Rubric: RubricSchema{
			Axes: []Axis{{Key: "squat_and_ukc_management", Weight: 1}},
		},
	}
}

func TestScenarioDefinition_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *ScenarioDefinition)
		wantErr bool
		errMsg  string
	}{
		{name: "valid scenario", mutate: func(*ScenarioDefinition) {}},
		{
			name:    "missing code",
			mutate:  func(s *ScenarioDefinition) { s.Code = "" },
			wantErr: true,
			errMsg:  "required",
		},
		{
			name:    "zero version",
			mutate:  func(s *ScenarioDefinition) { s.Version = 0 },
			wantErr: true,
			errMsg:  "Version",
		},
		{
			name:    "unknown difficulty",
			mutate:  func(s *ScenarioDefinition) { s.Difficulty = "legendary" },
			wantErr: true,
			errMsg:  "oneof",
		},
		{
			name:    "no axes",
			mutate:  func(s *ScenarioDefinition) { s.Rubric.Axes = nil },
			wantErr: true,
			errMsg:  "Axes",
		},
		{
			name: "omission flag without severity",
			mutate: func(s *ScenarioDefinition) {
				s.Rubric.CriticalOmissionFlags = []OmissionFlag{{Text: LocalizedText{"en": "No pilot card exchange"}}}
			},
			wantErr: true,
			errMsg:  "Severity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validScenario()
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestQuestionnaire_ValidateAndRef(t *testing.T) {
	q := Questionnaire{
		TenantID: "fleet-a",
		Code:     "org_pulse",
		Version:  2,
		Title:    LocalizedText{"en": "Pulse"},
		Schema: LikertSchema{
			Range:      LikertRange{Min: 1, Max: 5},
			Dimensions: []Dimension{{Key: "engagement", ItemCount: 1}},
			Formulas:   map[string]string{FormulaOverall: "avg(dimension_scores)"},
		},
		Questions: []Question{{Key: "q1", Dimension: "engagement", SortOrder: 1, Text: LocalizedText{"en": "I am proud of my vessel."}}},
	}

	require.NoError(t, q.Validate())
	assert.Equal(t, QuestionnaireRef{TenantID: "fleet-a", Code: "org_pulse", Version: 2}, q.Ref())

	q.Questions[0].SortOrder = 0
	assert.Error(t, q.Validate())
}

func TestPositionQuestionSet_Validate(t *testing.T) {
	p := PositionQuestionSet{
		PositionCode: "master",
		Language:     "en",
		Version:      1,
		Title:        "Master interview bank",
		Prompts:      []PositionPrompt{{Position: 1, Text: "Describe your passage plan review."}},
	}
	require.NoError(t, p.Validate())

	p.Prompts = nil
	assert.Error(t, p.Validate())
}

func TestSeverity(t *testing.T) {
	assert.True(t, SeverityCritical.Valid())
	assert.False(t, Severity("catastrophic").Valid())
	assert.Greater(t, SeverityCritical.Rank(), SeverityMajor.Rank())
	assert.Greater(t, SeverityMajor.Rank(), SeverityMedium.Rank())
	assert.Equal(t, 0, Severity("").Rank())
	assert.Equal(t, []Severity{SeverityCritical, SeverityMajor, SeverityMedium}, Severities())
}

func TestLocalizedText_LocalesAndClone(t *testing.T) {
	text := LocalizedText{"tr": "Merhaba", "en": "Hello", "ru": "  "}
	assert.Equal(t, []string{"en", "tr"}, text.Locales())

	clone := text.Clone()
	clone["en"] = "changed"
	assert.Equal(t, "Hello", text["en"])
	assert.Nil(t, LocalizedText(nil).Clone())
}

func TestAxis_RubricLevelsJSONRoundTrip(t *testing.T) {
	axis := Axis{
		Key:    "bridge_team_management",
		Weight: 0.25,
		RubricLevels: map[int]LocalizedText{
			1: {"en": "No briefing"},
			5: {"en": "Closed-loop communication throughout"},
		},
	}
	data, err := json.Marshal(axis)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rubric_levels":{"1":`)

	var decoded Axis
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, axis, decoded)
}

func TestRubricInput_Validate(t *testing.T) {
	in := RubricInput{Levels: map[string]int{"a": 3}}
	assert.NoError(t, in.Validate())

	empty := RubricInput{}
	assert.Error(t, empty.Validate())

	blankFlag := RubricInput{Levels: map[string]int{"a": 3}, Flags: []string{""}}
	assert.Error(t, blankFlag.Validate())
}

func TestIssueTokenRequest_Validate(t *testing.T) {
	assert.NoError(t, (&IssueTokenRequest{ClientID: "lms-gateway"}).Validate())
	assert.Error(t, (&IssueTokenRequest{ClientID: "x"}).Validate())
}
