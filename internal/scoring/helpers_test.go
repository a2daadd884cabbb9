package scoring

import (
	"fmt"
	"testing"

	"github.com/jonathan/competency-assessment/internal/types"
	"github.com/stretchr/testify/require"
)

func levels() map[int]types.LocalizedText {
	out := make(map[int]types.LocalizedText, types.RubricLevelCount)
	for l := 1; l <= types.RubricLevelCount; l++ {
		out[l] = types.LocalizedText{"en": fmt.Sprintf("Level %d behaviour", l)}
	}
	return out
}

func axis(key string, weight float64) types.Axis {
	return types.Axis{
		Key:          key,
		Weight:       weight,
		Title:        types.LocalizedText{"en": key + " title", "tr": key + " başlık"},
		RubricLevels: levels(),
	}
}

// squatSchema is a four-axis rubric with one flag of each severity and two
// red-flag hooks.
func squatSchema() types.RubricSchema {
	return types.RubricSchema{
		Axes: []types.Axis{
			axis("squat_and_ukc_management", 0.30),
			axis("speed_control", 0.30),
			axis("bridge_team_communication", 0.25),
			axis("contingency_planning", 0.15),
		},
		CriticalOmissionFlags: []types.OmissionFlag{
			{Code: "no_ukc_check", Text: types.LocalizedText{"en": "No UKC check before entering the channel", "tr": "Kanala girmeden önce UKC kontrolü yok"}, Severity: types.SeverityCritical},
			{Code: "no_speed_reduction", Text: types.LocalizedText{"en": "Speed not reduced in shallow water"}, Severity: types.SeverityCritical},
			{Text: types.LocalizedText{"en": "Pilot not briefed"}, Severity: types.SeverityMajor},
			{Code: "late_report", Text: types.LocalizedText{"en": "Late VTS report"}, Severity: types.SeverityMedium},
		},
		RedFlagHooks: []types.RedFlagHook{
			{Code: "overconfidence", TriggerGuidance: types.LocalizedText{"en": "Dismisses squat risk"}, Severity: types.SeverityCritical},
			{Code: "blame_shifting", TriggerGuidance: types.LocalizedText{"en": "Blames the pilot"}, Severity: types.SeverityMajor},
		},
	}
}

// equalSchema has five axes weighted 0.2 so level sets map onto round numbers.
func equalSchema() types.RubricSchema {
	schema := squatSchema()
	schema.Axes = []types.Axis{
		axis("a", 0.2), axis("b", 0.2), axis("c", 0.2), axis("d", 0.2), axis("e", 0.2),
	}
	return schema
}

func mustRubric(t *testing.T, schema types.RubricSchema) *ValidatedRubric {
	t.Helper()
	v, err := ValidateRubric(schema)
	require.NoError(t, err)
	return v
}

// pulseQuestionnaire has five single-item dimensions on a 1..5 scale, with
// retention intent reverse coded and a burnout proxy derived from it.
func pulseQuestionnaire() *types.Questionnaire {
	dims := []string{"engagement", "psychological_safety", "workload", "leadership_trust", "retention_intent"}
	q := &types.Questionnaire{
		Code:    "pulse",
		Version: 1,
		Title:   types.LocalizedText{"en": "Crew pulse", "tr": "Mürettebat nabzı"},
		Schema: types.LikertSchema{
			Range: types.LikertRange{Min: 1, Max: 5},
			Formulas: map[string]string{
				types.FormulaDimensionScore: "(raw_value / max) * 100",
				types.FormulaOverall:        "avg(dimension_scores)",
				"burnout_proxy":             "((min + max - retention_intent.raw) / max) * 100",
			},
		},
	}
	for i, key := range dims {
		q.Schema.Dimensions = append(q.Schema.Dimensions, types.Dimension{
			Key:       key,
			ItemCount: 1,
			Title:     types.LocalizedText{"en": key},
		})
		q.Questions = append(q.Questions, types.Question{
			Key:       fmt.Sprintf("q%d", i+1),
			Dimension: key,
			IsReverse: key == "retention_intent",
			SortOrder: i + 1,
			Text:      types.LocalizedText{"en": "Question about " + key},
		})
	}
	return q
}

func mustLikert(t *testing.T, q *types.Questionnaire) *ValidatedLikert {
	t.Helper()
	v, err := ValidateLikert(q)
	require.NoError(t, err)
	return v
}

func answers(values ...int) types.LikertInput {
	in := types.LikertInput{Answers: map[string]int{}}
	for i, v := range values {
		in.Answers[fmt.Sprintf("q%d", i+1)] = v
	}
	return in
}
