package server

import (
	"slices"

	"github.com/jonathan/competency-assessment/internal/db"
	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/types"
)

// Localized read models. Each text is resolved once for the request locale;
// untitled items fall back to their key.

type scenarioListItem struct {
	Code       string `json:"scenario_code"`
	Version    int    `json:"version"`
	Difficulty string `json:"difficulty,omitempty"`
	Title      string `json:"title"`
}

type scenarioView struct {
	Code               string     `json:"scenario_code"`
	Version            int        `json:"version"`
	Difficulty         string     `json:"difficulty,omitempty"`
	Locale             string     `json:"locale"`
	Title              string     `json:"title"`
	Briefing           string     `json:"briefing"`
	DecisionPrompt     string     `json:"decision_prompt"`
	ExpectedReferences []string   `json:"expected_references,omitempty"`
	Axes               []axisView `json:"axes"`
	OmissionFlags      []flagView `json:"critical_omission_flags,omitempty"`
	RedFlags           []flagView `json:"red_flag_hooks,omitempty"`
}

type axisView struct {
	Key    string         `json:"key"`
	Weight float64        `json:"weight"`
	Title  string         `json:"title"`
	Levels map[int]string `json:"rubric_levels"`
}

type flagView struct {
	Code     string         `json:"code,omitempty"`
	Text     string         `json:"text"`
	Severity types.Severity `json:"severity"`
}

type questionnaireView struct {
	TenantID   string            `json:"tenant_id,omitempty"`
	Code       string            `json:"code"`
	Version    int               `json:"version"`
	Locale     string            `json:"locale"`
	Title      string            `json:"title"`
	Range      types.LikertRange `json:"range"`
	Dimensions []dimensionView   `json:"dimensions"`
	Questions  []questionView    `json:"questions"`
}

type dimensionView struct {
	Key       string `json:"key"`
	Title     string `json:"title"`
	ItemCount int    `json:"item_count"`
}

type questionView struct {
	Key       string `json:"key"`
	Dimension string `json:"dimension"`
	SortOrder int    `json:"sort_order"`
	Text      string `json:"text"`
}

func localize(text types.LocalizedText, requested, fallback string) string {
	if len(text) == 0 {
		return fallback
	}
	value, err := locale.Resolve(text, requested)
	if err != nil {
		return fallback
	}
	return value
}

func newScenarioListItem(sum db.ScenarioSummary, loc string) scenarioListItem {
	return scenarioListItem{
		Code:       sum.Code,
		Version:    sum.Version,
		Difficulty: sum.Difficulty,
		Title:      localize(sum.Title, loc, sum.Code),
	}
}

func newScenarioView(s *types.ScenarioDefinition, loc string) scenarioView {
	view := scenarioView{
		Code:               s.Code,
		Version:            s.Version,
		Difficulty:         s.Difficulty,
		Locale:             loc,
		Title:              localize(s.Title, loc, s.Code),
		Briefing:           localize(s.Briefing, loc, ""),
		DecisionPrompt:     localize(s.DecisionPrompt, loc, ""),
		ExpectedReferences: s.ExpectedReferences,
		Axes:               make([]axisView, 0, len(s.Rubric.Axes)),
	}

	for _, axis := range s.Rubric.Axes {
		levels := make(map[int]string, len(axis.RubricLevels))
		for level, text := range axis.RubricLevels {
			levels[level] = localize(text, loc, "")
		}
		view.Axes = append(view.Axes, axisView{
			Key:    axis.Key,
			Weight: axis.Weight,
			Title:  localize(axis.Title, loc, axis.Key),
			Levels: levels,
		})
	}
	for _, flag := range s.Rubric.CriticalOmissionFlags {
		view.OmissionFlags = append(view.OmissionFlags, flagView{
			Code:     flag.Code,
			Text:     localize(flag.Text, loc, flag.Code),
			Severity: flag.Severity,
		})
	}
	for _, hook := range s.Rubric.RedFlagHooks {
		view.RedFlags = append(view.RedFlags, flagView{
			Code:     hook.Code,
			Text:     localize(hook.TriggerGuidance, loc, hook.Code),
			Severity: hook.Severity,
		})
	}
	return view
}

func newQuestionnaireView(q *types.Questionnaire, loc string) questionnaireView {
	view := questionnaireView{
		TenantID:   q.TenantID,
		Code:       q.Code,
		Version:    q.Version,
		Locale:     loc,
		Title:      localize(q.Title, loc, q.Code),
		Range:      q.Schema.Range,
		Dimensions: make([]dimensionView, 0, len(q.Schema.Dimensions)),
		Questions:  make([]questionView, 0, len(q.Questions)),
	}
	for _, d := range q.Schema.Dimensions {
		view.Dimensions = append(view.Dimensions, dimensionView{
			Key:       d.Key,
			Title:     localize(d.Title, loc, d.Key),
			ItemCount: d.ItemCount,
		})
	}
	// Reverse-coded items are not marked; respondents see plain statements.
	for _, question := range q.Questions {
		view.Questions = append(view.Questions, questionView{
			Key:       question.Key,
			Dimension: question.Dimension,
			SortOrder: question.SortOrder,
			Text:      localize(question.Text, loc, question.Key),
		})
	}
	slices.SortFunc(view.Questions, func(a, b questionView) int {
		return a.SortOrder - b.SortOrder
	})
	return view
}
