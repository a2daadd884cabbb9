//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// RubricLevelCount is the number of discrete rubric levels per axis (1..5).
const RubricLevelCount = 5

// Axis is one weighted competency dimension of a rubric.
type Axis struct {
	Key          string                `json:"key" yaml:"key" validate:"required"`
	Weight       float64               `json:"weight" yaml:"weight"`
	Title        LocalizedText         `json:"title,omitempty" yaml:"title,omitempty"`
	RubricLevels map[int]LocalizedText `json:"rubric_levels" yaml:"rubric_levels"`
}

// OmissionFlag is a safety-critical behavior whose absence overrides axis scoring.
// Graders reference it by Code, or by its English text when no code is authored.
type OmissionFlag struct {
	Code     string        `json:"code,omitempty" yaml:"code,omitempty"`
	Text     LocalizedText `json:"text" yaml:"text" validate:"required"`
	Severity Severity      `json:"severity" yaml:"severity" validate:"required"`
}

// RedFlagHook is an advisory behavior marker for human review.
type RedFlagHook struct {
	Code            string        `json:"code" yaml:"code" validate:"required"`
	TriggerGuidance LocalizedText `json:"trigger_guidance" yaml:"trigger_guidance"`
	Severity        Severity      `json:"severity" yaml:"severity" validate:"required"`
}

// RubricSchema is the weighted-axis scoring schema owned by a scenario.
type RubricSchema struct {
	Axes                  []Axis         `json:"axes" yaml:"axes" validate:"required,min=1,dive"`
	CriticalOmissionFlags []OmissionFlag `json:"critical_omission_flags,omitempty" yaml:"critical_omission_flags,omitempty" validate:"dive"`
	RedFlagHooks          []RedFlagHook  `json:"red_flag_hooks,omitempty" yaml:"red_flag_hooks,omitempty" validate:"dive"`
}

// ScenarioDefinition is a maritime command scenario with its rubric.
// Scenario codes are stable identifiers; re-seeding a code updates it in place.
type ScenarioDefinition struct {
	Code               string        `json:"scenario_code" yaml:"scenario_code" validate:"required"`
	Version            int           `json:"version" yaml:"version" validate:"required,min=1"`
	Difficulty         string        `json:"difficulty,omitempty" yaml:"difficulty,omitempty" validate:"omitempty,oneof=basic intermediate advanced"`
	Title              LocalizedText `json:"title" yaml:"title" validate:"required"`
	Briefing           LocalizedText `json:"briefing" yaml:"briefing" validate:"required"`
	DecisionPrompt     LocalizedText `json:"decision_prompt" yaml:"decision_prompt" validate:"required"`
	ExpectedReferences []string      `json:"expected_references,omitempty" yaml:"expected_references,omitempty"`
	Rubric             RubricSchema  `json:"evaluation" yaml:"evaluation"`
}

// Validate checks the structural constraints of the scenario document.
// Scoring invariants (weight sum, rubric levels) are checked by the scoring package.
func (s *ScenarioDefinition) Validate() error {
	validate := validator.New()
	return validate.Struct(s)
}
