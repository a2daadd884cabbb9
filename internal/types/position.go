//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// PositionPrompt is one interview prompt in a rank-specific question bank.
type PositionPrompt struct {
	Position      int      `json:"position" yaml:"position" validate:"min=1"`
	Text          string   `json:"text" yaml:"text" validate:"required"`
	ScenarioCodes []string `json:"scenario_codes,omitempty" yaml:"scenario_codes,omitempty"`
}

// PositionQuestionSet is the prompt bank for one shipboard position in one
// language, keyed by version + language + position code.
type PositionQuestionSet struct {
	PositionCode string           `json:"position_code" yaml:"position_code" validate:"required"`
	Language     string           `json:"language" yaml:"language" validate:"required"`
	Version      int              `json:"version" yaml:"version" validate:"required,min=1"`
	Title        string           `json:"title" yaml:"title" validate:"required"`
	Prompts      []PositionPrompt `json:"prompts" yaml:"prompts" validate:"required,min=1,dive"`
}

// Validate checks the structural constraints of the question set.
func (p *PositionQuestionSet) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}
