//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// Formula names with fixed meaning inside a Likert schema.
const (
	FormulaOverall        = "overall"
	FormulaDimensionScore = "dimension_score"
)

// LikertRange is the inclusive answer range of a questionnaire.
type LikertRange struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Dimension is a construct scored from one or more Likert items.
// Formula, when set, overrides the schema-wide dimension_score formula.
type Dimension struct {
	Key       string        `json:"key" yaml:"key" validate:"required"`
	ItemCount int           `json:"item_count" yaml:"item_count" validate:"min=1"`
	Title     LocalizedText `json:"title,omitempty" yaml:"title,omitempty"`
	Formula   string        `json:"formula,omitempty" yaml:"formula,omitempty"`
}

// LikertSchema describes how raw answers become dimension and overall scores.
type LikertSchema struct {
	Range      LikertRange       `json:"range" yaml:"range"`
	Dimensions []Dimension       `json:"dimensions" yaml:"dimensions" validate:"required,min=1,dive"`
	Formulas   map[string]string `json:"formulas" yaml:"formulas"`
}

// Question belongs to exactly one questionnaire version.
type Question struct {
	Key       string        `json:"key" yaml:"key" validate:"required"`
	Dimension string        `json:"dimension" yaml:"dimension" validate:"required"`
	IsReverse bool          `json:"is_reverse" yaml:"is_reverse"`
	SortOrder int           `json:"sort_order" yaml:"sort_order" validate:"min=1"`
	Text      LocalizedText `json:"text" yaml:"text" validate:"required"`
}

// Questionnaire is one published version of a pulse survey.
// Versions are append-only: a published version never changes its text.
type Questionnaire struct {
	TenantID  string        `json:"tenant_id,omitempty" yaml:"tenant_id,omitempty"`
	Code      string        `json:"code" yaml:"code" validate:"required"`
	Version   int           `json:"version" yaml:"version" validate:"required,min=1"`
	Title     LocalizedText `json:"title" yaml:"title" validate:"required"`
	Published bool          `json:"published" yaml:"published"`
	Schema    LikertSchema  `json:"scoring" yaml:"scoring"`
	Questions []Question    `json:"questions" yaml:"questions" validate:"required,min=1,dive"`
}

// Validate checks the structural constraints of the questionnaire document.
func (q *Questionnaire) Validate() error {
	validate := validator.New()
	return validate.Struct(q)
}

// QuestionnaireRef addresses one questionnaire version. An empty TenantID
// refers to globally shared content.
type QuestionnaireRef struct {
	TenantID string `json:"tenant_id,omitempty"`
	Code     string `json:"code" validate:"required"`
	Version  int    `json:"version" validate:"required,min=1"`
}

// Ref returns the natural key of the questionnaire.
func (q *Questionnaire) Ref() QuestionnaireRef {
	return QuestionnaireRef{TenantID: q.TenantID, Code: q.Code, Version: q.Version}
}
