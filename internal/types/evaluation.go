//nolint:revive // types is a standard Go package name pattern
package types

import "github.com/go-playground/validator/v10"

// RubricInput is the graded input for one scenario attempt, produced by an
// external grader: a level per axis plus the omission flags and red-flag
// hooks the grader observed.
type RubricInput struct {
	Levels map[string]int `json:"levels" validate:"required,min=1"`
	Flags  []string       `json:"flags,omitempty" validate:"dive,required"`
}

// Validate checks the request shape. Level ranges and axis coverage are
// checked against the schema by the scoring package.
func (r *RubricInput) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// LikertInput holds raw answers keyed by question key.
type LikertInput struct {
	Answers map[string]int `json:"answers" validate:"required,min=1"`
}

// Validate checks the request shape.
func (r *LikertInput) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// IssueTokenRequest asks for a service token for an API caller.
type IssueTokenRequest struct {
	ClientID string `json:"client_id" validate:"required,min=3,max=64"`
}

// Validate validates the IssueTokenRequest using the validator.
func (r *IssueTokenRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
