// Package scoring validates assessment schemas and turns graded inputs into
// immutable evaluation results: rubric and Likert aggregation, the override
// policy for critical omissions, and result assembly.
package scoring

import (
	"errors"
	"fmt"

	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/types"
)

// Kind is a machine-readable error code.
type Kind string

// Configuration error kinds. These are raised when a schema is validated or
// published and are never retryable.
const (
	KindWeightSum             Kind = "WEIGHT_SUM"
	KindInvalidWeight         Kind = "INVALID_WEIGHT"
	KindMissingRubricLevel    Kind = "MISSING_RUBRIC_LEVEL"
	KindUnexpectedRubricLevel Kind = "UNEXPECTED_RUBRIC_LEVEL"
	KindUnknownFormulaVar     Kind = "UNKNOWN_FORMULA_VARIABLE"
	KindFormulaSyntax         Kind = "FORMULA_SYNTAX"
	KindMissingFormula        Kind = "MISSING_FORMULA"
	KindFormulaEval           Kind = "FORMULA_EVAL"
	KindDuplicateKey          Kind = "DUPLICATE_KEY"
	KindInvalidRange          Kind = "INVALID_RANGE"
	KindItemCountMismatch     Kind = "ITEM_COUNT_MISMATCH"
	KindInvalidItemCount      Kind = "INVALID_ITEM_COUNT"
	KindInvalidKey            Kind = "INVALID_KEY"
	KindEmptySchema           Kind = "EMPTY_SCHEMA"
	KindInvalidFlag           Kind = "INVALID_FLAG"
	KindUnknownSeverity       Kind = "UNKNOWN_SEVERITY"
	KindInvalidPolicy         Kind = "INVALID_POLICY"
	KindNoContentAvailable    Kind = "NO_CONTENT_AVAILABLE"
)

// Input error kinds. These are caller mistakes and reject the evaluation
// without a partial result.
const (
	KindMissingAxisScore Kind = "MISSING_AXIS_SCORE"
	KindUnknownAxis      Kind = "UNKNOWN_AXIS"
	KindInvalidLevel     Kind = "INVALID_LEVEL"
	KindOutOfRangeAnswer Kind = "OUT_OF_RANGE_ANSWER"
	KindMissingAnswer    Kind = "MISSING_ANSWER"
	KindUnknownQuestion  Kind = "UNKNOWN_QUESTION"
	KindUnknownDimension Kind = "UNKNOWN_DIMENSION"
	KindUnknownFlag      Kind = "UNKNOWN_FLAG"
)

// Class separates author mistakes from caller mistakes.
type Class string

// Error classes.
const (
	ClassConfiguration Class = "configuration"
	ClassInput         Class = "input"
)

// Error is implemented by every error this package returns.
type Error interface {
	error
	Kind() Kind
	Class() Class
	// Key is the offending axis, dimension, question, formula or flag.
	Key() string
}

// KindOf returns the kind of err, including locale lookups on empty content.
func KindOf(err error) (Kind, bool) {
	var scoringErr Error
	if errors.As(err, &scoringErr) {
		return scoringErr.Kind(), true
	}
	var noContent *locale.NoContentAvailableError
	if errors.As(err, &noContent) {
		return KindNoContentAvailable, true
	}
	return "", false
}

// IsConfiguration reports whether err is a schema or policy authoring error.
func IsConfiguration(err error) bool {
	var scoringErr Error
	if errors.As(err, &scoringErr) {
		return scoringErr.Class() == ClassConfiguration
	}
	var noContent *locale.NoContentAvailableError
	return errors.As(err, &noContent)
}

// IsInput reports whether err is a rejected caller input.
func IsInput(err error) bool {
	var scoringErr Error
	return errors.As(err, &scoringErr) && scoringErr.Class() == ClassInput
}

// -----------------------------------------------------------------------------
// Configuration errors
// -----------------------------------------------------------------------------

// WeightSumError means axis weights do not sum to 1 within WeightEpsilon.
type WeightSumError struct {
	Sum float64
}

func (e *WeightSumError) Error() string {
	return fmt.Sprintf("axis weights sum to %.6f, must sum to 1", e.Sum)
}
func (e *WeightSumError) Kind() Kind   { return KindWeightSum }
func (e *WeightSumError) Class() Class { return ClassConfiguration }
func (e *WeightSumError) Key() string  { return "" }

// InvalidWeightError means an axis weight is outside (0, 1].
type InvalidWeightError struct {
	Axis   string
	Weight float64
}

func (e *InvalidWeightError) Error() string {
	return fmt.Sprintf("axis %q has weight %v, must be in (0, 1]", e.Axis, e.Weight)
}
func (e *InvalidWeightError) Kind() Kind   { return KindInvalidWeight }
func (e *InvalidWeightError) Class() Class { return ClassConfiguration }
func (e *InvalidWeightError) Key() string  { return e.Axis }

// MissingRubricLevelError means an axis lacks a description for a level 1..5.
type MissingRubricLevelError struct {
	Axis  string
	Level int
}

func (e *MissingRubricLevelError) Error() string {
	return fmt.Sprintf("axis %q is missing rubric level %d", e.Axis, e.Level)
}
func (e *MissingRubricLevelError) Kind() Kind   { return KindMissingRubricLevel }
func (e *MissingRubricLevelError) Class() Class { return ClassConfiguration }
func (e *MissingRubricLevelError) Key() string  { return e.Axis }

// UnexpectedRubricLevelError means an axis describes a level outside 1..5.
type UnexpectedRubricLevelError struct {
	Axis  string
	Level int
}

func (e *UnexpectedRubricLevelError) Error() string {
	return fmt.Sprintf("axis %q describes rubric level %d, levels must be 1..5", e.Axis, e.Level)
}
func (e *UnexpectedRubricLevelError) Kind() Kind   { return KindUnexpectedRubricLevel }
func (e *UnexpectedRubricLevelError) Class() Class { return ClassConfiguration }
func (e *UnexpectedRubricLevelError) Key() string  { return e.Axis }

// UnknownFormulaVariableError means a formula references an undeclared
// dimension, variable or function.
type UnknownFormulaVariableError struct {
	Formula  string
	Variable string
	Cause    error
}

func (e *UnknownFormulaVariableError) Error() string {
	return fmt.Sprintf("formula %q references unknown name %q", e.Formula, e.Variable)
}
func (e *UnknownFormulaVariableError) Unwrap() error { return e.Cause }
func (e *UnknownFormulaVariableError) Kind() Kind    { return KindUnknownFormulaVar }
func (e *UnknownFormulaVariableError) Class() Class  { return ClassConfiguration }
func (e *UnknownFormulaVariableError) Key() string   { return e.Formula }

// FormulaSyntaxError means a formula could not be parsed.
type FormulaSyntaxError struct {
	Formula string
	Cause   error
}

func (e *FormulaSyntaxError) Error() string {
	return fmt.Sprintf("formula %q is invalid: %v", e.Formula, e.Cause)
}
func (e *FormulaSyntaxError) Unwrap() error { return e.Cause }
func (e *FormulaSyntaxError) Kind() Kind    { return KindFormulaSyntax }
func (e *FormulaSyntaxError) Class() Class  { return ClassConfiguration }
func (e *FormulaSyntaxError) Key() string   { return e.Formula }

// MissingFormulaError means a required formula (overall) is absent.
type MissingFormulaError struct {
	Formula string
}

func (e *MissingFormulaError) Error() string {
	return fmt.Sprintf("required formula %q is missing", e.Formula)
}
func (e *MissingFormulaError) Kind() Kind   { return KindMissingFormula }
func (e *MissingFormulaError) Class() Class { return ClassConfiguration }
func (e *MissingFormulaError) Key() string  { return e.Formula }

// FormulaEvalError means a compiled formula failed or left [0, 100] while
// scoring. The schema is at fault, not the answers.
type FormulaEvalError struct {
	Formula string
	Cause   error
}

func (e *FormulaEvalError) Error() string {
	return fmt.Sprintf("formula %q failed: %v", e.Formula, e.Cause)
}
func (e *FormulaEvalError) Unwrap() error { return e.Cause }
func (e *FormulaEvalError) Kind() Kind    { return KindFormulaEval }
func (e *FormulaEvalError) Class() Class  { return ClassConfiguration }
func (e *FormulaEvalError) Key() string   { return e.Formula }

// DuplicateKeyError means two axes, dimensions, questions, flags or sort
// orders share a key, or a derived formula reuses a dimension key.
type DuplicateKeyError struct {
	Scope string
	Name  string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate %s key %q", e.Scope, e.Name)
}
func (e *DuplicateKeyError) Kind() Kind   { return KindDuplicateKey }
func (e *DuplicateKeyError) Class() Class { return ClassConfiguration }
func (e *DuplicateKeyError) Key() string  { return e.Name }

// InvalidKeyError means a dimension or formula name is not a formula
// identifier or is one of the reserved names.
type InvalidKeyError struct {
	Scope string
	Name  string
}

func (e *InvalidKeyError) Error() string {
	if identifierPattern.MatchString(e.Name) {
		return fmt.Sprintf("%s key %q is reserved", e.Scope, e.Name)
	}
	return fmt.Sprintf("%s key %q is not a valid identifier", e.Scope, e.Name)
}
func (e *InvalidKeyError) Kind() Kind   { return KindInvalidKey }
func (e *InvalidKeyError) Class() Class { return ClassConfiguration }
func (e *InvalidKeyError) Key() string  { return e.Name }

// EmptySchemaError means a schema declares no axes or no dimensions.
type EmptySchemaError struct {
	Schema string
	Field  string
}

func (e *EmptySchemaError) Error() string {
	return fmt.Sprintf("%s schema declares no %s", e.Schema, e.Field)
}
func (e *EmptySchemaError) Kind() Kind   { return KindEmptySchema }
func (e *EmptySchemaError) Class() Class { return ClassConfiguration }
func (e *EmptySchemaError) Key() string  { return e.Field }

// InvalidRangeError means a Likert range has min >= max.
type InvalidRangeError struct {
	Min, Max int
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("likert range min %d must be below max %d", e.Min, e.Max)
}
func (e *InvalidRangeError) Kind() Kind   { return KindInvalidRange }
func (e *InvalidRangeError) Class() Class { return ClassConfiguration }
func (e *InvalidRangeError) Key() string  { return "range" }

// ItemCountMismatchError means a dimension's declared item count differs
// from the number of questions assigned to it.
type ItemCountMismatchError struct {
	Dimension string
	Declared  int
	Actual    int
}

func (e *ItemCountMismatchError) Error() string {
	return fmt.Sprintf("dimension %q declares %d items but has %d questions", e.Dimension, e.Declared, e.Actual)
}
func (e *ItemCountMismatchError) Kind() Kind   { return KindItemCountMismatch }
func (e *ItemCountMismatchError) Class() Class { return ClassConfiguration }
func (e *ItemCountMismatchError) Key() string  { return e.Dimension }

// InvalidItemCountError means a dimension declares fewer than one item.
type InvalidItemCountError struct {
	Dimension string
	ItemCount int
}

func (e *InvalidItemCountError) Error() string {
	return fmt.Sprintf("dimension %q declares %d items, must declare at least 1", e.Dimension, e.ItemCount)
}
func (e *InvalidItemCountError) Kind() Kind   { return KindInvalidItemCount }
func (e *InvalidItemCountError) Class() Class { return ClassConfiguration }
func (e *InvalidItemCountError) Key() string  { return e.Dimension }

// UnknownDimensionError means a question belongs to an undeclared dimension.
// It is raised when the questionnaire is validated but classed with input
// errors: the question set, not the scoring schema, is wrong.
type UnknownDimensionError struct {
	Question  string
	Dimension string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("question %q references unknown dimension %q", e.Question, e.Dimension)
}
func (e *UnknownDimensionError) Kind() Kind   { return KindUnknownDimension }
func (e *UnknownDimensionError) Class() Class { return ClassInput }
func (e *UnknownDimensionError) Key() string  { return e.Dimension }

// InvalidFlagError means a flag has no usable reference: omission flags
// need a code or English text, red-flag hooks need a code.
type InvalidFlagError struct {
	Source FlagSource
	Index  int
}

func (e *InvalidFlagError) Error() string {
	return fmt.Sprintf("%s flag #%d has no code to reference it by", e.Source, e.Index+1)
}
func (e *InvalidFlagError) Kind() Kind   { return KindInvalidFlag }
func (e *InvalidFlagError) Class() Class { return ClassConfiguration }
func (e *InvalidFlagError) Key() string  { return fmt.Sprintf("%s#%d", e.Source, e.Index+1) }

// UnknownSeverityError means a flag or policy rule names an undefined tier.
type UnknownSeverityError struct {
	Ref      string
	Severity types.Severity
}

func (e *UnknownSeverityError) Error() string {
	return fmt.Sprintf("%s uses undefined severity tier %q", e.Ref, e.Severity)
}
func (e *UnknownSeverityError) Kind() Kind   { return KindUnknownSeverity }
func (e *UnknownSeverityError) Class() Class { return ClassConfiguration }
func (e *UnknownSeverityError) Key() string  { return e.Ref }

// InvalidPolicyError means an override rule has an unusable effect or value.
type InvalidPolicyError struct {
	Severity types.Severity
	Message  string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("override rule for %q: %s", e.Severity, e.Message)
}
func (e *InvalidPolicyError) Kind() Kind   { return KindInvalidPolicy }
func (e *InvalidPolicyError) Class() Class { return ClassConfiguration }
func (e *InvalidPolicyError) Key() string  { return string(e.Severity) }

// -----------------------------------------------------------------------------
// Input errors
// -----------------------------------------------------------------------------

// MissingAxisScoreError means a declared axis was not graded. Ungraded axes
// are never defaulted.
type MissingAxisScoreError struct {
	Axis string
}

func (e *MissingAxisScoreError) Error() string {
	return fmt.Sprintf("no level supplied for axis %q", e.Axis)
}
func (e *MissingAxisScoreError) Kind() Kind   { return KindMissingAxisScore }
func (e *MissingAxisScoreError) Class() Class { return ClassInput }
func (e *MissingAxisScoreError) Key() string  { return e.Axis }

// UnknownAxisError means a level was supplied for an axis the schema lacks.
type UnknownAxisError struct {
	Axis string
}

func (e *UnknownAxisError) Error() string {
	return fmt.Sprintf("level supplied for unknown axis %q", e.Axis)
}
func (e *UnknownAxisError) Kind() Kind   { return KindUnknownAxis }
func (e *UnknownAxisError) Class() Class { return ClassInput }
func (e *UnknownAxisError) Key() string  { return e.Axis }

// InvalidLevelError means a supplied level is outside 1..5.
type InvalidLevelError struct {
	Axis  string
	Level int
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("axis %q level %d is outside 1..%d", e.Axis, e.Level, types.RubricLevelCount)
}
func (e *InvalidLevelError) Kind() Kind   { return KindInvalidLevel }
func (e *InvalidLevelError) Class() Class { return ClassInput }
func (e *InvalidLevelError) Key() string  { return e.Axis }

// OutOfRangeAnswerError means a raw Likert answer is outside [min, max].
type OutOfRangeAnswerError struct {
	Question string
	Value    int
	Min, Max int
}

func (e *OutOfRangeAnswerError) Error() string {
	return fmt.Sprintf("answer %d to question %q is outside [%d, %d]", e.Value, e.Question, e.Min, e.Max)
}
func (e *OutOfRangeAnswerError) Kind() Kind   { return KindOutOfRangeAnswer }
func (e *OutOfRangeAnswerError) Class() Class { return ClassInput }
func (e *OutOfRangeAnswerError) Key() string  { return e.Question }

// MissingAnswerError means a question of the questionnaire was not answered.
type MissingAnswerError struct {
	Question string
}

func (e *MissingAnswerError) Error() string {
	return fmt.Sprintf("question %q was not answered", e.Question)
}
func (e *MissingAnswerError) Kind() Kind   { return KindMissingAnswer }
func (e *MissingAnswerError) Class() Class { return ClassInput }
func (e *MissingAnswerError) Key() string  { return e.Question }

// UnknownQuestionError means an answer references a question not in the version.
type UnknownQuestionError struct {
	Question string
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("answer supplied for unknown question %q", e.Question)
}
func (e *UnknownQuestionError) Kind() Kind   { return KindUnknownQuestion }
func (e *UnknownQuestionError) Class() Class { return ClassInput }
func (e *UnknownQuestionError) Key() string  { return e.Question }

// UnknownFlagError means a triggered flag matches no omission flag or red-flag hook.
type UnknownFlagError struct {
	Flag string
}

func (e *UnknownFlagError) Error() string {
	return fmt.Sprintf("triggered flag %q is not defined by the schema", e.Flag)
}
func (e *UnknownFlagError) Kind() Kind   { return KindUnknownFlag }
func (e *UnknownFlagError) Class() Class { return ClassInput }
func (e *UnknownFlagError) Key() string  { return e.Flag }
