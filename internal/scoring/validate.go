package scoring

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/competency-assessment/internal/formula"
	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/types"
)

// WeightEpsilon is the tolerance for the axis weight sum.
const WeightEpsilon = 1e-6

// DefaultDimensionFormula maps a dimension mean onto 0..100.
const DefaultDimensionFormula = "(raw_value / max) * 100"

// Names bound in the formula scopes.
const (
	varRawValue        = "raw_value"
	varMin             = "min"
	varMax             = "max"
	varDimensionScores = "dimension_scores"
	suffixScore        = ".score"
	suffixRaw          = ".raw"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// reservedNames cannot be used as dimension keys or derived formula names.
var reservedNames = map[string]bool{
	varRawValue:                 true,
	varMin:                      true,
	varMax:                      true,
	varDimensionScores:          true,
	types.FormulaOverall:        true,
	types.FormulaDimensionScore: true,
}

// FlagSource says where a triggerable flag was declared.
type FlagSource string

// Flag sources.
const (
	SourceCriticalOmission FlagSource = "critical_omission"
	SourceRedFlag          FlagSource = "red_flag"
)

// flagDef is a triggerable flag resolved from a rubric schema.
type flagDef struct {
	source   FlagSource
	ref      string
	label    types.LocalizedText
	severity types.Severity
}

// flagCatalog resolves grader-supplied references to declared flags.
type flagCatalog struct {
	byRef map[string]flagDef
}

func (c flagCatalog) lookup(ref string) (flagDef, bool) {
	def, ok := c.byRef[normalizeRef(ref)]
	return def, ok
}

func normalizeRef(ref string) string {
	return strings.ToLower(strings.TrimSpace(ref))
}

type validatedAxis struct {
	key    string
	weight float64
	title  types.LocalizedText
}

// ValidatedRubric is a rubric schema that passed validation. Weights are
// rescaled to sum to exactly 1.
type ValidatedRubric struct {
	axes  []validatedAxis
	flags flagCatalog
	hash  string
}

// Hash is the sha256 of the canonical schema encoding.
func (v *ValidatedRubric) Hash() string { return v.hash }

// AxisKeys returns axis keys in declaration order.
func (v *ValidatedRubric) AxisKeys() []string {
	out := make([]string, len(v.axes))
	for i, axis := range v.axes {
		out[i] = axis.key
	}
	return out
}

// Weights returns the normalized weight of each axis.
func (v *ValidatedRubric) Weights() map[string]float64 {
	out := make(map[string]float64, len(v.axes))
	for _, axis := range v.axes {
		out[axis.key] = axis.weight
	}
	return out
}

// ValidateRubric checks a rubric schema: non-empty unique axes, weights in
// (0, 1] summing to 1 within WeightEpsilon, levels 1..5 described on every
// axis, and flags with known severities and unique references.
func ValidateRubric(schema types.RubricSchema) (*ValidatedRubric, error) {
	seen := make(map[string]bool, len(schema.Axes))
	sum := 0.0
	for _, axis := range schema.Axes {
		if seen[axis.Key] {
			return nil, &DuplicateKeyError{Scope: "axis", Name: axis.Key}
		}
		seen[axis.Key] = true

		if axis.Weight <= 0 || axis.Weight > 1 || math.IsNaN(axis.Weight) {
			return nil, &InvalidWeightError{Axis: axis.Key, Weight: axis.Weight}
		}
		sum += axis.Weight

		if err := validateLevels(axis); err != nil {
			return nil, err
		}
	}
	if len(schema.Axes) == 0 {
		return nil, &EmptySchemaError{Schema: "rubric", Field: "axes"}
	}
	if math.Abs(sum-1) > WeightEpsilon {
		return nil, &WeightSumError{Sum: sum}
	}

	axes := make([]validatedAxis, len(schema.Axes))
	for i, axis := range schema.Axes {
		axes[i] = validatedAxis{key: axis.Key, weight: axis.Weight / sum, title: axis.Title.Clone()}
	}

	catalog, err := buildFlagCatalog(schema)
	if err != nil {
		return nil, err
	}

	hash, err := ContentHash(schema)
	if err != nil {
		return nil, err
	}
	return &ValidatedRubric{axes: axes, flags: catalog, hash: hash}, nil
}

func validateLevels(axis types.Axis) error {
	for level := range axis.RubricLevels {
		if level < 1 || level > types.RubricLevelCount {
			return &UnexpectedRubricLevelError{Axis: axis.Key, Level: level}
		}
	}
	for level := 1; level <= types.RubricLevelCount; level++ {
		if len(axis.RubricLevels[level].Locales()) == 0 {
			return &MissingRubricLevelError{Axis: axis.Key, Level: level}
		}
	}
	return nil
}

func buildFlagCatalog(schema types.RubricSchema) (flagCatalog, error) {
	catalog := flagCatalog{byRef: make(map[string]flagDef)}
	add := func(def flagDef) error {
		key := normalizeRef(def.ref)
		if _, exists := catalog.byRef[key]; exists {
			return &DuplicateKeyError{Scope: "flag", Name: def.ref}
		}
		catalog.byRef[key] = def
		return nil
	}

	for i, flag := range schema.CriticalOmissionFlags {
		ref := strings.TrimSpace(flag.Code)
		if ref == "" {
			ref = strings.TrimSpace(flag.Text[locale.DefaultLocale])
		}
		if ref == "" {
			return flagCatalog{}, &InvalidFlagError{Source: SourceCriticalOmission, Index: i}
		}
		if !flag.Severity.Valid() {
			return flagCatalog{}, &UnknownSeverityError{Ref: "critical omission flag " + ref, Severity: flag.Severity}
		}
		def := flagDef{source: SourceCriticalOmission, ref: ref, label: flag.Text.Clone(), severity: flag.Severity}
		if err := add(def); err != nil {
			return flagCatalog{}, err
		}
	}

	for i, hook := range schema.RedFlagHooks {
		ref := strings.TrimSpace(hook.Code)
		if ref == "" {
			return flagCatalog{}, &InvalidFlagError{Source: SourceRedFlag, Index: i}
		}
		if !hook.Severity.Valid() {
			return flagCatalog{}, &UnknownSeverityError{Ref: "red flag " + ref, Severity: hook.Severity}
		}
		def := flagDef{source: SourceRedFlag, ref: ref, label: hook.TriggerGuidance.Clone(), severity: hook.Severity}
		if err := add(def); err != nil {
			return flagCatalog{}, err
		}
	}
	return catalog, nil
}

type validatedDimension struct {
	key       string
	title     types.LocalizedText
	itemCount int
	program   *formula.Program
}

type namedProgram struct {
	name    string
	program *formula.Program
}

// ValidatedLikert is a questionnaire whose scoring schema passed validation,
// with every formula compiled.
type ValidatedLikert struct {
	rng        types.LikertRange
	dimensions []validatedDimension
	overall    *formula.Program
	// weights are the per-dimension weights of a linear overall formula,
	// nil otherwise.
	weights    []float64
	derived    []namedProgram
	questions  []types.Question
	byKey      map[string]types.Question
	hash       string
}

// Hash is the sha256 of the canonical questionnaire encoding.
func (v *ValidatedLikert) Hash() string { return v.hash }

// Range returns the answer range.
func (v *ValidatedLikert) Range() types.LikertRange { return v.rng }

// DimensionKeys returns dimension keys in declaration order.
func (v *ValidatedLikert) DimensionKeys() []string {
	out := make([]string, len(v.dimensions))
	for i, dim := range v.dimensions {
		out[i] = dim.key
	}
	return out
}

// DerivedNames returns the sorted names of the derived indices.
func (v *ValidatedLikert) DerivedNames() []string {
	out := make([]string, len(v.derived))
	for i, d := range v.derived {
		out[i] = d.name
	}
	return out
}

// ValidateLikert checks a questionnaire version: the range, dimension and
// formula names, that every formula compiles against its scope, and that
// questions map onto declared dimensions with the declared item counts.
func ValidateLikert(q *types.Questionnaire) (*ValidatedLikert, error) {
	schema := q.Schema
	if schema.Range.Min >= schema.Range.Max {
		return nil, &InvalidRangeError{Min: schema.Range.Min, Max: schema.Range.Max}
	}

	dimensions := make([]validatedDimension, 0, len(schema.Dimensions))
	declared := make(map[string]int, len(schema.Dimensions))
	for _, dim := range schema.Dimensions {
		if !validName(dim.Key) {
			return nil, &InvalidKeyError{Scope: "dimension", Name: dim.Key}
		}
		if _, exists := declared[dim.Key]; exists {
			return nil, &DuplicateKeyError{Scope: "dimension", Name: dim.Key}
		}
		if dim.ItemCount < 1 {
			return nil, &InvalidItemCountError{Dimension: dim.Key, ItemCount: dim.ItemCount}
		}
		declared[dim.Key] = len(dimensions)
		dimensions = append(dimensions, validatedDimension{key: dim.Key, title: dim.Title.Clone(), itemCount: dim.ItemCount})
	}
	if len(dimensions) == 0 {
		return nil, &EmptySchemaError{Schema: "likert", Field: "dimensions"}
	}

	dimensionScope := formula.NewScope([]string{varRawValue, varMin, varMax}, nil)
	sharedDimension := DefaultDimensionFormula
	if expr, ok := schema.Formulas[types.FormulaDimensionScore]; ok {
		sharedDimension = expr
	}
	for i, dim := range schema.Dimensions {
		name, expr := types.FormulaDimensionScore, sharedDimension
		if strings.TrimSpace(dim.Formula) != "" {
			name, expr = dim.Key+suffixScore, dim.Formula
		}
		prog, err := compileFormula(name, expr, dimensionScope)
		if err != nil {
			return nil, err
		}
		dimensions[i].program = prog
	}

	overallExpr, ok := schema.Formulas[types.FormulaOverall]
	if !ok || strings.TrimSpace(overallExpr) == "" {
		return nil, &MissingFormulaError{Formula: types.FormulaOverall}
	}
	overallScalars := []string{varMin, varMax}
	for _, dim := range dimensions {
		overallScalars = append(overallScalars, dim.key, dim.key+suffixScore, dim.key+suffixRaw)
	}
	overall, err := compileFormula(types.FormulaOverall, overallExpr, formula.NewScope(overallScalars, []string{varDimensionScores}))
	if err != nil {
		return nil, err
	}

	derivedScope := formula.NewScope(append(overallScalars, types.FormulaOverall), []string{varDimensionScores})
	derivedNames := make([]string, 0, len(schema.Formulas))
	for name := range schema.Formulas {
		if name == types.FormulaOverall || name == types.FormulaDimensionScore {
			continue
		}
		if !validName(name) {
			return nil, &InvalidKeyError{Scope: "formula", Name: name}
		}
		if _, clash := declared[name]; clash {
			return nil, &DuplicateKeyError{Scope: "formula", Name: name}
		}
		derivedNames = append(derivedNames, name)
	}
	sort.Strings(derivedNames)
	derived := make([]namedProgram, 0, len(derivedNames))
	for _, name := range derivedNames {
		prog, err := compileFormula(name, schema.Formulas[name], derivedScope)
		if err != nil {
			return nil, err
		}
		derived = append(derived, namedProgram{name: name, program: prog})
	}

	weights, _ := overallWeights(overall, dimensions, schema.Range)

	questions, byKey, err := validateQuestions(q.Questions, dimensions, declared)
	if err != nil {
		return nil, err
	}

	hash, err := ContentHash(q)
	if err != nil {
		return nil, err
	}

	return &ValidatedLikert{
		rng:        schema.Range,
		dimensions: dimensions,
		overall:    overall,
		weights:    weights,
		derived:    derived,
		questions:  questions,
		byKey:      byKey,
		hash:       hash,
	}, nil
}

func validateQuestions(questions []types.Question, dimensions []validatedDimension, declared map[string]int) ([]types.Question, map[string]types.Question, error) {
	byKey := make(map[string]types.Question, len(questions))
	sortOrders := make(map[int]string, len(questions))
	counts := make(map[string]int, len(dimensions))

	for _, question := range questions {
		if _, exists := byKey[question.Key]; exists {
			return nil, nil, &DuplicateKeyError{Scope: "question", Name: question.Key}
		}
		if other, exists := sortOrders[question.SortOrder]; exists {
			return nil, nil, &DuplicateKeyError{Scope: "sort order", Name: fmt.Sprintf("%d (%s, %s)", question.SortOrder, other, question.Key)}
		}
		if _, ok := declared[question.Dimension]; !ok {
			return nil, nil, &UnknownDimensionError{Question: question.Key, Dimension: question.Dimension}
		}
		byKey[question.Key] = question
		sortOrders[question.SortOrder] = question.Key
		counts[question.Dimension]++
	}

	for _, dim := range dimensions {
		if counts[dim.key] != dim.itemCount {
			return nil, nil, &ItemCountMismatchError{Dimension: dim.key, Declared: dim.itemCount, Actual: counts[dim.key]}
		}
	}

	ordered := make([]types.Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].SortOrder < ordered[j].SortOrder })
	return ordered, byKey, nil
}

// validName reports whether name can be referenced from a formula.
func validName(name string) bool {
	return identifierPattern.MatchString(name) && !reservedNames[name] && !formula.IsKeyword(name)
}

func compileFormula(name, expr string, scope formula.Scope) (*formula.Program, error) {
	prog, err := formula.Compile(expr, scope)
	if err == nil {
		return prog, nil
	}
	var unknown *formula.UnknownIdentifierError
	if errors.As(err, &unknown) {
		return nil, &UnknownFormulaVariableError{Formula: name, Variable: unknown.Name, Cause: err}
	}
	return nil, &FormulaSyntaxError{Formula: name, Cause: err}
}

// ContentHash returns the hex sha256 of v's JSON encoding. Map keys are
// sorted by encoding/json, so equal content hashes equally.
func ContentHash(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("failed to encode content for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
