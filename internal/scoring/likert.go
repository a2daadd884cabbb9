package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/competency-assessment/internal/formula"
	"github.com/jonathan/competency-assessment/internal/types"
)

// AggregateLikert scores raw answers against a validated questionnaire.
// Reverse-coded items are transformed to (min + max − value), each dimension
// takes the mean of its items, the dimension formula maps that mean onto
// 0..100, and the overall formula yields the composite. Derived indices
// are computed last and may read the overall score.
func AggregateLikert(v *ValidatedLikert, input types.LikertInput) (*RawAggregate, error) {
	unknown := make([]string, 0)
	for key := range input.Answers {
		if _, ok := v.byKey[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, &UnknownQuestionError{Question: unknown[0]}
	}

	lo, hi := v.rng.Min, v.rng.Max
	sums := make(map[string]float64, len(v.dimensions))
	for _, question := range v.questions {
		value, ok := input.Answers[question.Key]
		if !ok {
			return nil, &MissingAnswerError{Question: question.Key}
		}
		if value < lo || value > hi {
			return nil, &OutOfRangeAnswerError{Question: question.Key, Value: value, Min: lo, Max: hi}
		}
		if question.IsReverse {
			value = ReverseCode(value, v.rng)
		}
		sums[question.Dimension] += float64(value)
	}

	env := formula.Env{
		Scalars: map[string]float64{varMin: float64(lo), varMax: float64(hi)},
		Vectors: map[string][]float64{},
	}
	scores := make([]DimensionScore, 0, len(v.dimensions))
	vector := make([]float64, 0, len(v.dimensions))

	for i, dim := range v.dimensions {
		mean := sums[dim.key] / float64(dim.itemCount)
		normalized, err := dim.program.Eval(formula.Env{Scalars: map[string]float64{
			varRawValue: mean,
			varMin:      float64(lo),
			varMax:      float64(hi),
		}})
		if err != nil {
			return nil, &FormulaEvalError{Formula: dim.program.Source(), Cause: err}
		}

		env.Scalars[dim.key] = normalized
		env.Scalars[dim.key+suffixScore] = normalized
		env.Scalars[dim.key+suffixRaw] = mean
		vector = append(vector, normalized)
		score := DimensionScore{
			Key:        dim.key,
			Title:      dim.title,
			Raw:        mean,
			Normalized: normalized,
		}
		if v.weights != nil {
			score.Weight = v.weights[i]
			score.WeightedContribution = normalized * v.weights[i]
			score.Weighted = true
		}
		scores = append(scores, score)
	}
	env.Vectors[varDimensionScores] = vector

	overall, err := v.overall.Eval(env)
	if err != nil {
		return nil, &FormulaEvalError{Formula: types.FormulaOverall, Cause: err}
	}
	if overall < 0 || overall > ScaleMax {
		return nil, &FormulaEvalError{
			Formula: types.FormulaOverall,
			Cause:   fmt.Errorf("score %v is outside [0, %v]", overall, ScaleMax),
		}
	}

	env.Scalars[types.FormulaOverall] = overall
	derived := make([]derivedIndex, 0, len(v.derived))
	for _, d := range v.derived {
		value, err := d.program.Eval(env)
		if err != nil {
			return nil, &FormulaEvalError{Formula: d.name, Cause: err}
		}
		derived = append(derived, derivedIndex{name: d.name, value: value})
	}

	return &RawAggregate{
		method:    MethodLikert,
		hash:      v.hash,
		scores:    scores,
		composite: overall,
		derived:   derived,
		flags:     flagCatalog{},
	}, nil
}

// ReverseCode maps value to (min + max − value). Applying it twice returns
// the original value.
func ReverseCode(value int, rng types.LikertRange) int {
	return rng.Min + rng.Max - value
}

// weightTolerance bounds the error accepted when recovering weights.
const weightTolerance = 1e-6

// overallWeights recovers each dimension's weight when the overall formula
// is a linear combination of dimension scores with no constant term and no
// dependence on raw means. It reports false for any other formula.
func overallWeights(overall *formula.Program, dims []validatedDimension, rng types.LikertRange) ([]float64, bool) {
	lo, hi := float64(rng.Min), float64(rng.Max)
	eval := func(scores []float64, raw float64) (float64, bool) {
		env := formula.Env{
			Scalars: map[string]float64{varMin: lo, varMax: hi},
			Vectors: map[string][]float64{varDimensionScores: scores},
		}
		for i, d := range dims {
			env.Scalars[d.key] = scores[i]
			env.Scalars[d.key+suffixScore] = scores[i]
			env.Scalars[d.key+suffixRaw] = raw
		}
		value, err := overall.Eval(env)
		return value, err == nil
	}

	n := len(dims)
	for _, raw := range []float64{lo, hi} {
		constant, ok := eval(make([]float64, n), raw)
		if !ok || math.Abs(constant) > weightTolerance {
			return nil, false
		}
	}

	weights := make([]float64, n)
	for i := range dims {
		unit := make([]float64, n)
		unit[i] = ScaleMax
		value, ok := eval(unit, lo)
		if !ok {
			return nil, false
		}
		weights[i] = value / ScaleMax
	}

	// Mixed points with other raw means confirm the formula is linear.
	for k, raw := range []float64{hi, (lo + hi) / 2} {
		scores := make([]float64, n)
		want := 0.0
		for i := range scores {
			scores[i] = float64((i*37 + k*53 + 11) % 101)
			want += weights[i] * scores[i]
		}
		got, ok := eval(scores, raw)
		if !ok || math.Abs(got-want) > weightTolerance {
			return nil, false
		}
	}
	return weights, true
}
