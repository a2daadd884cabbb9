package scoring

import "github.com/jonathan/competency-assessment/internal/types"

// Stage is the lifecycle position of an evaluation. Stages only move
// forward: Unevaluated → RawAggregated → OverrideApplied → Finalized.
type Stage string

// Evaluation stages.
const (
	StageUnevaluated     Stage = "unevaluated"
	StageRawAggregated   Stage = "raw_aggregated"
	StageOverrideApplied Stage = "override_applied"
	StageFinalized       Stage = "finalized"
)

// Method names the aggregation that produced a result.
type Method string

// Aggregation methods.
const (
	MethodRubric Method = "rubric"
	MethodLikert Method = "likert"
)

// ScaleMax is the upper bound of every normalized score.
const ScaleMax = 100.0

// DimensionScore is the contribution of one axis or dimension.
// For rubrics Raw is the level; for Likert it is the mean answer after
// reverse coding.
type DimensionScore struct {
	Key                  string
	Title                types.LocalizedText
	Raw                  float64
	Normalized           float64
	Weight               float64
	WeightedContribution float64
	// Weighted is false when the composite cannot be split into per-key
	// contributions; Weight and WeightedContribution are then zero.
	Weighted bool
}

type derivedIndex struct {
	name  string
	value float64
}

// RawAggregate is the output of an aggregator. Its composite is not exposed:
// a score is only observable after the override policy has been applied.
type RawAggregate struct {
	method    Method
	hash      string
	scores    []DimensionScore
	composite float64
	derived   []derivedIndex
	flags     flagCatalog
}

// Stage is always StageRawAggregated.
func (r *RawAggregate) Stage() Stage { return StageRawAggregated }

// Method returns the aggregation method.
func (r *RawAggregate) Method() Method { return r.method }

// SchemaHash is the hash of the validated schema the aggregate was built from.
func (r *RawAggregate) SchemaHash() string { return r.hash }

// Scores returns a copy of the per-dimension breakdown in schema order.
func (r *RawAggregate) Scores() []DimensionScore {
	out := make([]DimensionScore, len(r.scores))
	for i, s := range r.scores {
		s.Title = s.Title.Clone()
		out[i] = s
	}
	return out
}
