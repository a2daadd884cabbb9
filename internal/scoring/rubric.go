package scoring

import (
	"sort"

	"github.com/jonathan/competency-assessment/internal/types"
)

// AggregateRubric computes Σ weight × normalized over every axis, where
// level l normalizes to (l − 1) / 4 × 100. Each declared axis must be graded
// with a level in 1..5; levels for undeclared axes are rejected.
func AggregateRubric(v *ValidatedRubric, input types.RubricInput) (*RawAggregate, error) {
	declared := make(map[string]bool, len(v.axes))
	for _, axis := range v.axes {
		declared[axis.key] = true
	}

	extra := make([]string, 0)
	for key := range input.Levels {
		if !declared[key] {
			extra = append(extra, key)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, &UnknownAxisError{Axis: extra[0]}
	}

	scores := make([]DimensionScore, 0, len(v.axes))
	composite := 0.0
	for _, axis := range v.axes {
		level, ok := input.Levels[axis.key]
		if !ok {
			return nil, &MissingAxisScoreError{Axis: axis.key}
		}
		if level < 1 || level > types.RubricLevelCount {
			return nil, &InvalidLevelError{Axis: axis.key, Level: level}
		}

		normalized := NormalizeLevel(level)
		contribution := axis.weight * normalized
		composite += contribution
		scores = append(scores, DimensionScore{
			Key:                  axis.key,
			Title:                axis.title,
			Raw:                  float64(level),
			Normalized:           normalized,
			Weight:               axis.weight,
			WeightedContribution: contribution,
			Weighted:             true,
		})
	}

	return &RawAggregate{
		method:    MethodRubric,
		hash:      v.hash,
		scores:    scores,
		composite: composite,
		flags:     v.flags,
	}, nil
}

// NormalizeLevel maps a rubric level 1..5 onto 0..100.
func NormalizeLevel(level int) float64 {
	return float64(level-1) / float64(types.RubricLevelCount-1) * ScaleMax
}
