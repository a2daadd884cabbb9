package scoring

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/types"
)

// CompositeDecimals is the precision of the reported composite.
const CompositeDecimals = 2

// SchemaRef identifies the content a result was scored against.
type SchemaRef struct {
	TenantID string `json:"tenant_id,omitempty"`
	Code     string `json:"code"`
	Version  int    `json:"version"`
	Hash     string `json:"hash"`
}

// Metadata is what the assembler needs besides the adjusted aggregate.
type Metadata struct {
	Ref    SchemaRef
	Title  types.LocalizedText
	Locale string
	// ID and EvaluatedAt are generated when zero.
	ID          uuid.UUID
	EvaluatedAt time.Time
}

// Breakdown is the reported contribution of one axis or dimension.
type Breakdown struct {
	Label      string  `json:"label"`
	Raw        float64 `json:"raw"`
	Normalized float64 `json:"normalized"`
	// Weight and WeightedContribution are nil when the composite is not a
	// weighted sum of the normalized scores.
	Weight               *float64 `json:"weight,omitempty"`
	WeightedContribution *float64 `json:"weighted_contribution,omitempty"`
}

// AppliedOverride is a triggered flag with its label resolved.
type AppliedOverride struct {
	Source   FlagSource     `json:"source"`
	Ref      string         `json:"ref"`
	Label    string         `json:"label"`
	Severity types.Severity `json:"severity"`
	Effect   Effect         `json:"effect"`
	Value    float64        `json:"value,omitempty"`
}

// Result is a finalized evaluation. It cannot be modified after assembly;
// every accessor returns a copy.
type Result struct {
	id           uuid.UUID
	method       Method
	ref          SchemaRef
	locale       string
	title        string
	composite    float64
	rawComposite float64
	overridden   bool
	keys         []string
	breakdown    map[string]Breakdown
	overrides    []AppliedOverride
	derived      map[string]float64
	evaluatedAt  time.Time
}

// Assemble finalizes an adjusted aggregate: labels are resolved for the
// requested locale and the composite is rounded half to even. Empty label
// maps fall back to the key; a title map must not be empty.
func Assemble(adjusted *Adjusted, meta Metadata) (*Result, error) {
	title, err := locale.Resolve(meta.Title, meta.Locale)
	if err != nil {
		return nil, err
	}

	id := meta.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	evaluatedAt := meta.EvaluatedAt
	if evaluatedAt.IsZero() {
		evaluatedAt = time.Now().UTC()
	}

	raw := adjusted.raw
	keys := make([]string, 0, len(raw.scores))
	breakdown := make(map[string]Breakdown, len(raw.scores))
	for _, score := range raw.scores {
		label, err := resolveLabel(score.Title, score.Key, meta.Locale)
		if err != nil {
			return nil, err
		}
		keys = append(keys, score.Key)
		b := Breakdown{
			Label:      label,
			Raw:        score.Raw,
			Normalized: score.Normalized,
		}
		if score.Weighted {
			weight, contribution := score.Weight, score.WeightedContribution
			b.Weight, b.WeightedContribution = &weight, &contribution
		}
		breakdown[score.Key] = b
	}

	overrides := make([]AppliedOverride, 0, len(adjusted.overrides))
	for _, o := range adjusted.overrides {
		label, err := resolveLabel(o.Label, o.Ref, meta.Locale)
		if err != nil {
			return nil, err
		}
		overrides = append(overrides, AppliedOverride{
			Source:   o.Source,
			Ref:      o.Ref,
			Label:    label,
			Severity: o.Severity,
			Effect:   o.Effect,
			Value:    o.Value,
		})
	}

	derived := make(map[string]float64, len(raw.derived))
	for _, d := range raw.derived {
		derived[d.name] = d.value
	}

	ref := meta.Ref
	ref.Hash = raw.hash

	return &Result{
		id:           id,
		method:       raw.method,
		ref:          ref,
		locale:       locale.Normalize(meta.Locale),
		title:        title,
		composite:    RoundHalfEven(adjusted.composite, CompositeDecimals),
		rawComposite: RoundHalfEven(raw.composite, CompositeDecimals),
		overridden:   adjusted.overridden,
		keys:         keys,
		breakdown:    breakdown,
		overrides:    overrides,
		derived:      derived,
		evaluatedAt:  evaluatedAt,
	}, nil
}

func resolveLabel(content types.LocalizedText, fallback, requested string) (string, error) {
	if len(content) == 0 {
		return fallback, nil
	}
	return locale.Resolve(content, requested)
}

// RoundHalfEven rounds x to the given number of decimals, sending ties to
// the even neighbour.
func RoundHalfEven(x float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.RoundToEven(x*scale) / scale
}

// Stage is always StageFinalized.
func (r *Result) Stage() Stage { return StageFinalized }

// ID returns the evaluation ID.
func (r *Result) ID() uuid.UUID { return r.id }

// Method returns the aggregation method.
func (r *Result) Method() Method { return r.method }

// Ref returns the schema the result was scored against.
func (r *Result) Ref() SchemaRef { return r.ref }

// Locale returns the canonical requested locale.
func (r *Result) Locale() string { return r.locale }

// Title returns the localized scenario or questionnaire title.
func (r *Result) Title() string { return r.title }

// Composite returns the final composite in [0, 100], rounded to two decimals.
func (r *Result) Composite() float64 { return r.composite }

// RawComposite returns the composite before overrides, rounded for reporting.
func (r *Result) RawComposite() float64 { return r.rawComposite }

// Overridden reports whether a cap or penalty rule changed the score.
func (r *Result) Overridden() bool { return r.overridden }

// EvaluatedAt returns the assembly time.
func (r *Result) EvaluatedAt() time.Time { return r.evaluatedAt }

// Keys returns axis or dimension keys in schema order.
func (r *Result) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Breakdown returns a copy of the per-axis or per-dimension scores.
func (r *Result) Breakdown() map[string]Breakdown {
	out := make(map[string]Breakdown, len(r.breakdown))
	for k, v := range r.breakdown {
		if v.Weight != nil {
			weight := *v.Weight
			v.Weight = &weight
		}
		if v.WeightedContribution != nil {
			contribution := *v.WeightedContribution
			v.WeightedContribution = &contribution
		}
		out[k] = v
	}
	return out
}

// Overrides returns a copy of the triggered overrides, worst tier first.
func (r *Result) Overrides() []AppliedOverride {
	out := make([]AppliedOverride, len(r.overrides))
	copy(out, r.overrides)
	return out
}

// DerivedIndices returns a copy of the derived Likert indices.
func (r *Result) DerivedIndices() map[string]float64 {
	out := make(map[string]float64, len(r.derived))
	for k, v := range r.derived {
		out[k] = v
	}
	return out
}

// Snapshot is the serialized form of a Result.
type Snapshot struct {
	ID             uuid.UUID            `json:"id"`
	Method         Method               `json:"method"`
	Schema         SchemaRef            `json:"schema"`
	Locale         string               `json:"locale"`
	Title          string               `json:"title"`
	CompositeScore float64              `json:"composite_score"`
	RawComposite   float64              `json:"raw_composite"`
	Overridden     bool                 `json:"overridden"`
	Keys           []string             `json:"keys"`
	Breakdown      map[string]Breakdown `json:"per_axis_or_dimension"`
	Overrides      []AppliedOverride    `json:"triggered_overrides"`
	DerivedIndices map[string]float64   `json:"derived_indices,omitempty"`
	EvaluatedAt    time.Time            `json:"evaluated_at"`
}

// Snapshot returns a detached copy of the result's data.
func (r *Result) Snapshot() Snapshot {
	return Snapshot{
		ID:             r.id,
		Method:         r.method,
		Schema:         r.ref,
		Locale:         r.locale,
		Title:          r.title,
		CompositeScore: r.composite,
		RawComposite:   r.rawComposite,
		Overridden:     r.overridden,
		Keys:           r.Keys(),
		Breakdown:      r.Breakdown(),
		Overrides:      r.Overrides(),
		DerivedIndices: r.DerivedIndices(),
		EvaluatedAt:    r.evaluatedAt,
	}
}

// MarshalJSON encodes the result as its Snapshot.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Snapshot())
}
