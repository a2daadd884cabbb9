package scoring

import (
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/competency-assessment/internal/types"
)

// Effect is what an override rule does to the composite.
type Effect string

// Rule effects. EffectSuperseded marks a score-affecting flag whose tier
// lost to a worse one.
const (
	EffectCap        Effect = "cap"
	EffectPenalty    Effect = "penalty"
	EffectAdvisory   Effect = "advisory"
	EffectSuperseded Effect = "superseded"
)

// Default override magnitudes. They are an inferred policy and are meant to
// be set per deployment.
const (
	DefaultCriticalCeiling = 40.0
	DefaultMajorPenalty    = 15.0
)

// Rule binds a severity tier to an effect. Value is the ceiling for
// EffectCap and the points subtracted for EffectPenalty.
type Rule struct {
	Severity types.Severity `json:"severity"`
	Effect   Effect         `json:"effect"`
	Value    float64        `json:"value,omitempty"`
}

// Policy decides how triggered flags adjust a composite. Only the worst
// score-affecting tier is applied; flags never stack. Red-flag hooks are
// advisory unless RedFlagsAffectScore is set.
type Policy struct {
	Rules               []Rule `json:"rules"`
	RedFlagsAffectScore bool   `json:"red_flags_affect_score"`
}

// DefaultPolicy caps critical omissions at 40, subtracts 15 for major ones
// and treats medium as advisory.
func DefaultPolicy() Policy {
	return NewPolicy(DefaultCriticalCeiling, DefaultMajorPenalty, false)
}

// NewPolicy builds the standard three-tier policy with the given magnitudes.
func NewPolicy(ceiling, penalty float64, redFlagsAffectScore bool) Policy {
	return Policy{
		Rules: []Rule{
			{Severity: types.SeverityCritical, Effect: EffectCap, Value: ceiling},
			{Severity: types.SeverityMajor, Effect: EffectPenalty, Value: penalty},
			{Severity: types.SeverityMedium, Effect: EffectAdvisory},
		},
		RedFlagsAffectScore: redFlagsAffectScore,
	}
}

// Validate rejects rules on undefined tiers, duplicate tiers, and
// magnitudes outside the score scale.
func (p Policy) Validate() error {
	seen := make(map[types.Severity]bool, len(p.Rules))
	for _, rule := range p.Rules {
		if !rule.Severity.Valid() {
			return &UnknownSeverityError{Ref: "override rule", Severity: rule.Severity}
		}
		if seen[rule.Severity] {
			return &DuplicateKeyError{Scope: "override rule", Name: string(rule.Severity)}
		}
		seen[rule.Severity] = true

		switch rule.Effect {
		case EffectCap:
			if rule.Value < 0 || rule.Value > ScaleMax || math.IsNaN(rule.Value) {
				return &InvalidPolicyError{Severity: rule.Severity, Message: fmt.Sprintf("ceiling %v is outside [0, %v]", rule.Value, ScaleMax)}
			}
		case EffectPenalty:
			if rule.Value < 0 || rule.Value > ScaleMax || math.IsNaN(rule.Value) {
				return &InvalidPolicyError{Severity: rule.Severity, Message: fmt.Sprintf("penalty %v is outside [0, %v]", rule.Value, ScaleMax)}
			}
		case EffectAdvisory:
		default:
			return &InvalidPolicyError{Severity: rule.Severity, Message: fmt.Sprintf("unknown effect %q", rule.Effect)}
		}
	}
	return nil
}

// rule returns the rule for a tier. Tiers without a rule are advisory.
func (p Policy) rule(severity types.Severity) Rule {
	for _, rule := range p.Rules {
		if rule.Severity == severity {
			return rule
		}
	}
	return Rule{Severity: severity, Effect: EffectAdvisory}
}

// TriggeredOverride is a flag the grader reported and what it did.
type TriggeredOverride struct {
	Source   FlagSource
	Ref      string
	Label    types.LocalizedText
	Severity types.Severity
	Effect   Effect
	Value    float64
}

// Adjusted is an aggregate after the override pass.
type Adjusted struct {
	raw        *RawAggregate
	composite  float64
	overridden bool
	overrides  []TriggeredOverride
}

// Stage is always StageOverrideApplied.
func (a *Adjusted) Stage() Stage { return StageOverrideApplied }

// Composite is the adjusted, unrounded composite.
func (a *Adjusted) Composite() float64 { return a.composite }

// RawComposite is the composite before overrides.
func (a *Adjusted) RawComposite() float64 { return a.raw.composite }

// Overridden reports whether a cap or penalty rule was applied.
func (a *Adjusted) Overridden() bool { return a.overridden }

// Overrides returns a copy of the triggered overrides, worst tier first.
func (a *Adjusted) Overrides() []TriggeredOverride {
	out := make([]TriggeredOverride, len(a.overrides))
	for i, o := range a.overrides {
		o.Label = o.Label.Clone()
		out[i] = o
	}
	return out
}

// Apply resolves the triggered flags against the aggregate's schema and
// applies the worst score-affecting tier. A critical cap never raises a
// score that is already below the ceiling. Unknown flags are rejected.
func (p Policy) Apply(raw *RawAggregate, flags []string) (*Adjusted, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	resolved := make([]flagDef, 0, len(flags))
	seen := make(map[string]bool, len(flags))
	for _, ref := range flags {
		def, ok := raw.flags.lookup(ref)
		if !ok {
			return nil, &UnknownFlagError{Flag: ref}
		}
		key := normalizeRef(def.ref)
		if seen[key] {
			continue
		}
		seen[key] = true
		resolved = append(resolved, def)
	}
	sort.SliceStable(resolved, func(i, j int) bool {
		if resolved[i].severity.Rank() != resolved[j].severity.Rank() {
			return resolved[i].severity.Rank() > resolved[j].severity.Rank()
		}
		return resolved[i].ref < resolved[j].ref
	})

	var worst *Rule
	for _, def := range resolved {
		if !p.affectsScore(def) {
			continue
		}
		rule := p.rule(def.severity)
		if rule.Effect == EffectAdvisory {
			continue
		}
		worst = &rule
		break
	}

	composite := raw.composite
	if worst != nil {
		switch worst.Effect {
		case EffectCap:
			composite = math.Min(composite, worst.Value)
		case EffectPenalty:
			composite = math.Max(composite-worst.Value, 0)
		}
	}

	overrides := make([]TriggeredOverride, 0, len(resolved))
	for _, def := range resolved {
		override := TriggeredOverride{
			Source:   def.source,
			Ref:      def.ref,
			Label:    def.label,
			Severity: def.severity,
			Effect:   EffectAdvisory,
		}
		if p.affectsScore(def) {
			rule := p.rule(def.severity)
			switch {
			case rule.Effect == EffectAdvisory:
			case worst != nil && def.severity == worst.Severity:
				override.Effect = rule.Effect
				override.Value = rule.Value
			default:
				override.Effect = EffectSuperseded
			}
		}
		overrides = append(overrides, override)
	}

	return &Adjusted{
		raw:        raw,
		composite:  composite,
		overridden: worst != nil,
		overrides:  overrides,
	}, nil
}

func (p Policy) affectsScore(def flagDef) bool {
	return def.source == SourceCriticalOmission || p.RedFlagsAffectScore
}
