// Package evaluation is the invocation boundary of the scoring engine. It
// loads content from a Source, caches validated schemas per version, and
// runs the validate → aggregate → override → assemble pipeline.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/types"
)

// ErrNotFound is returned by a Source when the requested content does not exist.
var ErrNotFound = errors.New("content not found")

// Source supplies published content.
type Source interface {
	Scenario(ctx context.Context, code string, version int) (*types.ScenarioDefinition, error)
	Questionnaire(ctx context.Context, ref types.QuestionnaireRef) (*types.Questionnaire, error)
}

// Recorder persists finalized results.
type Recorder interface {
	SaveEvaluation(ctx context.Context, result *scoring.Result) error
}

// Options configures a Service.
type Options struct {
	Policy        scoring.Policy
	DefaultLocale string
	// Recorder is optional; when set, every result is saved before it is returned.
	Recorder Recorder
	Verbose  bool
}

// Service evaluates graded inputs against published content.
type Service struct {
	source        Source
	policy        scoring.Policy
	defaultLocale string
	recorder      Recorder
	verbose       bool
	cache         *schemaCache
}

// NewService validates the policy and builds a service. An invalid policy is
// a configuration error and fails construction.
func NewService(source Source, opts Options) (*Service, error) {
	if source == nil {
		return nil, fmt.Errorf("evaluation source is required")
	}
	if err := opts.Policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid override policy: %w", err)
	}
	defaultLocale := opts.DefaultLocale
	if defaultLocale == "" {
		defaultLocale = locale.DefaultLocale
	}
	return &Service{
		source:        source,
		policy:        opts.Policy,
		defaultLocale: defaultLocale,
		recorder:      opts.Recorder,
		verbose:       opts.Verbose,
		cache:         newSchemaCache(),
	}, nil
}

// EvaluateRubric scores a scenario attempt.
func (s *Service) EvaluateRubric(ctx context.Context, code string, version int, input types.RubricInput, requestedLocale string) (*scoring.Result, error) {
	if err := input.Validate(); err != nil {
		return nil, &RequestError{Message: "invalid rubric input", Cause: err}
	}

	scenario, err := s.source.Scenario(ctx, code, version)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s v%d: %w", code, version, err)
	}

	validated, err := s.rubricSchema(scenario)
	if err != nil {
		return nil, err
	}

	raw, err := scoring.AggregateRubric(validated, input)
	if err != nil {
		return nil, err
	}

	return s.finalize(ctx, raw, input.Flags, scoring.Metadata{
		Ref:    scoring.SchemaRef{Code: scenario.Code, Version: scenario.Version},
		Title:  scenario.Title,
		Locale: s.localeOrDefault(requestedLocale),
	})
}

// EvaluateLikert scores a questionnaire response.
func (s *Service) EvaluateLikert(ctx context.Context, ref types.QuestionnaireRef, input types.LikertInput, requestedLocale string) (*scoring.Result, error) {
	if err := input.Validate(); err != nil {
		return nil, &RequestError{Message: "invalid likert input", Cause: err}
	}

	questionnaire, err := s.source.Questionnaire(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load questionnaire %s v%d: %w", ref.Code, ref.Version, err)
	}

	validated, err := s.likertSchema(questionnaire)
	if err != nil {
		return nil, err
	}

	raw, err := scoring.AggregateLikert(validated, input)
	if err != nil {
		return nil, err
	}

	// Likert schemas declare no flags; the empty override pass keeps every
	// result on the same state machine.
	return s.finalize(ctx, raw, nil, scoring.Metadata{
		Ref:    scoring.SchemaRef{TenantID: questionnaire.TenantID, Code: questionnaire.Code, Version: questionnaire.Version},
		Title:  questionnaire.Title,
		Locale: s.localeOrDefault(requestedLocale),
	})
}

func (s *Service) finalize(ctx context.Context, raw *scoring.RawAggregate, flags []string, meta scoring.Metadata) (*scoring.Result, error) {
	adjusted, err := s.policy.Apply(raw, flags)
	if err != nil {
		return nil, err
	}

	result, err := scoring.Assemble(adjusted, meta)
	if err != nil {
		return nil, err
	}

	if s.verbose {
		log.Printf("Evaluated %s %s v%d: composite=%.2f raw=%.2f overridden=%t",
			result.Method(), meta.Ref.Code, meta.Ref.Version, result.Composite(), result.RawComposite(), result.Overridden())
	}

	if s.recorder != nil {
		if err := s.recorder.SaveEvaluation(ctx, result); err != nil {
			return nil, fmt.Errorf("failed to record evaluation: %w", err)
		}
	}
	return result, nil
}

func (s *Service) localeOrDefault(requested string) string {
	if requested == "" {
		return s.defaultLocale
	}
	return requested
}

// rubricSchema returns the cached validated rubric for the scenario version,
// revalidating when the content hash changed.
func (s *Service) rubricSchema(scenario *types.ScenarioDefinition) (*scoring.ValidatedRubric, error) {
	hash, err := scoring.ContentHash(scenario.Rubric)
	if err != nil {
		return nil, err
	}
	key := cacheKey{kind: scoring.MethodRubric, code: scenario.Code, version: scenario.Version}
	if entry, ok := s.cache.get(key, hash); ok {
		return entry.(*scoring.ValidatedRubric), nil
	}

	validated, err := scoring.ValidateRubric(scenario.Rubric)
	if err != nil {
		return nil, fmt.Errorf("scenario %s v%d has an invalid rubric: %w", scenario.Code, scenario.Version, err)
	}
	s.cache.put(key, hash, validated)
	return validated, nil
}

func (s *Service) likertSchema(q *types.Questionnaire) (*scoring.ValidatedLikert, error) {
	hash, err := scoring.ContentHash(q)
	if err != nil {
		return nil, err
	}
	key := cacheKey{kind: scoring.MethodLikert, tenant: q.TenantID, code: q.Code, version: q.Version}
	if entry, ok := s.cache.get(key, hash); ok {
		return entry.(*scoring.ValidatedLikert), nil
	}

	validated, err := scoring.ValidateLikert(q)
	if err != nil {
		return nil, fmt.Errorf("questionnaire %s v%d is invalid: %w", q.Code, q.Version, err)
	}
	s.cache.put(key, hash, validated)
	return validated, nil
}

// CachedSchemas returns the number of validated schemas held in memory.
func (s *Service) CachedSchemas() int {
	return s.cache.len()
}

type cacheKey struct {
	kind    scoring.Method
	tenant  string
	code    string
	version int
}

type cacheEntry struct {
	hash   string
	schema any
}

// schemaCache holds validated schemas by version identity. Entries are
// replaced, never mutated, when content under a key changes.
type schemaCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

func newSchemaCache() *schemaCache {
	return &schemaCache{entries: make(map[cacheKey]cacheEntry)}
}

func (c *schemaCache) get(key cacheKey, hash string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || entry.hash != hash {
		return nil, false
	}
	return entry.schema, true
}

func (c *schemaCache) put(key cacheKey, hash string, schema any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{hash: hash, schema: schema}
}

func (c *schemaCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
