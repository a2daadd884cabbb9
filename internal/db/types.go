package db

import (
	"fmt"
	"time"

	"github.com/jonathan/competency-assessment/internal/types"
)

// UpsertOutcome reports what an idempotent upsert did.
type UpsertOutcome string

// Upsert outcomes
const (
	OutcomeInserted  UpsertOutcome = "inserted"
	OutcomeUpdated   UpsertOutcome = "updated"
	OutcomeUnchanged UpsertOutcome = "unchanged"
)

// ScenarioSummary is a scenario row without its rubric
type ScenarioSummary struct {
	Code       string              `json:"scenario_code"`
	Version    int                 `json:"version"`
	Difficulty string              `json:"difficulty,omitempty"`
	Title      types.LocalizedText `json:"title"`
	UpdatedAt  time.Time           `json:"updated_at"`
}

// PublishedVersionImmutableError is returned when a seed run tries to change
// the content of a published questionnaire version. Changes require a new
// version.
type PublishedVersionImmutableError struct {
	Ref types.QuestionnaireRef
}

func (e *PublishedVersionImmutableError) Error() string {
	tenant := e.Ref.TenantID
	if tenant == "" {
		tenant = "global"
	}
	return fmt.Sprintf("questionnaire %s v%d (%s) is published and cannot be changed; publish a new version",
		e.Ref.Code, e.Ref.Version, tenant)
}
