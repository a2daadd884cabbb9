package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/server/middleware"
	"github.com/jonathan/competency-assessment/internal/types"
	"golang.org/x/text/language"
)

const maxBodyBytes = 1 << 20

type pinger interface {
	Ping(ctx context.Context) error
}

// handleHealth reports whether the content store is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.content.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.Printf("[health] content store unavailable: %v", err)
			s.jsonResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---- Scenario Handlers ----

func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.content.ListScenarios(r.Context())
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	loc := s.requestLocale(r)
	items := make([]scenarioListItem, 0, len(summaries))
	for _, sum := range summaries {
		items = append(items, newScenarioListItem(sum, loc))
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"locale":    loc,
		"scenarios": items,
	})
}

// handleGetScenario returns a scenario localized for the request. An
// optional ?version= pins the version.
func (s *Server) handleGetScenario(w http.ResponseWriter, r *http.Request) {
	version := 0
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := parseVersion("version", raw)
		if err != nil {
			s.errorResponse(w, r, err)
			return
		}
		version = v
	}

	scenario, err := s.content.Scenario(r.Context(), r.PathValue("code"), version)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newScenarioView(scenario, s.requestLocale(r)))
}

func (s *Server) handleEvaluateRubric(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	version, err := parseVersion("version", r.PathValue("version"))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	var input types.RubricInput
	if err := decodeBody(w, r, &input); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	result, err := s.service.EvaluateRubric(r.Context(), code, version, input, s.requestedLocale(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	if s.verbose {
		clientID, _ := middleware.ClientID(r)
		log.Printf("[evaluate] %s rubric %s v%d: composite=%.2f overridden=%t",
			clientID, code, version, result.Composite(), result.Overridden())
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// ---- Questionnaire Handlers ----

func (s *Server) handleGetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	ref, err := questionnaireRef(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	questionnaire, err := s.content.Questionnaire(r.Context(), ref)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, newQuestionnaireView(questionnaire, s.requestLocale(r)))
}

func (s *Server) handleEvaluateLikert(w http.ResponseWriter, r *http.Request) {
	ref, err := questionnaireRef(r)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	var input types.LikertInput
	if err := decodeBody(w, r, &input); err != nil {
		s.errorResponse(w, r, err)
		return
	}

	result, err := s.service.EvaluateLikert(r.Context(), ref, input, s.requestedLocale(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}

	if s.verbose {
		clientID, _ := middleware.ClientID(r)
		log.Printf("[evaluate] %s likert %s v%d (tenant %q): composite=%.2f",
			clientID, ref.Code, ref.Version, ref.TenantID, result.Composite())
	}
	s.jsonResponse(w, http.StatusOK, result)
}

// ---- Position and Result Handlers ----

func (s *Server) handleGetPositionQuestions(w http.ResponseWriter, r *http.Request) {
	set, err := s.content.PositionQuestionSet(r.Context(), r.PathValue("code"), s.requestLocale(r))
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, set)
}

func (s *Server) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, r, &ErrValidation{Field: "id", Message: "must be a UUID"})
		return
	}
	if s.results == nil {
		s.errorResponse(w, r, fmt.Errorf("evaluation %s: %w", id, evaluation.ErrNotFound))
		return
	}

	snapshot, err := s.results.GetEvaluation(r.Context(), id)
	if err != nil {
		s.errorResponse(w, r, err)
		return
	}
	if snapshot == nil {
		s.errorResponse(w, r, fmt.Errorf("evaluation %s: %w", id, evaluation.ErrNotFound))
		return
	}
	s.jsonResponse(w, http.StatusOK, snapshot)
}

// ---- Request Helpers ----

// requestedLocale returns the caller's locale from ?locale= or the first
// Accept-Language tag, or "" when neither is given.
func (s *Server) requestedLocale(r *http.Request) string {
	if loc := r.URL.Query().Get("locale"); loc != "" {
		return loc
	}
	if header := r.Header.Get("Accept-Language"); header != "" {
		tags, _, err := language.ParseAcceptLanguage(header)
		if err == nil && len(tags) > 0 {
			return tags[0].String()
		}
	}
	return ""
}

// requestLocale is requestedLocale with the server default applied.
func (s *Server) requestLocale(r *http.Request) string {
	if loc := s.requestedLocale(r); loc != "" {
		return locale.Normalize(loc)
	}
	return s.defaultLocale
}

func parseVersion(field, raw string) (int, error) {
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return 0, &ErrValidation{Field: field, Message: "must be a positive integer"}
	}
	return v, nil
}

func questionnaireRef(r *http.Request) (types.QuestionnaireRef, error) {
	version, err := parseVersion("version", r.PathValue("version"))
	if err != nil {
		return types.QuestionnaireRef{}, err
	}
	return types.QuestionnaireRef{
		TenantID: r.URL.Query().Get("tenant"),
		Code:     r.PathValue("code"),
		Version:  version,
	}, nil
}

// decodeBody reads a single JSON object, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &ErrValidation{Field: "body", Message: fmt.Sprintf("exceeds %d bytes", maxErr.Limit)}
		}
		return &ErrValidation{Field: "body", Message: err.Error()}
	}
	if dec.More() {
		return &ErrValidation{Field: "body", Message: "must contain a single JSON object"}
	}
	return nil
}
