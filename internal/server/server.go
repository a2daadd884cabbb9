// Package server provides the HTTP API for the assessment content and
// scoring engine.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/competency-assessment/internal/config"
	"github.com/jonathan/competency-assessment/internal/db"
	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/locale"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/server/middleware"
	"github.com/jonathan/competency-assessment/internal/server/ratelimit"
	"github.com/jonathan/competency-assessment/internal/types"
)

// ContentReader serves published content. *db.DB and *seed.Catalog
// implement it.
type ContentReader interface {
	evaluation.Source
	ListScenarios(ctx context.Context) ([]db.ScenarioSummary, error)
	PositionQuestionSet(ctx context.Context, positionCode, requested string) (*types.PositionQuestionSet, error)
}

// ResultStore persists and reads finalized results. *db.DB and
// *evaluation.MemoryRecorder implement it.
type ResultStore interface {
	evaluation.Recorder
	GetEvaluation(ctx context.Context, id uuid.UUID) (*scoring.Snapshot, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer    *http.Server
	handler       http.Handler
	content       ContentReader
	results       ResultStore
	service       *evaluation.Service
	defaultLocale string
	verbose       bool
	rateLimiter   *ratelimit.Limiter
	jwtService    *JWTService
	onShutdown    func()
}

// Config holds server configuration
type Config struct {
	Port    int
	Content ContentReader
	// Results is optional; without it results are not stored and
	// GET /evaluations/{id} answers 404.
	Results       ResultStore
	Policy        scoring.Policy
	DefaultLocale string
	RateLimit     *ratelimit.Config
	JWT           *config.JWTConfig
	Verbose       bool
	// OnShutdown runs after the HTTP server has stopped.
	OnShutdown func()
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Content == nil {
		return nil, fmt.Errorf("content reader is required")
	}
	if cfg.JWT == nil {
		return nil, fmt.Errorf("JWT configuration is required")
	}

	opts := evaluation.Options{
		Policy:        cfg.Policy,
		DefaultLocale: cfg.DefaultLocale,
		Verbose:       cfg.Verbose,
	}
	if cfg.Results != nil {
		opts.Recorder = cfg.Results
	}
	service, err := evaluation.NewService(cfg.Content, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation service: %w", err)
	}

	defaultLocale := cfg.DefaultLocale
	if defaultLocale == "" {
		defaultLocale = locale.DefaultLocale
	}

	s := &Server{
		content:       cfg.Content,
		results:       cfg.Results,
		service:       service,
		defaultLocale: defaultLocale,
		verbose:       cfg.Verbose,
		rateLimiter:   ratelimit.NewLimiter(cfg.RateLimit),
		jwtService:    NewJWTService(cfg.JWT),
		onShutdown:    cfg.OnShutdown,
	}

	mux := http.NewServeMux()
	s.handle(mux, ratelimit.PatternHealth, s.handleHealth, false)

	s.handle(mux, "GET /scenarios", s.handleListScenarios, false)
	s.handle(mux, "GET /scenarios/{code}", s.handleGetScenario, false)
	s.handle(mux, ratelimit.PatternEvaluateRubric, s.handleEvaluateRubric, true)

	s.handle(mux, "GET /questionnaires/{code}/versions/{version}", s.handleGetQuestionnaire, false)
	s.handle(mux, ratelimit.PatternEvaluateLikert, s.handleEvaluateLikert, true)

	s.handle(mux, "GET /positions/{code}/questions", s.handleGetPositionQuestions, false)
	s.handle(mux, "GET /evaluations/{id}", s.handleGetEvaluation, false)

	s.handler = s.withLogging(s.withCORS(mux))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// handle registers a route. Protected routes authenticate before the rate
// limit so that limits apply per client rather than per address.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc, protected bool) {
	var handler http.Handler = s.withRateLimit(pattern, h)
	if protected {
		handler = middleware.AuthMiddleware(s.jwtService.AsTokenValidator())(handler)
	}
	mux.Handle(pattern, handler)
}

// Start serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Start() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.cleanup()
		return fmt.Errorf("server error: %w", err)
	case <-stop:
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.cleanup()
	log.Println("Server stopped")
	return nil
}

func (s *Server) cleanup() {
	s.rateLimiter.Stop()
	if s.onShutdown != nil {
		s.onShutdown()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept-Language")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit applies the limit configured for pattern.
func (s *Server) withRateLimit(pattern string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), pattern)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Printf("[%s] %s %d %s in %v", r.Method, r.URL.Path, rec.status, r.RemoteAddr, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error body with a code and a message localized
// for the request.
func (s *Server) errorResponse(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	message := scoring.Message(err, s.requestLocale(r))
	if status == http.StatusInternalServerError {
		log.Printf("[error] %s %s: %v", r.Method, r.URL.Path, err)
		if _, ok := scoring.KindOf(err); !ok {
			message = "internal server error"
		}
	}
	s.jsonResponse(w, status, map[string]string{
		"error":   errorCode(err),
		"message": message,
	})
}

// extractClientID identifies the caller for rate limiting: the token's
// client when authenticated, otherwise the remote IP.
func (s *Server) extractClientID(r *http.Request) string {
	if id, ok := middleware.ClientID(r); ok {
		return "client:" + id
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		seconds := max(1, int(info.RetryAfter.Seconds()))
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d", info.Limit, info.Remaining)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
