package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/scoring"
)

// ErrValidation indicates a malformed path or query parameter.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the status code for an error returned by a handler.
// Malformed requests are 400, inputs the scoring engine rejects are 422, and
// content or policy configuration faults are 500.
func HTTPStatus(err error) int {
	var validationErr *ErrValidation
	var requestErr *evaluation.RequestError
	switch {
	case errors.Is(err, evaluation.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &validationErr), errors.As(err, &requestErr):
		return http.StatusBadRequest
	case scoring.IsInput(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the stable machine-readable code in error bodies.
func errorCode(err error) string {
	if kind, ok := scoring.KindOf(err); ok {
		return string(kind)
	}
	switch HTTPStatus(err) {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "invalid_request"
	default:
		return "internal_error"
	}
}
