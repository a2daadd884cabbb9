package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jonathan/competency-assessment/internal/evaluation"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/stretchr/testify/assert"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "version", Message: "must be a positive integer"}
	assert.Equal(t, "validation error: version - must be a positive integer", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
		code     string
	}{
		{
			name:     "not found",
			err:      fmt.Errorf("failed to load scenario x v1: %w", evaluation.ErrNotFound),
			expected: http.StatusNotFound,
			code:     "not_found",
		},
		{
			name:     "malformed request",
			err:      &evaluation.RequestError{Message: "invalid rubric input", Cause: errors.New("levels required")},
			expected: http.StatusBadRequest,
			code:     "invalid_request",
		},
		{
			name:     "rejected input",
			err:      &scoring.InvalidLevelError{Axis: "bridge_team", Level: 7},
			expected: http.StatusUnprocessableEntity,
			code:     string(scoring.KindInvalidLevel),
		},
		{
			name:     "wrapped input error",
			err:      fmt.Errorf("evaluate: %w", &scoring.MissingAnswerError{Question: "ret_1"}),
			expected: http.StatusUnprocessableEntity,
			code:     string(scoring.KindMissingAnswer),
		},
		{
			name:     "schema configuration",
			err:      &scoring.WeightSumError{Sum: 0.9},
			expected: http.StatusInternalServerError,
			code:     string(scoring.KindWeightSum),
		},
		{
			name:     "unexpected",
			err:      errors.New("connection reset"),
			expected: http.StatusInternalServerError,
			code:     "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
			assert.Equal(t, tt.code, errorCode(tt.err))
		})
	}
}
