// Package schemas provides JSON Schema validation for authored content
// documents: scenarios, questionnaires and position question sets.
package schemas

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var files embed.FS

// Kind names a content document type.
type Kind string

// Document kinds with an embedded schema.
const (
	KindScenario      Kind = "scenario"
	KindQuestionnaire Kind = "questionnaire"
	KindPositionSet   Kind = "position_set"
)

// Kinds lists every document kind.
func Kinds() []Kind {
	return []Kind{KindScenario, KindQuestionnaire, KindPositionSet}
}

const commonSchemaFile = "common.schema.json"

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Kind   Kind
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	if ve.Kind != "" {
		sb.WriteString(fmt.Sprintf("%s validation failed:\n", ve.Kind))
	} else {
		sb.WriteString("validation failed:\n")
	}
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

var (
	compileOnce sync.Once
	compiled    map[Kind]*gojsonschema.Schema
	compileErr  error
)

// Source returns the schema for kind with the shared definitions inlined.
func Source(kind Kind) (string, error) {
	path := string(kind) + ".schema.json"
	data, err := files.ReadFile(path)
	if err != nil {
		return "", &SchemaLoadError{Path: path, Message: "unknown document kind", Cause: err}
	}
	common, err := files.ReadFile(commonSchemaFile)
	if err != nil {
		return "", &SchemaLoadError{Path: commonSchemaFile, Message: "missing shared definitions", Cause: err}
	}

	var doc, shared map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", &SchemaLoadError{Path: path, Message: "invalid JSON", Cause: err}
	}
	if err := json.Unmarshal(common, &shared); err != nil {
		return "", &SchemaLoadError{Path: commonSchemaFile, Message: "invalid JSON", Cause: err}
	}
	doc["definitions"] = shared["definitions"]

	merged, err := json.Marshal(doc)
	if err != nil {
		return "", &SchemaLoadError{Path: path, Message: "failed to merge definitions", Cause: err}
	}
	return string(merged), nil
}

func compileAll() {
	compiled = make(map[Kind]*gojsonschema.Schema, len(Kinds()))
	for _, kind := range Kinds() {
		source, err := Source(kind)
		if err != nil {
			compileErr = err
			return
		}
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(source))
		if err != nil {
			compileErr = &SchemaLoadError{Path: string(kind) + ".schema.json", Message: "schema does not compile", Cause: err}
			return
		}
		compiled[kind] = schema
	}
}

// ValidateDocument validates a JSON-encoded content document against the
// embedded schema for kind.
func ValidateDocument(kind Kind, document []byte) error {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return compileErr
	}
	schema, ok := compiled[kind]
	if !ok {
		return &SchemaLoadError{Path: string(kind), Message: "unknown document kind"}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return fmt.Errorf("failed to read %s document: %w", kind, err)
	}
	if result.Valid() {
		return nil
	}
	return newValidationError(kind, result)
}

// ValidateJSONString validates JSON string content against schema string content
func ValidateJSONString(schemaContent, jsonContent string) error {
	schemaLoader := gojsonschema.NewStringLoader(schemaContent)
	documentLoader := gojsonschema.NewStringLoader(jsonContent)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return &SchemaLoadError{
			Path:    "(string schema)",
			Message: "schema validation failed during load",
			Cause:   err,
		}
	}

	if result.Valid() {
		return nil
	}
	return newValidationError("", result)
}

func newValidationError(kind Kind, result *gojsonschema.Result) *ValidationError {
	validationErr := &ValidationError{
		Kind:   kind,
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return validationErr
}
