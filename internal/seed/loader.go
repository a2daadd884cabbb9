// Package seed loads the embedded assessment content, validates it, and
// writes it idempotently to a Store.
package seed

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/jonathan/competency-assessment/internal/schemas"
	"github.com/jonathan/competency-assessment/internal/types"
	"gopkg.in/yaml.v3"
)

//go:embed content
var contentFS embed.FS

const contentRoot = "content"

// Content directories and the schema each one is checked against.
var contentDirs = []struct {
	dir  string
	kind schemas.Kind
}{
	{"scenarios", schemas.KindScenario},
	{"questionnaires", schemas.KindQuestionnaire},
	{"positions", schemas.KindPositionSet},
}

// Bundle is a loaded set of content documents.
type Bundle struct {
	Scenarios      []*types.ScenarioDefinition
	Questionnaires []*types.Questionnaire
	PositionSets   []*types.PositionQuestionSet

	// origin maps a document's natural key to its file.
	origin map[string]string
}

// DocumentError ties a failure to the content file it came from.
type DocumentError struct {
	Path  string
	Cause error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Cause)
}

func (e *DocumentError) Unwrap() error {
	return e.Cause
}

// LoadEmbedded loads the content compiled into the binary.
func LoadEmbedded() (*Bundle, error) {
	return Load(contentFS, contentRoot)
}

// Load reads every YAML document under root. Each document must pass its
// JSON Schema before it is decoded.
func Load(fsys fs.FS, root string) (*Bundle, error) {
	b := &Bundle{origin: map[string]string{}}

	for _, cd := range contentDirs {
		dir := path.Join(root, cd.dir)
		entries, err := fs.ReadDir(fsys, dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read content dir %s: %w", dir, err)
		}

		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !(strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")) {
				continue
			}
			p := path.Join(dir, name)
			data, err := fs.ReadFile(fsys, p)
			if err != nil {
				return nil, &DocumentError{Path: p, Cause: err}
			}
			if err := b.add(cd.kind, p, data); err != nil {
				return nil, &DocumentError{Path: p, Cause: err}
			}
		}
	}

	return b, nil
}

func (b *Bundle) add(kind schemas.Kind, p string, data []byte) error {
	switch kind {
	case schemas.KindScenario:
		var s types.ScenarioDefinition
		if err := decodeDocument(kind, data, &s); err != nil {
			return err
		}
		b.Scenarios = append(b.Scenarios, &s)
		b.origin[documentKey(&s)] = p
	case schemas.KindQuestionnaire:
		var q types.Questionnaire
		if err := decodeDocument(kind, data, &q); err != nil {
			return err
		}
		b.Questionnaires = append(b.Questionnaires, &q)
		b.origin[documentKey(&q)] = p
	case schemas.KindPositionSet:
		var ps types.PositionQuestionSet
		if err := decodeDocument(kind, data, &ps); err != nil {
			return err
		}
		b.PositionSets = append(b.PositionSets, &ps)
		b.origin[documentKey(&ps)] = p
	default:
		return fmt.Errorf("unsupported document kind %q", kind)
	}
	return nil
}

// PathOf returns the file a document was loaded from, or "" for documents
// built in code. Documents are matched by natural key, so an edited copy
// keeps the path of the file it replaced.
func (b *Bundle) PathOf(doc any) string {
	return b.origin[documentKey(doc)]
}

// documentKey returns the natural key of a content document.
func documentKey(doc any) string {
	switch d := doc.(type) {
	case *types.ScenarioDefinition:
		return "scenario:" + d.Code
	case *types.Questionnaire:
		return "questionnaire:" + refString(d.Ref())
	case *types.PositionQuestionSet:
		return fmt.Sprintf("position_set:%s/%s@%d", d.PositionCode, d.Language, d.Version)
	default:
		return ""
	}
}

// Size returns the number of documents in the bundle.
func (b *Bundle) Size() int {
	return len(b.Scenarios) + len(b.Questionnaires) + len(b.PositionSets)
}

func decodeDocument(kind schemas.Kind, data []byte, dst any) error {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	doc, err := json.Marshal(normalizeYAML(generic))
	if err != nil {
		return fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}
	if err := schemas.ValidateDocument(kind, doc); err != nil {
		return err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return nil
}

// normalizeYAML turns YAML mappings into JSON-compatible objects. Non-string
// keys, such as rubric level numbers, are rendered with fmt.Sprint.
func normalizeYAML(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalizeYAML(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = normalizeYAML(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeYAML(item)
		}
		return out
	default:
		return val
	}
}
