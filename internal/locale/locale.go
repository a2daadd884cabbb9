// Package locale picks the best available text from multilingual content.
package locale

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
)

// DefaultLocale is the locale every content map is expected to carry.
const DefaultLocale = "en"

// NoContentAvailableError means a content map has no entries at all. It is
// an authoring bug, not a runtime condition.
type NoContentAvailableError struct {
	Requested string
}

func (e *NoContentAvailableError) Error() string {
	return fmt.Sprintf("no content available for locale %q: content map is empty", e.Requested)
}

// Resolve returns the best text for the requested locale.
func Resolve(content map[string]string, requested string) (string, error) {
	text, _, err := ResolveWithTag(content, requested)
	return text, err
}

// ResolveWithTag returns the text and the content key it was taken from.
// The chain is: the requested tag, its base language, DefaultLocale, then
// the first key in sorted order. Unknown or unparsable tags fall through
// instead of failing.
func ResolveWithTag(content map[string]string, requested string) (string, string, error) {
	if len(content) == 0 {
		return "", "", &NoContentAvailableError{Requested: requested}
	}

	for _, candidate := range Chain(requested) {
		if key, ok := lookup(content, candidate); ok {
			return content[key], key, nil
		}
	}

	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return content[keys[0]], keys[0], nil
}

// Chain returns the ordered candidate locales tried for a request, without
// the first-available fallback.
func Chain(requested string) []string {
	var chain []string
	add := func(locale string) {
		if locale == "" {
			return
		}
		for _, existing := range chain {
			if strings.EqualFold(existing, locale) {
				return
			}
		}
		chain = append(chain, locale)
	}

	trimmed := strings.TrimSpace(requested)
	add(trimmed)
	if tag, err := language.Parse(trimmed); err == nil && tag != language.Und {
		add(tag.String())
		if base, confidence := tag.Base(); confidence != language.No {
			add(base.String())
		}
	}
	add(DefaultLocale)
	return chain
}

// Normalize canonicalizes a tag (tr_tr → tr-TR). Unparsable input is
// returned trimmed.
func Normalize(requested string) string {
	trimmed := strings.TrimSpace(strings.ReplaceAll(requested, "_", "-"))
	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	return tag.String()
}

// lookup matches keys case-insensitively so "TR" finds "tr".
func lookup(content map[string]string, locale string) (string, bool) {
	if _, ok := content[locale]; ok {
		return locale, true
	}
	for key := range content {
		if strings.EqualFold(key, locale) {
			return key, true
		}
	}
	return "", false
}
