// Package types provides type definitions for the assessment content and
// evaluation inputs shared across the seeder, the store and the scoring engine.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"sort"
	"strings"
)

// LocalizedText maps an IETF language tag to text in that language.
type LocalizedText map[string]string

// Locales returns the locale keys with non-empty text, sorted.
func (t LocalizedText) Locales() []string {
	out := make([]string, 0, len(t))
	for locale, text := range t {
		if strings.TrimSpace(text) != "" {
			out = append(out, locale)
		}
	}
	sort.Strings(out)
	return out
}

// Clone returns a copy of the map.
func (t LocalizedText) Clone() LocalizedText {
	if t == nil {
		return nil
	}
	out := make(LocalizedText, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// Severity classifies an omission flag or red-flag hook.
type Severity string

// Severity tiers, ordered from worst to mildest.
const (
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMedium   Severity = "medium"
)

// Severities lists the known tiers, worst first.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityMajor, SeverityMedium}
}

// Valid reports whether s is a known tier.
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityMajor, SeverityMedium:
		return true
	}
	return false
}

// Rank orders severities: critical=3, major=2, medium=1, unknown=0.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityMajor:
		return 2
	case SeverityMedium:
		return 1
	}
	return 0
}
