// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/jonathan/competency-assessment/internal/db"
	"github.com/jonathan/competency-assessment/internal/scoring"
	"github.com/jonathan/competency-assessment/internal/seed"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content. Widths are
// counted in runes so localized text lines up.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(truncate(line, inner), inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

func truncate(s string, width int) string {
	if utf8.RuneCountInString(s) <= width {
		return s
	}
	runes := []rune(s)
	return string(runes[:width-3]) + "..."
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

// PrintResult outputs a human-readable summary of an evaluation result.
func (p *Printer) PrintResult(result *scoring.Result) {
	if result == nil {
		return
	}
	snapshot := result.Snapshot()
	p.PrintSnapshot(&snapshot)
}

// PrintSnapshot outputs a stored or freshly assembled result.
func (p *Printer) PrintSnapshot(s *scoring.Snapshot) {
	if s == nil {
		return
	}

	var sb strings.Builder
	ref := fmt.Sprintf("%s v%d", s.Schema.Code, s.Schema.Version)
	if s.Schema.TenantID != "" {
		ref += fmt.Sprintf(" (%s)", s.Schema.TenantID)
	}
	sb.WriteString(fmt.Sprintf("Schema:    %s [%s]\n", ref, s.Method))
	sb.WriteString(fmt.Sprintf("Title:     %s\n", s.Title))
	sb.WriteString(fmt.Sprintf("Locale:    %s\n", s.Locale))
	if s.Overridden {
		sb.WriteString(fmt.Sprintf("Composite: %.2f (raw %.2f, overridden)\n", s.CompositeScore, s.RawComposite))
	} else {
		sb.WriteString(fmt.Sprintf("Composite: %.2f\n", s.CompositeScore))
	}
	sb.WriteString("\n")

	for _, key := range s.Keys {
		b := s.Breakdown[key]
		if b.Weight == nil || b.WeightedContribution == nil {
			sb.WriteString(fmt.Sprintf("  %-18s %6.2f  %6.2f\n", truncate(key, 18), b.Raw, b.Normalized))
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-18s %6.2f  %6.2f x %.2f = %6.2f\n",
			truncate(key, 18), b.Raw, b.Normalized, *b.Weight, *b.WeightedContribution))
	}

	if len(s.Overrides) > 0 {
		sb.WriteString("\nOverrides:\n")
		for _, o := range s.Overrides {
			effect := string(o.Effect)
			switch o.Effect {
			case scoring.EffectCap:
				effect = fmt.Sprintf("cap %.0f", o.Value)
			case scoring.EffectPenalty:
				effect = fmt.Sprintf("-%.0f", o.Value)
			}
			sb.WriteString(fmt.Sprintf("  ⚠ %s %s: %s\n", o.Severity, o.Ref, effect))
		}
	}

	if len(s.DerivedIndices) > 0 {
		sb.WriteString("\nDerived indices:\n")
		for _, name := range slices.Sorted(maps.Keys(s.DerivedIndices)) {
			sb.WriteString(fmt.Sprintf("  %-18s %6.2f\n", name, s.DerivedIndices[name]))
		}
	}

	p.printBox("EVALUATION RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintSeedReport outputs per-kind outcome counts and the documents that
// changed.
func (p *Printer) PrintSeedReport(report *seed.Report, dryRun bool) {
	if report == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-16s %9s %8s %10s\n", "", "inserted", "updated", "unchanged"))
	for _, kind := range []string{seed.KindScenario, seed.KindQuestionnaire, seed.KindPositionSet} {
		sb.WriteString(fmt.Sprintf("%-16s %9d %8d %10d\n", kind,
			report.CountKind(kind, db.OutcomeInserted),
			report.CountKind(kind, db.OutcomeUpdated),
			report.CountKind(kind, db.OutcomeUnchanged)))
	}

	var changed []seed.ReportEntry
	for _, e := range report.Entries {
		if e.Outcome != db.OutcomeUnchanged {
			changed = append(changed, e)
		}
	}
	if len(changed) > 0 {
		sb.WriteString("\nChanged:\n")
		count := min(len(changed), maxItemsToShow)
		for _, e := range changed[:count] {
			sb.WriteString(fmt.Sprintf("  • %s %s (%s)\n", e.Kind, e.Key, e.Outcome))
		}
		if len(changed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(changed)-maxItemsToShow))
		}
	} else {
		sb.WriteString("\nNothing to write.\n")
	}

	title := "SEED REPORT"
	if dryRun {
		title += " (dry run)"
	}
	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}

// PrintContentSummary outputs what a validated bundle contains.
func (p *Printer) PrintContentSummary(b *seed.Bundle) {
	if b == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Scenarios:      %d\n", len(b.Scenarios)))
	for i, s := range b.Scenarios {
		if i == maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(b.Scenarios)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  • %s v%d (%d axes)\n", s.Code, s.Version, len(s.Rubric.Axes)))
	}
	sb.WriteString(fmt.Sprintf("Questionnaires: %d\n", len(b.Questionnaires)))
	for i, q := range b.Questionnaires {
		if i == maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(b.Questionnaires)-maxItemsToShow))
			break
		}
		sb.WriteString(fmt.Sprintf("  • %s v%d (%d questions)\n", q.Code, q.Version, len(q.Questions)))
	}
	sb.WriteString(fmt.Sprintf("Position sets:  %d", len(b.PositionSets)))

	p.printBox("✅ CONTENT VALID", sb.String())
}

// PrintMigrations outputs the migrations applied by a run.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintMigrations(applied []string) {
	if len(applied) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %s │\n", pad("✅ SCHEMA UP TO DATE", boxWidth-4))
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	for i, name := range applied {
		sb.WriteString("• " + name)
		if i < len(applied)-1 {
			sb.WriteString("\n")
		}
	}
	p.printBox(fmt.Sprintf("APPLIED %d MIGRATIONS", len(applied)), sb.String())
}
