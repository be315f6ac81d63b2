// Package report renders the suggestions of an audit run.
package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/eoinhurrell/cfpaths/internal/suggestion"
)

// Report is the output of one audit run
type Report struct {
	RunID       string                  `json:"runId" yaml:"runId"`
	GeneratedAt time.Time               `json:"generatedAt" yaml:"generatedAt"`
	Summary     Summary                 `json:"summary" yaml:"summary"`
	Suggestions []suggestion.Suggestion `json:"suggestions" yaml:"suggestions"`
}

// Summary counts suggestions by type
type Summary struct {
	Total  int                     `json:"total" yaml:"total"`
	ByType map[suggestion.Type]int `json:"byType" yaml:"byType"`
}

// New builds a report for the given run
func New(runID string, generatedAt time.Time, suggestions []suggestion.Suggestion) *Report {
	summary := Summary{
		Total:  len(suggestions),
		ByType: make(map[suggestion.Type]int, len(suggestion.Types)),
	}
	for _, t := range suggestion.Types {
		summary.ByType[t] = 0
	}
	for _, s := range suggestions {
		summary.ByType[s.Type()]++
	}

	if suggestions == nil {
		suggestions = []suggestion.Suggestion{}
	}

	return &Report{
		RunID:       runID,
		GeneratedAt: generatedAt.UTC(),
		Summary:     summary,
		Suggestions: suggestions,
	}
}

// Resolved returns how many paths got something other than NOT_FOUND
func (s Summary) Resolved() int {
	return s.Total - s.ByType[suggestion.TypeNotFound]
}

// Formatter renders a report in a specific format
type Formatter interface {
	// Format renders the report to w
	Format(ctx context.Context, report *Report, w io.Writer) error

	// Name returns the format name
	Name() string
}

// Options controls formatter behavior
type Options struct {
	// Quiet renders only the summary
	Quiet bool
}

// Formats lists the supported format names
func Formats() []string {
	names := make([]string, 0, len(formatters))
	for name := range formatters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var formatters = map[string]func(Options) Formatter{
	"json": func(opts Options) Formatter { return NewJSONFormatter(opts) },
	"yaml": func(opts Options) Formatter { return NewYAMLFormatter(opts) },
	"text": func(opts Options) Formatter { return NewTextFormatter(opts) },
}

// NewFormatter returns the formatter registered under name
func NewFormatter(name string, opts Options) (Formatter, error) {
	build, ok := formatters[name]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (supported: %v)", name, Formats())
	}
	return build(opts), nil
}
