package report

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/eoinhurrell/cfpaths/internal/suggestion"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	typeStyles = map[suggestion.Type]lipgloss.Style{
		suggestion.TypePublish:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981")),
		suggestion.TypeLocale:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")),
		suggestion.TypeSimilar:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B")),
		suggestion.TypeNotFound: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444")),
	}
)

// TextFormatter formats reports for a terminal
type TextFormatter struct {
	opts Options
}

// NewTextFormatter creates a text formatter
func NewTextFormatter(opts Options) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as styled text
func (f *TextFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	if !f.opts.Quiet {
		fmt.Fprintln(w, titleStyle.Render("Broken content paths"))
		fmt.Fprintln(w, mutedStyle.Render("run "+report.RunID))
		fmt.Fprintln(w)

		for _, s := range report.Suggestions {
			if err := ctx.Err(); err != nil {
				return err
			}
			f.formatSuggestion(w, s)
		}
		if len(report.Suggestions) > 0 {
			fmt.Fprintln(w)
		}
	}

	fmt.Fprintf(w, "%d paths, %d resolved", report.Summary.Total, report.Summary.Resolved())
	for _, t := range suggestion.Types {
		fmt.Fprintf(w, ", %s %d", t, report.Summary.ByType[t])
	}
	fmt.Fprintln(w)
	return nil
}

func (f *TextFormatter) formatSuggestion(w io.Writer, s suggestion.Suggestion) {
	label := typeStyles[s.Type()].Width(10).Render(string(s.Type()))
	fmt.Fprintf(w, "%s %s\n", label, s.RequestedPath())
	if s.SuggestedPath() != "" {
		fmt.Fprintf(w, "           -> %s\n", s.SuggestedPath())
	}
	if s.Reason() != "" {
		fmt.Fprintf(w, "           %s\n", mutedStyle.Render(s.Reason()))
	}
}
