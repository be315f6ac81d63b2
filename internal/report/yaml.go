package report

import (
	"context"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats reports as YAML
type YAMLFormatter struct {
	opts Options
}

// NewYAMLFormatter creates a YAML formatter
func NewYAMLFormatter(opts Options) *YAMLFormatter {
	return &YAMLFormatter{opts: opts}
}

// Name returns the format name
func (f *YAMLFormatter) Name() string {
	return "yaml"
}

// Format renders the report as YAML
func (f *YAMLFormatter) Format(ctx context.Context, report *Report, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	defer encoder.Close()

	if f.opts.Quiet {
		return encoder.Encode(report.Summary)
	}
	return encoder.Encode(report)
}
