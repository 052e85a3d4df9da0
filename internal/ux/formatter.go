package ux

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// OutputFormat selects how reports are written.
type OutputFormat string

const (
	OutputText OutputFormat = "text"
	OutputJSON OutputFormat = "json"
	OutputYAML OutputFormat = "yaml"
)

// OutputFormats lists the accepted --format values.
var OutputFormats = []OutputFormat{OutputText, OutputJSON, OutputYAML}

// ParseOutputFormat converts a --format value. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return OutputText, nil
	case OutputText, OutputJSON, OutputYAML:
		return f, nil
	}
	return "", fmt.Errorf("unknown format: %s (supported: text, json, yaml)", s)
}

// Formatter writes one report per call.
type Formatter interface {
	Format(report Renderer) error
}

// FormatterOptions contains configuration for formatters
type FormatterOptions struct {
	// NoColor disables lipgloss styling in text output
	NoColor bool
}

// NewFormatter returns the formatter for format writing to w.
func NewFormatter(format string, w io.Writer, opts FormatterOptions) (Formatter, error) {
	f, err := ParseOutputFormat(format)
	if err != nil {
		return nil, err
	}

	switch f {
	case OutputJSON:
		return jsonFormatter{w: w}, nil
	case OutputYAML:
		return yamlFormatter{w: w}, nil
	default:
		return textFormatter{w: w, styles: NewStyles(opts.NoColor)}, nil
	}
}

// jsonFormatter encodes reports as indented JSON, one document per call.
type jsonFormatter struct {
	w io.Writer
}

func (f jsonFormatter) Format(report Renderer) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

type yamlFormatter struct {
	w io.Writer
}

func (f yamlFormatter) Format(report Renderer) error {
	enc := yaml.NewEncoder(f.w)
	enc.SetIndent(2)
	if err := enc.Encode(report); err != nil {
		return err
	}
	return enc.Close()
}

// textFormatter renders reports for a terminal.
type textFormatter struct {
	w      io.Writer
	styles *Styles
}

func (f textFormatter) Format(report Renderer) error {
	_, err := io.WriteString(f.w, report.Render(f.styles))
	return err
}
