package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// JSONFormatter formats output as JSON
type JSONFormatter struct {
	Writer io.Writer
	Indent bool
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(w io.Writer, indent bool) *JSONFormatter {
	return &JSONFormatter{
		Writer: w,
		Indent: indent,
	}
}

func (f *JSONFormatter) PrintCheck(report *CheckReport) error {
	return f.encode(report)
}

func (f *JSONFormatter) PrintStats(report *StatsReport) error {
	return f.encode(report)
}

func (f *JSONFormatter) encode(v any) error {
	encoder := json.NewEncoder(f.Writer)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

// YAMLFormatter formats output as YAML
type YAMLFormatter struct {
	Writer io.Writer
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(w io.Writer) *YAMLFormatter {
	return &YAMLFormatter{Writer: w}
}

func (f *YAMLFormatter) PrintCheck(report *CheckReport) error {
	return f.encode(report)
}

func (f *YAMLFormatter) PrintStats(report *StatsReport) error {
	return f.encode(report)
}

func (f *YAMLFormatter) encode(v any) error {
	encoder := yaml.NewEncoder(f.Writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return err
	}
	return encoder.Close()
}
