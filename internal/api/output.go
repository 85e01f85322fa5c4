package api

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format for CLI commands.
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// DefaultOutput is the default output format.
var DefaultOutput OutputFormat = OutputFormatText

// globalOutputFormat is set by the root command's --output flag.
var globalOutputFormat OutputFormat = OutputFormatText

// TextWriter is implemented by values that know how to print themselves for
// people. Values without it fall back to YAML in text mode.
type TextWriter interface {
	WriteText(w io.Writer) error
}

// ParseOutputFormat validates a --output value.
func ParseOutputFormat(format string) (OutputFormat, error) {
	switch OutputFormat(format) {
	case OutputFormatText, OutputFormatYAML, OutputFormatJSON:
		return OutputFormat(format), nil
	case "":
		return DefaultOutput, nil
	default:
		return "", fmt.Errorf("unknown output format: %s (want text, yaml or json)", format)
	}
}

// SetOutputFormat sets the global output format.
func SetOutputFormat(format OutputFormat) {
	globalOutputFormat = format
}

// GetOutputFormat returns the current global output format.
func GetOutputFormat() OutputFormat {
	return globalOutputFormat
}

// Output writes data to stdout in the configured format.
func Output(data any) error {
	return OutputTo(os.Stdout, globalOutputFormat, data)
}

// OutputTo writes data to the given writer in the specified format.
func OutputTo(w io.Writer, format OutputFormat, data any) error {
	switch format {
	case OutputFormatText:
		if tw, ok := data.(TextWriter); ok {
			return tw.WriteText(w)
		}
		return OutputTo(w, OutputFormatYAML, data)
	case OutputFormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(unwrap(data))
	case OutputFormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(unwrap(data))
	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

// Unwrapper is implemented by text views wrapping a plain data value, so
// structured formats encode the data rather than the view.
type Unwrapper interface {
	Unwrap() any
}

func unwrap(data any) any {
	if u, ok := data.(Unwrapper); ok {
		return u.Unwrap()
	}
	return data
}

// IsStructuredOutput returns true if the output format is structured (JSON/YAML).
// Commands use it to print human-friendly messages only in text mode.
func IsStructuredOutput() bool {
	return globalOutputFormat == OutputFormatJSON || globalOutputFormat == OutputFormatYAML
}
