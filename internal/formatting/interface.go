// Package formatting renders switchyard status reports for the command line.
//
// Three output formats are supported: a go-pretty table for people, and JSON
// or YAML for scripts. Every formatter writes to the io.Writer given in its
// Options, which defaults to standard output.
package formatting

import (
	"fmt"
	"io"
	"os"
	"strings"

	"switchyard/internal/api"
)

// OutputFormat represents the desired output format
type OutputFormat string

const (
	FormatTable OutputFormat = "table" // Rich table output
	FormatJSON  OutputFormat = "json"  // JSON output
	FormatYAML  OutputFormat = "yaml"  // YAML output
)

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatTable, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (table, json, yaml)", s)
	}
}

// Options configures the formatter behavior
type Options struct {
	Format    OutputFormat
	NoHeaders bool // Suppress table headers
	Color     bool // Enable colored output
	Output    io.Writer
}

func (o Options) writer() io.Writer {
	if o.Output == nil {
		return os.Stdout
	}
	return o.Output
}

// Formatter renders the reports produced by the status and check commands.
type Formatter interface {
	FormatStatus(status api.SystemStatus) error
	FormatRouteWait(result api.RouteWaitResult) error
}

// NewFormatter creates the formatter for options.Format. Unknown formats
// fall back to the table formatter.
func NewFormatter(options Options) Formatter {
	switch options.Format {
	case FormatJSON:
		return NewJSONFormatter(options)
	case FormatYAML:
		return NewYAMLFormatter(options)
	default:
		return NewTableFormatter(options)
	}
}
