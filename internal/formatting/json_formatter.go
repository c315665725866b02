package formatting

import (
	"encoding/json"

	"switchyard/internal/api"
)

// JSONFormatter provides structured JSON output formatting
type JSONFormatter struct {
	options Options
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter(options Options) Formatter {
	return &JSONFormatter{
		options: options,
	}
}

// FormatStatus writes the status exactly as the /status endpoint serves it.
func (f *JSONFormatter) FormatStatus(status api.SystemStatus) error {
	return f.encode(status)
}

// FormatRouteWait writes the wait_for_route result.
func (f *JSONFormatter) FormatRouteWait(result api.RouteWaitResult) error {
	return f.encode(result)
}

func (f *JSONFormatter) encode(v any) error {
	enc := json.NewEncoder(f.options.writer())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
