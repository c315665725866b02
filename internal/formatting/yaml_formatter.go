package formatting

import (
	"switchyard/internal/api"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter provides YAML output formatting
type YAMLFormatter struct {
	options Options
}

// NewYAMLFormatter creates a new YAML formatter
func NewYAMLFormatter(options Options) Formatter {
	return &YAMLFormatter{
		options: options,
	}
}

// FormatStatus writes the status as YAML using the JSON field names.
func (f *YAMLFormatter) FormatStatus(status api.SystemStatus) error {
	return f.encode(status)
}

// FormatRouteWait writes the wait_for_route result as YAML.
func (f *YAMLFormatter) FormatRouteWait(result api.RouteWaitResult) error {
	return f.encode(result)
}

func (f *YAMLFormatter) encode(v any) error {
	generic, err := toGeneric(v)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f.options.writer())
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}
