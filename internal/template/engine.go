package template

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Engine substitutes {{ name }} placeholders in strings and in the string
// leaves of nested maps and slices. A leading dot ({{ .name }}) is accepted.
type Engine struct {
	pattern *regexp.Regexp
}

// New creates a template engine.
func New() *Engine {
	return &Engine{
		pattern: regexp.MustCompile(`\{\{\s*\.?([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`),
	}
}

// Render replaces every placeholder in tmpl. Missing variables are reported
// together in one error.
func (e *Engine) Render(tmpl string, vars map[string]any) (string, error) {
	var missing []string
	out := e.pattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := e.pattern.FindStringSubmatch(match)[1]
		v, ok := vars[name]
		if !ok {
			missing = append(missing, name)
			return match
		}
		return stringify(v)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ", ")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}

// Replace renders every string inside value. Maps and slices are copied,
// other types are returned unchanged.
func (e *Engine) Replace(value any, vars map[string]any) (any, error) {
	switch v := value.(type) {
	case string:
		return e.Render(v, vars)
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			replaced, err := e.Replace(item, vars)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			out[key] = replaced
		}
		return out, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			replaced, err := e.Replace(item, vars)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = replaced
		}
		return out, nil
	default:
		return value, nil
	}
}

// Variables returns the sorted, de-duplicated placeholder names used in value.
func (e *Engine) Variables(value any) []string {
	seen := make(map[string]bool)
	e.collect(value, seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) collect(value any, seen map[string]bool) {
	switch v := value.(type) {
	case string:
		for _, m := range e.pattern.FindAllStringSubmatch(v, -1) {
			seen[m[1]] = true
		}
	case map[string]any:
		for _, item := range v {
			e.collect(item, seen)
		}
	case []any:
		for _, item := range v {
			e.collect(item, seen)
		}
	}
}

// Validate reports placeholders in value that vars does not define.
func (e *Engine) Validate(value any, vars map[string]any) error {
	var missing []string
	for _, name := range e.Variables(value) {
		if _, ok := vars[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required variables: %s", strings.Join(missing, ", "))
	}
	return nil
}
