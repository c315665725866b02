package formatting

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// maxErrorLen bounds the LAST ERROR column of the services table.
const maxErrorLen = 60

// PrettyJSON formats any value as indented JSON, falling back to %v when the
// value cannot be marshaled.
func PrettyJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// toGeneric round-trips v through JSON so that YAML output uses the same
// field names as the HTTP API.
func toGeneric(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// truncate collapses whitespace and shortens s to at most maxLen runes,
// ending in "..." when anything was cut.
func truncate(s string, maxLen int) string {
	if maxLen < 4 {
		maxLen = 4
	}
	runes := []rune(strings.Join(strings.Fields(s), " "))
	if len(runes) <= maxLen {
		return string(runes)
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatDuration renders d with at most millisecond precision, or "-" for zero.
func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}

// formatAge renders how long ago t was, relative to now.
func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	switch {
	case d < 0:
		return "0s"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ",")
}
