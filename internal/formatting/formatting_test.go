package formatting

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"switchyard/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sampleStatus(now time.Time) api.SystemStatus {
	retry := now.Add(30 * time.Second)
	return api.SystemStatus{
		Version:    "1.2.3",
		Health:     api.HealthDegraded,
		BasicReady: true,
		Services: []api.ServiceStatus{
			{
				Name:           "ai-client",
				State:          api.StateReady,
				LastTransition: now.Add(-2 * time.Minute),
				InitDuration:   1500 * time.Microsecond,
			},
			{
				Name:                "task-planner",
				State:               api.StateFailed,
				LastTransition:      now.Add(-5 * time.Second),
				ConsecutiveFailures: 3,
				LastError:           "task-master not found in PATH\nsecond line",
				NextRetryAt:         &retry,
			},
		},
		Routes: []api.RouteStatus{
			{
				Name:          "enhanced-chat",
				Primary:       "dias",
				Fallbacks:     []string{"ai-client"},
				Available:     true,
				ActiveService: "ai-client",
				UsingFallback: true,
			},
			{
				Name:            "tasks",
				Primary:         "task-planner",
				MissingServices: []string{"task-planner"},
			},
		},
		Timestamp: now,
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatTable},
		{in: "table", want: FormatTable},
		{in: " JSON ", want: FormatJSON},
		{in: "yaml", want: FormatYAML},
		{in: "xml", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewFormatter(t *testing.T) {
	assert.IsType(t, &TableFormatter{}, NewFormatter(Options{}))
	assert.IsType(t, &JSONFormatter{}, NewFormatter(Options{Format: FormatJSON}))
	assert.IsType(t, &YAMLFormatter{}, NewFormatter(Options{Format: FormatYAML}))
}

func TestTableFormatter_FormatStatus(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	f := NewTableFormatter(Options{Output: &buf}).(*TableFormatter)
	f.now = func() time.Time { return now }

	require.NoError(t, f.FormatStatus(sampleStatus(now)))
	out := buf.String()

	assert.Contains(t, out, "Health: degraded  basic: yes  enhanced: no  version: 1.2.3")
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "ai-client")
	assert.Contains(t, out, "2m")
	assert.Contains(t, out, "2ms")
	assert.Contains(t, out, "30s")
	assert.Contains(t, out, "task-master not found in PATH second line")
	assert.Contains(t, out, "ai-client (fallback)")
	assert.NotContains(t, out, "\x1b[", "colors must be off unless requested")
}

func TestTableFormatter_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	f := NewTableFormatter(Options{Output: &buf, NoHeaders: true})

	require.NoError(t, f.FormatStatus(sampleStatus(time.Now())))
	assert.NotContains(t, buf.String(), "LAST ERROR")
	assert.Contains(t, buf.String(), "task-planner")
}

func TestTableFormatter_FormatRouteWait(t *testing.T) {
	tests := []struct {
		name   string
		result api.RouteWaitResult
		want   string
	}{
		{
			name: "ready",
			result: api.RouteWaitResult{
				Route:  "basic-chat",
				Ready:  true,
				Status: api.RouteStatus{Name: "basic-chat", Primary: "ai-client", Available: true, ActiveService: "ai-client"},
			},
			want: "route basic-chat is served by ai-client",
		},
		{
			name: "not ready",
			result: api.RouteWaitResult{
				Route:  "tasks",
				Status: api.RouteStatus{Name: "tasks", Primary: "task-planner"},
			},
			want: "route tasks is not ready",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, NewTableFormatter(Options{Output: &buf}).FormatRouteWait(tt.result))
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestJSONFormatter_FormatStatus(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(Options{Output: &buf}).FormatStatus(sampleStatus(now)))

	var decoded api.SystemStatus
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "1.2.3", decoded.Version)
	assert.Len(t, decoded.Services, 2)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \""))
}

func TestYAMLFormatter_UsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter(Options{Output: &buf}).FormatRouteWait(api.RouteWaitResult{
		Route:  "basic-chat",
		Ready:  true,
		Status: api.RouteStatus{Name: "basic-chat", ActiveService: "ai-client"},
	}))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "basic-chat", decoded["route"])
	status, ok := decoded["status"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "ai-client", status["activeService"])
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{in: "short", maxLen: 10, want: "short"},
		{in: "line one\nline two", maxLen: 40, want: "line one line two"},
		{in: "abcdefghij", maxLen: 8, want: "abcde..."},
		{in: "abcdefghij", maxLen: 1, want: "a..."},
		{in: "héllo wörld", maxLen: 6, want: "hél..."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.maxLen), tt.in)
	}
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, "-", formatAge(time.Time{}, now))
	assert.Equal(t, "0s", formatAge(now.Add(time.Second), now))
	assert.Equal(t, "45s", formatAge(now.Add(-45*time.Second), now))
	assert.Equal(t, "3h", formatAge(now.Add(-3*time.Hour), now))
	assert.Equal(t, "2d", formatAge(now.Add(-49*time.Hour), now))
}

func TestPrettyJSON(t *testing.T) {
	assert.Equal(t, "{\n  \"name\": \"test\"\n}", PrettyJSON(map[string]any{"name": "test"}))
	assert.Contains(t, PrettyJSON(make(chan int)), "0x")
}
