package contextcache

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSources struct {
	code, docs, history, prefs atomic.Int32
	codeBody                   string
	prefsBody                  map[string]any
	delay                      time.Duration
	historyErr                 error
}

func (s *countingSources) AggregateCode(ctx context.Context, projectID string, files []string) (string, error) {
	s.code.Add(1)
	time.Sleep(s.delay)
	if s.codeBody != "" {
		return s.codeBody, nil
	}
	return "// File: " + strings.Join(files, ","), nil
}

func (s *countingSources) AggregateDocumentation(ctx context.Context, projectID string) (string, error) {
	s.docs.Add(1)
	time.Sleep(s.delay)
	return "Documentation for project: " + projectID, nil
}

func (s *countingSources) History(ctx context.Context, projectID string) ([]string, error) {
	s.history.Add(1)
	time.Sleep(s.delay)
	if s.historyErr != nil {
		return nil, s.historyErr
	}
	return []string{"Previous action for " + projectID}, nil
}

func (s *countingSources) Preferences(ctx context.Context, projectID string) (map[string]any, error) {
	s.prefs.Add(1)
	time.Sleep(s.delay)
	if s.prefsBody != nil {
		return s.prefsBody, nil
	}
	return map[string]any{"theme": "dark"}, nil
}

func (s *countingSources) total() int32 {
	return s.code.Load() + s.docs.Load() + s.history.Load() + s.prefs.Load()
}

func newTestManager(t *testing.T, sources Sources, cfg Config) *Manager {
	t.Helper()
	cache, err := New(cfg, nil)
	require.NoError(t, err)
	return NewManager(cache, sources, DefaultSummarizer(), 0)
}

func TestContextKey(t *testing.T) {
	a := ContextKey("p1", []string{"a.go", "b.go"})
	assert.Equal(t, a, ContextKey("p1", []string{"a.go", "b.go"}), "keys are deterministic")
	assert.True(t, strings.HasPrefix(a, "context:p1:"))
	assert.NotEqual(t, a, ContextKey("p1", []string{"b.go", "a.go"}))
	assert.NotEqual(t, a, ContextKey("p2", []string{"a.go", "b.go"}))
	assert.NotEqual(t, ContextKey("p1", []string{"ab", "c"}), ContextKey("p1", []string{"a", "bc"}))
}

func TestPrepareContext_CacheHitSkipsLookups(t *testing.T) {
	sources := &countingSources{}
	m := newTestManager(t, sources, Config{MaxSize: 10, DefaultTTL: time.Hour})

	first, err := m.PrepareContext(context.Background(), "p1", []string{"a.go"}, true)
	require.NoError(t, err)
	assert.False(t, first.Metadata.Cached)
	assert.Equal(t, 1, first.Metadata.FilesProcessed)
	assert.Equal(t, int32(4), sources.total())
	assert.Equal(t, []string{"Previous action for p1"}, first.Data.History)
	assert.Equal(t, "dark", first.Data.UserPreferences["theme"])

	second, err := m.PrepareContext(context.Background(), "p1", []string{"a.go"}, true)
	require.NoError(t, err)
	assert.True(t, second.Metadata.Cached)
	assert.Equal(t, int32(4), sources.total(), "a cache hit performs no lookups")
	assert.Equal(t, first.Data, second.Data)

	_, err = m.PrepareContext(context.Background(), "p1", []string{"b.go"}, true)
	require.NoError(t, err)
	assert.Equal(t, int32(8), sources.total())
}

func TestPrepareContext_LookupsRunInParallel(t *testing.T) {
	sources := &countingSources{delay: 50 * time.Millisecond}
	m := newTestManager(t, sources, Config{MaxSize: 10, DefaultTTL: time.Hour})

	start := time.Now()
	_, err := m.PrepareContext(context.Background(), "p1", []string{"a.go"}, true)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestPrepareContext_WithoutHistory(t *testing.T) {
	sources := &countingSources{}
	m := newTestManager(t, sources, Config{MaxSize: 10, DefaultTTL: time.Hour})

	got, err := m.PrepareContext(context.Background(), "p1", nil, false)
	require.NoError(t, err)
	assert.Equal(t, int32(0), sources.history.Load())
	assert.Equal(t, []string{}, got.Data.History)
}

func TestPrepareContext_LookupFailure(t *testing.T) {
	sources := &countingSources{historyErr: errors.New("disk gone")}
	m := newTestManager(t, sources, Config{MaxSize: 10, DefaultTTL: time.Hour})

	_, err := m.PrepareContext(context.Background(), "p1", []string{"a.go"}, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
	assert.Equal(t, 0, m.Cache().Len(), "failed preparations are not cached")

	_, err = m.PrepareContext(context.Background(), "", nil, true)
	assert.Error(t, err)
}

func TestPrepareContext_SummarizesAndCompresses(t *testing.T) {
	lines := make([]string, 400)
	for i := range lines {
		lines[i] = "const value = " + strings.Repeat("x", 40)
	}
	sources := &countingSources{codeBody: strings.Join(lines, "\n")}
	m := newTestManager(t, sources, Config{MaxSize: 10, DefaultTTL: time.Hour, CompressionThreshold: 1000})

	got, err := m.PrepareContext(context.Background(), "p1", []string{"big.ts"}, true)
	require.NoError(t, err)
	assert.True(t, got.Metadata.Summarized)
	assert.Contains(t, got.Data.Code, ElisionMarker)
	assert.Equal(t, len(sources.codeBody), got.Metadata.CodeLength)
	assert.Equal(t, 1, m.Cache().Stats().Compressed)

	cached, err := m.PrepareContext(context.Background(), "p1", []string{"big.ts"}, true)
	require.NoError(t, err)
	assert.True(t, cached.Metadata.Cached)
	assert.Equal(t, got.Data, cached.Data, "compressed contexts round-trip")
}

func TestPrepareContext_CompressedHitMatchesMiss(t *testing.T) {
	tests := []struct {
		name           string
		files          []string
		includeHistory bool
		prefs          map[string]any
	}{
		{
			name:           "numeric preferences",
			files:          []string{"main.go"},
			includeHistory: true,
			prefs:          map[string]any{"indent": 2, "lineWidth": 120, "tabs": false, "nested": map[string]any{"depth": 3}},
		},
		{
			name:  "no files and no history",
			prefs: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sources := &countingSources{codeBody: strings.Repeat("x := 1\n", 50), prefsBody: tt.prefs}
			m := newTestManager(t, sources, Config{MaxSize: 10, DefaultTTL: time.Hour, CompressionThreshold: 100})

			miss, err := m.PrepareContext(context.Background(), "p1", tt.files, tt.includeHistory)
			require.NoError(t, err)
			require.False(t, miss.Metadata.Cached)
			require.Equal(t, 1, m.Cache().Stats().Compressed)

			hit, err := m.PrepareContext(context.Background(), "p1", tt.files, tt.includeHistory)
			require.NoError(t, err)
			require.True(t, hit.Metadata.Cached)
			assert.Equal(t, miss.Data, hit.Data)
		})
	}

	t.Run("preference types survive", func(t *testing.T) {
		sources := &countingSources{codeBody: strings.Repeat("x := 1\n", 50), prefsBody: map[string]any{"indent": 2}}
		m := newTestManager(t, sources, Config{MaxSize: 10, DefaultTTL: time.Hour, CompressionThreshold: 100})

		_, err := m.PrepareContext(context.Background(), "p1", nil, false)
		require.NoError(t, err)
		hit, err := m.PrepareContext(context.Background(), "p1", nil, false)
		require.NoError(t, err)
		assert.IsType(t, 0, hit.Data.UserPreferences["indent"])
	})
}

func TestInvalidateProject(t *testing.T) {
	sources := &countingSources{}
	m := newTestManager(t, sources, Config{MaxSize: 10, DefaultTTL: time.Hour})

	_, err := m.PrepareContext(context.Background(), "p1", []string{"a.go"}, true)
	require.NoError(t, err)
	_, err = m.PrepareContext(context.Background(), "p2", []string{"a.go"}, true)
	require.NoError(t, err)

	assert.Equal(t, 1, m.InvalidateProject("p1"))
	assert.Equal(t, 1, m.Cache().Len())
}
