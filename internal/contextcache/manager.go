package contextcache

import (
	"context"
	"fmt"
	"time"

	"switchyard/pkg/logging"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// ContextData is the prepared payload handed to execution backends.
type ContextData struct {
	ProjectID       string         `json:"projectId"`
	Files           []string       `json:"files"`
	Code            string         `json:"code"`
	Documentation   string         `json:"documentation"`
	History         []string       `json:"history"`
	UserPreferences map[string]any `json:"userPreferences"`
}

// withEmptyCollections replaces nil slices and maps by empty ones, so a
// context reads the same whether it was just built or restored from a
// compressed cache entry.
func (d ContextData) withEmptyCollections() ContextData {
	if d.Files == nil {
		d.Files = []string{}
	}
	if d.History == nil {
		d.History = []string{}
	}
	if d.UserPreferences == nil {
		d.UserPreferences = map[string]any{}
	}
	return d
}

// PrepareMetadata describes how a context was produced.
type PrepareMetadata struct {
	Cached         bool `json:"cached"`
	FilesProcessed int  `json:"filesProcessed,omitempty"`
	CodeLength     int  `json:"codeLength,omitempty"`
	Summarized     bool `json:"summarized,omitempty"`
}

// PreparedContext is the result of PrepareContext.
type PreparedContext struct {
	Data          ContextData     `json:"data"`
	ExecutionTime time.Duration   `json:"executionTime"`
	Metadata      PrepareMetadata `json:"metadata"`
}

// Sources performs the expensive lookups that make up a context. The four
// lookups are independent and are run concurrently.
type Sources interface {
	AggregateCode(ctx context.Context, projectID string, files []string) (string, error)
	AggregateDocumentation(ctx context.Context, projectID string) (string, error)
	History(ctx context.Context, projectID string) ([]string, error)
	Preferences(ctx context.Context, projectID string) (map[string]any, error)
}

// Manager prepares and caches project contexts.
type Manager struct {
	cache      *Cache
	sources    Sources
	summarizer Summarizer
	ttl        time.Duration
	now        func() time.Time
}

// NewManager wires a cache to its sources. A zero ttl uses the cache default.
func NewManager(cache *Cache, sources Sources, summarizer Summarizer, ttl time.Duration) *Manager {
	return &Manager{
		cache:      cache,
		sources:    sources,
		summarizer: summarizer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Cache exposes the underlying cache.
func (m *Manager) Cache() *Cache {
	return m.cache
}

// ProjectPrefix is the key prefix shared by every context of projectID.
func ProjectPrefix(projectID string) string {
	return "context:" + projectID + ":"
}

// ContextKey derives the cache key for (projectID, files). The file list is
// order sensitive because code is aggregated in that order.
func ContextKey(projectID string, files []string) string {
	h := xxhash.New()
	for _, f := range files {
		_, _ = h.WriteString(f)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%s%016x", ProjectPrefix(projectID), h.Sum64())
}

// PrepareContext returns the context for projectID and files, from the cache
// when possible. On a miss the four source lookups run in parallel, long code
// and documentation are summarized, and the result is cached.
func (m *Manager) PrepareContext(ctx context.Context, projectID string, files []string, includeHistory bool) (*PreparedContext, error) {
	if projectID == "" {
		return nil, fmt.Errorf("project id is required")
	}
	start := m.now()
	key := ContextKey(projectID, files)

	if cached, ok := GetAs[ContextData](m.cache, key); ok {
		logging.Debug(subsystem, "Context cache hit for project %s", projectID)
		return &PreparedContext{
			Data:          cached.withEmptyCollections(),
			ExecutionTime: m.now().Sub(start),
			Metadata:      PrepareMetadata{Cached: true},
		}, nil
	}

	logging.Info(subsystem, "Preparing context for project %s (%d files)", projectID, len(files))

	var (
		code, docs string
		history    = []string{}
		prefs      map[string]any
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		code, err = m.sources.AggregateCode(gctx, projectID, files)
		if err != nil {
			return fmt.Errorf("aggregating code: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		docs, err = m.sources.AggregateDocumentation(gctx, projectID)
		if err != nil {
			return fmt.Errorf("aggregating documentation: %w", err)
		}
		return nil
	})
	if includeHistory {
		g.Go(func() error {
			h, err := m.sources.History(gctx, projectID)
			if err != nil {
				return fmt.Errorf("reading history: %w", err)
			}
			if h != nil {
				history = h
			}
			return nil
		})
	}
	g.Go(func() error {
		var err error
		prefs, err = m.sources.Preferences(gctx, projectID)
		if err != nil {
			return fmt.Errorf("reading preferences: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		logging.Error(subsystem, err, "Context preparation failed for project %s", projectID)
		return nil, err
	}
	summarizedCode := m.summarizer.Summarize(code)
	summarizedDocs := m.summarizer.Summarize(docs)
	summarized := summarizedCode != code || summarizedDocs != docs
	if summarized {
		logging.Debug(subsystem, "Summarized context for %s: code %s", projectID, m.summarizer.Describe(code, summarizedCode))
	}

	data := ContextData{
		ProjectID:       projectID,
		Files:           append([]string(nil), files...),
		Code:            summarizedCode,
		Documentation:   summarizedDocs,
		History:         history,
		UserPreferences: prefs,
	}.withEmptyCollections()
	if err := m.cache.Put(key, data, m.ttl); err != nil {
		// A context that cannot be cached is still usable.
		logging.Warn(subsystem, "Could not cache context for %s: %v", projectID, err)
	}

	elapsed := m.now().Sub(start)
	logging.Info(subsystem, "Context prepared for project %s in %s", projectID, elapsed)
	return &PreparedContext{
		Data:          data,
		ExecutionTime: elapsed,
		Metadata: PrepareMetadata{
			Cached:         false,
			FilesProcessed: len(files),
			CodeLength:     len(code),
			Summarized:     summarized,
		},
	}, nil
}

// InvalidateProject drops every cached context of projectID.
func (m *Manager) InvalidateProject(projectID string) int {
	return m.cache.InvalidatePrefix(ProjectPrefix(projectID))
}
