package contextsource

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"switchyard/pkg/logging"

	"gopkg.in/yaml.v3"
)

const subsystem = "ContextSource"

// Config locates project data below ProjectsRoot. Each project is a
// directory named after its project id.
type Config struct {
	ProjectsRoot    string
	DocsDir         string
	HistoryFile     string
	PreferencesFile string
	MaxFileBytes    int64
	HistoryLimit    int
}

// Filesystem reads project context straight from disk.
type Filesystem struct {
	cfg Config
}

// NewFilesystem creates a filesystem source. Zero limits get sensible defaults.
func NewFilesystem(cfg Config) *Filesystem {
	if cfg.ProjectsRoot == "" {
		cfg.ProjectsRoot = "."
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = 1 << 20
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 50
	}
	return &Filesystem{cfg: cfg}
}

// ProjectDir resolves the directory of projectID, rejecting ids that would
// escape the projects root.
func (f *Filesystem) ProjectDir(projectID string) (string, error) {
	if projectID == "" || !filepath.IsLocal(projectID) || strings.ContainsRune(projectID, filepath.Separator) {
		return "", fmt.Errorf("invalid project id %q", projectID)
	}
	return filepath.Join(f.cfg.ProjectsRoot, projectID), nil
}

func (f *Filesystem) projectPath(projectID, rel string) (string, error) {
	dir, err := f.ProjectDir(projectID)
	if err != nil {
		return "", err
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("path %q escapes project %s", rel, projectID)
	}
	return filepath.Join(dir, clean), nil
}

func (f *Filesystem) readLimited(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, f.cfg.MaxFileBytes))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// AggregateCode concatenates the requested files, each preceded by a
// "// File:" header. Unreadable files are noted inline instead of failing
// the whole context.
func (f *Filesystem) AggregateCode(ctx context.Context, projectID string, files []string) (string, error) {
	if _, err := f.ProjectDir(projectID); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(files))
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path, err := f.projectPath(projectID, rel)
		if err != nil {
			return "", err
		}
		content, err := f.readLimited(path)
		if err != nil {
			logging.Warn(subsystem, "Could not read %s for project %s: %v", rel, projectID, err)
			parts = append(parts, fmt.Sprintf("// File: %s\n// (unavailable: %v)", rel, err))
			continue
		}
		parts = append(parts, fmt.Sprintf("// File: %s\n%s", rel, content))
	}
	return strings.Join(parts, "\n\n"), nil
}

// AggregateDocumentation returns the project README followed by every
// markdown file under the docs directory, in lexical order.
func (f *Filesystem) AggregateDocumentation(ctx context.Context, projectID string) (string, error) {
	dir, err := f.ProjectDir(projectID)
	if err != nil {
		return "", err
	}

	var docs []string
	if readme, err := f.readLimited(filepath.Join(dir, "README.md")); err == nil {
		docs = append(docs, "# README.md\n"+readme)
	}

	if f.cfg.DocsDir == "" {
		return strings.Join(docs, "\n\n"), nil
	}
	docsDir := filepath.Join(dir, f.cfg.DocsDir)
	var paths []string
	err = filepath.WalkDir(docsDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".md") {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("walking %s: %w", docsDir, err)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		content, err := f.readLimited(path)
		if err != nil {
			logging.Warn(subsystem, "Could not read documentation %s: %v", path, err)
			continue
		}
		rel, _ := filepath.Rel(dir, path)
		docs = append(docs, fmt.Sprintf("# %s\n%s", filepath.ToSlash(rel), content))
	}
	return strings.Join(docs, "\n\n"), nil
}

// History returns the last HistoryLimit non-empty lines of the history file.
func (f *Filesystem) History(ctx context.Context, projectID string) ([]string, error) {
	if f.cfg.HistoryFile == "" {
		return []string{}, nil
	}
	path, err := f.projectPath(projectID, f.cfg.HistoryFile)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, err
	}
	defer file.Close()

	history := []string{}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), int(f.cfg.MaxFileBytes))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		history = append(history, line)
		if len(history) > f.cfg.HistoryLimit {
			history = history[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading history of %s: %w", projectID, err)
	}
	return history, nil
}

// Preferences decodes the project's preferences YAML. A missing file yields
// an empty map.
func (f *Filesystem) Preferences(ctx context.Context, projectID string) (map[string]any, error) {
	prefs := map[string]any{}
	if f.cfg.PreferencesFile == "" {
		return prefs, nil
	}
	path, err := f.projectPath(projectID, f.cfg.PreferencesFile)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return prefs, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("parsing preferences of %s: %w", projectID, err)
	}
	return prefs, nil
}
