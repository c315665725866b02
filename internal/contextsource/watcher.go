package contextsource

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"switchyard/pkg/logging"
)

// skippedDirs are never watched.
var skippedDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"vendor":       true,
}

// Watcher reports which project changed whenever a file below the projects
// root is created, written, removed or renamed. Bursts of events for one
// project are debounced into a single callback.
type Watcher struct {
	mu sync.Mutex

	root     string
	debounce time.Duration
	onChange func(projectID string)

	watcher *fsnotify.Watcher
	pending map[string]*time.Timer
	stopCh  chan struct{}
	done    chan struct{}
	running bool
}

// NewWatcher creates a watcher for root. onChange runs on a timer goroutine.
func NewWatcher(root string, debounce time.Duration, onChange func(projectID string)) *Watcher {
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	return &Watcher{
		root:     root,
		debounce: debounce,
		onChange: onChange,
		pending:  make(map[string]*time.Timer),
	}
}

// Start adds watches for the root and every project directory below it.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	w.running = true
	w.mu.Unlock()

	if err := w.addTree(w.root); err != nil {
		close(w.done)
		_ = w.Stop(ctx)
		return err
	}

	go w.processEvents(ctx)

	logging.Info(subsystem, "Watching %s for project changes", w.root)
	return nil
}

// addTree watches dir and its subdirectories. fsnotify watches are not recursive.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			logging.Debug(subsystem, "Skipping %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skippedDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			logging.Warn(subsystem, "Failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Error(subsystem, err, "Filesystem watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				logging.Debug(subsystem, "Could not watch new directory %s: %v", event.Name, err)
			}
		}
	}

	projectID := w.projectOf(event.Name)
	if projectID == "" {
		return
	}
	w.schedule(projectID)
}

// projectOf maps a path to the first path element below the root.
func (w *Watcher) projectOf(path string) string {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || !filepath.IsLocal(rel) {
		return ""
	}
	first, _, _ := strings.Cut(filepath.ToSlash(rel), "/")
	return first
}

func (w *Watcher) schedule(projectID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	if timer, ok := w.pending[projectID]; ok {
		timer.Stop()
	}
	w.pending[projectID] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, projectID)
		running := w.running
		w.mu.Unlock()

		if running {
			logging.Debug(subsystem, "Project %s changed", projectID)
			w.onChange(projectID)
		}
	})
}

// Stop closes the fsnotify watcher and drops pending notifications.
func (w *Watcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	for id, timer := range w.pending {
		timer.Stop()
		delete(w.pending, id)
	}
	close(w.stopCh)
	watcher := w.watcher
	done := w.done
	w.mu.Unlock()

	err := watcher.Close()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
