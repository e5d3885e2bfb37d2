// Package filesystem implements the knowledge source port over a directory
// of markdown and plain-text files. A background fsnotify watcher lets the
// indexer skip full tree walks when nothing has changed.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/psimdev/atlas-assistant/internal/core/domain"
	"github.com/psimdev/atlas-assistant/internal/core/ports/driven"
	"github.com/psimdev/atlas-assistant/internal/logger"
)

// Ensure Source implements the interface.
var _ driven.KnowledgeSource = (*Source)(nil)

// Recognised file extensions, lower case.
var textExtensions = map[string]bool{
	".md":  true,
	".txt": true,
}

const noteTimeLayout = "20060102-150405"

// Source reads knowledge documents from a directory tree.
type Source struct {
	root string
	now  func() time.Time

	mu        sync.Mutex
	watcher   *fsnotify.Watcher
	startedAt time.Time
	lastEvent time.Time
	done      chan struct{}
}

// Option configures a Source.
type Option func(*Source)

// WithClock overrides the wall clock, used by tests and for note naming.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// NewSource creates a knowledge source rooted at dir. A file watcher is
// started best-effort; when it cannot run, change detection falls back to
// modification-time walks.
func NewSource(root string, opts ...Option) *Source {
	s := &Source{
		root: root,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.startWatcher()
	return s
}

// Load enumerates all recognised text documents under the root.
func (s *Source) Load(ctx context.Context) ([]domain.Document, error) {
	if _, err := os.Stat(s.root); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, s.root)
	}

	var docs []domain.Document
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = d.Name()
		}

		docs = append(docs, domain.Document{
			ID:         filepath.ToSlash(rel),
			Path:       path,
			Content:    string(content),
			ModifiedAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk knowledge directory: %w", err)
	}
	return docs, nil
}

// LastModified returns the newest modification time across all recognised
// files, zero when there are none.
func (s *Source) LastModified(ctx context.Context) (time.Time, error) {
	if _, err := os.Stat(s.root); err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, s.root)
	}

	var newest time.Time
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != s.root {
				return filepath.SkipDir
			}
			return nil
		}
		if !textExtensions[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(newest) {
			newest = info.ModTime()
		}
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("walk knowledge directory: %w", err)
	}
	return newest, nil
}

// Add writes text as a new note file under the root, creating the directory
// if needed, and returns the note's document identifier.
func (s *Source) Add(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty note", domain.ErrInvalidInput)
	}
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return "", fmt.Errorf("create knowledge directory: %w", err)
	}

	base := "nota-" + s.now().Format(noteTimeLayout)
	name := base + ".md"
	for i := 2; ; i++ {
		if _, err := os.Stat(filepath.Join(s.root, name)); os.IsNotExist(err) {
			break
		}
		name = fmt.Sprintf("%s-%d.md", base, i)
	}

	path := filepath.Join(s.root, name)
	if err := os.WriteFile(path, []byte(strings.TrimSpace(text)+"\n"), 0o644); err != nil {
		return "", fmt.Errorf("write note: %w", err)
	}

	// Record the change directly so staleness checks see the note even when
	// the watcher is not running.
	s.mu.Lock()
	s.lastEvent = s.now()
	s.mu.Unlock()

	return name, nil
}

// ChangedSince reports whether the source saw changes after t. Without a
// running watcher, or for times before the watcher started, it answers true
// so callers fall back to modification-time comparison.
func (s *Source) ChangedSince(t time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher == nil {
		return true
	}
	if t.Before(s.startedAt) {
		return true
	}
	return s.lastEvent.After(t)
}

// Close stops the file watcher.
func (s *Source) Close() error {
	s.mu.Lock()
	watcher := s.watcher
	done := s.done
	s.watcher = nil
	s.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	if done != nil {
		<-done
	}
	return err
}

func (s *Source) startWatcher() {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Debug("knowledge watcher unavailable: %v", err)
		return
	}

	if err := watcher.Add(s.root); err != nil {
		// Root may not exist yet. Walks will report the source as
		// unavailable until it does.
		logger.Debug("knowledge watcher: cannot watch %s: %v", s.root, err)
		watcher.Close()
		return
	}

	// Watch existing subdirectories too. New ones are added as Create
	// events arrive.
	filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == s.root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		watcher.Add(path)
		return nil
	})

	s.watcher = watcher
	s.startedAt = s.now()
	s.done = make(chan struct{})

	go s.run(watcher, s.done)
}

func (s *Source) run(watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			s.handleEvent(watcher, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Debug("knowledge watcher: %v", err)
		}
	}
}

func (s *Source) handleEvent(watcher *fsnotify.Watcher, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			watcher.Add(event.Name)
			// A new directory may carry files copied in before the watch
			// took effect, count it as a change.
			s.markChanged()
			return
		}
	}

	if !textExtensions[strings.ToLower(filepath.Ext(event.Name))] {
		return
	}
	s.markChanged()
}

func (s *Source) markChanged() {
	s.mu.Lock()
	s.lastEvent = time.Now()
	s.mu.Unlock()
}
