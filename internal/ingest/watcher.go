package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Documents is the part of Indexer the watcher drives.
type Documents interface {
	Ingest(ctx context.Context, scope, name string, data []byte) (Result, error)
	Delete(ctx context.Context, scope string) (int, error)
}

// Watcher keeps a directory of documents indexed. A file's scope is its
// base name without extension, so "report.pdf" answers questions scoped to
// "report".
type Watcher struct {
	dir      string
	docs     Documents
	logger   *zap.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	wg      sync.WaitGroup
}

func NewWatcher(dir string, docs Documents, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		dir:      dir,
		docs:     docs,
		logger:   logger.With(zap.String("component", "doc_watcher"), zap.String("dir", dir)),
		debounce: 500 * time.Millisecond,
		watcher:  w,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// ScopeForPath derives the document scope of a watched file.
func ScopeForPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Run indexes existing files, then follows changes until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.initialScan(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			w.wg.Wait()
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !Supported(event.Name) {
				continue
			}
			switch {
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.schedule(ctx, event.Name)
			case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				w.remove(ctx, event.Name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch_error", zap.Error(err))
		}
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) initialScan(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("initial_scan_failed", zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		w.ingest(ctx, filepath.Join(w.dir, e.Name()))
	}
}

// schedule coalesces the burst of events editors emit for one save.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.debounce)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.pending[path] == t {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
	w.pending[path] = t
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("read_failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	res, err := w.docs.Ingest(ctx, ScopeForPath(path), filepath.Base(path), data)
	if err != nil {
		w.logger.Warn("ingest_failed", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("file_indexed",
		zap.String("path", path),
		zap.String("document_scope", res.DocumentScope),
		zap.Int("chunks", res.Chunks),
	)
}

func (w *Watcher) remove(ctx context.Context, path string) {
	w.mu.Lock()
	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
	w.mu.Unlock()

	scope := ScopeForPath(path)
	if _, err := w.docs.Delete(ctx, scope); err != nil {
		w.logger.Warn("delete_failed", zap.String("document_scope", scope), zap.Error(err))
	}
}
