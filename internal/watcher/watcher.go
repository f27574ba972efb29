// Package watcher rebuilds tile indexes when tiles under a disk tile root change.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/hyperjump/anveshak/internal/models"
	"github.com/hyperjump/anveshak/internal/vector"
	"github.com/hyperjump/anveshak/pkg/utils"
)

const defaultDebounce = 2 * time.Second

// Resolver maps a tile file path to its coordinate.
type Resolver interface {
	KeyForPath(path string) (models.TileCoordinate, bool)
}

// Rebuilder is the part of the index registry the watcher drives.
type Rebuilder interface {
	Has(key models.IndexKey) bool
	Rebuild(ctx context.Context, key models.IndexKey) (*vector.FlatIndex, error)
}

// Watcher watches a tile root recursively. Changes are grouped per index key and,
// after the debounce interval passes without further changes to that key, the
// key is rebuilt if an index for it already exists.
type Watcher struct {
	root       string
	extensions []string
	resolver   Resolver
	rebuilder  Rebuilder
	debounce   time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	pending map[models.IndexKey]*time.Timer
	ctx     context.Context
	done    chan struct{}
	started bool
	stopped sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = utils.OrNop(l) }
}

// WithDebounce sets the quiet period before a key is rebuilt.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions restricts which files count as tiles. Empty means all files.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) { w.extensions = exts }
}

// New creates a watcher for root.
func New(root string, resolver Resolver, rebuilder Rebuilder, opts ...Option) *Watcher {
	w := &Watcher{
		root:      filepath.Clean(root),
		resolver:  resolver,
		rebuilder: rebuilder,
		debounce:  defaultDebounce,
		logger:    zap.NewNop(),
		pending:   make(map[models.IndexKey]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. The root is created if missing. Rebuilds run with ctx,
// and the watcher stops when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.root, 0755); err != nil {
		return err
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := addTree(fsw, w.root); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.ctx = ctx
	w.started = true
	w.logger.Info("tile watcher started", zap.String("root", w.root), zap.Duration("debounce", w.debounce))
	go w.run(ctx, fsw)
	return nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("tile watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if !inDir(w.root, path) {
		return
	}
	w.logger.Debug("tile watcher event", zap.String("op", ev.Op.String()), zap.String("path", path))

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			w.handleNewDirectory(path)
			return
		}
	}
	if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.touch(path)
	}
}

// handleNewDirectory watches a directory that appeared (for example a copied zoom
// level) and schedules the keys of the tiles already inside it.
func (w *Watcher) handleNewDirectory(dir string) {
	w.mu.Lock()
	fsw := w.fsw
	w.mu.Unlock()
	if fsw == nil {
		return
	}
	if err := addTree(fsw, dir); err != nil {
		w.logger.Warn("tile watcher failed to watch directory", zap.String("path", dir), zap.Error(err))
	}
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		w.touch(path)
		return nil
	})
}

// touch schedules a rebuild for the key owning path, restarting its debounce timer.
func (w *Watcher) touch(path string) {
	if !matchExtension(path, w.extensions) {
		return
	}
	coord, ok := w.resolver.KeyForPath(path)
	if !ok {
		return
	}
	key := coord.Key()

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if t, ok := w.pending[key]; ok {
		t.Stop()
	}
	w.pending[key] = time.AfterFunc(w.debounce, func() { w.fire(key) })
}

func (w *Watcher) fire(key models.IndexKey) {
	w.mu.Lock()
	delete(w.pending, key)
	ctx := w.ctx
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}
	if !w.rebuilder.Has(key) {
		w.logger.Debug("tiles changed for unindexed key", zap.Stringer("key", key))
		return
	}
	w.logger.Info("tiles changed, rebuilding index", zap.Stringer("key", key))
	if _, err := w.rebuilder.Rebuild(ctx, key); err != nil {
		w.logger.Error("index rebuild after tile change failed", zap.Stringer("key", key), zap.Error(err))
	}
}

// Pending returns the number of keys waiting for their debounce interval.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Stop stops watching and drops pending rebuilds.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	for key, t := range w.pending {
		t.Stop()
		delete(w.pending, key)
	}
	_ = w.fsw.Close()
	w.fsw = nil
	w.started = false
	w.mu.Unlock()
	w.stopped.Do(func() { close(w.done) })
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(path)
		}
		return nil
	})
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func matchExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
