// Package watcher implements the file-watch reconciliation layer (spec
// §4.5): debounced recursive watching of the memory/task roots, self-event
// suppression, and a periodic full rescan safety net.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/emergent-company/memoryd/internal/selfevent"
)

// RootReconciler is implemented by internal/memory.Store and
// internal/task.Store: ReconcileProject diffs one project's on-disk state
// against the index and publishes exactly the changed events (used for
// debounced per-path events); RebuildIndex does a blunt full rescan (used
// for the periodic safety net).
type RootReconciler interface {
	ReconcileProject(project string) error
	RebuildIndex() error
}

const debounceWindow = 500 * time.Millisecond
const rescanInterval = 60 * time.Second

type watchedRoot struct {
	root       string
	reconciler RootReconciler
}

// Watcher observes a set of roots and keeps reconcilers in sync.
type Watcher struct {
	logger *slog.Logger
	fsw    *fsnotify.Watcher
	ring   *selfevent.Ring
	roots  []watchedRoot

	pending map[string]*time.Timer
}

// New creates a Watcher. Call AddRoot for each directory to observe, then
// Run to start processing events.
func New(logger *slog.Logger, ring *selfevent.Ring) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{logger: logger, fsw: fsw, ring: ring, pending: make(map[string]*time.Timer)}, nil
}

// AddRoot recursively registers root (and all its existing subdirectories)
// for watching, associated with the reconciler that owns it.
func (w *Watcher) AddRoot(root string, reconciler RootReconciler) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	w.roots = append(w.roots, watchedRoot{root: filepath.Clean(root), reconciler: reconciler})
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.fsw.Add(path)
		}
		return nil
	})
}

// Run processes fsnotify events until ctx is cancelled, debouncing per
// path and running a periodic full rescan as a safety net (spec §4.5
// Failure model).
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(rescanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.fsw.Close()
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		case <-ticker.C:
			w.rescanAll()
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
			_ = w.fsw.Add(ev.Name)
			return
		}
	}
	if !strings.HasSuffix(ev.Name, ".md") && !strings.HasSuffix(ev.Name, ".json") {
		return
	}
	if strings.HasSuffix(ev.Name, ".tmp") {
		return // atomic-write intermediate, never a final state
	}

	if w.isSelfEvent(ev.Name) {
		return
	}

	w.debounce(ev.Name)
}

func (w *Watcher) isSelfEvent(path string) bool {
	fi, err := os.Stat(path)
	if err != nil {
		return false // delete events have nothing to stat; never self-suppressed
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	sum := sha256.Sum256(raw)
	hash := hex.EncodeToString(sum[:])
	return w.ring.Seen(path, fi.ModTime(), hash)
}

// debounce coalesces rapid-fire events for the same path into one
// reconciliation after debounceWindow (spec §4.5 "debounce of ~500ms per
// path").
func (w *Watcher) debounce(path string) {
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(debounceWindow, func() {
		w.reconcilePath(path)
	})
}

// reconcilePath maps path to its owning root and the project directory
// immediately under it, then asks that root's reconciler to reconcile just
// that project (spec §4.5 create/modify/delete semantics).
func (w *Watcher) reconcilePath(path string) {
	for _, wr := range w.roots {
		rel, err := filepath.Rel(wr.root, path)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		parts := strings.SplitN(filepath.ToSlash(rel), "/", 2)
		if len(parts) < 2 {
			continue // file directly under root, not inside a project dir
		}
		proj := parts[0]
		if err := wr.reconciler.ReconcileProject(proj); err != nil {
			w.logger.Error("reconcile failed", "root", wr.root, "project", proj, "error", err)
		}
		return
	}
}

func (w *Watcher) rescanAll() {
	w.logger.Debug("periodic full rescan")
	for _, wr := range w.roots {
		if err := wr.reconciler.RebuildIndex(); err != nil {
			w.logger.Error("periodic rescan failed", "root", wr.root, "error", err)
		}
	}
}
