// Package selfevent implements the bounded (path, mtime, hash, expiry) ring
// that lets a store's own atomic writes be distinguished from external edits
// observed by the file watcher (spec §4.2 "self-event suppression",
// §9 "Watcher self-events").
package selfevent

import (
	"sync"
	"time"
)

// DefaultWindow is the self-write suppression window (spec §5: "default 2s").
const DefaultWindow = 2 * time.Second

type entry struct {
	mtime  time.Time
	hash   string
	expiry time.Time
}

// Ring records recent self-writes and answers whether a later watch event
// for the same path is one of them. It is safe for concurrent use.
type Ring struct {
	mu     sync.Mutex
	window time.Duration
	byPath map[string]entry
}

// New creates a Ring with the given suppression window. A zero window uses
// DefaultWindow.
func New(window time.Duration) *Ring {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Ring{window: window, byPath: make(map[string]entry)}
}

// Record marks path as just written by this process with the given mtime
// and content hash, valid for the ring's suppression window.
func (r *Ring) Record(path string, mtime time.Time, hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPath[path] = entry{mtime: mtime, hash: hash, expiry: time.Now().Add(r.window)}
	r.evictLocked()
}

// Seen reports whether (path, mtime, hash) matches an unexpired self-write
// entry. Matching entries are consumed (removed) so a genuinely distinct
// subsequent external edit to the same path is not masked.
func (r *Ring) Seen(path string, mtime time.Time, hash string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.byPath[path]
	if !ok {
		return false
	}
	if time.Now().After(e.expiry) {
		delete(r.byPath, path)
		return false
	}
	if !e.mtime.Equal(mtime) || e.hash != hash {
		return false
	}
	delete(r.byPath, path)
	return true
}

// evictLocked drops expired entries. Called while holding mu.
func (r *Ring) evictLocked() {
	now := time.Now()
	for p, e := range r.byPath {
		if now.After(e.expiry) {
			delete(r.byPath, p)
		}
	}
}
