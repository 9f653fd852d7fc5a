// Package memory implements the memory store (spec §3.1, §4.2): CRUD over
// one markdown-with-frontmatter file per memory, an in-memory index
// rebuildable from disk, atomic writes, and change-bus notification.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emergent-company/memoryd/internal/apperror"
	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/frontmatter"
	"github.com/emergent-company/memoryd/internal/project"
	"github.com/emergent-company/memoryd/internal/selfevent"
)

const maxListLimit = 1000

// Store owns the memory index and all file I/O under root.
type Store struct {
	root string
	bus  *changebus.Bus
	ring *selfevent.Ring

	mu         sync.RWMutex
	byID       map[string]*entry
	byProject  map[string]map[string]struct{} // project -> ids
	byTag      map[string]map[string]struct{} // tag -> ids
}

type entry struct {
	record Record
	path   string
}

// New constructs a Store rooted at root (typically "<corpus root>/memories")
// and performs an initial RebuildIndex.
func New(root string, bus *changebus.Bus, ring *selfevent.Ring) (*Store, error) {
	s := &Store{
		root:      root,
		bus:       bus,
		ring:      ring,
		byID:      make(map[string]*entry),
		byProject: make(map[string]map[string]struct{}),
		byTag:     make(map[string]map[string]struct{}),
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating memory root: %w", err)
	}
	if err := s.RebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// AddInput is the validated input to Add.
type AddInput struct {
	Content  string
	Project  string
	Category string
	Tags     []string
	Priority string
	Status   string
}

// Add creates a new memory (spec §4.2 add).
func (s *Store) Add(in AddInput) (Record, error) {
	if strings.TrimSpace(in.Content) == "" {
		return Record{}, apperror.New(apperror.InvalidInput, "content must not be empty").WithField("content")
	}

	now := time.Now().UTC()
	rec := Record{
		ID:              uuid.NewString(),
		Timestamp:       now,
		LastAccessed:    now,
		AccessCount:     0,
		Content:         in.Content,
		Project:         project.Slug(in.Project),
		Category:        defaultStr(in.Category, "personal"),
		Tags:            normalizeTags(in.Tags),
		Priority:        defaultStr(in.Priority, "medium"),
		Status:          defaultStr(in.Status, "active"),
		Complexity:      classifyComplexity(in.Content),
		RelatedMemories: nil,
		ContentHash:     hashContent(in.Content),
	}

	path := s.filePath(rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFile(path, rec); err != nil {
		return Record{}, apperror.Wrap(apperror.IOError, err, "writing memory file")
	}
	s.indexLocked(rec, path)
	s.publish(changebus.MemoryAdded, rec)
	return rec, nil
}

// Get returns a memory by id, bumping access_count/last_accessed
// (write-through, spec §4.2 get).
func (s *Store) Get(id string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return Record{}, apperror.Newf(apperror.NotFound, "memory %q not found", id)
	}

	e.record.AccessCount++
	e.record.LastAccessed = time.Now().UTC()
	if err := s.writeFile(e.path, e.record); err != nil {
		return Record{}, apperror.Wrap(apperror.IOError, err, "updating access stats")
	}
	return e.record, nil
}

// Peek returns a memory by id without bumping access stats.
func (s *Store) Peek(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return Record{}, false
	}
	return e.record, true
}

// List returns memories ordered by timestamp descending, tie-break by id
// (spec §4.2 list).
func (s *Store) List(projectFilter string, limit int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Record, 0, len(s.byID))
	for _, e := range s.byID {
		if projectFilter != "" && e.record.Project != project.Slug(projectFilter) {
			continue
		}
		out = append(out, e.record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// All returns every record, unordered, for use by the search package.
func (s *Store) All() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.byID))
	for _, e := range s.byID {
		out = append(out, e.record)
	}
	return out
}

// UpdatePatch carries only the fields a caller wants to change; nil/empty
// means "leave unchanged" except where noted.
type UpdatePatch struct {
	Content  *string
	Category *string
	Tags     *[]string
	Priority *string
	Status   *string
}

// Update applies a partial update (spec §4.2 update). id, timestamp are
// immutable; content_hash/complexity are recomputed if content changes.
func (s *Store) Update(id string, patch UpdatePatch) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return Record{}, apperror.Newf(apperror.NotFound, "memory %q not found", id)
	}

	rec := e.record
	if patch.Content != nil {
		if strings.TrimSpace(*patch.Content) == "" {
			return Record{}, apperror.New(apperror.InvalidInput, "content must not be empty").WithField("content")
		}
		rec.Content = *patch.Content
		rec.ContentHash = hashContent(rec.Content)
		rec.Complexity = classifyComplexity(rec.Content)
	}
	if patch.Category != nil {
		rec.Category = *patch.Category
	}
	if patch.Tags != nil {
		rec.Tags = normalizeTags(*patch.Tags)
	}
	if patch.Priority != nil {
		rec.Priority = *patch.Priority
	}
	if patch.Status != nil {
		rec.Status = *patch.Status
	}

	if err := s.writeFile(e.path, rec); err != nil {
		return Record{}, apperror.Wrap(apperror.IOError, err, "writing memory update")
	}
	s.unindexLocked(e.record)
	s.indexLocked(rec, e.path)
	s.publish(changebus.MemoryUpdated, rec)
	return rec, nil
}

// Delete removes a memory file and evicts it from the index (spec §4.2
// delete). No tombstones.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return apperror.Newf(apperror.NotFound, "memory %q not found", id)
	}
	if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
		return apperror.Wrap(apperror.IOError, err, "removing memory file")
	}
	s.unindexLocked(e.record)
	delete(s.byID, id)
	s.publish(changebus.MemoryDeleted, e.record)
	return nil
}

// DedupGroup is one content_hash cluster in a dedup report.
type DedupGroup struct {
	ContentHash string   `json:"content_hash"`
	SurvivorID  string   `json:"survivor_id"`
	RemovedIDs  []string `json:"removed_ids"`
}

// DedupReport is the output of Dedup.
type DedupReport struct {
	Groups []DedupGroup `json:"groups"`
}

// Dedup groups memories by content_hash; within each group with more than
// one member, the oldest (by timestamp, tie-break id) survives. If apply is
// true, losers are deleted; otherwise this only returns the plan (spec §4.2
// dedup).
func (s *Store) Dedup(apply bool) (DedupReport, error) {
	s.mu.Lock()
	byHash := make(map[string][]*entry, len(s.byID))
	for _, e := range s.byID {
		byHash[e.record.ContentHash] = append(byHash[e.record.ContentHash], e)
	}
	var report DedupReport
	var toDelete []string
	for hash, group := range byHash {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].record.Timestamp.Equal(group[j].record.Timestamp) {
				return group[i].record.Timestamp.Before(group[j].record.Timestamp)
			}
			return group[i].record.ID < group[j].record.ID
		})
		survivor := group[0]
		g := DedupGroup{ContentHash: hash, SurvivorID: survivor.record.ID}
		for _, loser := range group[1:] {
			g.RemovedIDs = append(g.RemovedIDs, loser.record.ID)
			toDelete = append(toDelete, loser.record.ID)
		}
		report.Groups = append(report.Groups, g)
	}
	s.mu.Unlock()

	sort.Slice(report.Groups, func(i, j int) bool { return report.Groups[i].ContentHash < report.Groups[j].ContentHash })

	if !apply {
		return report, nil
	}
	for _, id := range toDelete {
		if err := s.Delete(id); err != nil {
			return report, err
		}
	}
	return report, nil
}

// RebuildIndex performs a full rescan of root, resolving duplicate ids by
// indexing the lexicographically-first filename (spec §3.1 invariant a).
// The other files with that id are left where they are and not indexed;
// nothing is quarantined.
func (s *Store) RebuildIndex() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*entry)
	s.byProject = make(map[string]map[string]struct{})
	s.byTag = make(map[string]map[string]struct{})

	firstPathForID := make(map[string]string)

	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		doc, perr := frontmatter.Parse(raw)
		if perr != nil {
			return nil // malformed: logged by caller via watcher, skipped here
		}
		rec := recordFromMetadata(doc.Metadata, doc.Body)
		if rec.ID == "" {
			return nil
		}
		if existing, dup := firstPathForID[rec.ID]; dup {
			if path < existing {
				firstPathForID[rec.ID] = path
			}
			return nil
		}
		firstPathForID[rec.ID] = path
		return nil
	})
	if err != nil {
		return fmt.Errorf("walking memory root: %w", err)
	}

	for id, path := range firstPathForID {
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		doc, err := frontmatter.Parse(raw)
		if err != nil {
			continue
		}
		rec := recordFromMetadata(doc.Metadata, doc.Body)
		rec.ID = id
		s.indexLocked(rec, path)
	}
	return nil
}

// ReconcileProject rescans only <root>/<project> and diffs the result
// against the current index for that project, publishing memory-added/
// updated/deleted for exactly what changed (spec §4.5: "On create ...
// emit *-added", "On modify ... if id unchanged, emit *-updated; if id
// changed, emit delete+add", "On delete ... emit *-deleted"). Used by the
// watcher for debounced per-path events; the periodic full rescan instead
// calls RebuildIndex directly as a blunter safety net.
func (s *Store) ReconcileProject(proj string) error {
	dir := filepath.Join(s.root, proj)
	fresh := make(map[string]struct {
		rec  Record
		path string
	})

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(path, ".md") {
			return nil
		}
		raw, rerr := os.ReadFile(path)
		if rerr != nil {
			return nil
		}
		doc, perr := frontmatter.Parse(raw)
		if perr != nil {
			return nil // malformed: logged by caller, skipped from indexing
		}
		rec := recordFromMetadata(doc.Metadata, doc.Body)
		if rec.ID == "" {
			return nil
		}
		fresh[rec.ID] = struct {
			rec  Record
			path string
		}{rec, path}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldIDs := s.byProject[proj]
	for id := range oldIDs {
		if _, stillPresent := fresh[id]; !stillPresent {
			old := s.byID[id].record
			s.unindexLocked(old)
			s.publish(changebus.MemoryDeleted, old)
		}
	}

	for id, f := range fresh {
		if existing, ok := s.byID[id]; ok {
			if existing.record.ContentHash != f.rec.ContentHash {
				s.unindexLocked(existing.record)
				s.indexLocked(f.rec, f.path)
				s.publish(changebus.MemoryUpdated, f.rec)
			}
			continue
		}
		s.indexLocked(f.rec, f.path)
		s.publish(changebus.MemoryAdded, f.rec)
	}
	return nil
}

func (s *Store) indexLocked(rec Record, path string) {
	e := &entry{record: rec, path: path}
	s.byID[rec.ID] = e

	if s.byProject[rec.Project] == nil {
		s.byProject[rec.Project] = make(map[string]struct{})
	}
	s.byProject[rec.Project][rec.ID] = struct{}{}

	for _, t := range rec.Tags {
		if s.byTag[t] == nil {
			s.byTag[t] = make(map[string]struct{})
		}
		s.byTag[t][rec.ID] = struct{}{}
	}
}

func (s *Store) unindexLocked(rec Record) {
	delete(s.byID, rec.ID)
	if ids, ok := s.byProject[rec.Project]; ok {
		delete(ids, rec.ID)
	}
	for _, t := range rec.Tags {
		if ids, ok := s.byTag[t]; ok {
			delete(ids, rec.ID)
		}
	}
}

// writeFile serializes rec and writes it atomically (write temp, fsync,
// rename over path), recording the write in the self-event ring so the watcher
// does not re-observe it (spec §4.2 Atomicity / Self-event suppression).
func (s *Store) writeFile(path string, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	raw := frontmatter.Serialize(rec.toMetadata(), frontmatterKeys, rec.Content)

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}

	if s.ring != nil {
		if fi, err := os.Stat(path); err == nil {
			// The watcher hashes the whole file, so record the hash of
			// the bytes written, not rec.ContentHash.
			s.ring.Record(path, fi.ModTime(), hashContent(string(raw)))
		}
	}
	return nil
}

func (s *Store) publish(kind changebus.Kind, rec Record) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(changebus.Event{Kind: kind, ID: rec.ID, Project: rec.Project, Payload: rec})
}

// filePath computes <root>/<project>/<YYYY-MM-DD>--<slug>-<shortsuffix>.md
// (spec §3.1 Persistence). The id is authoritative; the filename is purely
// informational.
func (s *Store) filePath(rec Record) string {
	date := rec.Timestamp.Format("2006-01-02")
	slug := titleSlug(rec.Content)
	suffix := rec.ID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	name := fmt.Sprintf("%s--%s-%s.md", date, slug, suffix)
	return filepath.Join(s.root, rec.Project, name)
}

func titleSlug(content string) string {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	firstLine = strings.ToLower(strings.TrimSpace(firstLine))
	var sb strings.Builder
	lastDash := false
	for _, r := range firstLine {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && sb.Len() > 0 {
				sb.WriteByte('-')
				lastDash = true
			}
		}
	}
	s := strings.Trim(sb.String(), "-")
	if len(s) > 40 {
		s = s[:40]
	}
	if s == "" {
		s = "memory"
	}
	return s
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
