package task

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/emergent-company/memoryd/internal/apperror"
	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/project"
)

// Store owns the task index for every project under root and persists
// through the configured Layout.
type Store struct {
	root   string
	layout Layout
	bus    *changebus.Bus

	mu          sync.RWMutex
	byID        map[string]Task
	nextSerial  map[string]int // project -> next serial to allocate
}

// New constructs a Store rooted at root using the named layout ("flat" or
// "per_file"), refusing to start if root's marker disagrees (spec §9 Open
// Question #2).
func New(root, layoutName string, bus *changebus.Bus) (*Store, error) {
	layout, err := resolveLayout(root, layoutName)
	if err != nil {
		return nil, err
	}
	s := &Store{root: root, layout: layout, bus: bus, byID: make(map[string]Task), nextSerial: make(map[string]int)}
	if err := s.RebuildIndex(); err != nil {
		return nil, err
	}
	return s, nil
}

// RebuildIndex performs a full rescan via the configured layout.
func (s *Store) RebuildIndex() error {
	byProject, err := s.layout.LoadAll(s.root)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID = make(map[string]Task)
	s.nextSerial = make(map[string]int)
	for proj, tasks := range byProject {
		max := 0
		for _, t := range tasks {
			s.byID[t.ID] = t
			if t.Serial > max {
				max = t.Serial
			}
		}
		s.nextSerial[proj] = max + 1
	}
	return nil
}

// ReconcileProject reloads proj via the configured layout and diffs
// against the current index, publishing task-added/updated/deleted for
// exactly what changed (spec §4.5, applied to the task store the same way
// as memory.Store.ReconcileProject). Used by the watcher for debounced
// per-path events.
func (s *Store) ReconcileProject(proj string) error {
	byProject, err := s.layout.LoadAll(s.root)
	if err != nil {
		return err
	}
	fresh := make(map[string]Task)
	for _, t := range byProject[proj] {
		fresh[t.ID] = t
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.byID {
		if t.Project != proj {
			continue
		}
		if _, stillPresent := fresh[id]; !stillPresent {
			delete(s.byID, id)
			s.publish(changebus.TaskDeleted, t)
		}
	}
	for id, t := range fresh {
		if existing, ok := s.byID[id]; ok {
			if !existing.Updated.Equal(t.Updated) {
				s.byID[id] = t
				s.publish(changebus.TaskUpdated, t)
			}
			continue
		}
		s.byID[id] = t
		s.publish(changebus.TaskAdded, t)
		if t.Serial >= s.nextSerial[proj] {
			s.nextSerial[proj] = t.Serial + 1
		}
	}
	return nil
}

// CreateInput is the validated input to Create.
type CreateInput struct {
	Title             string
	Description       string
	Project           string
	Category          string
	Tags              []string
	Priority          string
	ParentID          string
	Level             string
	MemoryConnections []MemoryConnection
}

// Create adds a task, validating hierarchy constraints if ParentID/Level
// are given (spec §4.3 create).
func (s *Store) Create(in CreateInput) (Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return Task{}, apperror.New(apperror.InvalidInput, "title must not be empty").WithField("title")
	}

	proj := project.Slug(in.Project)
	now := time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ParentID != "" {
		parent, ok := s.byID[in.ParentID]
		if !ok {
			return Task{}, apperror.Newf(apperror.InvalidInput, "parent task %q does not exist", in.ParentID).WithField("parent_id")
		}
		if parent.Project != proj {
			return Task{}, apperror.New(apperror.Conflict, "parent task belongs to a different project").WithField("parent_id")
		}
		if err := validateLevelTransition(parent.Level, in.Level); err != nil {
			return Task{}, err
		}
	}

	serial := s.nextSerial[proj]
	if serial == 0 {
		serial = 1 // project not seen before: first serial is 1
	}

	t := Task{
		ID:                uuid.NewString(),
		Serial:            serial,
		Title:             in.Title,
		Description:       in.Description,
		Status:            "todo",
		Priority:          defaultStr(in.Priority, "medium"),
		Project:           proj,
		Category:          in.Category,
		Tags:              in.Tags,
		Created:           now,
		Updated:           now,
		ParentID:          in.ParentID,
		MemoryConnections: in.MemoryConnections,
		Level:             in.Level,
	}
	s.nextSerial[proj] = serial + 1

	s.byID[t.ID] = t
	if err := s.persistProjectLocked(proj); err != nil {
		delete(s.byID, t.ID)
		return Task{}, apperror.Wrap(apperror.IOError, err, "persisting task")
	}
	s.publish(changebus.TaskAdded, t)
	return t, nil
}

// Get returns a task by id.
func (s *Store) Get(id string) (Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byID[id]
	if !ok {
		return Task{}, apperror.Newf(apperror.NotFound, "task %q not found", id)
	}
	return t, nil
}

// GetContext returns a task plus its parent, siblings, children, and up to
// 10 other project tasks (spec §4.3 getContext).
func (s *Store) GetContext(id string) (Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.byID[id]
	if !ok {
		return Context{}, apperror.Newf(apperror.NotFound, "task %q not found", id)
	}

	ctx := Context{Task: t}
	if t.ParentID != "" {
		if p, ok := s.byID[t.ParentID]; ok {
			ctx.Parent = &p
		}
	}

	var others []Task
	for _, other := range s.byID {
		if other.ID == t.ID || other.Project != t.Project {
			continue
		}
		switch {
		case other.ParentID == t.ParentID && t.ParentID != "":
			ctx.Siblings = append(ctx.Siblings, other)
		case other.ParentID == t.ID:
			ctx.Children = append(ctx.Children, other)
		default:
			others = append(others, other)
		}
	}
	sort.Slice(others, func(i, j int) bool { return others[i].Updated.After(others[j].Updated) })
	if len(others) > 10 {
		others = others[:10]
	}
	ctx.Others = others
	return ctx, nil
}

// ListFilter narrows List's result set.
type ListFilter struct {
	Project  string
	Status   string
	Category string
	ParentID *string // nil = no filter, "" = root tasks only
	Limit    int
}

// List returns tasks ordered by updated descending (spec §4.3 list).
func (s *Store) List(f ListFilter) []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0, len(s.byID))
	for _, t := range s.byID {
		if f.Project != "" && t.Project != project.Slug(f.Project) {
			continue
		}
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.ParentID != nil && t.ParentID != *f.ParentID {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Updated.Equal(out[j].Updated) {
			return out[i].Updated.After(out[j].Updated)
		}
		return out[i].ID < out[j].ID
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

// UpdatePatch carries only the fields a caller wants to change.
type UpdatePatch struct {
	Title             *string
	Description       *string
	Status            *string
	Priority          *string
	Category          *string
	Tags              *[]string
	ParentID          *string
	Level             *string
	MemoryConnections *[]MemoryConnection
}

// Update applies a partial update. created is immutable; updated refreshes.
// Hierarchy is revalidated on parent_id change (spec §4.3 update).
func (s *Store) Update(id string, patch UpdatePatch) (Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return Task{}, apperror.Newf(apperror.NotFound, "task %q not found", id)
	}

	newParent := t.ParentID
	newLevel := t.Level
	if patch.ParentID != nil {
		newParent = *patch.ParentID
	}
	if patch.Level != nil {
		newLevel = *patch.Level
	}
	if newParent != t.ParentID || newLevel != t.Level {
		if err := s.validateHierarchyLocked(t.ID, t.Project, newParent, newLevel); err != nil {
			return Task{}, err
		}
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Status != nil {
		t.Status = *patch.Status
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.Category != nil {
		t.Category = *patch.Category
	}
	if patch.Tags != nil {
		t.Tags = *patch.Tags
	}
	if patch.ParentID != nil {
		t.ParentID = *patch.ParentID
	}
	if patch.Level != nil {
		t.Level = *patch.Level
	}
	if patch.MemoryConnections != nil {
		t.MemoryConnections = *patch.MemoryConnections
	}
	t.Updated = time.Now().UTC()

	s.byID[t.ID] = t
	if err := s.persistProjectLocked(t.Project); err != nil {
		return Task{}, apperror.Wrap(apperror.IOError, err, "persisting task update")
	}
	s.publish(changebus.TaskUpdated, t)
	return t, nil
}

// Delete removes a task. Cascades to children iff cascade is true;
// otherwise fails with conflict if children exist (spec §4.3 delete).
func (s *Store) Delete(id string, cascade bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.byID[id]
	if !ok {
		return apperror.Newf(apperror.NotFound, "task %q not found", id)
	}

	var children []Task
	for _, other := range s.byID {
		if other.ParentID == id {
			children = append(children, other)
		}
	}
	if len(children) > 0 && !cascade {
		return apperror.New(apperror.Conflict, "task has children; pass cascade=true to delete them too").WithField("parent_id")
	}

	toDelete := []Task{t}
	toDelete = append(toDelete, descendantsLocked(s.byID, id)...)

	for _, dt := range toDelete {
		delete(s.byID, dt.ID)
		if err := s.layout.Remove(s.root, dt.Project, dt.ID); err != nil {
			return apperror.Wrap(apperror.IOError, err, "removing task file")
		}
	}
	if err := s.persistProjectLocked(t.Project); err != nil {
		return apperror.Wrap(apperror.IOError, err, "persisting after delete")
	}
	for _, dt := range toDelete {
		s.publish(changebus.TaskDeleted, dt)
	}
	return nil
}

func descendantsLocked(byID map[string]Task, rootID string) []Task {
	var out []Task
	var walk func(id string)
	walk = func(id string) {
		for _, t := range byID {
			if t.ParentID == id {
				out = append(out, t)
				walk(t.ID)
			}
		}
	}
	walk(rootID)
	return out
}

// persistProjectLocked rewrites every task in project via the layout.
// Caller must hold s.mu.
func (s *Store) persistProjectLocked(proj string) error {
	var tasks []Task
	for _, t := range s.byID {
		if t.Project == proj {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Serial < tasks[j].Serial })
	return s.layout.Persist(s.root, proj, tasks)
}

func (s *Store) validateHierarchyLocked(selfID, proj, parentID, level string) error {
	if parentID == "" {
		return nil
	}
	if parentID == selfID {
		return apperror.New(apperror.Conflict, "a task cannot parent itself").WithField("parent_id")
	}
	parent, ok := s.byID[parentID]
	if !ok {
		return apperror.Newf(apperror.InvalidInput, "parent task %q does not exist", parentID).WithField("parent_id")
	}
	if parent.Project != proj {
		return apperror.New(apperror.Conflict, "parent task belongs to a different project").WithField("parent_id")
	}
	// Acyclic: walk up from parent; selfID must not appear.
	seen := map[string]bool{selfID: true}
	cur := parent
	for {
		if seen[cur.ID] {
			return apperror.New(apperror.Conflict, "parent_id assignment would create a cycle").WithField("parent_id")
		}
		seen[cur.ID] = true
		if cur.ParentID == "" {
			break
		}
		next, ok := s.byID[cur.ParentID]
		if !ok {
			break
		}
		cur = next
	}
	return validateLevelTransition(parent.Level, level)
}

// validateLevelTransition enforces the 4-level hierarchy (spec §3.2
// invariant b): task under epic, epic under master, subtask under task.
// Tasks with no level set opt out of hierarchy enforcement entirely.
func validateLevelTransition(parentLevel, childLevel string) error {
	if parentLevel == "" || childLevel == "" {
		return nil
	}
	allowed := map[string]string{
		"epic":    "master",
		"task":    "epic",
		"subtask": "task",
	}
	want, ok := allowed[childLevel]
	if !ok {
		return apperror.Newf(apperror.InvalidInput, "unknown task level %q", childLevel).WithField("level")
	}
	if parentLevel != want {
		return apperror.Newf(apperror.Conflict, "a %q may only parent under a %q, not a %q", childLevel, want, parentLevel).WithField("parent_id")
	}
	return nil
}

func (s *Store) publish(kind changebus.Kind, t Task) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(changebus.Event{Kind: kind, ID: t.ID, Project: t.Project, Payload: t})
}

func defaultStr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
