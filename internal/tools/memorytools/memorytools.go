// Package memorytools implements the memory-store-facing tool catalog
// (spec §4.7): add_memory, get_memory, list_memories, search_memories,
// update_memory, delete_memory, dedup_memories. Each tool is a thin
// {name, schema, Execute} wrapper around internal/memory.Store, following
// the teacher's internal/tools/workflow one-struct-per-tool shape
// (internal/tools/workflow/spec_new.go).
package memorytools

import (
	"context"
	"encoding/json"

	"github.com/emergent-company/memoryd/internal/advise"
	"github.com/emergent-company/memoryd/internal/backup"
	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/search"
	"github.com/emergent-company/memoryd/internal/tools/toolutil"
)

// --- add_memory ---

type addParams struct {
	Content  string   `json:"content"`
	Project  string   `json:"project,omitempty"`
	Category string   `json:"category,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Priority string   `json:"priority,omitempty"`
	Status   string   `json:"status,omitempty"`
}

// Add implements add_memory.
type Add struct{ store *memory.Store }

func NewAdd(store *memory.Store) *Add { return &Add{store: store} }

func (t *Add) Name() string        { return "add_memory" }
func (t *Add) Description() string { return "Record a new memory under a project, with optional category, tags, priority, and status." }
func (t *Add) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "content": {"type": "string", "description": "The memory text to store"},
    "project": {"type": "string", "description": "Project slug; defaults to \"default\""},
    "category": {"type": "string", "enum": ["personal", "work", "code", "research", "conversations", "preferences"]},
    "tags": {"type": "array", "items": {"type": "string"}},
    "priority": {"type": "string", "enum": ["low", "medium", "high"]},
    "status": {"type": "string", "enum": ["active", "archived", "reference"]}
  },
  "required": ["content"]
}`)
}

func (t *Add) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p addParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}

	var existing memory.Record
	var dup bool
	for _, r := range t.store.All() {
		if r.Content == p.Content {
			existing, dup = r, true
			break
		}
	}

	rec, err := t.store.Add(memory.AddInput{
		Content:  p.Content,
		Project:  p.Project,
		Category: p.Category,
		Tags:     p.Tags,
		Priority: p.Priority,
		Status:   p.Status,
	})
	if err != nil {
		return toolutil.Fail(err)
	}

	outcome := advise.ForMemoryAdd(rec.ContentHash, existing, dup)
	result := map[string]any{"memory": rec}
	if advisory := outcome.FormatAdvisoryMessage(); advisory != "" {
		result["advisories"] = advisory
	}
	return toolutil.Result(result)
}

// --- get_memory ---

type getParams struct {
	ID string `json:"id"`
}

// Get implements get_memory.
type Get struct{ store *memory.Store }

func NewGet(store *memory.Store) *Get { return &Get{store: store} }

func (t *Get) Name() string        { return "get_memory" }
func (t *Get) Description() string { return "Fetch a memory by id. Bumps its access count and last-accessed timestamp." }
func (t *Get) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"id": {"type": "string"}}, "required": ["id"]}`)
}

func (t *Get) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}
	rec, err := t.store.Get(p.ID)
	if err != nil {
		return toolutil.Fail(err)
	}
	return toolutil.Result(rec)
}

// --- list_memories ---

type listParams struct {
	Project string `json:"project,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}

// List implements list_memories.
type List struct{ store *memory.Store }

func NewList(store *memory.Store) *List { return &List{store: store} }

func (t *List) Name() string        { return "list_memories" }
func (t *List) Description() string { return "List memories, most recent first, optionally scoped to a project." }
func (t *List) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"project": {"type": "string"}, "limit": {"type": "integer"}}}`)
}

func (t *List) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p listParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return toolutil.BadParams(err)
		}
	}
	return toolutil.Result(map[string]any{"memories": t.store.List(p.Project, p.Limit)})
}

// --- search_memories ---

type searchParams struct {
	Query    string   `json:"query"`
	Project  string   `json:"project,omitempty"`
	Category string   `json:"category,omitempty"`
	Status   string   `json:"status,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Fuzzy    bool     `json:"fuzzy,omitempty"`
}

// Search implements search_memories.
type Search struct{ store *memory.Store }

func NewSearch(store *memory.Store) *Search { return &Search{store: store} }

func (t *Search) Name() string { return "search_memories" }
func (t *Search) Description() string {
	return "Search memories by content/tag match with fuzzy fallback, ranked by a composite recency/relevance/interaction/importance score."
}
func (t *Search) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "query": {"type": "string"},
    "project": {"type": "string"},
    "category": {"type": "string"},
    "status": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "fuzzy": {"type": "boolean", "description": "Force fuzzy matching even when exact hits are plentiful"}
  },
  "required": ["query"]
}`)
}

func (t *Search) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p searchParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}
	filter := search.Filter{Project: p.Project, Category: p.Category, Status: p.Status, Tags: p.Tags, Fuzzy: p.Fuzzy}
	results := search.Search(t.store.All(), p.Query, filter, search.DefaultWeights())
	return toolutil.Result(map[string]any{"results": results})
}

// --- update_memory ---

type updateParams struct {
	ID       string    `json:"id"`
	Content  *string   `json:"content,omitempty"`
	Category *string   `json:"category,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
	Priority *string   `json:"priority,omitempty"`
	Status   *string   `json:"status,omitempty"`
}

// Update implements update_memory.
type Update struct{ store *memory.Store }

func NewUpdate(store *memory.Store) *Update { return &Update{store: store} }

func (t *Update) Name() string        { return "update_memory" }
func (t *Update) Description() string { return "Apply a partial update to an existing memory. id and timestamp never change." }
func (t *Update) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "id": {"type": "string"},
    "content": {"type": "string"},
    "category": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "priority": {"type": "string"},
    "status": {"type": "string"}
  },
  "required": ["id"]
}`)
}

func (t *Update) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p updateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}
	rec, err := t.store.Update(p.ID, memory.UpdatePatch{
		Content:  p.Content,
		Category: p.Category,
		Tags:     p.Tags,
		Priority: p.Priority,
		Status:   p.Status,
	})
	if err != nil {
		return toolutil.Fail(err)
	}
	return toolutil.Result(rec)
}

// --- delete_memory ---

type deleteParams struct {
	ID string `json:"id"`
}

// Delete implements delete_memory.
type Delete struct{ store *memory.Store }

func NewDelete(store *memory.Store) *Delete { return &Delete{store: store} }

func (t *Delete) Name() string        { return "delete_memory" }
func (t *Delete) Description() string { return "Permanently delete a memory by id. No tombstone is kept." }
func (t *Delete) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"id": {"type": "string"}}, "required": ["id"]}`)
}

func (t *Delete) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p deleteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}
	if err := t.store.Delete(p.ID); err != nil {
		return toolutil.Fail(err)
	}
	return toolutil.Result(map[string]any{"deleted": p.ID})
}

// --- dedup_memories ---

type dedupParams struct {
	Apply bool `json:"apply,omitempty"`
}

// Dedup implements dedup_memories (spec §4.2 dedup). If backups is
// non-nil, an apply=true call snapshots the corpus first (spec §4.11
// "Backups are created before destructive bulk operations").
type Dedup struct {
	store   *memory.Store
	backups *backup.Manager
}

func NewDedup(store *memory.Store, backups *backup.Manager) *Dedup {
	return &Dedup{store: store, backups: backups}
}

func (t *Dedup) Name() string        { return "dedup_memories" }
func (t *Dedup) Description() string { return "Group memories by content hash and report duplicates. Set apply=true to actually delete the losers (oldest survives)." }
func (t *Dedup) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"apply": {"type": "boolean", "description": "Default false: dry-run plan only"}}}`)
}

func (t *Dedup) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p dedupParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return toolutil.BadParams(err)
		}
	}
	if p.Apply && t.backups != nil {
		if err := t.backups.Snapshot(); err != nil {
			return nil, err
		}
	}
	report, err := t.store.Dedup(p.Apply)
	if err != nil {
		return toolutil.Fail(err)
	}
	return toolutil.Result(report)
}
