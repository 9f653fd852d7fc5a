// Package tasktools implements the task-store-facing tool catalog (spec
// §4.7): create_task, get_task, list_tasks, update_task, delete_task,
// get_task_context.
package tasktools

import (
	"context"
	"encoding/json"

	"github.com/emergent-company/memoryd/internal/advise"
	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/emergent-company/memoryd/internal/task"
	"github.com/emergent-company/memoryd/internal/tools/toolutil"
)

// --- create_task ---

type createParams struct {
	Title             string                  `json:"title"`
	Description       string                  `json:"description,omitempty"`
	Project           string                  `json:"project,omitempty"`
	Category          string                  `json:"category,omitempty"`
	Tags              []string                `json:"tags,omitempty"`
	Priority          string                  `json:"priority,omitempty"`
	ParentID          string                  `json:"parent_id,omitempty"`
	Level             string                  `json:"level,omitempty"`
	MemoryConnections []task.MemoryConnection `json:"memory_connections,omitempty"`
}

// Create implements create_task.
type Create struct{ store *task.Store }

func NewCreate(store *task.Store) *Create { return &Create{store: store} }

func (t *Create) Name() string        { return "create_task" }
func (t *Create) Description() string { return "Create a task, optionally under a parent (master/epic/task/subtask hierarchy is validated when level is set)." }
func (t *Create) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "title": {"type": "string"},
    "description": {"type": "string"},
    "project": {"type": "string"},
    "category": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
    "parent_id": {"type": "string"},
    "level": {"type": "string", "enum": ["master", "epic", "task", "subtask"]},
    "memory_connections": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "memory_id": {"type": "string"},
          "connection_type": {"type": "string"},
          "relevance": {"type": "number"}
        }
      }
    }
  },
  "required": ["title"]
}`)
}

func (t *Create) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p createParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}

	var parent *task.Task
	if p.ParentID != "" {
		if pt, err := t.store.Get(p.ParentID); err == nil {
			parent = &pt
		}
	}

	created, err := t.store.Create(task.CreateInput{
		Title:             p.Title,
		Description:       p.Description,
		Project:           p.Project,
		Category:          p.Category,
		Tags:              p.Tags,
		Priority:          p.Priority,
		ParentID:          p.ParentID,
		Level:             p.Level,
		MemoryConnections: p.MemoryConnections,
	})
	if err != nil {
		return toolutil.Fail(err)
	}

	outcome := advise.ForTaskCreate(parent)
	result := map[string]any{"task": created}
	if advisory := outcome.FormatAdvisoryMessage(); advisory != "" {
		result["advisories"] = advisory
	}
	return toolutil.Result(result)
}

// --- get_task ---

type getParams struct {
	ID string `json:"id"`
}

// Get implements get_task.
type Get struct{ store *task.Store }

func NewGet(store *task.Store) *Get { return &Get{store: store} }

func (t *Get) Name() string        { return "get_task" }
func (t *Get) Description() string { return "Fetch a task by id." }
func (t *Get) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"id": {"type": "string"}}, "required": ["id"]}`)
}

func (t *Get) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p getParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}
	tk, err := t.store.Get(p.ID)
	if err != nil {
		return toolutil.Fail(err)
	}
	return toolutil.Result(tk)
}

// --- list_tasks ---

type listParams struct {
	Project  string  `json:"project,omitempty"`
	Status   string  `json:"status,omitempty"`
	Category string  `json:"category,omitempty"`
	ParentID *string `json:"parent_id,omitempty"`
	Limit    int     `json:"limit,omitempty"`
}

// List implements list_tasks.
type List struct{ store *task.Store }

func NewList(store *task.Store) *List { return &List{store: store} }

func (t *List) Name() string        { return "list_tasks" }
func (t *List) Description() string { return "List tasks most-recently-updated first, filterable by project/status/category/parent." }
func (t *List) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "project": {"type": "string"},
    "status": {"type": "string", "enum": ["todo", "in_progress", "done", "blocked"]},
    "category": {"type": "string"},
    "parent_id": {"type": "string", "description": "Pass empty string to list only root tasks"},
    "limit": {"type": "integer"}
  }
}`)
}

func (t *List) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p listParams
	if len(params) > 0 {
		if err := json.Unmarshal(params, &p); err != nil {
			return toolutil.BadParams(err)
		}
	}
	f := task.ListFilter{Project: p.Project, Status: p.Status, Category: p.Category, ParentID: p.ParentID, Limit: p.Limit}
	return toolutil.Result(map[string]any{"tasks": t.store.List(f)})
}

// --- update_task ---

type updateParams struct {
	ID                string                   `json:"id"`
	Title             *string                  `json:"title,omitempty"`
	Description       *string                  `json:"description,omitempty"`
	Status            *string                  `json:"status,omitempty"`
	Priority          *string                  `json:"priority,omitempty"`
	Category          *string                  `json:"category,omitempty"`
	Tags              *[]string                `json:"tags,omitempty"`
	ParentID          *string                  `json:"parent_id,omitempty"`
	Level             *string                  `json:"level,omitempty"`
	MemoryConnections *[]task.MemoryConnection `json:"memory_connections,omitempty"`
}

// Update implements update_task.
type Update struct{ store *task.Store }

func NewUpdate(store *task.Store) *Update { return &Update{store: store} }

func (t *Update) Name() string        { return "update_task" }
func (t *Update) Description() string { return "Apply a partial update to a task. Status transitions are unconstrained; hierarchy is revalidated if parent_id or level changes." }
func (t *Update) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "id": {"type": "string"},
    "title": {"type": "string"},
    "description": {"type": "string"},
    "status": {"type": "string", "enum": ["todo", "in_progress", "done", "blocked"]},
    "priority": {"type": "string", "enum": ["low", "medium", "high", "urgent"]},
    "category": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}},
    "parent_id": {"type": "string"},
    "level": {"type": "string", "enum": ["master", "epic", "task", "subtask"]}
  },
  "required": ["id"]
}`)
}

func (t *Update) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p updateParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}
	tk, err := t.store.Update(p.ID, task.UpdatePatch{
		Title:             p.Title,
		Description:       p.Description,
		Status:            p.Status,
		Priority:          p.Priority,
		Category:          p.Category,
		Tags:              p.Tags,
		ParentID:          p.ParentID,
		Level:             p.Level,
		MemoryConnections: p.MemoryConnections,
	})
	if err != nil {
		return toolutil.Fail(err)
	}
	return toolutil.Result(tk)
}

// --- delete_task ---

type deleteParams struct {
	ID      string `json:"id"`
	Cascade bool   `json:"cascade,omitempty"`
}

// Delete implements delete_task.
type Delete struct{ store *task.Store }

func NewDelete(store *task.Store) *Delete { return &Delete{store: store} }

func (t *Delete) Name() string        { return "delete_task" }
func (t *Delete) Description() string { return "Delete a task. Fails with conflict if it has children unless cascade=true." }
func (t *Delete) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"id": {"type": "string"}, "cascade": {"type": "boolean"}}, "required": ["id"]}`)
}

func (t *Delete) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p deleteParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}
	if err := t.store.Delete(p.ID, p.Cascade); err != nil {
		return toolutil.Fail(err)
	}
	return toolutil.Result(map[string]any{"deleted": p.ID})
}

// --- get_task_context ---

type contextParams struct {
	ID string `json:"id"`
}

// Context implements get_task_context.
type Context struct{ store *task.Store }

func NewContext(store *task.Store) *Context { return &Context{store: store} }

func (t *Context) Name() string        { return "get_task_context" }
func (t *Context) Description() string { return "Fetch a task plus its parent, siblings, children, and a sample of other project tasks." }
func (t *Context) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"id": {"type": "string"}}, "required": ["id"]}`)
}

func (t *Context) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p contextParams
	if err := json.Unmarshal(params, &p); err != nil {
		return toolutil.BadParams(err)
	}
	c, err := t.store.GetContext(p.ID)
	if err != nil {
		return toolutil.Fail(err)
	}
	return toolutil.Result(c)
}
