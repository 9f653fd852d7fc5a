// Package task implements the task store (spec §3.2, §4.3): two on-disk
// layouts (flat JSON array, per-file markdown+frontmatter) behind one
// Layout interface, hierarchy validation, and memory cross-links.
package task

import "time"

// Valid enumerations (spec §3.2).
var (
	Statuses  = []string{"todo", "in_progress", "done", "blocked"}
	Priorities = []string{"low", "medium", "high", "urgent"}
	Levels     = []string{"master", "epic", "task", "subtask"}
)

// MemoryConnection links a task to a memory with a typed, scored relation
// (spec §3.2 memory_connections).
type MemoryConnection struct {
	MemoryID       string  `json:"memory_id"`
	ConnectionType string  `json:"connection_type"`
	Relevance      float64 `json:"relevance"`
}

// Task is a single work item (spec §3.2).
type Task struct {
	ID                string             `json:"id"`
	Serial            int                `json:"serial"`
	Title             string             `json:"title"`
	Description       string             `json:"description"`
	Status            string             `json:"status"`
	Priority           string             `json:"priority"`
	Project           string             `json:"project"`
	Category          string             `json:"category"`
	Tags              []string           `json:"tags"`
	Created           time.Time          `json:"created"`
	Updated           time.Time          `json:"updated"`
	ParentID          string             `json:"parent_id,omitempty"`
	MemoryConnections []MemoryConnection `json:"memory_connections"`
	Level             string             `json:"level,omitempty"`
}

// Context is the result of getContext: the task plus its hierarchy and a
// sample of project siblings (spec §4.3 getContext).
type Context struct {
	Task     Task   `json:"task"`
	Parent   *Task  `json:"parent,omitempty"`
	Siblings []Task `json:"siblings"`
	Children []Task `json:"children"`
	Others   []Task `json:"others"`
}
