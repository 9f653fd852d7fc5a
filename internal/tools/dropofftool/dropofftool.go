// Package dropofftool implements the generate_dropoff tool (spec §4.7,
// §4.10).
package dropofftool

import (
	"context"
	"encoding/json"

	"github.com/emergent-company/memoryd/internal/dropoff"
	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/emergent-company/memoryd/internal/tools/toolutil"
)

type params struct {
	SessionSummary    string `json:"session_summary"`
	RecentMemoryCount int    `json:"recent_memory_count,omitempty"`
	RecentTaskCount   int    `json:"recent_task_count,omitempty"`
	Project           string `json:"project,omitempty"`
}

// GenerateDropoff implements generate_dropoff.
type GenerateDropoff struct{ gen *dropoff.Generator }

func New(gen *dropoff.Generator) *GenerateDropoff { return &GenerateDropoff{gen: gen} }

func (t *GenerateDropoff) Name() string { return "generate_dropoff" }
func (t *GenerateDropoff) Description() string {
	return "Generate a session handoff document summarizing recent memories, recently updated tasks, and host state. Pure read, no mutation."
}
func (t *GenerateDropoff) InputSchema() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "session_summary": {"type": "string"},
    "recent_memory_count": {"type": "integer", "description": "Default 5"},
    "recent_task_count": {"type": "integer", "description": "Default 5"},
    "project": {"type": "string"}
  },
  "required": ["session_summary"]
}`)
}

func (t *GenerateDropoff) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p params
	if err := json.Unmarshal(raw, &p); err != nil {
		return toolutil.BadParams(err)
	}
	path, body, err := t.gen.Generate(dropoff.Input{
		SessionSummary:    p.SessionSummary,
		RecentMemoryCount: p.RecentMemoryCount,
		RecentTaskCount:   p.RecentTaskCount,
		Project:           p.Project,
	})
	if err != nil {
		return nil, err
	}
	return toolutil.Result(map[string]any{"path": path, "content": body})
}
