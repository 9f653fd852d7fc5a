// Package systemtools implements the catalog's non-domain tools (spec
// §4.7 test_tool, SPEC_FULL.md's get_health, and the layered-MCP
// meta-tools list_available_layers/activate_layer/deactivate_layer).
package systemtools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/emergent-company/memoryd/internal/backup"
	"github.com/emergent-company/memoryd/internal/layers"
	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/task"
	"github.com/emergent-company/memoryd/internal/tools/toolutil"
)

// --- test_tool ---

type echoParams struct {
	Message string `json:"message,omitempty"`
}

// TestTool is a connectivity/handshake smoke-test with no side effects.
type TestTool struct{ version string }

func NewTestTool(version string) *TestTool { return &TestTool{version: version} }

func (t *TestTool) Name() string        { return "test_tool" }
func (t *TestTool) Description() string { return "Echo a message back; used by clients to verify the connection is alive." }
func (t *TestTool) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"message": {"type": "string"}}}`)
}

func (t *TestTool) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p echoParams
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &p); err != nil {
			return toolutil.BadParams(err)
		}
	}
	return toolutil.Result(map[string]any{"ok": true, "echo": p.Message, "version": t.version})
}

// --- get_health ---

// GetHealth surfaces internal/backup.Health (spec §4.11 health probe).
type GetHealth struct {
	backups  *backup.Manager
	memory   *memory.Store
	task     *task.Store
	interval time.Duration
}

func NewGetHealth(backups *backup.Manager, memStore *memory.Store, taskStore *task.Store, interval time.Duration) *GetHealth {
	return &GetHealth{backups: backups, memory: memStore, task: taskStore, interval: interval}
}

func (t *GetHealth) Name() string        { return "get_health" }
func (t *GetHealth) Description() string { return "Report memory/task counts, on-disk storage footprint, and last/next backup instants." }
func (t *GetHealth) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *GetHealth) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	memCount := len(t.memory.All())
	taskCount := len(t.task.List(task.ListFilter{}))
	health := t.backups.Probe(memCount, taskCount, t.interval)
	return toolutil.Result(health)
}

// --- list_available_layers ---

// ListAvailableLayers implements list_available_layers.
type ListAvailableLayers struct{ mgr *layers.Manager }

func NewListAvailableLayers(mgr *layers.Manager) *ListAvailableLayers { return &ListAvailableLayers{mgr: mgr} }

func (t *ListAvailableLayers) Name() string        { return "list_available_layers" }
func (t *ListAvailableLayers) Description() string { return "List all defined tool layers and which are currently active." }
func (t *ListAvailableLayers) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ListAvailableLayers) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	return toolutil.Result(map[string]any{
		"available": t.mgr.Available(),
		"active":    t.mgr.ActiveLayers(),
	})
}

// --- activate_layer / deactivate_layer ---

type layerParams struct {
	Layer string `json:"layer"`
}

// ActivateLayer implements activate_layer.
type ActivateLayer struct{ mgr *layers.Manager }

func NewActivateLayer(mgr *layers.Manager) *ActivateLayer { return &ActivateLayer{mgr: mgr} }

func (t *ActivateLayer) Name() string        { return "activate_layer" }
func (t *ActivateLayer) Description() string { return "Make a layer's tools visible and callable." }
func (t *ActivateLayer) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"layer": {"type": "string"}}, "required": ["layer"]}`)
}

func (t *ActivateLayer) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p layerParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return toolutil.BadParams(err)
	}
	if err := t.mgr.Activate(p.Layer); err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	return toolutil.Result(map[string]any{"active": t.mgr.ActiveLayers()})
}

// DeactivateLayer implements deactivate_layer.
type DeactivateLayer struct{ mgr *layers.Manager }

func NewDeactivateLayer(mgr *layers.Manager) *DeactivateLayer { return &DeactivateLayer{mgr: mgr} }

func (t *DeactivateLayer) Name() string        { return "deactivate_layer" }
func (t *DeactivateLayer) Description() string { return "Hide a layer's tools: tools/list stops advertising them and calling them reports tool-not-found." }
func (t *DeactivateLayer) InputSchema() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {"layer": {"type": "string"}}, "required": ["layer"]}`)
}

func (t *DeactivateLayer) Execute(ctx context.Context, raw json.RawMessage) (*mcp.ToolsCallResult, error) {
	var p layerParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return toolutil.BadParams(err)
	}
	if err := t.mgr.Deactivate(p.Layer); err != nil {
		return mcp.ErrorResult(err.Error()), nil
	}
	return toolutil.Result(map[string]any{"active": t.mgr.ActiveLayers()})
}
