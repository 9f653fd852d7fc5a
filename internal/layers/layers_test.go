package layers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct{ name string }

func (s stubTool) Name() string               { return s.name }
func (s stubTool) Description() string        { return "stub" }
func (s stubTool) InputSchema() json.RawMessage { return json.RawMessage(`{}`) }
func (s stubTool) Execute(ctx context.Context, params json.RawMessage) (*mcp.ToolsCallResult, error) {
	return &mcp.ToolsCallResult{}, nil
}

func TestBootstrap_ActivatesCoreAndDefaults(t *testing.T) {
	reg := mcp.NewRegistry()
	mgr := NewManager(reg, 0)
	mgr.Define(CoreLayer, []mcp.Tool{stubTool{"add_memory"}, stubTool{"get_memory"}})
	mgr.Define("tasks", []mcp.Tool{stubTool{"create_task"}})

	require.NoError(t, mgr.Bootstrap([]string{"tasks"}))

	assert.NotNil(t, reg.Get("add_memory"))
	assert.NotNil(t, reg.Get("create_task"))
	assert.ElementsMatch(t, []string{"core", "tasks"}, mgr.ActiveLayers())
}

func TestDeactivate_UnregistersTools(t *testing.T) {
	reg := mcp.NewRegistry()
	mgr := NewManager(reg, 0)
	mgr.Define(CoreLayer, []mcp.Tool{stubTool{"add_memory"}})
	mgr.Define("tasks", []mcp.Tool{stubTool{"create_task"}})
	require.NoError(t, mgr.Bootstrap([]string{"tasks"}))

	require.NoError(t, mgr.Deactivate("tasks"))

	assert.Nil(t, reg.Get("create_task"))
	assert.NotContains(t, mgr.ActiveLayers(), "tasks")
}

func TestDeactivate_CoreLayerRefused(t *testing.T) {
	reg := mcp.NewRegistry()
	mgr := NewManager(reg, 0)
	mgr.Define(CoreLayer, []mcp.Tool{stubTool{"add_memory"}})
	require.NoError(t, mgr.Bootstrap(nil))

	err := mgr.Deactivate(CoreLayer)
	require.Error(t, err)
	assert.NotNil(t, reg.Get("add_memory"))
}

func TestActivate_UnknownLayer(t *testing.T) {
	reg := mcp.NewRegistry()
	mgr := NewManager(reg, 0)
	mgr.Define(CoreLayer, nil)
	require.NoError(t, mgr.Bootstrap(nil))

	err := mgr.Activate("ghost")
	assert.Error(t, err)
}

func TestActivate_RespectsMaxTools(t *testing.T) {
	reg := mcp.NewRegistry()
	mgr := NewManager(reg, 2)
	mgr.Define(CoreLayer, []mcp.Tool{stubTool{"add_memory"}})
	mgr.Define("extra", []mcp.Tool{stubTool{"a"}, stubTool{"b"}})
	require.NoError(t, mgr.Activate(CoreLayer))

	err := mgr.Activate("extra")
	require.Error(t, err)
	assert.Nil(t, reg.Get("a"))
}
