package systemtools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/backup"
	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/layers"
	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/selfevent"
	"github.com/emergent-company/memoryd/internal/task"
)

func TestTestTool_EchoesMessage(t *testing.T) {
	tool := NewTestTool("1.2.3")
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"message": "ping"}`))
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, "ping")
	assert.Contains(t, res.Content[0].Text, "1.2.3")
}

func TestGetHealth_ReportsCounts(t *testing.T) {
	root := t.TempDir()
	bus := changebus.New(nil)
	memStore, err := memory.New(root+"/memories", bus, selfevent.New(0))
	require.NoError(t, err)
	_, err = memStore.Add(memory.AddInput{Content: "x"})
	require.NoError(t, err)

	taskStore, err := task.New(root+"/tasks", "per_file", bus)
	require.NoError(t, err)

	bm := backup.New(root, root+"/memories", root+"/tasks", 10, nil)
	tool := NewGetHealth(bm, memStore, taskStore, time.Hour)

	res, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, `"memory_count": 1`)
}

func TestActivateDeactivateLayer(t *testing.T) {
	reg := mcp.NewRegistry()
	mgr := layers.NewManager(reg, 0)
	mgr.Define(layers.CoreLayer, nil)
	mgr.Define("extra", nil)
	require.NoError(t, mgr.Bootstrap(nil))

	activate := NewActivateLayer(mgr)
	res, err := activate.Execute(context.Background(), json.RawMessage(`{"layer": "extra"}`))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	deactivate := NewDeactivateLayer(mgr)
	res, err = deactivate.Execute(context.Background(), json.RawMessage(`{"layer": "extra"}`))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	res, err = deactivate.Execute(context.Background(), json.RawMessage(`{"layer": "core"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestListAvailableLayers(t *testing.T) {
	reg := mcp.NewRegistry()
	mgr := layers.NewManager(reg, 0)
	mgr.Define(layers.CoreLayer, nil)
	require.NoError(t, mgr.Bootstrap(nil))

	tool := NewListAvailableLayers(mgr)
	res, err := tool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, "core")
}
