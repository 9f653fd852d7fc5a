package dropofftool

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/dropoff"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/selfevent"
	"github.com/emergent-company/memoryd/internal/task"
)

func TestGenerateDropoff_ReturnsPathAndContent(t *testing.T) {
	root := t.TempDir()
	bus := changebus.New(nil)
	memStore, err := memory.New(root+"/memories", bus, selfevent.New(0))
	require.NoError(t, err)
	taskStore, err := task.New(root+"/tasks", "per_file", bus)
	require.NoError(t, err)

	gen := dropoff.New(root, memStore, taskStore, "/wd")
	tool := New(gen)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"session_summary": "closing out"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "closing out")
	assert.Contains(t, res.Content[0].Text, "session-dropoffs")
}

func TestGenerateDropoff_BadParams(t *testing.T) {
	root := t.TempDir()
	bus := changebus.New(nil)
	memStore, err := memory.New(root+"/memories", bus, selfevent.New(0))
	require.NoError(t, err)
	taskStore, err := task.New(root+"/tasks", "per_file", bus)
	require.NoError(t, err)

	tool := New(dropoff.New(root, memStore, taskStore, "/wd"))
	res, err := tool.Execute(context.Background(), json.RawMessage(`not json`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}
