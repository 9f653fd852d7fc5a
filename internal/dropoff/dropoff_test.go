package dropoff

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/selfevent"
	"github.com/emergent-company/memoryd/internal/task"
)

func TestGenerate_WritesFileWithMemoriesAndTasks(t *testing.T) {
	root := t.TempDir()
	bus := changebus.New(nil)
	memStore, err := memory.New(root+"/memories", bus, selfevent.New(0))
	require.NoError(t, err)
	_, err = memStore.Add(memory.AddInput{Content: "did the thing", Project: "infra"})
	require.NoError(t, err)

	taskStore, err := task.New(root+"/tasks", "per_file", bus)
	require.NoError(t, err)
	_, err = taskStore.Create(task.CreateInput{Title: "finish the writeup", Project: "infra"})
	require.NoError(t, err)

	gen := New(root, memStore, taskStore, "/home/user/project")

	path, body, err := gen.Generate(Input{SessionSummary: "wrapped up infra work", Project: "infra"})
	require.NoError(t, err)
	assert.Contains(t, body, "wrapped up infra work")
	assert.Contains(t, body, "did the thing")
	assert.Contains(t, body, "finish the writeup")
	assert.Contains(t, body, "/home/user/project")
	assert.True(t, strings.HasSuffix(path, ".md"))

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, string(written))
}

func TestGenerate_EmptyCorpusStillRenders(t *testing.T) {
	root := t.TempDir()
	bus := changebus.New(nil)
	memStore, err := memory.New(root+"/memories", bus, selfevent.New(0))
	require.NoError(t, err)
	taskStore, err := task.New(root+"/tasks", "per_file", bus)
	require.NoError(t, err)

	gen := New(root, memStore, taskStore, "/wd")
	_, body, err := gen.Generate(Input{SessionSummary: "nothing happened"})
	require.NoError(t, err)
	assert.Contains(t, body, "no memories recorded")
	assert.Contains(t, body, "no tasks recorded")
}
