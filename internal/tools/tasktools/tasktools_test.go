package tasktools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/task"
)

func newTestStore(t *testing.T) *task.Store {
	t.Helper()
	bus := changebus.New(nil)
	s, err := task.New(t.TempDir(), "per_file", bus)
	require.NoError(t, err)
	return s
}

func TestCreate_StoresAndReturnsTask(t *testing.T) {
	store := newTestStore(t)
	tool := NewCreate(store)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"title": "ship it", "project": "infra"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "ship it")
}

func TestCreate_WarnsOnArchivedParent(t *testing.T) {
	store := newTestStore(t)
	parent, err := store.Create(task.CreateInput{Title: "parent"})
	require.NoError(t, err)
	archived := "done"
	_, err = store.Update(parent.ID, task.UpdatePatch{Status: &archived})
	require.NoError(t, err)

	tool := NewCreate(store)
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"title": "child", "parent_id": "`+parent.ID+`"}`))
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, "advisories")
}

func TestGet_NotFoundIsErrorResult(t *testing.T) {
	store := newTestStore(t)
	tool := NewGet(store)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"id": "missing"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDelete_RefusesWithChildrenUnlessCascade(t *testing.T) {
	store := newTestStore(t)
	parent, err := store.Create(task.CreateInput{Title: "parent"})
	require.NoError(t, err)
	_, err = store.Create(task.CreateInput{Title: "child", ParentID: parent.ID})
	require.NoError(t, err)

	tool := NewDelete(store)
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"id": "`+parent.ID+`"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)

	res, err = tool.Execute(context.Background(), json.RawMessage(`{"id": "`+parent.ID+`", "cascade": true}`))
	require.NoError(t, err)
	assert.False(t, res.IsError)
}

func TestContext_ReturnsParentAndChildren(t *testing.T) {
	store := newTestStore(t)
	parent, err := store.Create(task.CreateInput{Title: "parent"})
	require.NoError(t, err)
	child, err := store.Create(task.CreateInput{Title: "child", ParentID: parent.ID})
	require.NoError(t, err)

	tool := NewContext(store)
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"id": "`+child.ID+`"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, parent.ID)
}
