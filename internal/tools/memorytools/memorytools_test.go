package memorytools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/selfevent"
)

func newTestStore(t *testing.T) *memory.Store {
	t.Helper()
	bus := changebus.New(nil)
	ring := selfevent.New(0)
	s, err := memory.New(t.TempDir(), bus, ring)
	require.NoError(t, err)
	return s
}

func TestAdd_StoresAndReturnsRecord(t *testing.T) {
	store := newTestStore(t)
	tool := NewAdd(store)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"content": "remember the plan", "project": "infra"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Contains(t, res.Content[0].Text, "remember the plan")

	list := store.List("infra", 0)
	require.Len(t, list, 1)
}

func TestAdd_FlagsDuplicateContentAsAdvisory(t *testing.T) {
	store := newTestStore(t)
	tool := NewAdd(store)

	_, err := tool.Execute(context.Background(), json.RawMessage(`{"content": "same text"}`))
	require.NoError(t, err)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"content": "same text"}`))
	require.NoError(t, err)
	assert.Contains(t, res.Content[0].Text, "advisories")
}

func TestAdd_BadParamsIsErrorResult(t *testing.T) {
	store := newTestStore(t)
	tool := NewAdd(store)

	res, err := tool.Execute(context.Background(), json.RawMessage(`not json`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestGet_NotFoundIsErrorResult(t *testing.T) {
	store := newTestStore(t)
	tool := NewGet(store)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"id": "missing"}`))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestDelete_RemovesRecord(t *testing.T) {
	store := newTestStore(t)
	rec, err := store.Add(memory.AddInput{Content: "to delete"})
	require.NoError(t, err)

	tool := NewDelete(store)
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"id": "`+rec.ID+`"}`))
	require.NoError(t, err)
	require.False(t, res.IsError)

	_, err = store.Get(rec.ID)
	assert.Error(t, err)
}

func TestDedup_PlanDoesNotDelete(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Add(memory.AddInput{Content: "dup"})
	require.NoError(t, err)
	_, err = store.Add(memory.AddInput{Content: "dup"})
	require.NoError(t, err)

	tool := NewDedup(store, nil)
	res, err := tool.Execute(context.Background(), json.RawMessage(`{"apply": false}`))
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Len(t, store.All(), 2)
}
