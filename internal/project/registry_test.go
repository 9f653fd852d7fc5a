package project

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_TouchPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "projects-registry.json")

	r, err := LoadRegistry(path)
	require.NoError(t, err)
	require.NoError(t, r.Touch("infra"))

	reloaded, err := LoadRegistry(path)
	require.NoError(t, err)
	list := reloaded.List()
	require.Len(t, list, 1)
	assert.Equal(t, "infra", list[0].Slug)
	assert.NotEmpty(t, list[0].DefaultStages)
}

func TestRegistry_TouchIsCaseInsensitive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects-registry.json")
	r, err := LoadRegistry(path)
	require.NoError(t, err)

	require.NoError(t, r.Touch("Infra"))
	require.NoError(t, r.Touch("INFRA"))

	assert.Len(t, r.List(), 1)
}

func TestLoadRegistry_MissingFileIsNotError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	r, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Empty(t, r.List())
}
