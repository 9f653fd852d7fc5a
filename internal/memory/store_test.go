package memory

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/selfevent"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	root := t.TempDir()
	bus := changebus.New(nil)
	ring := selfevent.New(0)
	s, err := New(root, bus, ring)
	require.NoError(t, err)
	return s
}

func TestAddAndList(t *testing.T) {
	s := newTestStore(t)

	rec, err := s.Add(AddInput{Content: "Remember X", Project: "p1", Tags: []string{"T"}})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "p1", rec.Project)
	assert.Equal(t, []string{"t"}, rec.Tags)

	list := s.List("p1", 10)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)

	_, err = os.Stat(filepath.Join(s.root, "p1"))
	require.NoError(t, err)
}

func TestAdd_RejectsEmptyContent(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(AddInput{Content: "   "})
	require.Error(t, err)
}

func TestGet_BumpsAccessStats(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Add(AddInput{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, 0, rec.AccessCount)

	got, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.AccessCount)

	got2, err := s.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got2.AccessCount)
}

func TestUpdate_RecomputesHashAndComplexity(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Add(AddInput{Content: "short"})
	require.NoError(t, err)
	oldHash := rec.ContentHash

	longer := "a longer memory with more structure\n```\ncode block\n```"
	updated, err := s.Update(rec.ID, UpdatePatch{Content: &longer})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, updated.ContentHash)
	assert.Equal(t, longer, updated.Content)
}

func TestDelete_EvictsFromIndex(t *testing.T) {
	s := newTestStore(t)
	rec, err := s.Add(AddInput{Content: "to be deleted"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(rec.ID))
	_, err = s.Get(rec.ID)
	require.Error(t, err)
}

func TestDedup_PlanDoesNotMutate(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(AddInput{Content: "same content"})
	require.NoError(t, err)
	_, err = s.Add(AddInput{Content: "same content"})
	require.NoError(t, err)

	report, err := s.Dedup(false)
	require.NoError(t, err)
	require.Len(t, report.Groups, 1)
	assert.Len(t, report.Groups[0].RemovedIDs, 1)

	assert.Len(t, s.List("", 10), 2)
}

func TestDedup_Apply(t *testing.T) {
	s := newTestStore(t)
	a, err := s.Add(AddInput{Content: "dup"})
	require.NoError(t, err)
	_, err = s.Add(AddInput{Content: "dup"})
	require.NoError(t, err)

	report, err := s.Dedup(true)
	require.NoError(t, err)
	require.Len(t, report.Groups, 1)
	assert.Equal(t, a.ID, report.Groups[0].SurvivorID)
	assert.Len(t, s.List("", 10), 1)
}

func TestRebuildIndex_MatchesPriorState(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Add(AddInput{Content: "one", Project: "p"})
	require.NoError(t, err)
	_, err = s.Add(AddInput{Content: "two", Project: "p"})
	require.NoError(t, err)

	before := s.List("p", 10)
	require.NoError(t, s.RebuildIndex())
	after := s.List("p", 10)

	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID)
		assert.Equal(t, before[i].Content, after[i].Content)
	}
}

func TestUniqueness_AcrossManyAdds(t *testing.T) {
	s := newTestStore(t)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		rec, err := s.Add(AddInput{Content: "memory body"})
		require.NoError(t, err)
		assert.False(t, seen[rec.ID])
		seen[rec.ID] = true
	}
}
