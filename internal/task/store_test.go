package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/changebus"
)

func newTestStore(t *testing.T, layout string) *Store {
	t.Helper()
	root := t.TempDir()
	bus := changebus.New(nil)
	s, err := New(root, layout, bus)
	require.NoError(t, err)
	return s
}

func TestCreateAndGet_BothLayouts(t *testing.T) {
	for _, layout := range []string{"flat", "per_file"} {
		t.Run(layout, func(t *testing.T) {
			s := newTestStore(t, layout)
			tk, err := s.Create(CreateInput{Title: "write docs", Project: "p1"})
			require.NoError(t, err)
			assert.Equal(t, "todo", tk.Status)
			assert.Equal(t, 1, tk.Serial)

			got, err := s.Get(tk.ID)
			require.NoError(t, err)
			assert.Equal(t, tk.Title, got.Title)
		})
	}
}

func TestSerialAllocation_PerProject(t *testing.T) {
	s := newTestStore(t, "per_file")
	a, err := s.Create(CreateInput{Title: "a", Project: "p1"})
	require.NoError(t, err)
	b, err := s.Create(CreateInput{Title: "b", Project: "p1"})
	require.NoError(t, err)
	c, err := s.Create(CreateInput{Title: "c", Project: "p2"})
	require.NoError(t, err)

	assert.Equal(t, 1, a.Serial)
	assert.Equal(t, 2, b.Serial)
	assert.Equal(t, 1, c.Serial) // separate counter per project
}

func TestHierarchy_ValidChain(t *testing.T) {
	s := newTestStore(t, "per_file")
	m, err := s.Create(CreateInput{Title: "M", Project: "p", Level: "master"})
	require.NoError(t, err)
	e, err := s.Create(CreateInput{Title: "E", Project: "p", Level: "epic", ParentID: m.ID})
	require.NoError(t, err)
	_, err = s.Create(CreateInput{Title: "T", Project: "p", Level: "task", ParentID: e.ID})
	require.NoError(t, err)
}

func TestHierarchy_RejectsIllegalParent(t *testing.T) {
	s := newTestStore(t, "per_file")
	m, err := s.Create(CreateInput{Title: "M", Project: "p", Level: "master"})
	require.NoError(t, err)
	e, err := s.Create(CreateInput{Title: "E", Project: "p", Level: "epic", ParentID: m.ID})
	require.NoError(t, err)

	_, err = s.Create(CreateInput{Title: "bad epic", Project: "p", Level: "epic", ParentID: e.ID})
	require.Error(t, err)
}

func TestHierarchy_RejectsCycleOnUpdate(t *testing.T) {
	s := newTestStore(t, "per_file")
	a, err := s.Create(CreateInput{Title: "A", Project: "p"})
	require.NoError(t, err)
	b, err := s.Create(CreateInput{Title: "B", Project: "p", ParentID: a.ID})
	require.NoError(t, err)

	newParent := b.ID
	_, err = s.Update(a.ID, UpdatePatch{ParentID: &newParent})
	require.Error(t, err)
}

func TestDelete_FailsWithChildrenUnlessCascade(t *testing.T) {
	s := newTestStore(t, "per_file")
	a, err := s.Create(CreateInput{Title: "parent", Project: "p"})
	require.NoError(t, err)
	_, err = s.Create(CreateInput{Title: "child", Project: "p", ParentID: a.ID})
	require.NoError(t, err)

	err = s.Delete(a.ID, false)
	require.Error(t, err)

	require.NoError(t, s.Delete(a.ID, true))
	_, err = s.Get(a.ID)
	require.Error(t, err)
}

func TestGetContext(t *testing.T) {
	s := newTestStore(t, "per_file")
	m, err := s.Create(CreateInput{Title: "M", Project: "p"})
	require.NoError(t, err)
	c1, err := s.Create(CreateInput{Title: "C1", Project: "p", ParentID: m.ID})
	require.NoError(t, err)
	_, err = s.Create(CreateInput{Title: "C2", Project: "p", ParentID: m.ID})
	require.NoError(t, err)

	ctx, err := s.GetContext(c1.ID)
	require.NoError(t, err)
	require.NotNil(t, ctx.Parent)
	assert.Equal(t, m.ID, ctx.Parent.ID)
	assert.Len(t, ctx.Siblings, 1)
}

func TestRebuildIndex_Parity(t *testing.T) {
	for _, layout := range []string{"flat", "per_file"} {
		t.Run(layout, func(t *testing.T) {
			s := newTestStore(t, layout)
			_, err := s.Create(CreateInput{Title: "one", Project: "p"})
			require.NoError(t, err)
			_, err = s.Create(CreateInput{Title: "two", Project: "p"})
			require.NoError(t, err)

			before := s.List(ListFilter{Project: "p"})
			require.NoError(t, s.RebuildIndex())
			after := s.List(ListFilter{Project: "p"})

			require.Len(t, after, len(before))
		})
	}
}

func TestResolveLayout_RefusesMismatch(t *testing.T) {
	root := t.TempDir()
	bus := changebus.New(nil)
	_, err := New(root, "flat", bus)
	require.NoError(t, err)

	_, err = New(root, "per_file", bus)
	require.Error(t, err)
}
