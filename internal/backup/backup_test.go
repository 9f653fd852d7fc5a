package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, maxBackups int) (*Manager, string, string, string) {
	t.Helper()
	root := t.TempDir()
	memRoot := filepath.Join(root, "memories")
	taskRoot := filepath.Join(root, "tasks")
	require.NoError(t, os.MkdirAll(memRoot, 0o755))
	require.NoError(t, os.MkdirAll(taskRoot, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(memRoot, "a.md"), []byte("---\nid: a\n---\nhello"), 0o644))

	return New(root, memRoot, taskRoot, maxBackups, nil), root, memRoot, taskRoot
}

func TestSnapshot_CopiesTreeAndRecordsLastBackup(t *testing.T) {
	m, root, _, _ := newTestManager(t, 10)

	require.NoError(t, m.Snapshot())

	entries, err := os.ReadDir(filepath.Join(root, "backups"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	copied, err := os.ReadFile(filepath.Join(root, "backups", entries[0].Name(), "memories", "a.md"))
	require.NoError(t, err)
	assert.Contains(t, string(copied), "hello")

	h := m.Probe(1, 0, time.Hour)
	assert.False(t, h.LastBackup.IsZero())
	assert.Equal(t, 1, h.BackupCount)
}

func TestSnapshot_RotatesPastMaxBackups(t *testing.T) {
	m, root, _, _ := newTestManager(t, 1)

	require.NoError(t, m.Snapshot())
	time.Sleep(1100 * time.Millisecond) // distinct second-resolution timestamp
	require.NoError(t, m.Snapshot())

	entries, err := os.ReadDir(filepath.Join(root, "backups"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestProbe_ComputesStorageBytes(t *testing.T) {
	m, _, _, _ := newTestManager(t, 10)

	h := m.Probe(1, 0, time.Hour)
	assert.Greater(t, h.StorageBytes, int64(0))
}
