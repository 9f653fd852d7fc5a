package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/memoryd/internal/memory"
)

func rec(id, content string, ts time.Time) memory.Record {
	return memory.Record{
		ID:           id,
		Content:      content,
		Timestamp:    ts,
		LastAccessed: ts,
		Status:       "active",
		Priority:     "medium",
	}
}

func TestSearch_ExactMatchRanksAboveFuzzyTypo(t *testing.T) {
	now := time.Now().UTC()
	records := []memory.Record{
		rec("exact", "a note about configuration management", now),
		rec("typo", "a note about configurtaion management", now),
	}

	results := Search(records, "configuration", Filter{}, DefaultWeights())
	require.Len(t, results, 2)
	assert.Equal(t, "exact", results[0].Record.ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestSearch_FiltersByProjectAndCategory(t *testing.T) {
	a := rec("a", "notes", time.Now())
	a.Project = "p1"
	a.Category = "work"
	b := rec("b", "notes", time.Now())
	b.Project = "p2"
	b.Category = "personal"

	results := Search([]memory.Record{a, b}, "notes", Filter{Project: "p1"}, DefaultWeights())
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].Record.ID)
}

func TestSearch_EmptyQueryReturnsAllFiltered(t *testing.T) {
	records := []memory.Record{
		rec("a", "anything", time.Now()),
		rec("b", "something else", time.Now()),
	}
	results := Search(records, "", Filter{}, DefaultWeights())
	assert.Len(t, results, 2)
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.0, clamp01(-5))
	assert.Equal(t, 1.0, clamp01(5))
	assert.Equal(t, 0.0, clamp01(negNaN()))
}

func negNaN() float64 {
	var zero float64
	return zero / zero
}
