package frontmatter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_TolerantMissingLeadingDelimiter(t *testing.T) {
	doc, err := Parse([]byte("just a body\nwith no header"))
	require.NoError(t, err)
	assert.Empty(t, doc.Metadata)
	assert.Equal(t, "just a body\nwith no header", doc.Body)
}

func TestParse_MalformedMissingClosingDelimiter(t *testing.T) {
	_, err := Parse([]byte("---\nid: abc\nno closing delimiter here"))
	require.Error(t, err)
	var malformed *ErrMalformed
	assert.ErrorAs(t, err, &malformed)
}

func TestParse_ScalarsAndLists(t *testing.T) {
	raw := []byte("---\n" +
		"id: abc123\n" +
		"priority: \"high\"\n" +
		"count: 7\n" +
		"archived: false\n" +
		"tags: [go, testing, frontmatter]\n" +
		"---\n" +
		"\nbody text here")

	doc, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc123", doc.Metadata["id"])
	assert.Equal(t, "high", doc.Metadata["priority"])
	assert.Equal(t, 7, doc.Metadata["count"])
	assert.Equal(t, false, doc.Metadata["archived"])
	assert.Equal(t, []string{"go", "testing", "frontmatter"}, doc.Metadata["tags"])
	assert.Equal(t, "body text here", doc.Body)
}

func TestRoundTrip(t *testing.T) {
	meta := map[string]any{
		"id":       "m-1",
		"project":  "p1",
		"priority": "medium",
		"tags":     []string{"t1", "t2"},
		"count":    3,
		"archived": true,
	}
	keys := []string{"id", "project", "priority", "tags", "count", "archived"}
	body := "Remember to write tests."

	raw := Serialize(meta, keys, body)
	doc, err := Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, meta["id"], doc.Metadata["id"])
	assert.Equal(t, meta["project"], doc.Metadata["project"])
	assert.Equal(t, meta["priority"], doc.Metadata["priority"])
	assert.Equal(t, meta["tags"], doc.Metadata["tags"])
	assert.Equal(t, meta["count"], doc.Metadata["count"])
	assert.Equal(t, meta["archived"], doc.Metadata["archived"])
	assert.Equal(t, body, doc.Body)
}

func TestRoundTrip_ValuesNeedingQuotes(t *testing.T) {
	meta := map[string]any{"title": "10", "note": "a, b: c"}
	keys := []string{"title", "note"}
	raw := Serialize(meta, keys, "")
	doc, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "10", doc.Metadata["title"])
	assert.Equal(t, "a, b: c", doc.Metadata["note"])
}
