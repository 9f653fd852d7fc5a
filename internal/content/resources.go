package content

import "github.com/emergent-company/memoryd/internal/mcp"

// --- memoryd://frontmatter-grammar resource ---

// FrontmatterGrammarResource documents the hand-rolled frontmatter codec so
// an LLM editing files directly on disk (outside the tool layer) writes
// compatible markdown.
type FrontmatterGrammarResource struct{}

func (r *FrontmatterGrammarResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "memoryd://frontmatter-grammar",
		Name:        "Memoryd Frontmatter Grammar",
		Description: "The YAML-subset frontmatter grammar memory and task files use, and the fields each record type recognizes",
		MimeType:    "text/markdown",
	}
}

func (r *FrontmatterGrammarResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{URI: "memoryd://frontmatter-grammar", MimeType: "text/markdown", Text: frontmatterGrammarContent},
		},
	}, nil
}

// --- memoryd://tool-reference resource ---

// ToolReferenceResource is a quick-reference card for the tool catalog.
type ToolReferenceResource struct{}

func (r *ToolReferenceResource) Definition() mcp.ResourceDefinition {
	return mcp.ResourceDefinition{
		URI:         "memoryd://tool-reference",
		Name:        "Memoryd Tool Reference",
		Description: "Quick-reference card for every memoryd tool, its parameters, and its layer",
		MimeType:    "text/markdown",
	}
}

func (r *ToolReferenceResource) Read() (*mcp.ResourcesReadResult, error) {
	return &mcp.ResourcesReadResult{
		Contents: []mcp.ResourceContent{
			{URI: "memoryd://tool-reference", MimeType: "text/markdown", Text: toolReferenceContent},
		},
	}, nil
}

// --- Static content ---

const frontmatterGrammarContent = `# Memoryd Frontmatter Grammar

Memory and per-file task records are markdown files: a frontmatter block
bounded by ` + "`---`" + ` lines, followed by a body. The frontmatter parser is a
small hand-rolled YAML subset — it does not accept arbitrary YAML.

## Supported shapes

- Scalar: ` + "`key: value`" + ` — value is trimmed; wrapped in a single pair of
  quotes (single or double) strips the quotes.
- List, inline: ` + "`key: [a, b, c]`" + ` — comma-split, each item trimmed and
  unquoted.
- Boolean: ` + "`true`" + `/` + "`false`" + ` (case-sensitive).
- Integer: parsed with strconv.Atoi; anything else, floats included, is
  kept as a string.
- Timestamp: an RFC3339 string, written in UTC. The parser keeps it as a
  string; the memory and task record types parse it.

## Not supported

- Block lists (a key followed by indented ` + "`- item`" + ` lines), nested
  maps, anchors/aliases, multi-document files, flow-style maps
  (` + "`{a: 1}`" + `), block scalars (` + "`|`" + `/` + "`>`" + `).

## Memory frontmatter fields

id, timestamp, last_accessed, access_count, project, category,
tags (list), priority, status, complexity, related_memories (list),
content_hash.

## Task frontmatter fields (layout B: task-<id>.md)

id, serial, title, status, priority, project, category, tags (list),
created, updated, parent_id, level, memory_connections (inline list; each
item is a ` + "`memory_id|connection_type|relevance`" + ` string).

Body text for both record types is everything after the closing ` + "`---`" + `,
with the one blank line that follows the delimiter removed.
`

const toolReferenceContent = `# Memoryd Tool Reference

## Memory tools (layer: core)

### add_memory
Record a new memory. Required: content. Optional: project, category,
tags, priority, status. Warns if a byte-identical memory already exists.

### get_memory
Fetch by id; bumps access_count and last_accessed.

### list_memories
List memories newest first. Optional: project, limit.

### search_memories
Composite recency/relevance/interaction/importance ranking over
content/tag matches, with a Levenshtein fuzzy fallback. Required: query.
Optional: project, category, status, tags, fuzzy.

### update_memory
Partial update by id. id and timestamp never change.

### delete_memory
Permanent delete by id, no tombstone.

### dedup_memories
Group by content hash; apply=false (default) returns a plan, apply=true
deletes the losers (oldest survives) after taking a backup snapshot.

## Task tools (layer: core)

### create_task
Required: title. Optional: description, project, category, tags,
priority, parent_id, level, memory_connections. When parent_id is set,
the parent must exist in the same project; the level rule is checked only
when both the parent and the new task have a level.

### get_task / list_tasks / update_task / delete_task
Standard CRUD; delete_task requires cascade=true if the task has
children.

### get_task_context
Returns a task plus its parent, siblings, children, and a sample of
other project tasks.

## Session tools (layer: core)

### generate_dropoff
Pure-read handoff document generator. Required: session_summary.
Optional: recent_memory_count, recent_task_count, project.

### test_tool
Connectivity echo; no side effects.

### get_health
Memory/task counts, on-disk storage footprint, last/next backup.

## Layering meta-tools (layer: core, always active)

### list_available_layers / activate_layer / deactivate_layer
Inspect and mutate which optional layers' tools are currently
registered. The core layer cannot be deactivated.
`
