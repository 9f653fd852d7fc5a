// Package content provides MCP prompts and resources for memoryd. Grounded
// on the teacher's internal/content: one struct per prompt/resource, static
// guide text as a package const, Definition()/Get()/Read() implementing
// mcp.Prompt/mcp.Resource.
package content

import "github.com/emergent-company/memoryd/internal/mcp"

// --- capture-session-memories prompt ---

// CaptureSessionMemoriesPrompt guides an LLM through reviewing a session
// and deciding what's worth persisting as memories before it ends.
type CaptureSessionMemoriesPrompt struct{}

func (p *CaptureSessionMemoriesPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "capture-session-memories",
		Description: "Interactive guide for reviewing a session and deciding what to persist as memories before ending it.",
		Arguments:   []mcp.PromptArgument{},
	}
}

func (p *CaptureSessionMemoriesPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	return &mcp.PromptsGetResult{
		Description: "Guide for capturing session memories",
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextContent(captureSessionMemoriesGuide)},
		},
	}, nil
}

const captureSessionMemoriesGuide = `# Capture Session Memories

You are helping a user decide what from the current session is worth
remembering, then recording it with add_memory.

## What's worth keeping

- Decisions with a rationale that would otherwise be forgotten
- Facts about the user, their codebase, or their preferences that will
  matter again
- Corrections the user gave you — what to stop or keep doing, and why
- Open questions or follow-ups that aren't finished yet

## What isn't

- Anything already derivable by reading the code or git history
- Ephemeral state specific to this conversation only
- Restating what a file already documents

## Steps

1. Skim back through the session for candidates against the list above.
2. For each candidate, call search_memories first — don't create a
   near-duplicate of something already stored.
3. Call add_memory with a concise content string, the right project,
   and tags that make it findable later (e.g. "testing", "deploy",
   a component name).
4. If several memories turn out to say the same thing, call
   dedup_memories with apply=false to see the plan before applying it.

Ask the user to confirm anything ambiguous about project or category
before writing it.
`

// --- triage-tasks prompt ---

// TriageTasksPrompt guides an LLM through reviewing open tasks and
// proposing status/priority changes.
type TriageTasksPrompt struct{}

func (p *TriageTasksPrompt) Definition() mcp.PromptDefinition {
	return mcp.PromptDefinition{
		Name:        "triage-tasks",
		Description: "Interactive guide for reviewing open tasks in a project and proposing status, priority, or hierarchy changes.",
		Arguments: []mcp.PromptArgument{
			{Name: "project", Description: "Project slug to triage; defaults to all projects", Required: false},
		},
	}
}

func (p *TriageTasksPrompt) Get(arguments map[string]string) (*mcp.PromptsGetResult, error) {
	project := arguments["project"]
	text := buildTriageTasksGuide(project)
	return &mcp.PromptsGetResult{
		Description: "Guide for triaging open tasks",
		Messages: []mcp.PromptMessage{
			{Role: "user", Content: mcp.TextContent(text)},
		},
	}, nil
}

func buildTriageTasksGuide(project string) string {
	guide := `# Triage Tasks

You are helping a user review their open tasks and decide what changes,
if any, are needed.

## Steps

1. Call list_tasks`
	if project != "" {
		guide += " with project=\"" + project + "\""
	}
	guide += ` and status left unset to see everything, not just one
   status bucket.
2. For each task, ask:
   - Is this still relevant, or should it be marked done/blocked?
   - Is the priority still right given what's changed since it was
     created?
   - Does it have a parent/children relationship that's stale (use
     get_task_context to check)?
3. Propose specific update_task calls — don't apply silently. Summarize
   what you'd change and why before calling the tool.
4. For anything genuinely finished, set status to "done" rather than
   deleting it; delete_task is for tasks that were created in error.

## Hierarchy notes

Tasks optionally sit in a master -> epic -> task -> subtask chain. A
task with no level set opts out of hierarchy validation entirely —
don't force one on it unless the user asks.
`
	return guide
}
