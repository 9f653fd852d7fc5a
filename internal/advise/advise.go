// Package advise adapts the severity/outcome model of internal/guards into
// non-blocking advisories for memoryd's write operations (spec §7
// "Guard-style advisories on write operations"). Nothing here ever blocks:
// the spec explicitly rules out constrained status transitions and
// tombstones, so only Suggestion/Warning severities are ever produced.
package advise

import (
	"fmt"

	"github.com/emergent-company/memoryd/internal/guards"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/task"
)

// ForMemoryAdd aggregates the advisories for an add_memory call into a
// guards.Outcome. Blocked is always false — these checks warn, they never
// stop the write.
func ForMemoryAdd(hash string, existing memory.Record, foundDuplicate bool) *guards.Outcome {
	outcome := &guards.Outcome{}
	outcome.Results = append(outcome.Results, duplicateContentWarning(hash, existing, foundDuplicate))
	return outcome
}

// ForTaskCreate aggregates the advisories for a create_task call.
func ForTaskCreate(parent *task.Task) *guards.Outcome {
	outcome := &guards.Outcome{}
	if parent != nil {
		outcome.Results = append(outcome.Results, archivedParentWarning(*parent))
	}
	return outcome
}

// duplicateContentWarning flags content_hash collisions (spec §4.2 dedup
// exists for exactly this situation; the advisory surfaces it at write
// time instead of only on a later dedup() call).
func duplicateContentWarning(hash string, existing memory.Record, found bool) guards.Result {
	if !found {
		return guards.Pass("duplicate-content")
	}
	return guards.Fail("duplicate-content", guards.Warning,
		fmt.Sprintf("a memory with identical content already exists (id=%s)", existing.ID),
		"consider update_memory instead of add_memory, or run dedup to see the full plan")
}

// archivedParentWarning flags creating a task whose parent is done/blocked
// — allowed (status transitions are unconstrained per spec §3.2) but worth
// surfacing.
func archivedParentWarning(parent task.Task) guards.Result {
	if parent.Status != "done" && parent.Status != "blocked" {
		return guards.Pass("parent-status")
	}
	return guards.Fail("parent-status", guards.Warning,
		fmt.Sprintf("parent task %q is %s", parent.Title, parent.Status),
		"consider whether this task should instead attach to an active parent")
}
