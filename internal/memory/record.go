package memory

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"
)

// Valid enumerations (spec §3.1).
var (
	Categories = []string{"personal", "work", "code", "research", "conversations", "preferences"}
	Priorities = []string{"low", "medium", "high"}
	Statuses   = []string{"active", "archived", "reference"}
)

// RelatedMemory is a weak, lookup-only cross-reference (spec §9 "Cyclic
// relations"): dangling ids are allowed and not validated against the
// index.
type RelatedMemory = string

// Record is a single memory (spec §3.1).
type Record struct {
	ID              string   `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	LastAccessed    time.Time `json:"last_accessed"`
	AccessCount     int      `json:"access_count"`
	Content         string   `json:"content"`
	Project         string   `json:"project"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	Priority        string   `json:"priority"`
	Status          string   `json:"status"`
	Complexity      int      `json:"complexity"`
	RelatedMemories []string `json:"related_memories"`
	ContentHash     string   `json:"content_hash"`
}

// frontmatterKeys fixes the serialization order of Record's metadata so
// repeated writes of logically equivalent records diff cleanly.
var frontmatterKeys = []string{
	"id", "timestamp", "last_accessed", "access_count", "project",
	"category", "tags", "priority", "status", "complexity",
	"related_memories", "content_hash",
}

func (r *Record) toMetadata() map[string]any {
	return map[string]any{
		"id":               r.ID,
		"timestamp":        r.Timestamp.UTC().Format(time.RFC3339Nano),
		"last_accessed":    r.LastAccessed.UTC().Format(time.RFC3339Nano),
		"access_count":     r.AccessCount,
		"project":          r.Project,
		"category":         r.Category,
		"tags":             normalizeTags(r.Tags),
		"priority":         r.Priority,
		"status":           r.Status,
		"complexity":       r.Complexity,
		"related_memories": r.RelatedMemories,
		"content_hash":     r.ContentHash,
	}
}

func recordFromMetadata(meta map[string]any, body string) Record {
	r := Record{Content: body}
	if v, ok := meta["id"].(string); ok {
		r.ID = v
	}
	r.Timestamp = parseTimeField(meta["timestamp"])
	r.LastAccessed = parseTimeField(meta["last_accessed"])
	r.AccessCount = asInt(meta["access_count"])
	if v, ok := meta["project"].(string); ok {
		r.Project = v
	}
	if v, ok := meta["category"].(string); ok {
		r.Category = v
	}
	r.Tags = asStringSlice(meta["tags"])
	if v, ok := meta["priority"].(string); ok {
		r.Priority = v
	}
	if v, ok := meta["status"].(string); ok {
		r.Status = v
	}
	r.Complexity = asInt(meta["complexity"])
	r.RelatedMemories = asStringSlice(meta["related_memories"])
	if v, ok := meta["content_hash"].(string); ok {
		r.ContentHash = v
	}
	return r
}

func parseTimeField(v any) time.Time {
	s, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case nil:
		return nil
	default:
		return nil
	}
}

// normalizeTags dedups and lowercases tags (spec §3.1 invariant c).
func normalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// hashContent computes the dedup hash (spec §3.1 "content_hash: hash of
// content for dedup"; recomputed on every write per §4.2).
func hashContent(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// classifyComplexity is a length/structure heuristic (spec §3.1:
// "auto-classified from length/structure"), returning 1 (trivial) to 4
// (complex).
func classifyComplexity(content string) int {
	length := len(content)
	lines := strings.Count(content, "\n") + 1
	hasStructure := strings.Contains(content, "```") ||
		strings.Contains(content, "\n#") ||
		strings.Contains(content, "\n-") ||
		strings.Contains(content, "\n1.")

	switch {
	case length < 80 && lines <= 2:
		return 1
	case length < 400 && !hasStructure:
		return 2
	case length < 1200 || (hasStructure && lines < 40):
		return 3
	default:
		return 4
	}
}
