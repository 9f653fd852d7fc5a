package task

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/emergent-company/memoryd/internal/frontmatter"
)

// perFileLayout stores one frontmatter file per task at
// <root>/<project>/task-<id>.md (spec §3.2 Persistence, layout B).
type perFileLayout struct{}

func (perFileLayout) Name() string { return "per_file" }

var taskFrontmatterKeys = []string{
	"id", "serial", "title", "status", "priority", "project", "category",
	"tags", "created", "updated", "parent_id", "level", "memory_connections",
}

func (perFileLayout) LoadAll(root string) (map[string][]Task, error) {
	out := make(map[string][]Task)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return out, nil
		}
		return nil, err
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		projectDir := filepath.Join(root, e.Name())
		files, err := os.ReadDir(projectDir)
		if err != nil {
			continue
		}
		var tasks []Task
		for _, f := range files {
			if f.IsDir() || !strings.HasPrefix(f.Name(), "task-") || !strings.HasSuffix(f.Name(), ".md") {
				continue
			}
			raw, err := os.ReadFile(filepath.Join(projectDir, f.Name()))
			if err != nil {
				continue
			}
			doc, err := frontmatter.Parse(raw)
			if err != nil {
				continue // malformed: skipped, logged by caller
			}
			t := taskFromMetadata(doc.Metadata, doc.Body)
			if t.ID == "" {
				continue
			}
			tasks = append(tasks, t)
		}
		if len(tasks) > 0 {
			out[e.Name()] = tasks
		}
	}
	return out, nil
}

// Persist rewrites every task file for project. Per-file layout could write
// incrementally, but rewriting the full set keeps Persist's contract
// identical across layouts (the store always calls Persist with the
// project's complete current set after a mutation).
func (perFileLayout) Persist(root, project string, tasks []Task) error {
	dir := filepath.Join(root, project)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := writeTaskFile(dir, t); err != nil {
			return err
		}
	}
	return nil
}

func (perFileLayout) Remove(root, project, id string) error {
	path := filepath.Join(root, project, fmt.Sprintf("task-%s.md", id))
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func writeTaskFile(dir string, t Task) error {
	path := filepath.Join(dir, fmt.Sprintf("task-%s.md", t.ID))
	raw := frontmatter.Serialize(taskMetadata(t), taskFrontmatterKeys, t.Description)

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func taskMetadata(t Task) map[string]any {
	conns := make([]string, 0, len(t.MemoryConnections))
	for _, c := range t.MemoryConnections {
		conns = append(conns, fmt.Sprintf("%s|%s|%s", c.MemoryID, c.ConnectionType, strconv.FormatFloat(c.Relevance, 'g', -1, 64)))
	}
	return map[string]any{
		"id":                 t.ID,
		"serial":             t.Serial,
		"title":              t.Title,
		"status":             t.Status,
		"priority":           t.Priority,
		"project":            t.Project,
		"category":           t.Category,
		"tags":               t.Tags,
		"created":            t.Created.UTC().Format(time.RFC3339),
		"updated":            t.Updated.UTC().Format(time.RFC3339),
		"parent_id":          t.ParentID,
		"level":              t.Level,
		"memory_connections": conns,
	}
}

func taskFromMetadata(meta map[string]any, body string) Task {
	t := Task{Description: body}
	if v, ok := meta["id"].(string); ok {
		t.ID = v
	}
	if v, ok := meta["serial"].(int); ok {
		t.Serial = v
	}
	if v, ok := meta["title"].(string); ok {
		t.Title = v
	}
	if v, ok := meta["status"].(string); ok {
		t.Status = v
	}
	if v, ok := meta["priority"].(string); ok {
		t.Priority = v
	}
	if v, ok := meta["project"].(string); ok {
		t.Project = v
	}
	if v, ok := meta["category"].(string); ok {
		t.Category = v
	}
	if v, ok := meta["tags"].([]string); ok {
		t.Tags = v
	}
	t.Created = parseTaskTime(meta["created"])
	t.Updated = parseTaskTime(meta["updated"])
	if v, ok := meta["parent_id"].(string); ok {
		t.ParentID = v
	}
	if v, ok := meta["level"].(string); ok {
		t.Level = v
	}
	if raw, ok := meta["memory_connections"].([]string); ok {
		for _, s := range raw {
			parts := strings.SplitN(s, "|", 3)
			if len(parts) != 3 {
				continue
			}
			rel, _ := strconv.ParseFloat(parts[2], 64)
			t.MemoryConnections = append(t.MemoryConnections, MemoryConnection{
				MemoryID:       parts[0],
				ConnectionType: parts[1],
				Relevance:      rel,
			})
		}
	}
	return t
}

func parseTaskTime(v any) time.Time {
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
