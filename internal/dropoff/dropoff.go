// Package dropoff implements the session handoff generator (spec §4.10): a
// pure read over the memory and task stores that renders a markdown
// document under session-dropoffs/.
package dropoff

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/task"
)

const defaultRecentMemoryCount = 5
const defaultRecentTaskCount = 5

// Input configures one dropoff generation.
type Input struct {
	SessionSummary    string
	RecentMemoryCount int
	RecentTaskCount   int
	Project           string
}

// Generator renders dropoff documents under <root>/session-dropoffs.
type Generator struct {
	root   string
	memory *memory.Store
	task   *task.Store
	wd     string
}

// New constructs a Generator. wd is recorded in the host-info block; pass
// the process working directory.
func New(root string, memStore *memory.Store, taskStore *task.Store, wd string) *Generator {
	return &Generator{root: root, memory: memStore, task: taskStore, wd: wd}
}

// Generate writes a new dropoff file and returns its path and contents.
func (g *Generator) Generate(in Input) (path string, contents string, err error) {
	stamp := time.Now().UTC()
	memCount := in.RecentMemoryCount
	if memCount <= 0 {
		memCount = defaultRecentMemoryCount
	}
	taskCount := in.RecentTaskCount
	if taskCount <= 0 {
		taskCount = defaultRecentTaskCount
	}

	mems := g.memory.List(in.Project, 0)
	sort.Slice(mems, func(i, j int) bool { return mems[i].Timestamp.After(mems[j].Timestamp) })
	if len(mems) > memCount {
		mems = mems[:memCount]
	}

	tasks := g.task.List(task.ListFilter{Project: in.Project, Limit: taskCount})

	body := render(in.SessionSummary, mems, tasks, g.wd, stamp)

	dir := filepath.Join(g.root, "session-dropoffs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", fmt.Errorf("creating session-dropoffs dir: %w", err)
	}
	name := fmt.Sprintf("SESSION-DROPOFF-%s.md", stamp.UTC().Format("20060102-150405"))
	path = filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		return "", "", fmt.Errorf("writing dropoff file: %w", err)
	}
	return path, body, nil
}

func render(summary string, mems []memory.Record, tasks []task.Task, wd string, stamp time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Session Dropoff\n\n")
	sb.WriteString(summary)
	sb.WriteString("\n\n")

	sb.WriteString("## Recent Memories\n\n")
	if len(mems) == 0 {
		sb.WriteString("_no memories recorded_\n\n")
	}
	for _, m := range mems {
		sb.WriteString(fmt.Sprintf("### %s\n", m.ID))
		sb.WriteString(fmt.Sprintf("- project: %s\n", m.Project))
		sb.WriteString(fmt.Sprintf("- tags: %s\n", strings.Join(m.Tags, ", ")))
		sb.WriteString(fmt.Sprintf("- date: %s\n", m.Timestamp.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("- preview: %s\n\n", preview(m.Content)))
	}

	sb.WriteString("## Recently Updated Tasks\n\n")
	if len(tasks) == 0 {
		sb.WriteString("_no tasks recorded_\n\n")
	}
	for _, t := range tasks {
		sb.WriteString(fmt.Sprintf("- [%s] %s (priority: %s, project: %s)\n", t.Status, t.Title, t.Priority, t.Project))
	}
	sb.WriteString("\n")

	sb.WriteString("## Host Info\n\n")
	sb.WriteString(fmt.Sprintf("- platform: %s/%s\n", runtime.GOOS, runtime.GOARCH))
	sb.WriteString(fmt.Sprintf("- working directory: %s\n", wd))
	sb.WriteString(fmt.Sprintf("- generated: %s\n", stamp.UTC().Format(time.RFC3339)))

	return sb.String()
}

func preview(content string) string {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	firstLine = strings.TrimSpace(firstLine)
	if len(firstLine) > 120 {
		firstLine = firstLine[:120] + "…"
	}
	return firstLine
}
