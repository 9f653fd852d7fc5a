package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emergent-company/memoryd/internal/backup"
	"github.com/emergent-company/memoryd/internal/bridge"
	"github.com/emergent-company/memoryd/internal/changebus"
	"github.com/emergent-company/memoryd/internal/config"
	"github.com/emergent-company/memoryd/internal/content"
	"github.com/emergent-company/memoryd/internal/dropoff"
	"github.com/emergent-company/memoryd/internal/layers"
	"github.com/emergent-company/memoryd/internal/lock"
	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/emergent-company/memoryd/internal/memory"
	"github.com/emergent-company/memoryd/internal/project"
	"github.com/emergent-company/memoryd/internal/scheduler"
	"github.com/emergent-company/memoryd/internal/selfevent"
	"github.com/emergent-company/memoryd/internal/settings"
	"github.com/emergent-company/memoryd/internal/task"
	"github.com/emergent-company/memoryd/internal/tools/dropofftool"
	"github.com/emergent-company/memoryd/internal/tools/memorytools"
	"github.com/emergent-company/memoryd/internal/tools/systemtools"
	"github.com/emergent-company/memoryd/internal/tools/tasktools"
	"github.com/emergent-company/memoryd/internal/watcher"
)

// app bundles every long-lived collaborator built at startup, shared by the
// serve/backup/dedup commands.
type app struct {
	cfg      *config.Config
	settings *settings.Store
	logger   *slog.Logger

	root      string
	memRoot   string
	taskRoot  string
	dataDir   string

	bus       *changebus.Bus
	memory    *memory.Store
	task      *task.Store
	projects  *project.Registry
	backups   *backup.Manager
	scheduler *scheduler.Scheduler
	watcher   *watcher.Watcher

	registry *mcp.Registry
	layers   *layers.Manager

	peerLock *lock.Lock
}

// bootstrap loads config/settings and constructs every store and service,
// but does not start the watcher, scheduler, or either transport — callers
// decide which of those they need (serve starts all three; backup/dedup
// need only the stores).
func bootstrap() (*app, error) {
	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logLevel := flagLogLevel
	if logLevel == "" {
		logLevel = cfg.Log.Level
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(logLevel)}))

	root := cfg.Storage.Root
	dataDir := filepath.Join(root, "data")

	st, err := settings.Load(filepath.Join(dataDir, "settings.json"))
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	settingsStore := settings.NewStore(st)

	memRoot := resolveUnderRoot(root, st.MemoryDir)
	taskRoot := resolveUnderRoot(root, st.TaskDir)

	bus := changebus.New(logger)
	ring := selfevent.New(selfevent.DefaultWindow)

	memStore, err := memory.New(memRoot, bus, ring)
	if err != nil {
		return nil, fmt.Errorf("opening memory store: %w", err)
	}
	taskStore, err := task.New(taskRoot, st.TaskLayout, bus)
	if err != nil {
		return nil, fmt.Errorf("opening task store: %w", err)
	}

	projReg, err := project.LoadRegistry(filepath.Join(dataDir, "projects-registry.json"))
	if err != nil {
		return nil, fmt.Errorf("loading project registry: %w", err)
	}
	watchProjectTouches(bus, projReg, logger)

	peerLock, err := lock.Acquire(root)
	if err != nil {
		if _, ok := err.(*lock.ErrPeerRunning); ok {
			logger.Warn("another memoryd process holds the writer lock; continuing anyway (stores reconcile via watcher)", "error", err)
		} else {
			return nil, fmt.Errorf("acquiring lock: %w", err)
		}
	}

	bm := backup.New(root, memRoot, taskRoot, st.Features.MaxBackups, logger)
	sch := scheduler.NewScheduler(logger)
	if st.Features.AutoBackup {
		sch.AddJob(bm, time.Duration(st.Features.BackupIntervalSec)*time.Second)
	}

	w, err := watcher.New(logger, ring)
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.AddRoot(memRoot, memStore); err != nil {
		return nil, fmt.Errorf("watching memory root: %w", err)
	}
	if err := w.AddRoot(taskRoot, taskStore); err != nil {
		return nil, fmt.Errorf("watching task root: %w", err)
	}

	registry := mcp.NewRegistry()
	layersMgr := layers.NewManager(registry, st.MCP.MaxTools)
	registerCoreLayer(layersMgr, memStore, taskStore, bm, projReg, root, st)
	if err := layersMgr.Bootstrap(st.MCP.DefaultLayers); err != nil {
		return nil, fmt.Errorf("activating default layers: %w", err)
	}

	registry.RegisterPrompt(&content.CaptureSessionMemoriesPrompt{})
	registry.RegisterPrompt(&content.TriageTasksPrompt{})
	registry.RegisterResource(&content.FrontmatterGrammarResource{})
	registry.RegisterResource(&content.ToolReferenceResource{})

	return &app{
		cfg:       cfg,
		settings:  settingsStore,
		logger:    logger,
		root:      root,
		memRoot:   memRoot,
		taskRoot:  taskRoot,
		dataDir:   dataDir,
		bus:       bus,
		memory:    memStore,
		task:      taskStore,
		projects:  projReg,
		backups:   bm,
		scheduler: sch,
		watcher:   w,
		registry:  registry,
		layers:    layersMgr,
		peerLock:  peerLock,
	}, nil
}

func registerCoreLayer(mgr *layers.Manager, memStore *memory.Store, taskStore *task.Store, bm *backup.Manager, projReg *project.Registry, root string, st *settings.Settings) {
	wd, _ := os.Getwd()
	gen := dropoff.New(root, memStore, taskStore, wd)
	interval := time.Duration(st.Features.BackupIntervalSec) * time.Second

	mgr.Define(layers.CoreLayer, []mcp.Tool{
		memorytools.NewAdd(memStore),
		memorytools.NewGet(memStore),
		memorytools.NewList(memStore),
		memorytools.NewSearch(memStore),
		memorytools.NewUpdate(memStore),
		memorytools.NewDelete(memStore),
		memorytools.NewDedup(memStore, bm),
		tasktools.NewCreate(taskStore),
		tasktools.NewGet(taskStore),
		tasktools.NewList(taskStore),
		tasktools.NewUpdate(taskStore),
		tasktools.NewDelete(taskStore),
		tasktools.NewContext(taskStore),
		dropofftool.New(gen),
		systemtools.NewTestTool(version),
		systemtools.NewGetHealth(bm, memStore, taskStore, interval),
		systemtools.NewListAvailableLayers(mgr),
		systemtools.NewActivateLayer(mgr),
		systemtools.NewDeactivateLayer(mgr),
	})
}

// watchProjectTouches subscribes to the change bus for the app's lifetime,
// registering every project slug seen in a memory/task event (spec §3.3
// "updated when new projects are introduced").
func watchProjectTouches(bus *changebus.Bus, reg *project.Registry, logger *slog.Logger) {
	sub := bus.Subscribe()
	go func() {
		for ev := range sub.C() {
			if ev.Project == "" {
				continue
			}
			if err := reg.Touch(ev.Project); err != nil {
				logger.Warn("project registry touch failed", "project", ev.Project, "error", err)
			}
		}
	}()
}

func (a *app) newBridge() *bridge.Server {
	st := a.settings.Get()
	return bridge.New(bridge.Deps{
		Root:        a.root,
		Memory:      a.memory,
		Task:        a.task,
		Bus:         a.bus,
		Registry:    a.registry,
		CORSOrigins: st.Server.CORSOrigins,
		Logger:      a.logger,
		Name:        a.cfg.Server.Name,
	})
}

func (a *app) close() {
	if a.peerLock != nil {
		_ = a.peerLock.Release()
	}
}

func resolveUnderRoot(root, val string) string {
	if filepath.IsAbs(val) {
		return val
	}
	return filepath.Join(root, val)
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
