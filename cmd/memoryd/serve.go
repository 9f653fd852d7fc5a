package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/emergent-company/memoryd/internal/mcp"
	"github.com/spf13/cobra"
)

// shutdownGrace bounds how long serve waits for in-flight requests to
// finish after a termination signal (spec §5: "drains in-flight requests
// up to 5s, then terminates").
const shutdownGrace = 5 * time.Second

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap()
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.scheduler.Start(ctx)
	defer a.scheduler.Stop()

	go a.watcher.Run(ctx)

	mode := a.cfg.Transport.Mode
	if mode == "" {
		mode = "stdio"
	}

	a.logger.Info("memoryd starting", "mode", mode, "root", a.root, "memory_root", a.memRoot, "task_root", a.taskRoot)

	switch mode {
	case "stdio":
		return a.runStdio(ctx)
	case "bridge":
		return a.runBridge(ctx)
	case "both":
		return a.runBoth(ctx)
	default:
		return fmt.Errorf("unknown transport mode %q (want stdio, bridge, or both)", mode)
	}
}

func (a *app) runStdio(ctx context.Context) error {
	srv := mcp.NewServer(a.registry, mcp.ServerInfo{Name: a.cfg.Server.Name, Version: version}, a.logger)
	return srv.Run(ctx)
}

func (a *app) runBridge(ctx context.Context) error {
	b := a.newBridge()
	host := a.cfg.Transport.Host
	if host == "" {
		host = "127.0.0.1"
	}
	if err := b.Start(host, a.cfg.Transport.Port); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	a.logger.Info("dashboard bridge listening", "port", b.Port())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return b.Shutdown(shutdownCtx)
}

// runBoth starts the bridge in the background and blocks on the stdio MCP
// server in the foreground, since an MCP client expects memoryd's process
// lifetime to track the stdio session.
func (a *app) runBoth(ctx context.Context) error {
	b := a.newBridge()
	host := a.cfg.Transport.Host
	if host == "" {
		host = "127.0.0.1"
	}
	if err := b.Start(host, a.cfg.Transport.Port); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	a.logger.Info("dashboard bridge listening", "port", b.Port())
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = b.Shutdown(shutdownCtx)
	}()

	return a.runStdio(ctx)
}
