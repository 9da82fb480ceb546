// Package commands provides the watch command implementation for package management.
// This handles live re-resolution when the project manifest changes on disk.
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
	"github.com/bero-pm/bero-pm/internal/runtime/vfs"
)

// WatchCommand handles manifest-watch operations.
// It re-resolves and re-locks dependencies whenever bero.json is written.
type WatchCommand struct {
	*BaseCommand
}

// NewWatchCommand creates a new watch command handler.
func NewWatchCommand() *WatchCommand {
	return &WatchCommand{
		BaseCommand: NewBaseCommand(
			"Watch the manifest and relock on change",
			"usage: bero-pm watch",
		),
	}
}

// Execute implements the CommandHandler interface for watch operations.
func (c *WatchCommand) Execute(ctx types.RegistryContext, args []string) error {
	watcher, err := vfs.NewFSWatcher()
	if err != nil {
		return fmt.Errorf("failed to start manifest watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(utils.DefaultManifestPath); err != nil {
		return fmt.Errorf("failed to watch %s: %w", utils.DefaultManifestPath, err)
	}

	if err := c.relock(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "initial relock failed: %v\n", err)
	}

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, os.Interrupt, syscall.SIGTERM)

	fmt.Printf("watching %s for changes (ctrl-c to stop)\n", utils.DefaultManifestPath)

	for {
		select {
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			if ev.Op&(vfs.OpWrite|vfs.OpCreate) == 0 {
				continue
			}
			if err := c.relock(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "relock failed: %v\n", err)
				continue
			}
			fmt.Println("lockfile refreshed")
		case err, ok := <-watcher.Errors():
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		case <-sigC:
			return nil
		}
	}
}

// relock re-reads the manifest and rewrites the lockfile against it.
func (c *WatchCommand) relock(ctx types.RegistryContext) error {
	manifest, err := utils.ReadManifest()
	if err != nil {
		return err
	}
	return utils.WriteLockFromManifest(context.Background(), ctx.Registry, manifest, false)
}
