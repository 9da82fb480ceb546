// Package commands provides the lock command implementation for package management.
// This handles lockfile generation from resolved dependencies.
package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
)

// LockCommand handles lockfile generation operations.
// It creates lockfiles from resolved dependency trees for reproducible builds.
type LockCommand struct {
	*BaseCommand
}

// NewLockCommand creates a new lock command handler.
func NewLockCommand() *LockCommand {
	return &LockCommand{
		BaseCommand: NewBaseCommand(
			"Generate lockfile from current resolved state",
			"usage: bero-pm lock [--production]",
		),
	}
}

// Execute implements the CommandHandler interface for lock operations.
func (c *LockCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	production := fs.Bool("production", false, "skip devDependencies")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse lock flags: %w", err)
	}

	// Read current manifest
	manifest, err := utils.ReadManifest()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	// Resolve dependencies and rewrite the manifest if an empty range pinned
	plan, rewrites, lock, err := utils.ResolveCurrent(context.Background(), ctx.Registry, manifest, *production)
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	if err := lock.WriteLock(); err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}

	manifest = utils.ApplyRootRewrites(manifest, rewrites)

	if len(rewrites) > 0 {
		if err := utils.WriteManifest(manifest); err != nil {
			return fmt.Errorf("failed to rewrite manifest: %w", err)
		}
	}

	fmt.Printf("lockfile written (%d entries)\n", len(lock.Snapshot()))
	return nil
}
