// Package commands provides the remove command implementation for package management.
// This handles removing dependencies from package manifests.
package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
)

// RemoveCommand handles dependency removal operations.
// It removes specified dependencies from the manifest and optionally updates the lockfile.
type RemoveCommand struct {
	*BaseCommand
}

// NewRemoveCommand creates a new remove command handler.
func NewRemoveCommand() *RemoveCommand {
	return &RemoveCommand{
		BaseCommand: NewBaseCommand(
			"Remove dependencies from the package manifest",
			"usage: bero-pm remove --dep <name> [--save-dev] [--lock=true]",
		),
	}
}

// Execute implements the CommandHandler interface for remove operations.
func (c *RemoveCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("remove", flag.ExitOnError)
	depName := fs.String("dep", "", "dependency name to remove")
	saveDev := fs.Bool("save-dev", false, "remove from devDependencies instead of dependencies")
	dev := fs.Bool("dev", false, "alias for --save-dev")
	relock := fs.Bool("lock", true, "rewrite lockfile after removal")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse remove flags: %w", err)
	}

	if *depName == "" {
		return fmt.Errorf("usage: bero-pm remove --dep <name> [--save-dev] [--lock=true]")
	}

	// Read current manifest
	manifest, err := utils.ReadManifest()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	isDev := *saveDev || *dev

	// Remove dependency from manifest. An explicit --save-dev/--dev pins the
	// target map; otherwise fall back to whichever map actually has the name.
	removed := utils.RemoveDependency(manifest, *depName, isDev)
	if !removed && !isDev {
		removed = utils.RemoveDependency(manifest, *depName, true)
		isDev = removed
	}

	if !removed {
		return fmt.Errorf("dependency %s not found in manifest", *depName)
	}

	// Write updated manifest
	if err := utils.WriteManifest(manifest); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	// Optionally update lockfile
	if *relock {
		if err := utils.WriteLockFromManifest(context.Background(), ctx.Registry, manifest, false); err != nil {
			return fmt.Errorf("failed to update lockfile: %w", err)
		}
	}

	fmt.Printf("removed %s\n", *depName)
	return nil
}
