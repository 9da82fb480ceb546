// Package commands provides the add command implementation for package management.
// This handles adding new dependencies to package manifests.
package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
)

// AddCommand handles dependency addition operations.
// It adds new package dependencies to the manifest with version constraints.
type AddCommand struct {
	*BaseCommand
}

// NewAddCommand creates a new add command handler.
func NewAddCommand() *AddCommand {
	return &AddCommand{
		BaseCommand: NewBaseCommand(
			"Add a dependency to the package manifest",
			"usage: bero-pm add --dep name@constraint [--save-dev] [--lock=true]",
		),
	}
}

// Execute implements the CommandHandler interface for add operations.
func (c *AddCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	dep := fs.String("dep", "", "dependency in form name@constraint (e.g., foo@^1.2.0)")
	saveDev := fs.Bool("save-dev", false, "add to devDependencies instead of dependencies")
	dev := fs.Bool("dev", false, "alias for --save-dev")
	relock := fs.Bool("lock", true, "rewrite lockfile after adding")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse add flags: %w", err)
	}

	if *dep == "" {
		return fmt.Errorf("usage: bero-pm add --dep name@constraint [--save-dev] [--lock=true]")
	}

	// Read current manifest
	manifest, err := utils.ReadManifest()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	// Parse dependency specification
	name, constraint := utils.SplitAt(*dep)

	isDev := *saveDev || *dev
	manifest = utils.SetDependency(manifest, name, constraint, isDev)

	// Write updated manifest
	if err := utils.WriteManifest(manifest); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	if *relock {
		if err := utils.WriteLockFromManifest(context.Background(), ctx.Registry, manifest, false); err != nil {
			return fmt.Errorf("failed to update lockfile: %w", err)
		}
	}

	target := "dependencies"
	if isDev {
		target = "devDependencies"
	}
	fmt.Printf("added %s -> %s (%s)\n", name, constraint, target)
	return nil
}
