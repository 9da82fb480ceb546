// Package commands provides the install command implementation for package management.
// This handles laying resolved packages out on disk under bero_modules.
package commands

import (
	"context"
	"flag"
	"fmt"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
	"github.com/bero-pm/bero-pm/internal/packagemanager"
)

// InstallCommand drives resolution, lock persistence, and the installer's
// fetch/verify/extract pass over the resulting plan.
type InstallCommand struct {
	*BaseCommand
}

// NewInstallCommand creates a new install command handler.
func NewInstallCommand() *InstallCommand {
	return &InstallCommand{
		BaseCommand: NewBaseCommand(
			"Resolve, lock, and lay packages out under bero_modules",
			"usage: bero-pm install [--production]",
		),
	}
}

// Execute implements the CommandHandler interface for install operations.
func (c *InstallCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("install", flag.ExitOnError)
	production := fs.Bool("production", false, "skip devDependencies")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse install flags: %w", err)
	}

	manifest, err := utils.ReadManifest()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

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

	fetcher := packagemanager.RegistryFetcher{Registry: ctx.Registry}
	results := packagemanager.Install(context.Background(), ".", plan, lock.Shasums(), fetcher, packagemanager.InstallerOptions{})

	failed := 0
	for _, result := range results {
		if result.Err != nil {
			failed++
			fmt.Printf("%s: %v\n", result.Name, result.Err)
			continue
		}
		fmt.Printf("%s -> %s\n", result.Name, result.Dir)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d package(s) failed to install", failed, len(results))
	}

	fmt.Printf("installed %d package(s) into %s\n", len(results), packagemanager.ModulesDirName)
	return nil
}
