// Package commands provides the update command implementation for package management.
// This handles updating dependencies to newer versions while respecting constraints.
package commands

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
	"github.com/bero-pm/bero-pm/internal/packagemanager"
)

// UpdateCommand handles dependency update operations.
// It updates packages to newer versions while maintaining compatibility constraints.
type UpdateCommand struct {
	*BaseCommand
}

// NewUpdateCommand creates a new update command handler.
func NewUpdateCommand() *UpdateCommand {
	return &UpdateCommand{
		BaseCommand: NewBaseCommand(
			"Update dependencies to newer versions",
			"usage: bero-pm update [--dep <names>] [--production]",
		),
	}
}

// Execute implements the CommandHandler interface for update operations.
func (c *UpdateCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	onlyDeps := fs.String("dep", "", "comma-separated dependency names to update")
	production := fs.Bool("production", false, "skip devDependencies")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse update flags: %w", err)
	}

	// Read current manifest
	manifest, err := utils.ReadManifest()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	// Parse dependency filter
	var depsToUpdate []string
	if strings.TrimSpace(*onlyDeps) != "" {
		for _, dep := range strings.Split(*onlyDeps, ",") {
			dep = strings.TrimSpace(dep)
			if dep != "" {
				depsToUpdate = append(depsToUpdate, dep)
			}
		}
	}

	if len(depsToUpdate) == 0 {
		// Update all dependencies
		return c.updateAllDependencies(context.Background(), ctx.Registry, manifest, *production)
	}

	// Update specific dependencies
	return c.updateSpecificDependencies(context.Background(), ctx.Registry, manifest, depsToUpdate, *production)
}

// updateAllDependencies updates all dependencies in the manifest.
func (c *UpdateCommand) updateAllDependencies(ctx context.Context, reg packagemanager.Registry, manifest types.Manifest, production bool) error {
	if err := utils.WriteLockFromManifest(ctx, reg, manifest, production); err != nil {
		return fmt.Errorf("failed to update dependencies: %w", err)
	}

	fmt.Println("dependencies updated and lockfile rewritten")
	return nil
}

// updateSpecificDependencies updates only the named dependencies, pinning
// every other root (Dependencies, plus DevDependencies unless production)
// to whatever version is already on disk in the lockfile.
func (c *UpdateCommand) updateSpecificDependencies(ctx context.Context, reg packagemanager.Registry, manifest types.Manifest, deps []string, production bool) error {
	locked := make(map[string]string)
	for _, entry := range mustReadLockfile() {
		locked[entry.Name] = entry.Version
	}

	updateSet := make(map[string]bool, len(deps))
	for _, dep := range deps {
		updateSet[dep] = true
	}

	allRoots := make(map[string]string, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name, constraint := range manifest.Dependencies {
		allRoots[name] = constraint
	}
	if !production {
		for name, constraint := range manifest.DevDependencies {
			allRoots[name] = constraint
		}
	}

	roots := make(map[string]string, len(allRoots))
	for name, constraint := range allRoots {
		if updateSet[name] {
			roots[name] = constraint
			continue
		}
		if version, ok := locked[name]; ok {
			roots[name] = "=" + version
			continue
		}
		roots[name] = constraint
	}

	manager := packagemanager.NewManager(reg)
	_, rewrites, lock, err := manager.Resolve(ctx, roots, utils.DefaultLockfilePath)
	if err != nil {
		return fmt.Errorf("failed to resolve updated dependencies: %w", err)
	}

	if err := lock.WriteLock(); err != nil {
		return fmt.Errorf("failed to write updated lockfile: %w", err)
	}

	manifest = utils.ApplyRootRewrites(manifest, rewrites)
	if len(rewrites) > 0 {
		if err := utils.WriteManifest(manifest); err != nil {
			return fmt.Errorf("failed to rewrite manifest: %w", err)
		}
	}

	fmt.Printf("updated %s and rewrote lockfile\n", deps)
	return nil
}

// mustReadLockfile reads the on-disk lockfile, tolerating its absence by
// returning an empty result rather than failing the update command outright.
func mustReadLockfile() []types.LockEntry {
	entries, err := utils.ReadLockfile()
	if err != nil {
		return nil
	}
	return entries
}
