// Package commands provides the resolve command implementation for package management.
// This handles dependency resolution and version constraint solving.
package commands

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
	"github.com/bero-pm/bero-pm/internal/packagemanager"
)

// ResolveCommand handles dependency resolution operations.
// It resolves package dependencies against the registry and outputs the resolution plan.
type ResolveCommand struct {
	*BaseCommand
}

// NewResolveCommand creates a new resolve command handler.
func NewResolveCommand() *ResolveCommand {
	return &ResolveCommand{
		BaseCommand: NewBaseCommand(
			"Resolve current manifest dependencies against registry",
			"usage: bero-pm resolve [--production]",
		),
	}
}

// Execute implements the CommandHandler interface for resolve operations.
func (c *ResolveCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("resolve", flag.ExitOnError)
	production := fs.Bool("production", false, "skip devDependencies")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse resolve flags: %w", err)
	}

	// Read current manifest
	manifest, err := utils.ReadManifest()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	// Resolve dependencies
	plan, _, _, err := utils.ResolveCurrent(context.Background(), ctx.Registry, manifest, *production)
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	// Convert to JSON output format
	result := make(map[string]struct {
		Version string `json:"version"`
		CID     string `json:"cid"`
	})

	for name, entry := range plan.TopLevel {
		dist := packagemanager.Dist{Tarball: entry.URL}
		result[name] = struct {
			Version string `json:"version"`
			CID     string `json:"cid"`
		}{
			Version: entry.Version,
			CID:     string(dist.CID()),
		}
	}

	// Output as JSON
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal resolution result: %w", err)
	}

	fmt.Println(string(data))
	return nil
}
