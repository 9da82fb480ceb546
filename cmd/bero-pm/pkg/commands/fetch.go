// Package commands provides the fetch command implementation for package management.
// This handles downloading and caching of specific package versions.
package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
)

// FetchCommand handles package fetching operations.
// It downloads specific package versions and stores them in the local cache.
type FetchCommand struct {
	*BaseCommand
}

// NewFetchCommand creates a new fetch command handler.
func NewFetchCommand() *FetchCommand {
	return &FetchCommand{
		BaseCommand: NewBaseCommand(
			"Fetch a specific package version",
			"usage: bero-pm fetch <name>@<constraint>",
		),
	}
}

// Execute implements the CommandHandler interface for fetch operations.
func (c *FetchCommand) Execute(ctx types.RegistryContext, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: bero-pm fetch <name>@<constraint>")
	}

	// Parse package specification
	name, constraintStr := utils.SplitAt(args[0])
	if constraintStr == "" {
		constraintStr = "*"
	}

	man, err := ctx.Registry.FetchManifest(context.Background(), name)
	if err != nil {
		return fmt.Errorf("failed to fetch manifest for %s: %w", name, err)
	}

	version, info, ok := man.Match(constraintStr)
	if !ok {
		return fmt.Errorf("no version of %s satisfies %q", name, constraintStr)
	}

	// Fetch package data
	data, err := ctx.Registry.Fetch(context.Background(), info.Dist)
	if err != nil {
		return fmt.Errorf("failed to fetch package: %w", err)
	}

	// Prepare cache directory
	cachePath := filepath.Join(utils.DefaultCachePath, string(info.Dist.CID()))
	if err := os.MkdirAll(filepath.Dir(cachePath), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	// Write package data to cache
	if err := os.WriteFile(cachePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write package to cache: %w", err)
	}

	fmt.Printf("fetched %s@%s -> %s\n", name, version, cachePath)
	return nil
}
