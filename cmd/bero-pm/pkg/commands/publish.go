// Package commands provides the publish command implementation for package management.
// This handles publishing packages to the registry.
package commands

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
)

// PublishCommand handles package publishing operations.
// It uploads package data to the registry with proper metadata.
type PublishCommand struct {
	*BaseCommand
}

// NewPublishCommand creates a new publish command handler.
func NewPublishCommand() *PublishCommand {
	return &PublishCommand{
		BaseCommand: NewBaseCommand(
			"Publish a package to the registry",
			"usage: bero-pm publish --name <id> --version <semver> --file <path> [--deps a=range,b=range]",
		),
	}
}

// Execute implements the CommandHandler interface for publish operations.
func (c *PublishCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	name := fs.String("name", "", "package name")
	version := fs.String("version", "", "package version (semver)")
	file := fs.String("file", "", "payload file to publish")
	depsFlag := fs.String("deps", "", "comma-separated name=range pairs")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse publish flags: %w", err)
	}

	if *name == "" || *version == "" || *file == "" {
		return fmt.Errorf("usage: bero-pm publish --name <id> --version <semver> --file <path> [--deps a=range,b=range]")
	}

	// Read package data
	data, err := os.ReadFile(*file)
	if err != nil {
		return fmt.Errorf("failed to read package file: %w", err)
	}

	deps := parseDepsFlag(*depsFlag)

	dist, err := ctx.Registry.Publish(context.Background(), *name, *version, deps, data)
	if err != nil {
		return fmt.Errorf("failed to publish package: %w", err)
	}

	fmt.Printf("published %s@%s cid=%s\n", *name, *version, dist.CID())
	return nil
}

// parseDepsFlag turns a "name=range,name=range" string into a dependency map,
// returning nil when the flag is empty so Publish records no dependencies.
func parseDepsFlag(raw string) map[string]string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	deps := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		name, rng, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		deps[strings.TrimSpace(name)] = strings.TrimSpace(rng)
	}
	return deps
}
