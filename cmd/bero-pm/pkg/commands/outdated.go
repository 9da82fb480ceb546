// Package commands provides the outdated command implementation for package management.
// This handles checking for available updates to dependencies.
package commands

import (
	"context"
	"flag"
	"fmt"

	semver "github.com/Masterminds/semver/v3"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
)

// OutdatedCommand handles dependency update checking operations.
// It compares current versions with available updates and latest versions.
type OutdatedCommand struct {
	*BaseCommand
}

// NewOutdatedCommand creates a new outdated command handler.
func NewOutdatedCommand() *OutdatedCommand {
	return &OutdatedCommand{
		BaseCommand: NewBaseCommand(
			"Check for outdated dependencies",
			"usage: bero-pm outdated [--production]",
		),
	}
}

// Execute implements the CommandHandler interface for outdated operations.
func (c *OutdatedCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("outdated", flag.ExitOnError)
	production := fs.Bool("production", false, "skip devDependencies")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse outdated flags: %w", err)
	}

	// Read current manifest
	manifest, err := utils.ReadManifest()
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	// Resolve current dependencies
	plan, _, _, err := utils.ResolveCurrent(context.Background(), ctx.Registry, manifest, *production)
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	// Print header
	fmt.Println("name  current  allowed  latest")

	// Merge dependencies and (unless --production) devDependencies so both
	// are checked for available updates.
	constraints := make(map[string]string, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name, constraint := range manifest.Dependencies {
		constraints[name] = constraint
	}
	if !*production {
		for name, constraint := range manifest.DevDependencies {
			constraints[name] = constraint
		}
	}

	// Check each dependency
	for name, constraint := range constraints {
		current := plan.TopLevel[name].Version

		// Parse constraint
		constraintObj, err := semver.NewConstraint(constraint)
		if err != nil {
			fmt.Printf("%s  %s  error  error\n", name, current)
			continue
		}

		// List all versions of this package
		man, err := ctx.Registry.FetchManifest(context.Background(), name)
		if err != nil {
			fmt.Printf("%s  %s  error  error\n", name, current)
			continue
		}

		var bestAllowed, bestOverall string
		var bestAllowedVer, bestOverallVer *semver.Version

		// Find best versions
		for version := range man {
			sv, err := semver.NewVersion(version)
			if err != nil {
				continue
			}

			// Track overall latest
			if bestOverallVer == nil || sv.GreaterThan(bestOverallVer) {
				bestOverallVer = sv
				bestOverall = sv.String()
			}

			// Track best allowed by constraint
			if constraintObj.Check(sv) {
				if bestAllowedVer == nil || sv.GreaterThan(bestAllowedVer) {
					bestAllowedVer = sv
					bestAllowed = sv.String()
				}
			}
		}

		// Set defaults for missing versions
		if bestAllowed == "" {
			bestAllowed = "-"
		}
		if bestOverall == "" {
			bestOverall = "-"
		}

		fmt.Printf("%s  %s  %s  %s\n", name, current, bestAllowed, bestOverall)
	}

	return nil
}
