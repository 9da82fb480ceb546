// Package commands provides the list command implementation for package management.
// This handles listing available packages in the registry.
package commands

import (
	"context"
	"fmt"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
)

// lister is implemented by registries that can enumerate every package name
// they hold (FileRegistry does; HTTPRegistry and InMemoryRegistry, having no
// name-enumeration endpoint, do not).
type lister interface {
	Names() []string
}

// ListCommand handles package listing operations.
// It lists all available packages in the registry with their versions.
type ListCommand struct {
	*BaseCommand
}

// NewListCommand creates a new list command handler.
func NewListCommand() *ListCommand {
	return &ListCommand{
		BaseCommand: NewBaseCommand(
			"List all known manifests in registry",
			"usage: bero-pm list",
		),
	}
}

// Execute implements the CommandHandler interface for list operations.
func (c *ListCommand) Execute(ctx types.RegistryContext, args []string) error {
	l, ok := ctx.Registry.(lister)
	if !ok {
		return fmt.Errorf("registry does not support listing package names")
	}

	for _, name := range l.Names() {
		man, err := ctx.Registry.FetchManifest(context.Background(), name)
		if err != nil {
			return fmt.Errorf("failed to fetch manifest for %s: %w", name, err)
		}

		for _, version := range man.SortedVersions() {
			fmt.Printf("%s@%s\n", name, version)
		}
	}

	return nil
}
