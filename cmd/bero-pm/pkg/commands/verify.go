// Package commands provides the verify command implementation for package management.
// This handles lockfile verification and integrity checking.
package commands

import (
	"context"
	"fmt"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
	"github.com/bero-pm/bero-pm/internal/packagemanager"
)

// VerifyCommand handles lockfile verification operations.
// It verifies the integrity of lockfiles against the registry.
type VerifyCommand struct {
	*BaseCommand
}

// NewVerifyCommand creates a new verify command handler.
func NewVerifyCommand() *VerifyCommand {
	return &VerifyCommand{
		BaseCommand: NewBaseCommand(
			"Verify lockfile integrity",
			"usage: bero-pm verify",
		),
	}
}

// Execute implements the CommandHandler interface for verify operations.
func (c *VerifyCommand) Execute(ctx types.RegistryContext, args []string) error {
	entries, err := utils.ReadLockfile()
	if err != nil {
		return fmt.Errorf("failed to read lockfile: %w", err)
	}

	for _, entry := range entries {
		data, err := ctx.Registry.Fetch(context.Background(), entry.Dist())
		if err != nil {
			return fmt.Errorf("fetch %s@%s: %w", entry.Name, entry.Version, err)
		}

		if got := packagemanager.Shasum(data); got != entry.Shasum {
			return fmt.Errorf("%s@%s: shasum mismatch (lock has %s, fetched %s)", entry.Name, entry.Version, entry.Shasum, got)
		}
	}

	fmt.Printf("lockfile verified (%d entries)\n", len(entries))
	return nil
}
