// Package commands provides the audit command implementation for package management.
// This handles security auditing and vulnerability scanning of dependencies.
package commands

import (
	"context"
	"fmt"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/utils"
	"github.com/bero-pm/bero-pm/internal/packagemanager"
)

// AuditCommand handles security audit operations.
// It performs vulnerability scanning and security checks on dependencies.
type AuditCommand struct {
	*BaseCommand
}

// NewAuditCommand creates a new audit command handler.
func NewAuditCommand() *AuditCommand {
	return &AuditCommand{
		BaseCommand: NewBaseCommand(
			"Perform security audit on dependencies",
			"usage: bero-pm audit",
		),
	}
}

// Execute implements the CommandHandler interface for audit operations.
func (c *AuditCommand) Execute(ctx types.RegistryContext, args []string) error {
	entries, err := utils.ReadLockfile()
	if err != nil {
		return fmt.Errorf("failed to read lockfile: %w", err)
	}

	trustStore := packagemanager.NewTrustStore()
	scanner := packagemanager.NewInMemoryAdvisoryScanner()

	flagged := 0
	for _, entry := range entries {
		err := packagemanager.ValidatePackageSecurity(context.Background(), ctx.Registry, trustStore, entry.Name, entry.Version, ctx.SignatureStore, scanner)
		if err != nil {
			flagged++
			fmt.Printf("%s@%s: %v\n", entry.Name, entry.Version, err)
		}
	}

	fmt.Printf("audited %d packages: %d flagged\n", len(entries), flagged)
	return nil
}
