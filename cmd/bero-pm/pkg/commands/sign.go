// Package commands provides the sign command implementation for package management.
// This handles package signature creation and verification.
package commands

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/internal/packagemanager"
)

// SignCommand handles package signing operations.
// It creates cryptographic signatures for packages to ensure integrity and authenticity.
type SignCommand struct {
	*BaseCommand
}

// NewSignCommand creates a new sign command handler.
func NewSignCommand() *SignCommand {
	return &SignCommand{
		BaseCommand: NewBaseCommand(
			"Sign a package with cryptographic signature",
			"usage: bero-pm sign --name <id> --version <semver> [--subject <subject>]",
		),
	}
}

// Execute implements the CommandHandler interface for sign operations.
func (c *SignCommand) Execute(ctx types.RegistryContext, args []string) error {
	fs := flag.NewFlagSet("sign", flag.ExitOnError)
	name := fs.String("name", "", "package name to sign")
	version := fs.String("version", "", "package version (semver) to sign")
	subject := fs.String("subject", "dev", "certificate subject")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse sign flags: %w", err)
	}

	if *name == "" || *version == "" {
		return fmt.Errorf("usage: bero-pm sign --name <id> --version <semver> [--subject <subject>]")
	}

	// Generate ephemeral keypair for signing
	pub, priv, err := packagemanager.GenerateEd25519Keypair()
	if err != nil {
		return fmt.Errorf("failed to generate keypair: %w", err)
	}

	// Create self-signed root certificate
	root, err := packagemanager.SelfSignRoot(*subject, pub, priv, 24*time.Hour*365*10)
	if err != nil {
		return fmt.Errorf("failed to create root certificate: %w", err)
	}

	// Sign the package
	bundle, err := packagemanager.SignPackage(context.Background(), ctx.Registry, *name, *version, priv, []packagemanager.Certificate{root}, ctx.SignatureStore)
	if err != nil {
		return fmt.Errorf("failed to sign package: %w", err)
	}

	fmt.Printf("signed %s@%s with key %s (chain len %d)\n", *name, *version, bundle.KeyID, len(bundle.Chain))
	return nil
}
