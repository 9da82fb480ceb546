// Package utils provides common utility functions for package management operations.
// These functions handle file I/O, path resolution, and other shared functionality.
package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/internal/packagemanager"
)

// DefaultManifestPath defines the standard location for package manifest files
const DefaultManifestPath = "bero.json"

// DefaultLockfilePath defines the standard location for package lock files
const DefaultLockfilePath = "bero-pm.yml"

// DefaultRegistryPath defines the default local registry storage path
const DefaultRegistryPath = ".bero/registry"

// DefaultSignaturePath defines the default signature storage path
const DefaultSignaturePath = ".bero/trust"

// DefaultCachePath defines the default cache directory for downloaded packages
const DefaultCachePath = ".bero/cache"

// ReadManifest reads and parses a package manifest from the default location.
// If the file doesn't exist, it returns a default manifest structure.
func ReadManifest() (types.Manifest, error) {
	data, err := os.ReadFile(DefaultManifestPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// Return default manifest if file doesn't exist
			return types.Manifest{
				Name:            "app",
				Version:         "0.1.0",
				Dependencies:    make(map[string]string),
				DevDependencies: make(map[string]string),
			}, nil
		}
		return types.Manifest{}, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest types.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return types.Manifest{}, fmt.Errorf("failed to parse manifest: %w", err)
	}

	// Ensure dependency maps are initialized
	if manifest.Dependencies == nil {
		manifest.Dependencies = make(map[string]string)
	}
	if manifest.DevDependencies == nil {
		manifest.DevDependencies = make(map[string]string)
	}

	return manifest, nil
}

// WriteManifest writes a package manifest to the default location with proper formatting.
func WriteManifest(manifest types.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(DefaultManifestPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return nil
}

// ReadLockfile loads the lock file at the default lock path into the
// old-lock side of the two-file lock protocol and renders it as the
// CLI-facing LockEntry view.
// A missing lock file yields an empty (not error) result.
func ReadLockfile() ([]types.LockEntry, error) {
	lock := packagemanager.NewLockstore(DefaultLockfilePath)
	if err := lock.ReadLock(); err != nil {
		return nil, fmt.Errorf("failed to read lockfile: %w", err)
	}

	return lockEntriesFromOldLock(lock), nil
}

// lockEntriesFromOldLock renders the entries a freshly-read Lockstore loaded
// from disk, keyed by the bare package name (the part of "name@range"
// before '@').
func lockEntriesFromOldLock(lock *packagemanager.Lockstore) []types.LockEntry {
	out := make([]types.LockEntry, 0)

	for _, key := range lock.OldKeys() {
		deps, version, dist, ok := lock.GetOld(key)
		if !ok {
			continue
		}

		name := key
		if i := strings.IndexByte(key, '@'); i >= 0 {
			name = key[:i]
		}

		out = append(out, types.LockEntry{
			Name:         name,
			Version:      version,
			URL:          dist.Tarball,
			Shasum:       dist.Shasum,
			Dependencies: deps,
		})
	}

	return out
}

// EnsureDirectories creates necessary directories for package operations if they don't exist.
func EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(DefaultRegistryPath),
		filepath.Dir(DefaultSignaturePath),
		DefaultCachePath,
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// SplitAt splits a string at the first occurrence of the '@' character.
// This is commonly used for parsing package name@version strings.
func SplitAt(s string) (name, version string) {
	if i := strings.IndexByte(s, '@'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return s, ""
}

// SetDependency assigns name -> constraint into the manifest, routing the
// write to DevDependencies when dev is true and to Dependencies otherwise.
// The target map is created if nil. Any stale entry for name in the other
// map is left alone; callers that move a dependency between the two should
// pair this with RemoveDependency against the other map first.
func SetDependency(manifest types.Manifest, name, constraint string, dev bool) types.Manifest {
	if dev {
		if manifest.DevDependencies == nil {
			manifest.DevDependencies = make(map[string]string)
		}
		manifest.DevDependencies[name] = constraint
		return manifest
	}

	if manifest.Dependencies == nil {
		manifest.Dependencies = make(map[string]string)
	}
	manifest.Dependencies[name] = constraint

	return manifest
}

// RemoveDependency deletes name from the manifest, reading DevDependencies
// when dev is true and Dependencies otherwise, and reports whether the name
// was present in that map.
func RemoveDependency(manifest types.Manifest, name string, dev bool) bool {
	target := manifest.Dependencies
	if dev {
		target = manifest.DevDependencies
	}

	if _, ok := target[name]; !ok {
		return false
	}

	delete(target, name)

	return true
}

// ApplyRootRewrites rewrites every root named in rewrites with its
// resolved caret constraint, routing each write into whichever of
// Dependencies/DevDependencies already declares that name (Dependencies
// wins if a name is somehow present in both).
func ApplyRootRewrites(manifest types.Manifest, rewrites []packagemanager.RootRewrite) types.Manifest {
	for _, rewrite := range rewrites {
		_, isDev := manifest.DevDependencies[rewrite.Name]
		manifest = SetDependency(manifest, rewrite.Name, rewrite.Caret, isDev)
	}

	return manifest
}

// GetRegistryPath determines the registry path based on environment variables or defaults.
func GetRegistryPath() string {
	if envPath := strings.TrimSpace(os.Getenv("BERO_REGISTRY")); envPath != "" {
		if !strings.HasPrefix(strings.ToLower(envPath), "http://") &&
			!strings.HasPrefix(strings.ToLower(envPath), "https://") {
			return envPath
		}
	}
	return DefaultRegistryPath
}

// GetSignatureStore creates a file-based signature store for the default location.
func GetSignatureStore() (packagemanager.SignatureStore, error) {
	store, err := packagemanager.NewFileSignatureStore(DefaultSignaturePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create signature store: %w", err)
	}
	return store, nil
}

// ResolveCurrent resolves manifest dependencies against reg, reusing any
// prior lock at DefaultLockfilePath as a pinning source, and returns the
// resulting plan together with the Lockstore positioned to have WriteLock
// called if the caller wants the new lock persisted. DevDependencies are
// merged into the root set unless production is true, the same
// --production filtering `bero-pm install`/`lock`/`resolve` expose.
func ResolveCurrent(ctx context.Context, reg packagemanager.Registry, manifest types.Manifest, production bool) (packagemanager.Plan, []packagemanager.RootRewrite, *packagemanager.Lockstore, error) {
	roots := make(map[string]string, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name, constraint := range manifest.Dependencies {
		roots[name] = constraint
	}

	if !production {
		for name, constraint := range manifest.DevDependencies {
			roots[name] = constraint
		}
	}

	manager := packagemanager.NewManager(reg)

	return manager.Resolve(ctx, roots, DefaultLockfilePath)
}

// PlanEntries flattens a Plan's top-level bindings into the CLI-facing
// LockEntry view, keyed by package name.
func PlanEntries(plan packagemanager.Plan) map[string]types.LockEntry {
	out := make(map[string]types.LockEntry, len(plan.TopLevel))
	for name, entry := range plan.TopLevel {
		out[name] = types.LockEntry{Name: name, Version: entry.Version, URL: entry.URL}
	}

	return out
}

// WriteLockFromManifest re-resolves manifest against reg, persists the new
// lock, and rewrites the manifest on disk when resolution turned any
// empty-range root dependency into a concrete caret constraint.
// production has the same meaning as in ResolveCurrent.
func WriteLockFromManifest(ctx context.Context, reg packagemanager.Registry, manifest types.Manifest, production bool) error {
	_, rewrites, lock, err := ResolveCurrent(ctx, reg, manifest, production)
	if err != nil {
		return fmt.Errorf("failed to resolve dependencies: %w", err)
	}

	if err := lock.WriteLock(); err != nil {
		return fmt.Errorf("failed to write lockfile: %w", err)
	}

	if len(rewrites) == 0 {
		return nil
	}

	manifest = ApplyRootRewrites(manifest, rewrites)

	return WriteManifest(manifest)
}

// GetConcurrencyLimit returns the configured I/O concurrency limit.
// It respects the BERO_MAX_CONCURRENCY environment variable with sensible defaults.
func GetConcurrencyLimit() int {
	if envValue := strings.TrimSpace(os.Getenv("BERO_MAX_CONCURRENCY")); envValue != "" {
		if limit, err := strconv.Atoi(envValue); err == nil && limit > 0 {
			if limit > 1024 {
				return 1024
			}
			return limit
		}
	}

	// Default to GOMAXPROCS * 8 with reasonable bounds
	limit := runtime.GOMAXPROCS(0) * 8
	if limit < 4 {
		limit = 4
	}
	if limit > 1024 {
		limit = 1024
	}

	return limit
}

// FileExists checks if a file exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
