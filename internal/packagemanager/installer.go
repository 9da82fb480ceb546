package packagemanager

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
)

// ModulesDirName is the nested-directory convention's root name, the
// per-project directory a top-level package is extracted into and the name
// re-used one level down for every nested/unsatisfied copy.
const ModulesDirName = "bero_modules"

// DigestMismatchError is installer-stage only: it fails the single plan
// entry it names, not the whole install run, so the rest of the plan
// remains valid.
type DigestMismatchError struct {
	Name    string
	Version string
	Want    string
	Got     string
}

func (e *DigestMismatchError) Error() string {
	return fmt.Sprintf("digest mismatch for %s@%s: want %s, got %s", e.Name, e.Version, e.Want, e.Got)
}

// Fetcher downloads the raw tarball bytes for a dist and extracts them at
// dir. Implementations decide the archive format; the installer only
// guarantees dir is distinct per plan entry and that shasum has already
// been checked against the downloaded bytes.
type Fetcher interface {
	Download(ctx context.Context, dist Dist) ([]byte, error)
	Extract(ctx context.Context, data []byte, dir string) error
}

// InstallResult reports the outcome of installing one plan entry.
type InstallResult struct {
	Name string
	Dir  string
	Err  error
}

// InstallerOptions controls the installer's concurrency.
type InstallerOptions struct {
	// Concurrency bounds how many entries install in parallel. Zero selects
	// the same BERO_MAX_CONCURRENCY-driven default as the resolver.
	Concurrency int
}

// Install fetches, verifies, and extracts every entry of plan under root,
// in parallel, bounded by opts.Concurrency. shasums looks up the expected
// digest for a plan entry by "<name>@<version>"; a miss leaves the digest
// check inert for that entry. A DigestMismatchError for one entry does not
// abort the others: every entry's InstallResult is returned regardless of
// whether earlier entries failed.
func Install(ctx context.Context, root string, plan Plan, shasums map[string]string, fetcher Fetcher, opts InstallerOptions) []InstallResult {
	logger := log.New(os.Stderr, "installer: ", log.LstdFlags)

	type job struct {
		name    string
		version string
		dist    Dist
		dir     string
	}

	jobs := make([]job, 0, len(plan.TopLevel)+len(plan.Unsatisfied))

	for name, entry := range plan.TopLevel {
		jobs = append(jobs, job{
			name:    name,
			version: entry.Version,
			dist:    Dist{Tarball: entry.URL, Shasum: shasums[name+"@"+entry.Version]},
			dir:     filepath.Join(root, ModulesDirName, name),
		})
	}

	for _, entry := range plan.Unsatisfied {
		jobs = append(jobs, job{
			name:    entry.Name,
			version: entry.Version,
			dist:    Dist{Tarball: entry.URL, Shasum: shasums[entry.Name+"@"+entry.Version]},
			dir:     filepath.Join(root, ModulesDirName, filepath.FromSlash(entry.ParentPath), ModulesDirName, entry.Name),
		})
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = resolveConcurrency()
	}

	results := make([]InstallResult, len(jobs))
	sem := make(chan struct{}, concurrency)

	g, gctx := errgroup.WithContext(ctx)

	for i, j := range jobs {
		i, j := i, j

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				results[i] = InstallResult{Name: j.name, Dir: j.dir, Err: gctx.Err()}
				return nil
			}
			defer func() { <-sem }()

			results[i] = InstallResult{Name: j.name, Dir: j.dir, Err: installOne(gctx, fetcher, j.name, j.version, j.dist, j.dir, logger)}

			return nil
		})
	}

	_ = g.Wait()

	return results
}

func installOne(ctx context.Context, fetcher Fetcher, name, version string, dist Dist, dir string, logger *log.Logger) error {
	data, err := fetcher.Download(ctx, dist)
	if err != nil {
		return fmt.Errorf("download %s@%s: %w", name, version, err)
	}

	if dist.Shasum != "" {
		if got := Shasum(data); got != dist.Shasum {
			return &DigestMismatchError{Name: name, Version: version, Want: dist.Shasum, Got: got}
		}
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	if err := fetcher.Extract(ctx, data, dir); err != nil {
		return fmt.Errorf("extract %s@%s: %w", name, version, err)
	}

	logger.Printf("installed %s@%s -> %s", name, version, dir)

	return nil
}

// RegistryFetcher adapts a Registry into a Fetcher for tarballs that are
// plain archives stored in the registry itself (the common case for
// InMemoryRegistry/FileRegistry). Extract writes the raw bytes to a single
// file, package.blob, inside dir; registries that publish real tar/zip
// archives should supply their own Fetcher instead.
type RegistryFetcher struct {
	Registry Registry
}

func (f RegistryFetcher) Download(ctx context.Context, dist Dist) ([]byte, error) {
	return f.Registry.Fetch(ctx, dist)
}

func (f RegistryFetcher) Extract(ctx context.Context, data []byte, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "package.blob"), data, 0o644)
}
