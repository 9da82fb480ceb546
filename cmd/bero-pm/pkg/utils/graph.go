// Package utils provides graph-related utilities for dependency analysis.
// These functions handle dependency graph construction and traversal.
package utils

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bero-pm/bero-pm/cmd/bero-pm/pkg/types"
	"github.com/bero-pm/bero-pm/internal/packagemanager"
)

// BuildDependencyGraph constructs a "name@version" edge list from a resolved
// Plan's top-level bindings. Each binding's direct dependencies are read
// back from the registry's manifest for that exact version (the same
// dependency ranges the resolver itself walked), restricted to edges that
// land on another top-level binding.
func BuildDependencyGraph(ctx context.Context, reg packagemanager.Registry, plan packagemanager.Plan) (map[string][]string, error) {
	graph := make(map[string][]string)
	concurrency := GetConcurrencyLimit()
	semaphore := make(chan struct{}, concurrency)

	var mu sync.Mutex

	// Create error group for concurrent operations
	g, gctx := errgroup.WithContext(ctx)

	for name, entry := range plan.TopLevel {
		name, entry := name, entry

		g.Go(func() error {
			// Acquire semaphore
			select {
			case semaphore <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-semaphore }()

			// Build key for this package
			key := fmt.Sprintf("%s@%s", name, entry.Version)

			man, err := reg.FetchManifest(gctx, name)
			if err != nil {
				return fmt.Errorf("failed to fetch manifest for %s: %w", name, err)
			}

			info, ok := man[entry.Version]
			if !ok {
				return fmt.Errorf("manifest for %s has no entry for resolved version %s", name, entry.Version)
			}

			// Extract dependencies
			dependencies := make([]string, 0, len(info.Dependencies))
			for depName := range info.Dependencies {
				if depEntry, ok := plan.TopLevel[depName]; ok {
					dependencies = append(dependencies, fmt.Sprintf("%s@%s", depName, depEntry.Version))
				}
			}

			// Update graph with mutex protection
			mu.Lock()
			graph[key] = dependencies
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Ensure all packages with no dependencies are in the graph
	for name, entry := range plan.TopLevel {
		key := fmt.Sprintf("%s@%s", name, entry.Version)
		if _, ok := graph[key]; !ok {
			graph[key] = nil
		}
	}

	return graph, nil
}

// GetRootDependencies extracts root dependencies from a manifest: its
// direct Dependencies, plus DevDependencies unless production is true.
func GetRootDependencies(manifest types.Manifest, production bool) []string {
	roots := make([]string, 0, len(manifest.Dependencies)+len(manifest.DevDependencies))
	for name := range manifest.Dependencies {
		roots = append(roots, name)
	}

	if !production {
		for name := range manifest.DevDependencies {
			roots = append(roots, name)
		}
	}

	return roots
}

// FindDependencyPath performs a breadth-first search to find a path from root to target.
// It returns the path as a slice of package names if found, or nil if no path exists.
func FindDependencyPath(graph map[string][]string, roots []string, target string) []string {
	type node struct {
		key  string
		path []string
	}

	visited := make(map[string]bool)
	queue := []node{}

	// Seed queue with root packages that exist in the graph
	for key := range graph {
		name := key
		if i := strings.IndexByte(key, '@'); i >= 0 {
			name = key[:i]
		}

		for _, root := range roots {
			if name == root {
				queue = append(queue, node{
					key:  key,
					path: []string{name},
				})
				visited[key] = true
				break
			}
		}
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		currentName := current.key
		if i := strings.IndexByte(currentName, '@'); i >= 0 {
			currentName = currentName[:i]
		}

		if currentName == target {
			return current.path
		}

		// Add unvisited dependencies to queue
		for _, dependency := range graph[current.key] {
			if visited[dependency] {
				continue
			}

			visited[dependency] = true
			dependencyName := dependency
			if i := strings.IndexByte(dependency, '@'); i >= 0 {
				dependencyName = dependency[:i]
			}

			newPath := append(append([]string{}, current.path...), dependencyName)
			queue = append(queue, node{
				key:  dependency,
				path: newPath,
			})
		}
	}

	return nil
}
