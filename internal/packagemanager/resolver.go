package packagemanager

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// NoMatchingVersionError is returned when no known version of a package
// satisfies the requested range.
type NoMatchingVersionError struct {
	Name  string
	Range string
}

func (e *NoMatchingVersionError) Error() string {
	return fmt.Sprintf("no version of %s matches range %q", e.Name, e.Range)
}

// TopLevelEntry is the shared-root binding for a package name.
type TopLevelEntry struct {
	URL     string
	Version string
}

// UnsatisfiedEntry is a nested copy of a package that coexists with an
// incompatible top-level binding.
type UnsatisfiedEntry struct {
	Name       string
	ParentPath string
	URL        string
	Version    string
}

// Plan is the resolver's output: the shared-root bindings plus every nested
// copy needed to satisfy demands the top-level binding cannot.
type Plan struct {
	TopLevel    map[string]TopLevelEntry
	Unsatisfied []UnsatisfiedEntry
}

// RootRewrite is returned for every direct (root) dependency that was
// originally requested with an empty range, so the driver can rewrite the
// project manifest with the concrete caret constraint that was installed.
type RootRewrite struct {
	Name  string
	Caret string
}

// frame is one entry on the traversal-local dependency stack: the ancestor
// chain of the call currently descending. It is never shared between
// sibling traversals.
type frame struct {
	name         string
	version      string
	dependencies map[string]string
}

// Resolver builds a resolution Plan for a set of root dependencies. It bundles
// the plan-under-construction and the lock store into one explicit value
// rather than package-level state, so that back-to-back runs in the same
// process never see residue from a previous one.
type Resolver struct {
	registry Registry
	lock     *Lockstore

	mu   sync.Mutex
	plan Plan

	concurrency int
}

// NewResolver constructs a Resolver. lock may be nil, in which case every
// demand is served from the registry and nothing is cached.
func NewResolver(registry Registry, lock *Lockstore) *Resolver {
	if lock == nil {
		lock = NewLockstore("")
	}

	return &Resolver{
		registry: registry,
		lock:     lock,
		plan: Plan{
			TopLevel: make(map[string]TopLevelEntry),
		},
		concurrency: resolveConcurrency(),
	}
}

func resolveConcurrency() int {
	if v := os.Getenv("BERO_MAX_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return clampInt(n, 4, 1024)
		}
	}

	return clampInt(runtime.GOMAXPROCS(0)*8, 4, 1024)
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}

	if n > hi {
		return hi
	}

	return n
}

// Resolve walks every root dependency to completion and returns the
// resulting Plan together with the caret rewrites for roots that were
// originally unconstrained. On any fatal error the plan is discarded: the
// caller must not persist the lock.
func (r *Resolver) Resolve(ctx context.Context, roots map[string]string) (Plan, []RootRewrite, error) {
	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, r.concurrency)

	var (
		mu       sync.Mutex
		rewrites []RootRewrite
	)

	for name, rng := range roots {
		name, rng := name, rng

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			rewrite, err := r.collectDeps(gctx, name, rng, nil)
			if err != nil {
				return err
			}

			if rewrite != "" {
				mu.Lock()
				rewrites = append(rewrites, RootRewrite{Name: name, Caret: rewrite})
				mu.Unlock()
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Plan{}, nil, err
	}

	r.mu.Lock()
	plan := r.plan
	r.mu.Unlock()

	return plan, rewrites, nil
}

// collectDeps walks a package's dependency tree one pass, no backtracking.
// stack is the live ancestor
// chain for this call path; it is never mutated by a sibling. It returns a
// non-empty caret string only when this call is a root call (stack == nil)
// whose requested range was empty.
func (r *Resolver) collectDeps(ctx context.Context, name, rng string, stack []frame) (string, error) {
	isRoot := stack == nil

	deps, version, dist, err := r.acquireManifest(ctx, name, rng)
	if err != nil {
		return "", err
	}

	r.place(name, rng, version, dist, stack)

	key := name + "@" + rng
	r.lock.updateOrCreate(key, lockEntry{
		Version:      version,
		URL:          dist.Tarball,
		Shasum:       dist.Shasum,
		Dependencies: deps,
	})

	nextStack := append(append([]frame(nil), stack...), frame{name: name, version: version, dependencies: deps})

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, r.concurrency)

	for depName, depRange := range deps {
		depName, depRange := depName, depRange

		if cyclesBack(nextStack, depName, depRange) {
			continue
		}

		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			_, err := r.collectDeps(gctx, depName, depRange, nextStack)
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return "", err
	}

	if isRoot && rng == "" {
		c, err := caret(version)
		if err != nil {
			return "", err
		}

		return c, nil
	}

	return "", nil
}

// acquireManifest resolves one name@range against the old lock first: a
// locked hit short-circuits the registry call but still returns
// dependencies/dist so the caller re-anchors them into the new lock and plan.
func (r *Resolver) acquireManifest(ctx context.Context, name, rng string) (map[string]string, string, Dist, error) {
	if deps, version, dist, ok := r.lock.getItem(name, rng); ok {
		return deps, version, dist, nil
	}

	manifest, err := r.registry.FetchManifest(ctx, name)
	if err != nil {
		return nil, "", Dist{}, &RegistryUnreachableError{Name: name, Err: err}
	}

	matched, ok := maxSatisfying(manifest.SortedVersions(), rng)
	if !ok {
		return nil, "", Dist{}, &NoMatchingVersionError{Name: name, Range: rng}
	}

	info := manifest[matched]

	return info.Dependencies, matched, info.Dist, nil
}

// place decides where a resolved dependency binds: top-level if unclaimed;
// if the top-level version already satisfies rng, nowhere new unless an
// ancestor on the stack depends on name incompatibly, in which case it nests
// under the stack from two frames above that ancestor (clamped to the stack
// root); otherwise nested under the nearest ancestor.
func (r *Resolver) place(name, rng, version string, dist Dist, stack []frame) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.plan.TopLevel[name]

	switch {
	case !ok:
		r.plan.TopLevel[name] = TopLevelEntry{URL: dist.Tarball, Version: version}
	case satisfies(t.Version, rng):
		if i := checkStackDependencies(name, t.Version, stack); i >= 0 {
			start := i - 2
			if start < 0 {
				start = 0
			}

			r.appendUnsatisfied(name, parentPathFrom(stack[start:]), dist, version)
		}
	default:
		r.appendUnsatisfied(name, lastFrameName(stack), dist, version)
	}
}

func (r *Resolver) appendUnsatisfied(name, parentPath string, dist Dist, version string) {
	for _, e := range r.plan.Unsatisfied {
		if e.Name == name && e.ParentPath == parentPath && e.Version == version {
			return
		}
	}

	r.plan.Unsatisfied = append(r.plan.Unsatisfied, UnsatisfiedEntry{
		Name:       name,
		ParentPath: parentPath,
		URL:        dist.Tarball,
		Version:    version,
	})
}

func parentPathFrom(frames []frame) string {
	names := make([]string, len(frames))
	for i, f := range frames {
		names[i] = f.name
	}

	return strings.Join(names, "/"+ModulesDirName+"/")
}

func lastFrameName(stack []frame) string {
	if len(stack) == 0 {
		return ""
	}

	return stack[len(stack)-1].name
}

// checkStackDependencies returns the lowest stack index whose frame depends
// on name but is not satisfied by version, or -1 if none conflict.
func checkStackDependencies(name, version string, stack []frame) int {
	for i, f := range stack {
		want, ok := f.dependencies[name]
		if !ok {
			continue
		}

		if !satisfies(version, want) {
			return i
		}
	}

	return -1
}

// cyclesBack reports whether name@rng would re-enter a live ancestor already
// compatible with the requested range, so the caller can skip the recursion.
func cyclesBack(stack []frame, name, rng string) bool {
	for _, f := range stack {
		if f.name == name && satisfies(f.version, rng) {
			return true
		}
	}

	return false
}
