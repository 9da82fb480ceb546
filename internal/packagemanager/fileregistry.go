package packagemanager

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// FileRegistry is a filesystem-backed Registry implementation: each tarball
// is stored as a blob under baseDir/blobs/<cid>, and every package's
// manifest is persisted as baseDir/manifests/<name>.json for fast startup.
// It is the default local registry used when no remote registry is
// configured (.bero/registry).
type FileRegistry struct {
	mu        sync.RWMutex
	baseDir   string
	manifests map[string]Manifest
}

// NewFileRegistry loads or initializes a registry at baseDir.
func NewFileRegistry(baseDir string) (*FileRegistry, error) {
	if baseDir == "" {
		return nil, errors.New("baseDir required")
	}

	if err := os.MkdirAll(filepath.Join(baseDir, "blobs"), 0o755); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Join(baseDir, "manifests"), 0o755); err != nil {
		return nil, err
	}

	fr := &FileRegistry{baseDir: baseDir, manifests: make(map[string]Manifest)}

	entries, err := os.ReadDir(filepath.Join(baseDir, "manifests"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		name := e.Name()[:len(e.Name())-len(".json")]

		b, err := os.ReadFile(filepath.Join(baseDir, "manifests", e.Name()))
		if err != nil {
			return nil, err
		}

		var m Manifest
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}

		fr.manifests[name] = m
	}

	return fr, nil
}

func (r *FileRegistry) blobPath(id CID) string {
	return filepath.Join(r.baseDir, "blobs", string(id))
}

func (r *FileRegistry) manifestPath(name string) string {
	return filepath.Join(r.baseDir, "manifests", name+".json")
}

// Publish writes the tarball blob (if absent), merges the version entry
// into the package's on-disk manifest, and returns the Dist.
func (r *FileRegistry) Publish(ctx context.Context, name, version string, deps map[string]string, data []byte) (Dist, error) {
	if len(data) == 0 {
		return Dist{}, errors.New("empty payload")
	}

	id := ComputeCID(data)
	dist := Dist{Tarball: "cid:" + string(id), Shasum: Shasum(data)}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.blobPath(id)); errors.Is(err, fs.ErrNotExist) {
		if err := os.WriteFile(r.blobPath(id), data, 0o644); err != nil {
			return Dist{}, err
		}
	}

	if r.manifests[name] == nil {
		r.manifests[name] = make(Manifest)
	}

	r.manifests[name][version] = VersionInfo{Dependencies: deps, Dist: dist}

	if err := r.persistManifest(name); err != nil {
		return Dist{}, err
	}

	return dist, nil
}

func (r *FileRegistry) persistManifest(name string) error {
	b, err := json.MarshalIndent(r.manifests[name], "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(r.manifestPath(name), b, 0o644)
}

// FetchManifest returns the on-disk manifest for name, loading it lazily if
// it was published by a concurrent process since startup.
func (r *FileRegistry) FetchManifest(ctx context.Context, name string) (Manifest, error) {
	r.mu.RLock()
	m, ok := r.manifests[name]
	r.mu.RUnlock()

	if ok {
		return m, nil
	}

	b, err := os.ReadFile(r.manifestPath(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}

	if err != nil {
		return nil, err
	}

	var parsed Manifest
	if err := json.Unmarshal(b, &parsed); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.manifests[name] = parsed
	r.mu.Unlock()

	return parsed, nil
}

// Fetch reads a "cid:"-addressed blob from disk.
func (r *FileRegistry) Fetch(ctx context.Context, dist Dist) ([]byte, error) {
	id := CID(trimCIDPrefix(dist.Tarball))

	b, err := os.ReadFile(r.blobPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}

	return b, err
}

// Names returns every package name with a persisted manifest, sorted.
func (r *FileRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.manifests))
	for n := range r.manifests {
		out = append(out, n)
	}

	sort.Strings(out)

	return out
}
