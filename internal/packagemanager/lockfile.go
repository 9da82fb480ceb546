package packagemanager

import (
	"errors"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// CorruptLockError wraps a lock file that exists but fails to parse.
type CorruptLockError struct {
	Path string
	Err  error
}

func (e *CorruptLockError) Error() string {
	return "corrupt lock file " + e.Path + ": " + e.Err.Error() + " (try deleting it and re-resolving)"
}

func (e *CorruptLockError) Unwrap() error { return e.Err }

// lockEntry is the value type for both the old and new lock maps: a pinned
// version plus the dist info and dependency ranges it was resolved with.
type lockEntry struct {
	Version      string            `yaml:"version"`
	URL          string            `yaml:"url"`
	Shasum       string            `yaml:"shasum"`
	Dependencies map[string]string `yaml:"dependencies"`
}

// Lockstore implements the two-file lock protocol: an old lock, read-only
// after load, and a new lock, write-accumulated over the course of one
// resolution run. The two maps are never the same map value, so a
// mutation of one can never be observed through the other.
type Lockstore struct {
	path string

	old map[string]lockEntry

	mu  sync.Mutex
	new map[string]lockEntry
}

// NewLockstore constructs a Lockstore bound to path. Call ReadLock before
// resolving to prime the old lock from disk; an empty path yields a
// Lockstore usable only in-memory (no persistence).
func NewLockstore(path string) *Lockstore {
	return &Lockstore{
		path: path,
		old:  make(map[string]lockEntry),
		new:  make(map[string]lockEntry),
	}
}

// ReadLock loads the old lock from disk. A missing file is not an error; a
// malformed one fails with CorruptLockError.
func (l *Lockstore) ReadLock() error {
	if l.path == "" {
		return nil
	}

	data, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return &CorruptLockError{Path: l.path, Err: err}
	}

	parsed := make(map[string]lockEntry)
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return &CorruptLockError{Path: l.path, Err: err}
	}

	l.old = parsed

	return nil
}

// OldKeys returns every "<name>@<range>" key present in the lock loaded
// from disk by ReadLock, for callers outside this package that need to walk
// the whole lock (e.g. `bero-pm vendor`) rather than look up one demand.
func (l *Lockstore) OldKeys() []string {
	keys := make([]string, 0, len(l.old))
	for k := range l.old {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// GetOld looks up a raw "<name>@<range>" key in the lock loaded from disk,
// returning the same shape as getItem. Exported for CLI-layer callers that
// enumerate OldKeys rather than re-deriving a single demand's range.
func (l *Lockstore) GetOld(key string) (deps map[string]string, version string, dist Dist, ok bool) {
	e, found := l.old[key]
	if !found {
		return nil, "", Dist{}, false
	}

	return e.Dependencies, e.Version, Dist{Tarball: e.URL, Shasum: e.Shasum}, true
}

// getItem returns the locked dependencies, version and dist for a
// "<name>@<range>" demand, or ok=false if the old lock has no such key.
func (l *Lockstore) getItem(name, rng string) (deps map[string]string, version string, dist Dist, ok bool) {
	e, found := l.old[name+"@"+rng]
	if !found {
		return nil, "", Dist{}, false
	}

	return e.Dependencies, e.Version, Dist{Tarball: e.URL, Shasum: e.Shasum}, true
}

// updateOrCreate idempotently merges entry into the new lock under key.
// Last writer wins on field overlap; distinct keys never collide.
func (l *Lockstore) updateOrCreate(key string, entry lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, ok := l.new[key]
	if !ok {
		l.new[key] = entry
		return
	}

	if entry.Version != "" {
		cur.Version = entry.Version
	}

	if entry.URL != "" {
		cur.URL = entry.URL
	}

	if entry.Shasum != "" {
		cur.Shasum = entry.Shasum
	}

	if entry.Dependencies != nil {
		cur.Dependencies = entry.Dependencies
	}

	l.new[key] = cur
}

// Shasums returns a "<name>@<version>" -> digest lookup built from the new
// lock's accumulated entries. The installer driver needs a digest keyed by
// the concrete version a plan entry resolved to, not by the "<name>@<range>"
// demand key the lock itself uses.
func (l *Lockstore) Shasums() map[string]string {
	snapshot := l.Snapshot()

	out := make(map[string]string, len(snapshot))
	for key, entry := range snapshot {
		name, _, ok := strings.Cut(key, "@")
		if !ok {
			continue
		}

		out[name+"@"+entry.Version] = entry.Shasum
	}

	return out
}

// Snapshot returns a copy of the new lock as accumulated so far.
func (l *Lockstore) Snapshot() map[string]lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string]lockEntry, len(l.new))
	for k, v := range l.new {
		out[k] = v
	}

	return out
}

// WriteLock serializes the new lock as YAML with keys and nested maps in
// deterministic (sorted) order — gopkg.in/yaml.v3 sorts map keys lexically
// when encoding a plain Go map, giving a byte-identical file across runs
// with the same inputs — and atomically replaces the lock file via
// write-to-temp + rename.
func (l *Lockstore) WriteLock() error {
	if l.path == "" {
		return nil
	}

	snapshot := l.Snapshot()

	data, err := yaml.Marshal(snapshot)
	if err != nil {
		return err
	}

	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, l.path)
}
