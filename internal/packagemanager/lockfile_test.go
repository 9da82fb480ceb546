package packagemanager

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLockstore_WriteThenReadRoundTrips(t *testing.T) {
	ctx := context.Background()
	reg := NewInMemoryRegistry()

	if _, err := reg.Publish(ctx, "B", "1.2.3", nil, []byte("B-1.2.3")); err != nil {
		t.Fatal(err)
	}

	if _, err := reg.Publish(ctx, "A", "0.1.0", map[string]string{"B": "^1.2.0"}, []byte("A-0.1.0")); err != nil {
		t.Fatal(err)
	}

	lockPath := filepath.Join(t.TempDir(), "bero-pm.yml")

	m := NewManager(reg)

	plan, _, lock, err := m.Resolve(ctx, map[string]string{"A": ">=0.1.0"}, lockPath)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if plan.TopLevel["A"].Version != "0.1.0" {
		t.Fatalf("unexpected A version: %+v", plan.TopLevel["A"])
	}

	if err := lock.WriteLock(); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("lock file missing: %v", err)
	}

	reloaded := NewLockstore(lockPath)
	if err := reloaded.ReadLock(); err != nil {
		t.Fatalf("reload lock: %v", err)
	}

	deps, version, _, ok := reloaded.getItem("A", ">=0.1.0")
	if !ok {
		t.Fatalf("expected reloaded lock to contain A@>=0.1.0")
	}

	if version != "0.1.0" || deps["B"] != "^1.2.0" {
		t.Fatalf("unexpected reloaded entry: version=%s deps=%v", version, deps)
	}
}

func TestLockstore_ReadLock_MissingFileIsNotError(t *testing.T) {
	l := NewLockstore(filepath.Join(t.TempDir(), "absent.yml"))
	if err := l.ReadLock(); err != nil {
		t.Fatalf("missing lock file should not error: %v", err)
	}
}

func TestLockstore_ReadLock_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bero-pm.yml")
	if err := os.WriteFile(path, []byte("not: [valid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	l := NewLockstore(path)

	err := l.ReadLock()
	if err == nil {
		t.Fatal("expected corrupt lock error")
	}

	var corrupt *CorruptLockError
	if !asCorruptLockError(err, &corrupt) {
		t.Fatalf("expected *CorruptLockError, got %T: %v", err, err)
	}
}

func asCorruptLockError(err error, target **CorruptLockError) bool {
	c, ok := err.(*CorruptLockError)
	if ok {
		*target = c
	}

	return ok
}
