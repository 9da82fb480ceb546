package packagemanager

import (
	"context"
	"testing"
)

func TestInMemoryRegistry_ReplicationAndFetch(t *testing.T) {
	r1 := NewInMemoryRegistry()
	r2 := NewInMemoryRegistry()
	r3 := NewInMemoryRegistry()
	r1.ConnectPeers(r2, r3)

	ctx := context.Background()

	dist, err := r1.Publish(ctx, "pkgA", "1.0.0", nil, []byte("hello world"))
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got, err := r2.Fetch(ctx, dist); err != nil {
		t.Fatalf("r2 fetch failed: %v", err)
	} else if string(got) != "hello world" {
		t.Fatalf("unexpected data: %q", string(got))
	}

	if got, err := r3.Fetch(ctx, dist); err != nil {
		t.Fatalf("r3 fetch failed: %v", err)
	} else if string(got) != "hello world" {
		t.Fatalf("unexpected data: %q", string(got))
	}
}

func TestInMemoryRegistry_FetchManifestMergesAcrossPeers(t *testing.T) {
	r1 := NewInMemoryRegistry()
	r2 := NewInMemoryRegistry()
	r1.ConnectPeers(r2)

	ctx := context.Background()

	if _, err := r1.Publish(ctx, "pkgB", "1.1.0", nil, []byte("v1.1.0")); err != nil {
		t.Fatal(err)
	}

	if _, err := r2.Publish(ctx, "pkgB", "1.3.0", nil, []byte("v1.3.0")); err != nil {
		t.Fatal(err)
	}

	man, err := r1.FetchManifest(ctx, "pkgB")
	if err != nil {
		t.Fatalf("fetch manifest failed: %v", err)
	}

	matched, ok := maxSatisfying(man.SortedVersions(), ">=1.0.0, <2.0.0")
	if !ok {
		t.Fatalf("expected a satisfying version in %v", man)
	}

	if matched != "1.3.0" {
		t.Fatalf("expected highest 1.3.0, got %s", matched)
	}

	if _, err := r1.Fetch(ctx, man[matched].Dist); err != nil {
		t.Fatalf("fetch after manifest lookup failed: %v", err)
	}
}

func TestInMemoryRegistry_FetchManifestUnknownName(t *testing.T) {
	r1 := NewInMemoryRegistry()

	if _, err := r1.FetchManifest(context.Background(), "does-not-exist"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
