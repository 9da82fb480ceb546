package packagemanager

import (
	"context"
	"testing"
)

func TestManager_Resolve_PicksHighestSatisfyingAcrossPeers(t *testing.T) {
	r1 := NewInMemoryRegistry()
	r2 := NewInMemoryRegistry()
	r1.ConnectPeers(r2)

	ctx := context.Background()

	if _, err := r1.Publish(ctx, "B", "1.0.0", nil, []byte("B-1.0.0")); err != nil {
		t.Fatal(err)
	}

	if _, err := r2.Publish(ctx, "B", "1.2.0", nil, []byte("B-1.2.0")); err != nil {
		t.Fatal(err)
	}

	if _, err := r1.Publish(ctx, "A", "1.0.0", map[string]string{"B": ">=1.1.0, <2.0.0"}, []byte("A-1.0.0")); err != nil {
		t.Fatal(err)
	}

	m := NewManager(r1)

	plan, _, _, err := m.Resolve(ctx, map[string]string{"A": ">=1.0.0"}, "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got := plan.TopLevel["A"].Version; got != "1.0.0" {
		t.Fatalf("want A@1.0.0, got %s", got)
	}

	if got := plan.TopLevel["B"].Version; got != "1.2.0" {
		t.Fatalf("want B@1.2.0, got %s", got)
	}

	if plan.TopLevel["A"].URL == "" || plan.TopLevel["B"].URL == "" {
		t.Fatalf("missing dist URLs: %+v", plan.TopLevel)
	}
}

func TestManager_Resolve_RootRewriteForEmptyRange(t *testing.T) {
	reg := NewInMemoryRegistry()
	ctx := context.Background()

	if _, err := reg.Publish(ctx, "A", "2.3.4", nil, []byte("A-2.3.4")); err != nil {
		t.Fatal(err)
	}

	m := NewManager(reg)

	_, rewrites, _, err := m.Resolve(ctx, map[string]string{"A": ""}, "")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(rewrites) != 1 || rewrites[0].Name != "A" || rewrites[0].Caret != "^2.3.4" {
		t.Fatalf("unexpected rewrites: %+v", rewrites)
	}
}
