package packagemanager

import (
	"context"
	"testing"
)

func TestResolver_SimpleGraph_PicksHighestSatisfying(t *testing.T) {
	reg := NewInMemoryRegistry()
	ctx := context.Background()

	mustPublish(t, reg, "B", "1.0.0", nil)
	mustPublish(t, reg, "B", "1.2.0", nil)
	mustPublish(t, reg, "A", "1.0.0", map[string]string{"B": ">=1.0.0, <2.0.0"})
	mustPublish(t, reg, "A", "1.1.0", map[string]string{"B": ">=1.1.0, <2.0.0"})

	r := NewResolver(reg, NewLockstore(""))

	plan, _, err := r.Resolve(ctx, map[string]string{"A": ">=1.0.0"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if got := plan.TopLevel["A"].Version; got != "1.1.0" {
		t.Fatalf("expected A=1.1.0, got %s", got)
	}

	if got := plan.TopLevel["B"].Version; got != "1.2.0" {
		t.Fatalf("expected B=1.2.0, got %s", got)
	}

	if len(plan.Unsatisfied) != 0 {
		t.Fatalf("expected no unsatisfied entries, got %+v", plan.Unsatisfied)
	}
}

// TestResolver_PlaceNestsWhenTopLevelIncompatible drives the placement
// decision directly (rather than through the concurrent Resolve entry
// point, whose fan-out order across sibling roots is not deterministic) so
// the nested-placement branch is exercised deterministically.
func TestResolver_PlaceNestsWhenTopLevelIncompatible(t *testing.T) {
	r := NewResolver(NewInMemoryRegistry(), NewLockstore(""))

	r.place("B", ">=2.0.0", "2.0.0", Dist{Tarball: "cid:b2"}, nil)
	if got := r.plan.TopLevel["B"].Version; got != "2.0.0" {
		t.Fatalf("expected top-level B=2.0.0, got %s", got)
	}

	stack := []frame{{name: "A", version: "1.0.0", dependencies: map[string]string{"B": "~1.0.0"}}}
	r.place("B", "~1.0.0", "1.0.0", Dist{Tarball: "cid:b1"}, stack)

	if got := r.plan.TopLevel["B"].Version; got != "2.0.0" {
		t.Fatalf("top-level B should be unchanged, got %s", got)
	}

	if len(r.plan.Unsatisfied) != 1 {
		t.Fatalf("expected one nested copy of B, got %+v", r.plan.Unsatisfied)
	}

	nested := r.plan.Unsatisfied[0]
	if nested.Name != "B" || nested.Version != "1.0.0" || nested.ParentPath != "A" {
		t.Fatalf("unexpected nested entry: %+v", nested)
	}
}

// TestResolver_PlaceNestsOnAncestorConflict_ClampsStackOffset exercises the
// i-2 ancestor-offset rule, including its clamp to zero at shallow stacks.
func TestResolver_PlaceNestsOnAncestorConflict_ClampsStackOffset(t *testing.T) {
	r := NewResolver(NewInMemoryRegistry(), NewLockstore(""))

	r.place("B", ">=1.0.0", "1.0.0", Dist{Tarball: "cid:b1"}, nil)

	// A shallow stack (depth 1) whose only frame depends on B incompatibly:
	// the conflict index is 0, so start := 0-2 clamps to 0, and the nested copy's parent path is rooted
	// at the whole (clamped) stack rather than a negative slice.
	stack := []frame{{name: "A", version: "1.0.0", dependencies: map[string]string{"B": "~2.0.0"}}}
	r.place("B", ">=1.0.0", "1.0.0", Dist{Tarball: "cid:b1"}, stack)

	if len(r.plan.Unsatisfied) != 1 {
		t.Fatalf("expected one nested copy, got %+v", r.plan.Unsatisfied)
	}

	if got := r.plan.Unsatisfied[0].ParentPath; got != "A" {
		t.Fatalf("expected clamped parent path %q, got %q", "A", got)
	}
}

func TestResolver_NoMatchingVersion(t *testing.T) {
	reg := NewInMemoryRegistry()
	ctx := context.Background()

	mustPublish(t, reg, "A", "1.0.0", nil)

	r := NewResolver(reg, NewLockstore(""))

	_, _, err := r.Resolve(ctx, map[string]string{"A": ">=2.0.0"})
	if err == nil {
		t.Fatal("expected an error")
	}

	var nmv *NoMatchingVersionError
	if target, ok := err.(*NoMatchingVersionError); ok {
		nmv = target
	}

	if nmv == nil {
		t.Fatalf("expected *NoMatchingVersionError, got %T: %v", err, err)
	}
}

func TestResolver_RootCaretRewriteOnEmptyRange(t *testing.T) {
	reg := NewInMemoryRegistry()
	ctx := context.Background()

	mustPublish(t, reg, "A", "3.4.5", nil)

	r := NewResolver(reg, NewLockstore(""))

	_, rewrites, err := r.Resolve(ctx, map[string]string{"A": ""})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(rewrites) != 1 || rewrites[0].Caret != "^3.4.5" {
		t.Fatalf("unexpected rewrites: %+v", rewrites)
	}
}

func TestResolver_CycleDoesNotInfiniteLoop(t *testing.T) {
	reg := NewInMemoryRegistry()
	ctx := context.Background()

	mustPublish(t, reg, "A", "1.0.0", map[string]string{"B": ">=1.0.0"})
	mustPublish(t, reg, "B", "1.0.0", map[string]string{"A": ">=1.0.0"})

	r := NewResolver(reg, NewLockstore(""))

	plan, _, err := r.Resolve(ctx, map[string]string{"A": ">=1.0.0"})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if plan.TopLevel["A"].Version != "1.0.0" || plan.TopLevel["B"].Version != "1.0.0" {
		t.Fatalf("unexpected plan: %+v", plan.TopLevel)
	}
}

func mustPublish(t *testing.T, reg *InMemoryRegistry, name, version string, deps map[string]string) {
	t.Helper()

	if _, err := reg.Publish(context.Background(), name, version, deps, []byte(name+"-"+version)); err != nil {
		t.Fatalf("publish %s@%s: %v", name, version, err)
	}
}
