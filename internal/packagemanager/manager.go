package packagemanager

import "context"

// Manager ties the Registry, Resolver, and Lockstore together into the
// driver-level operation: read roots, resolve against the registry
// (short-circuited by any prior lock), and hand back both the plan and the
// Lockstore so the caller can persist it once resolution succeeds.
type Manager struct {
	registry Registry
}

// NewManager constructs a Manager bound to registry.
func NewManager(registry Registry) *Manager {
	return &Manager{registry: registry}
}

// Resolve loads the lock at lockPath (if any), resolves roots against it and
// the registry, and returns the plan, any root caret rewrites, and the
// Lockstore positioned to have WriteLock called on success. On error the
// Lockstore's new lock must not be persisted by the caller.
func (m *Manager) Resolve(ctx context.Context, roots map[string]string, lockPath string) (Plan, []RootRewrite, *Lockstore, error) {
	lock := NewLockstore(lockPath)
	if err := lock.ReadLock(); err != nil {
		return Plan{}, nil, nil, err
	}

	resolver := NewResolver(m.registry, lock)

	plan, rewrites, err := resolver.Resolve(ctx, roots)
	if err != nil {
		return Plan{}, nil, nil, err
	}

	return plan, rewrites, lock, nil
}
