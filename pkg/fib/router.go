package fib

import (
	"context"
	"sync"
)

// RouterFIB is the forwarding device the reconciler drives. Install
// replaces any existing entry for the prefix in one call, so a replace
// never leaves the prefix routeless. Calls must respect the context:
// an expired context is a failed call, never a silent success.
type RouterFIB interface {
	Install(ctx context.Context, entry Entry) error
	Withdraw(ctx context.Context, prefix string) error
}

// MemoryRouter is an in-process RouterFIB for tests and demos. A
// failure hook, when set, is consulted before every call so tests can
// inject transient and persistent errors.
type MemoryRouter struct {
	mu      sync.Mutex
	entries map[string]Entry
	hook    func(op OpKind, prefix string) error
	calls   []OpKind
}

// NewMemoryRouter creates an empty in-memory FIB.
func NewMemoryRouter() *MemoryRouter {
	return &MemoryRouter{entries: make(map[string]Entry)}
}

// SetFailureHook installs a hook consulted before each operation; a
// non-nil return fails the call.
func (r *MemoryRouter) SetFailureHook(hook func(op OpKind, prefix string) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = hook
}

func (r *MemoryRouter) Install(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, OpInstall)
	if r.hook != nil {
		if err := r.hook(OpInstall, entry.Prefix); err != nil {
			return err
		}
	}
	r.entries[entry.Prefix] = entry
	return nil
}

func (r *MemoryRouter) Withdraw(ctx context.Context, prefix string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, OpWithdraw)
	if r.hook != nil {
		if err := r.hook(OpWithdraw, prefix); err != nil {
			return err
		}
	}
	delete(r.entries, prefix)
	return nil
}

// Entry returns the installed entry for a prefix, if any.
func (r *MemoryRouter) Entry(prefix string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[prefix]
	return e, ok
}

// Len returns the number of installed entries.
func (r *MemoryRouter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Calls returns the operations attempted against the device in order.
func (r *MemoryRouter) Calls() []OpKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]OpKind(nil), r.calls...)
}
