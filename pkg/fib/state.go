// Package fib reconciles selected paths against forwarding state. Every
// prefix moves through an explicit state machine; transitions happen
// only on acknowledged operations, so the table never claims forwarding
// state the device hasn't confirmed.
package fib

import (
	"sync"
	"time"
)

// State is a prefix's position in the reconciliation lifecycle
type State string

const (
	// StateUnset: no entry installed, none in flight
	StateUnset State = "unset"
	// StatePending: an install or replace is awaiting acknowledgment
	StatePending State = "pending"
	// StateInstalled: the device has acknowledged the entry
	StateInstalled State = "installed"
	// StateWithdrawing: a withdraw is awaiting acknowledgment
	StateWithdrawing State = "withdrawing"
	// StateFailed: retries exhausted; the next reconcile run retries
	// the pending change (including reissuing a failed withdraw)
	StateFailed State = "failed"
)

// Entry is one installed forwarding decision: a single next-hop per
// prefix, tagged with the identity of the path that produced it.
type Entry struct {
	Prefix      string    `json:"prefix"`
	NextHop     string    `json:"next_hop"`
	PathID      string    `json:"path_id"`
	InstalledAt time.Time `json:"installed_at"`
}

// Status is a prefix's current reconciliation state
type Status struct {
	Prefix    string    `json:"prefix"`
	State     State     `json:"state"`
	Entry     *Entry    `json:"entry,omitempty"`
	Attempts  int       `json:"attempts,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Table tracks per-prefix reconciliation state
type Table struct {
	mu       sync.RWMutex
	statuses map[string]*Status
}

// NewTable creates an empty state table
func NewTable() *Table {
	return &Table{statuses: make(map[string]*Status)}
}

// Get returns the status for a prefix; absent prefixes are Unset
func (t *Table) Get(prefix string) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if st, ok := t.statuses[prefix]; ok {
		return *st
	}
	return Status{Prefix: prefix, State: StateUnset}
}

// Installed returns the installed entry for a prefix, or nil
func (t *Table) Installed(prefix string) *Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	st, ok := t.statuses[prefix]
	if !ok || st.State != StateInstalled || st.Entry == nil {
		return nil
	}
	cp := *st.Entry
	return &cp
}

// All returns a copy of every non-unset status
func (t *Table) All() []Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Status, 0, len(t.statuses))
	for _, st := range t.statuses {
		out = append(out, *st)
	}
	return out
}

// set transitions a prefix's state
func (t *Table) set(prefix string, state State, entry *Entry, attempts int, lastErr string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state == StateUnset {
		delete(t.statuses, prefix)
		return
	}
	t.statuses[prefix] = &Status{
		Prefix:    prefix,
		State:     state,
		Entry:     entry,
		Attempts:  attempts,
		LastError: lastErr,
		UpdatedAt: time.Now(),
	}
}

// counts returns how many prefixes are installed and failed
func (t *Table) counts() (installed, failed int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, st := range t.statuses {
		switch st.State {
		case StateInstalled:
			installed++
		case StateFailed:
			failed++
		}
	}
	return
}
