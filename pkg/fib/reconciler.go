package fib

import (
	"time"

	"github.com/google/uuid"

	"github.com/routelab/rcp/pkg/selector"
)

// OpKind names a FIB operation
type OpKind string

const (
	OpInstall  OpKind = "install"
	OpReplace  OpKind = "replace"
	OpWithdraw OpKind = "withdraw"
)

// Operation is one unit of forwarding-state change. A replace carries
// the new entry and maps to a single device call, so the prefix is
// never routeless between withdraw and install.
type Operation struct {
	Kind   OpKind
	Prefix string
	Entry  *Entry // set for install and replace
}

// Reconcile computes the minimal operations that bring the forwarding
// state for a prefix in line with the ranked candidates. An empty
// result means the state is already converged; reconciling twice
// against the same inputs always reaches that fixed point.
//
// The status is the prefix's full reconciliation state, not just the
// installed entry: a failed or unacknowledged removal may have left the
// route on the device, so those states get a withdraw reissued even
// though nothing counts as installed.
func Reconcile(prefix string, candidates []selector.Candidate, status Status) []Operation {
	var current *Entry
	if status.State == StateInstalled {
		current = status.Entry
	}

	if len(candidates) == 0 {
		if current == nil && status.State != StateFailed && status.State != StateWithdrawing {
			return nil
		}
		return []Operation{{Kind: OpWithdraw, Prefix: prefix}}
	}

	best := candidates[0]
	entry := &Entry{
		Prefix:      prefix,
		NextHop:     best.NextHop,
		PathID:      uuid.NewString(),
		InstalledAt: time.Now().UTC(),
	}

	if current == nil {
		return []Operation{{Kind: OpInstall, Prefix: prefix, Entry: entry}}
	}
	if current.NextHop == best.NextHop {
		// Already forwarding via the best path
		return nil
	}
	return []Operation{{Kind: OpReplace, Prefix: prefix, Entry: entry}}
}
