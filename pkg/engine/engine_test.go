package engine

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/routelab/rcp/pkg/feed"
	"github.com/routelab/rcp/pkg/fib"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/ingest"
	"github.com/routelab/rcp/pkg/model"
)

type harness struct {
	store  *graph.Store
	router *fib.MemoryRouter
	table  *fib.Table
	engine *Engine
}

func newHarness(t *testing.T, debounce time.Duration) *harness {
	t.Helper()

	store := graph.NewStore()
	router := fib.NewMemoryRouter()
	table := fib.NewTable()
	applier := fib.NewApplier(router, table, fib.ApplierConfig{
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
	})

	eng, err := New(store, applier, table, Config{
		Debounce: debounce,
		Workers:  2,
	})
	if err != nil {
		t.Fatalf("New engine failed: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	t.Cleanup(func() {
		eng.Stop()
		store.Close()
	})
	return &harness{store: store, router: router, table: table, engine: eng}
}

func (h *harness) advertise(t *testing.T, router, peer, prefix, nextHop string, localPref int64) {
	t.Helper()
	var muts []graph.Mutation
	snap := h.store.Snapshot()
	for _, n := range []struct {
		id   graph.NodeID
		kind graph.Kind
	}{
		{graph.NodeID(router), model.KindRouter},
		{graph.NodeID(peer), model.KindPeer},
		{graph.NodeID(prefix), model.KindPrefix},
		{graph.NodeID(nextHop), model.KindNextHop},
	} {
		if n.id != "" && snap.Node(n.id) == nil {
			muts = append(muts, graph.UpsertNode(n.id, n.kind, nil))
		}
	}
	muts = append(muts, graph.UpsertEdge(
		model.RouteKey(graph.NodeID(router), graph.NodeID(prefix), graph.PeerID(peer)),
		model.RouteAttrs(localPref, nil, model.OriginIGP, 0, nextHop),
	))
	if _, err := h.store.ApplyBatch(muts); err != nil {
		t.Fatalf("advertise failed: %v", err)
	}
}

func (h *harness) withdraw(t *testing.T, router, peer, prefix string) {
	t.Helper()
	key := model.RouteKey(graph.NodeID(router), graph.NodeID(prefix), graph.PeerID(peer))
	if _, err := h.store.Apply(graph.DeleteEdge(key)); err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestEngineInstallsBestPath(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	h.advertise(t, "r1", "10.1.1.1", "10.0.0.0/24", "192.0.2.1", 100)

	waitFor(t, func() bool {
		entry, ok := h.router.Entry("10.0.0.0/24")
		return ok && entry.NextHop == "192.0.2.1"
	}, "Timeout waiting for install")

	if st := h.table.Get("10.0.0.0/24"); st.State != fib.StateInstalled {
		t.Errorf("Expected installed, got %s", st.State)
	}
}

// TestEnginePreferredPeerWithdrawal is the two-speaker scenario: the
// higher local-pref path wins, its withdrawal replaces the entry with
// the surviving path, and the device never sees a double install.
func TestEnginePreferredPeerWithdrawal(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	h.advertise(t, "r1", "10.1.1.1", "10.0.0.0/24", "192.0.2.1", 100)
	h.advertise(t, "r2", "10.2.2.2", "10.0.0.0/24", "192.0.2.9", 200)

	waitFor(t, func() bool {
		entry, ok := h.router.Entry("10.0.0.0/24")
		return ok && entry.NextHop == "192.0.2.9"
	}, "Timeout waiting for preferred path")

	// Withdraw the preferred route; the engine must fall back to r1
	h.withdraw(t, "r2", "10.2.2.2", "10.0.0.0/24")

	waitFor(t, func() bool {
		entry, ok := h.router.Entry("10.0.0.0/24")
		return ok && entry.NextHop == "192.0.2.1"
	}, "Timeout waiting for fallback path")

	// The prefix was never withdrawn from the device along the way
	for _, op := range h.router.Calls() {
		if op == fib.OpWithdraw {
			t.Error("Fallback must replace, not withdraw-then-install")
		}
	}
}

func TestEngineWithdrawsUnreachablePrefix(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	h.advertise(t, "r1", "10.1.1.1", "10.0.0.0/24", "192.0.2.1", 100)
	waitFor(t, func() bool {
		_, ok := h.router.Entry("10.0.0.0/24")
		return ok
	}, "Timeout waiting for install")

	h.withdraw(t, "r1", "10.1.1.1", "10.0.0.0/24")

	waitFor(t, func() bool {
		_, ok := h.router.Entry("10.0.0.0/24")
		return !ok
	}, "Timeout waiting for withdraw")

	if st := h.table.Get("10.0.0.0/24"); st.State != fib.StateUnset {
		t.Errorf("Expected unset after withdraw, got %s", st.State)
	}
}

func TestEngineReactsToPeerDown(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	h.advertise(t, "r1", "10.1.1.1", "10.0.0.0/24", "192.0.2.1", 200)
	h.advertise(t, "r2", "10.2.2.2", "10.0.0.0/24", "192.0.2.9", 100)

	waitFor(t, func() bool {
		entry, ok := h.router.Entry("10.0.0.0/24")
		return ok && entry.NextHop == "192.0.2.1"
	}, "Timeout waiting for preferred path")

	// Take the preferred route's peer down; selection shifts to r2
	if _, err := h.store.Apply(graph.UpsertNode("10.1.1.1", model.KindPeer, model.UpAttrs(false))); err != nil {
		t.Fatalf("peer down failed: %v", err)
	}

	waitFor(t, func() bool {
		entry, ok := h.router.Entry("10.0.0.0/24")
		return ok && entry.NextHop == "192.0.2.9"
	}, "Timeout waiting for reroute after peer down")
}

func TestEngineCoalescesBursts(t *testing.T) {
	h := newHarness(t, 150*time.Millisecond)

	// A burst of re-advertisements inside one debounce window
	for pref := int64(101); pref <= 110; pref++ {
		h.advertise(t, "r1", "10.1.1.1", "10.0.0.0/24", "192.0.2.1", pref)
	}

	waitFor(t, func() bool {
		_, ok := h.router.Entry("10.0.0.0/24")
		return ok
	}, "Timeout waiting for install")

	time.Sleep(200 * time.Millisecond)
	installs := 0
	for _, op := range h.router.Calls() {
		if op == fib.OpInstall {
			installs++
		}
	}
	if installs != 1 {
		t.Errorf("Burst should coalesce to one install, device saw %d", installs)
	}
}

func TestEngineIngestIdempotenceEndToEnd(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)
	ing := ingest.New(h.store, ingest.Config{})
	defer ing.Close()

	lp := int64(100)
	ev := feed.NewEvent(feed.EventRouteUp)
	ev.Router = "r1"
	ev.Peer = "10.1.1.1"
	ev.Prefix = "10.0.0.0/24"
	ev.NextHop = "192.0.2.1"
	ev.LocalPref = &lp
	if err := ing.Ingest(&ev); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	waitFor(t, func() bool {
		_, ok := h.router.Entry("10.0.0.0/24")
		return ok
	}, "Timeout waiting for install")
	calls := len(h.router.Calls())

	// Replay the identical advertisement under a new ID; no mutation,
	// no FIB call
	dup := ev
	dup.ID = "replay-1"
	if err := ing.Ingest(&dup); err != nil {
		t.Fatalf("Duplicate ingest failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if got := len(h.router.Calls()); got != calls {
		t.Errorf("Duplicate event triggered FIB traffic: %d -> %d calls", calls, got)
	}
}

// TestEngineRetriesFailedWithdraw covers a withdraw that exhausts its
// retries: the stale route stays on the device until a later run, which
// must reissue the withdraw even though no candidates changed.
func TestEngineRetriesFailedWithdraw(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	h.advertise(t, "r1", "10.1.1.1", "10.0.0.0/24", "192.0.2.1", 100)
	waitFor(t, func() bool {
		_, ok := h.router.Entry("10.0.0.0/24")
		return ok
	}, "Timeout waiting for install")

	h.router.SetFailureHook(func(op fib.OpKind, prefix string) error {
		if op == fib.OpWithdraw {
			return errors.New("device unreachable")
		}
		return nil
	})
	h.withdraw(t, "r1", "10.1.1.1", "10.0.0.0/24")
	waitFor(t, func() bool {
		return h.table.Get("10.0.0.0/24").State == fib.StateFailed
	}, "Timeout waiting for failed withdraw")
	if _, ok := h.router.Entry("10.0.0.0/24"); !ok {
		t.Fatal("Stale route should still be on the device")
	}

	// Once the device recovers, a forced run must clear the stale route
	h.router.SetFailureHook(nil)
	h.engine.Kick("10.0.0.0/24")

	waitFor(t, func() bool {
		_, ok := h.router.Entry("10.0.0.0/24")
		return !ok && h.table.Get("10.0.0.0/24").State == fib.StateUnset
	}, "Timeout waiting for reissued withdraw")
}

// TestEngineResyncsAfterDroppedEvents overflows a subscriber buffer so
// change events get discarded; the engine must notice the drop counter
// advancing and fall back to a full resync instead of going stale.
func TestEngineResyncsAfterDroppedEvents(t *testing.T) {
	h := newHarness(t, 20*time.Millisecond)

	h.advertise(t, "r1", "10.1.1.1", "10.0.0.0/24", "192.0.2.1", 100)
	waitFor(t, func() bool {
		_, ok := h.router.Entry("10.0.0.0/24")
		return ok
	}, "Timeout waiting for install")

	// Strand the prefix: the device rejects the withdraw until retries
	// are exhausted, leaving the stale route installed
	h.router.SetFailureHook(func(op fib.OpKind, prefix string) error {
		if op == fib.OpWithdraw {
			return errors.New("device unreachable")
		}
		return nil
	})
	h.withdraw(t, "r1", "10.1.1.1", "10.0.0.0/24")
	waitFor(t, func() bool {
		return h.table.Get("10.0.0.0/24").State == fib.StateFailed
	}, "Timeout waiting for failed withdraw")
	h.router.SetFailureHook(nil)

	// An abandoned subscriber never drains; churn on an unrelated prefix
	// overflows its buffer until the drop counter advances
	if _, err := h.store.SubscribeChanges(context.Background()); err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	before := h.store.EventsDropped()
	for pref := int64(1); h.store.EventsDropped() == before; pref++ {
		h.advertise(t, "r1", "10.1.1.1", "10.1.0.0/24", "192.0.2.1", pref)
	}

	// The drop forces a full resync, which retries the stuck withdraw
	waitFor(t, func() bool {
		_, ok := h.router.Entry("10.0.0.0/24")
		return !ok && h.table.Get("10.0.0.0/24").State == fib.StateUnset
	}, "Timeout waiting for resync to clear the stale route")
}

func TestEngineSupersedesInFlightRun(t *testing.T) {
	store := graph.NewStore()
	defer store.Close()
	router := fib.NewMemoryRouter()
	table := fib.NewTable()

	// Slow the device down so a second change lands mid-run
	var slow atomic.Bool
	slow.Store(true)
	router.SetFailureHook(func(fib.OpKind, string) error {
		if slow.Load() {
			time.Sleep(80 * time.Millisecond)
		}
		return nil
	})

	applier := fib.NewApplier(router, table, fib.ApplierConfig{
		MaxAttempts: 2,
		BaseBackoff: time.Millisecond,
		CallTimeout: time.Second,
	})
	eng, err := New(store, applier, table, Config{Debounce: 10 * time.Millisecond, Workers: 2})
	if err != nil {
		t.Fatalf("New engine failed: %v", err)
	}
	if err := eng.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer func() {
		eng.Stop()
	}()

	h := &harness{store: store, router: router, table: table, engine: eng}
	h.advertise(t, "r1", "10.1.1.1", "10.0.0.0/24", "192.0.2.1", 100)

	// While the slow install is in flight, a better path shows up
	time.Sleep(30 * time.Millisecond)
	h.advertise(t, "r2", "10.2.2.2", "10.0.0.0/24", "192.0.2.9", 200)
	slow.Store(false)

	// The superseding run must land on the better path
	waitFor(t, func() bool {
		entry, ok := router.Entry("10.0.0.0/24")
		return ok && entry.NextHop == "192.0.2.9"
	}, "Timeout waiting for superseding run")
}
