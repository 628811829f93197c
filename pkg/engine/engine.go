// Package engine drives convergence: graph change events in, FIB
// operations out. Events are coalesced per destination prefix over a
// debounce window, selection runs on a worker pool, and runs for the
// same prefix never overlap.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/routelab/rcp/pkg/fib"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/logging"
	"github.com/routelab/rcp/pkg/metrics"
	"github.com/routelab/rcp/pkg/model"
	"github.com/routelab/rcp/pkg/selector"
)

const (
	defaultDebounce = 100 * time.Millisecond
	defaultWorkers  = 4
)

// Config configures the convergence engine.
type Config struct {
	// Debounce is how long to coalesce change events before running
	// selection for the affected prefixes.
	Debounce time.Duration
	// Workers bounds concurrent per-prefix convergence runs.
	Workers int
	Logger  logging.Logger
}

// prefixRun serializes convergence runs for one prefix. A change
// arriving mid-run marks it pending; the in-flight run finishes, then a
// fresh run starts from the latest snapshot.
type prefixRun struct {
	running bool
	pending bool
}

// Engine subscribes to graph changes and reconciles the FIB.
type Engine struct {
	store   *graph.Store
	applier *fib.Applier
	table   *fib.Table
	pool    *WorkerPool

	debounce time.Duration

	dirtyMu     sync.Mutex
	dirty       map[string]time.Time // prefix -> first event in this window
	allDirty    bool
	lastDropped uint64

	runsMu sync.Mutex
	runs   map[string]*prefixRun

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger  logging.Logger
	metrics *metrics.Registry
}

// New creates a convergence engine.
func New(store *graph.Store, applier *fib.Applier, table *fib.Table, cfg Config) (*Engine, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	logger = logger.With(logging.Component("engine"))

	pool, err := NewWorkerPool(cfg.Workers, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:    store,
		applier:  applier,
		table:    table,
		pool:     pool,
		debounce: cfg.Debounce,
		dirty:    make(map[string]time.Time),
		runs:     make(map[string]*prefixRun),
		logger:   logger,
		metrics:  metrics.DefaultRegistry(),
	}, nil
}

// Start subscribes to the store and begins converging. Every prefix
// already in the graph is scheduled once so restart reconverges from
// current state.
func (e *Engine) Start(ctx context.Context) error {
	e.ctx, e.cancel = context.WithCancel(ctx)

	sub, err := e.store.SubscribeChanges(e.ctx)
	if err != nil {
		return err
	}

	// Initial full sync
	snap := e.store.Snapshot()
	now := time.Now()
	e.dirtyMu.Lock()
	for _, id := range snap.NodesByKind(model.KindPrefix) {
		e.dirty[string(id)] = now
	}
	e.dirtyMu.Unlock()

	e.wg.Add(2)
	go e.eventLoop(sub.Channel())
	go e.flushLoop()

	e.logger.Info("convergence engine started")
	return nil
}

// Stop halts event processing and waits for in-flight runs.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
	e.pool.Close()
	e.logger.Info("convergence engine stopped")
}

func (e *Engine) eventLoop(events <-chan graph.ChangeEvent) {
	defer e.wg.Done()
	for {
		select {
		case <-e.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			e.mark(ev)
		}
	}
}

// mark records which prefixes an event dirties. Route edges name their
// prefix directly; liveness and link changes can shift selection for
// anything, so they dirty every known prefix.
func (e *Engine) mark(ev graph.ChangeEvent) {
	now := time.Now()
	e.dirtyMu.Lock()
	defer e.dirtyMu.Unlock()

	switch ev.Op {
	case graph.OpUpsertEdge, graph.OpDeleteEdge:
		if ev.EdgeKey.Kind == model.KindRoute {
			if _, ok := e.dirty[string(ev.EdgeKey.To)]; !ok {
				e.dirty[string(ev.EdgeKey.To)] = now
			}
			return
		}
		e.allDirty = true
	case graph.OpUpsertNode, graph.OpDeleteNode:
		if ev.Node != nil && ev.Node.Kind == model.KindPrefix {
			if _, ok := e.dirty[string(ev.NodeID)]; !ok {
				e.dirty[string(ev.NodeID)] = now
			}
			return
		}
		e.allDirty = true
	}
}

func (e *Engine) flushLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.flush()
		}
	}
}

// flush swaps the dirty set and schedules a run per prefix
func (e *Engine) flush() {
	e.dirtyMu.Lock()
	// A dropped change event is a lost update for an unknown prefix;
	// fall back to a full resync so nothing stays stale.
	if d := e.store.EventsDropped(); d != e.lastDropped {
		e.logger.Warn("change events dropped, forcing full resync",
			logging.Count(int(d-e.lastDropped)))
		e.lastDropped = d
		e.allDirty = true
	}
	if e.allDirty {
		snap := e.store.Snapshot()
		now := time.Now()
		for _, id := range snap.NodesByKind(model.KindPrefix) {
			if _, ok := e.dirty[string(id)]; !ok {
				e.dirty[string(id)] = now
			}
		}
		e.allDirty = false
	}
	if len(e.dirty) == 0 {
		e.dirtyMu.Unlock()
		return
	}
	batch := e.dirty
	e.dirty = make(map[string]time.Time)
	e.dirtyMu.Unlock()

	for prefix, since := range batch {
		e.schedule(prefix, since)
	}
}

// schedule starts a run for the prefix, or marks the in-flight run
// superseded so a fresh one follows it.
func (e *Engine) schedule(prefix string, since time.Time) {
	e.runsMu.Lock()
	run, ok := e.runs[prefix]
	if !ok {
		run = &prefixRun{}
		e.runs[prefix] = run
	}
	if run.running {
		if !run.pending {
			run.pending = true
			e.metrics.FibSupersededRuns.Inc()
		}
		e.runsMu.Unlock()
		return
	}
	run.running = true
	e.runsMu.Unlock()

	e.pool.Submit(func() {
		for {
			e.converge(prefix, since)

			e.runsMu.Lock()
			if run.pending {
				run.pending = false
				e.runsMu.Unlock()
				since = time.Now()
				continue
			}
			run.running = false
			e.runsMu.Unlock()
			return
		}
	})
}

// converge runs selection and reconciliation for one prefix against the
// latest snapshot. Failures are isolated: they leave the prefix in the
// failed state and never stop the engine.
func (e *Engine) converge(prefix string, since time.Time) {
	snap := e.store.Snapshot()
	candidates := selector.SelectPaths(graph.NodeID(prefix), snap)
	ops := fib.Reconcile(prefix, candidates, e.table.Get(prefix))
	if len(ops) == 0 {
		return
	}

	e.logger.Debug("converging prefix",
		logging.Prefix(prefix),
		logging.Version(uint64(snap.Version())),
		logging.Count(len(ops)))

	if err := e.applier.Apply(e.ctx, ops); err != nil {
		e.logger.Error("convergence failed",
			logging.Prefix(prefix),
			logging.Error(err))
		return
	}
	e.metrics.FibConvergenceLatency.Observe(time.Since(since).Seconds())
}

// Kick marks a prefix dirty outside the event path, forcing a run on
// the next flush.
func (e *Engine) Kick(prefix string) {
	e.dirtyMu.Lock()
	if _, ok := e.dirty[prefix]; !ok {
		e.dirty[prefix] = time.Now()
	}
	e.dirtyMu.Unlock()
}
