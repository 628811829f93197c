// Package ingest normalizes upstream feed events into graph mutations.
// Events are idempotent: replaying one against state it already produced
// commits nothing and triggers no downstream work.
package ingest

import (
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/routelab/rcp/pkg/feed"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/logging"
	"github.com/routelab/rcp/pkg/metrics"
)

const (
	defaultDedupWindow = 30 * time.Second
	defaultMaxRetries  = 5
)

// Config configures an Ingestor.
type Config struct {
	// DedupWindow bounds how long delivered event IDs are remembered
	// to absorb transport redelivery.
	DedupWindow time.Duration
	// MaxRetries bounds commit retries after optimistic conflicts.
	MaxRetries int
	Logger     logging.Logger
}

// Ingestor turns feed events into graph mutations. Duplicate suppression
// is two-layered: a TTL cache of event IDs absorbs transport redelivery,
// and a snapshot comparison drops events that would not change state.
type Ingestor struct {
	store      *graph.Store
	seen       *ttlcache.Cache[string, struct{}]
	maxRetries int
	logger     logging.Logger
	metrics    *metrics.Registry
}

// New creates an ingestor bound to a store.
func New(store *graph.Store, cfg Config) *Ingestor {
	window := cfg.DedupWindow
	if window <= 0 {
		window = defaultDedupWindow
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	seen := ttlcache.New(
		ttlcache.WithTTL[string, struct{}](window),
		ttlcache.WithDisableTouchOnHit[string, struct{}](),
	)
	go seen.Start()

	return &Ingestor{
		store:      store,
		seen:       seen,
		maxRetries: retries,
		logger:     logger.With(logging.Component("ingest")),
		metrics:    metrics.DefaultRegistry(),
	}
}

// Close releases the dedup cache.
func (i *Ingestor) Close() {
	i.seen.Stop()
}

// HandleEvent implements feed.Handler. Failures are logged and counted;
// one bad event never takes the pipeline down.
func (i *Ingestor) HandleEvent(ev *feed.Event) {
	if err := i.Ingest(ev); err != nil {
		i.logger.Error("event ingest failed",
			logging.EventType(string(ev.Type)),
			logging.Peer(ev.Peer),
			logging.Prefix(ev.Prefix),
			logging.Error(err))
	}
}

// Ingest applies one event to the graph. Malformed events return a
// MalformedEventError; events already reflected in the graph are a
// no-op; conflicting commits are retried against fresh snapshots.
func (i *Ingestor) Ingest(ev *feed.Event) error {
	start := time.Now()

	if err := ev.Validate(); err != nil {
		i.metrics.RecordIngest(string(ev.Type), "malformed", time.Since(start))
		return err
	}

	// Redelivered events (same ID) are dropped outright
	if ev.ID != "" {
		if i.seen.Get(ev.ID) != nil {
			i.metrics.IngestDedupHitsTotal.Inc()
			i.metrics.RecordIngest(string(ev.Type), "duplicate", time.Since(start))
			return nil
		}
		i.seen.Set(ev.ID, struct{}{}, ttlcache.DefaultTTL)
	}

	for attempt := 0; ; attempt++ {
		snap := i.store.Snapshot()
		muts := buildMutations(snap, ev)
		if len(muts) == 0 {
			// State already reflects this event
			i.metrics.IngestDedupHitsTotal.Inc()
			i.metrics.RecordIngest(string(ev.Type), "noop", time.Since(start))
			return nil
		}

		// Guard the batch with the snapshot it was derived from
		muts[0] = muts[0].WithExpect(snap.Version())

		_, err := i.store.ApplyBatch(muts)
		if err == nil {
			i.metrics.RecordIngest(string(ev.Type), "applied", time.Since(start))
			return nil
		}
		if graph.IsConflict(err) && attempt < i.maxRetries {
			i.metrics.IngestConflictsTotal.Inc()
			i.logger.Debug("commit conflict, retrying on fresh snapshot",
				logging.EventType(string(ev.Type)),
				logging.Attempt(attempt+1))
			continue
		}
		i.metrics.RecordIngest(string(ev.Type), "error", time.Since(start))
		return err
	}
}
