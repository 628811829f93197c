package ingest

import (
	"sync"

	"github.com/routelab/rcp/pkg/feed"
	"github.com/routelab/rcp/pkg/logging"
)

const defaultQueueSize = 512

// Dispatcher serializes events per origin peer. Different peers make
// progress independently; events from one peer apply in arrival order.
// Events with no peer (router and link lifecycle) serialize per router.
type Dispatcher struct {
	ingestor  *Ingestor
	queueSize int

	mu      sync.Mutex
	queues  map[string]chan *feed.Event
	closed  bool
	senders sync.WaitGroup
	wg      sync.WaitGroup

	logger logging.Logger
}

// NewDispatcher wraps an ingestor with per-peer serialization.
func NewDispatcher(ingestor *Ingestor, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Dispatcher{
		ingestor:  ingestor,
		queueSize: queueSize,
		queues:    make(map[string]chan *feed.Event),
		logger:    ingestor.logger,
	}
}

// HandleEvent implements feed.Handler. Enqueue blocks when the peer's
// queue is full; backpressure propagates to the transport rather than
// reordering or dropping valid events.
func (d *Dispatcher) HandleEvent(ev *feed.Event) {
	key := ev.Peer
	if key == "" {
		key = ev.Router
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	ch, ok := d.queues[key]
	if !ok {
		ch = make(chan *feed.Event, d.queueSize)
		d.queues[key] = ch
		d.wg.Add(1)
		go d.worker(key, ch)
	}
	// Registering as a sender while holding the lock keeps Stop from
	// closing the channel under the send below.
	d.senders.Add(1)
	d.mu.Unlock()
	defer d.senders.Done()

	ch <- ev
	d.ingestor.metrics.IngestQueueDepth.WithLabelValues(key).Set(float64(len(ch)))
}

func (d *Dispatcher) worker(key string, ch chan *feed.Event) {
	defer d.wg.Done()
	for ev := range ch {
		d.ingestor.HandleEvent(ev)
		d.ingestor.metrics.IngestQueueDepth.WithLabelValues(key).Set(float64(len(ch)))
	}
}

// Stop drains every queue and waits for workers to finish. In-flight
// sends complete before the channels close; workers keep consuming
// until then, so blocked senders are never stranded.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.senders.Wait()

	d.mu.Lock()
	for _, ch := range d.queues {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}
