package feed

import (
	"sync"
	"time"

	"github.com/routelab/rcp/pkg/logging"
	"github.com/routelab/rcp/pkg/metrics"
)

// Handler consumes validated feed events.
type Handler interface {
	HandleEvent(ev *Event)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ev *Event)

func (f HandlerFunc) HandleEvent(ev *Event) { f(ev) }

// ListenerConfig configures a feed listener.
type ListenerConfig struct {
	UpstreamAddr string
	RecvTimeout  time.Duration
	// StaleAfter marks the feed dead after this long without any
	// message; routers announced on the feed are then synthesized
	// down. Zero disables the check.
	StaleAfter time.Duration
}

// Listener subscribes to one upstream feed and delivers validated
// events to its handler in arrival order. Malformed messages are
// dropped, logged and counted. A feed that goes silent past StaleAfter
// has its routers marked down, the same as an explicit router_down.
type Listener struct {
	socket  SubscribeSocket
	addr    string
	codec   Codec
	handler Handler

	recvTimeout time.Duration
	staleAfter  time.Duration

	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex

	lastMsg time.Time
	routers map[string]bool // routers announced on this feed
	stale   bool

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewListener creates a feed listener.
func NewListener(factory SocketFactory, cfg ListenerConfig, handler Handler, logger logging.Logger) (*Listener, error) {
	socket, err := factory.NewSubSocket()
	if err != nil {
		return nil, err
	}

	timeout := cfg.RecvTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &Listener{
		socket:      socket,
		addr:        cfg.UpstreamAddr,
		handler:     handler,
		recvTimeout: timeout,
		staleAfter:  cfg.StaleAfter,
		stopCh:      make(chan struct{}),
		routers:     make(map[string]bool),
		logger:      logger.With(logging.Component("feed")),
		metrics:     metrics.DefaultRegistry(),
	}, nil
}

// Start dials the upstream and begins receiving.
func (l *Listener) Start() error {
	l.runningMu.Lock()
	defer l.runningMu.Unlock()

	if l.running {
		return nil
	}

	if err := l.socket.Dial(l.addr); err != nil {
		return err
	}
	if err := l.socket.Subscribe([]byte(TopicPrefix)); err != nil {
		l.socket.Close()
		return err
	}
	if err := l.socket.SetRecvDeadline(l.recvTimeout); err != nil {
		l.socket.Close()
		return err
	}

	l.running = true
	l.lastMsg = time.Now()
	l.wg.Add(1)
	go l.recvLoop()

	l.metrics.FeedSessionsConnected.Inc()
	l.logger.Info("feed listener connected", logging.String("addr", l.addr))
	return nil
}

// Stop stops the listener.
func (l *Listener) Stop() error {
	l.runningMu.Lock()
	defer l.runningMu.Unlock()

	if !l.running {
		return nil
	}

	close(l.stopCh)
	l.running = false
	l.wg.Wait()
	l.socket.Close()

	l.metrics.FeedSessionsConnected.Dec()
	l.logger.Info("feed listener stopped", logging.String("addr", l.addr))
	return nil
}

func (l *Listener) recvLoop() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		msg, err := l.socket.Recv()
		if err != nil {
			// Timeout; check whether the feed has gone silent
			l.checkStale()
			continue
		}

		start := time.Now()
		ev, err := l.codec.Decode(msg)
		if err != nil {
			l.metrics.RecordMalformedEvent("decode")
			l.logger.Warn("dropping undecodable feed message", logging.Error(err))
			continue
		}
		if err := ev.Validate(); err != nil {
			l.metrics.RecordMalformedEvent("validate")
			l.logger.Warn("dropping malformed feed event",
				logging.EventType(string(ev.Type)),
				logging.Error(err))
			continue
		}

		l.metrics.RecordFeedMessage(string(ev.Type), len(msg), time.Since(start))
		l.lastMsg = time.Now()
		l.trackRouter(ev)
		l.handler.HandleEvent(ev)
	}
}

// trackRouter remembers which routers speak on this feed so a dead feed
// can take them down with it.
func (l *Listener) trackRouter(ev *Event) {
	if ev.Router == "" {
		return
	}
	l.stale = false
	if ev.Type == EventRouterDown {
		delete(l.routers, ev.Router)
		return
	}
	l.routers[ev.Router] = true
}

func (l *Listener) checkStale() {
	if l.staleAfter <= 0 || l.stale || len(l.routers) == 0 {
		return
	}
	if time.Since(l.lastMsg) < l.staleAfter {
		return
	}

	l.stale = true
	l.logger.Warn("feed silent past liveness window, marking its routers down",
		logging.String("addr", l.addr),
		logging.Count(len(l.routers)))

	for router := range l.routers {
		down := NewEvent(EventRouterDown)
		down.Router = router
		l.handler.HandleEvent(&down)
	}
	l.routers = make(map[string]bool)
}
