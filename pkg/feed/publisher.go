package feed

import (
	"fmt"
	"sync"

	"github.com/routelab/rcp/pkg/logging"
)

// Publisher fans events out to feed subscribers. The daemon side never
// publishes; this exists for the simulator and for speakers embedding
// the library.
type Publisher struct {
	socket ListenSocket
	addr   string
	codec  Codec

	stream    chan *Event
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	runningMu sync.Mutex

	logger logging.Logger
}

// PublisherConfig configures a feed publisher.
type PublisherConfig struct {
	Address    string
	BufferSize int
	Compress   bool
}

// NewPublisher creates a feed publisher.
func NewPublisher(factory SocketFactory, cfg PublisherConfig, logger logging.Logger) (*Publisher, error) {
	socket, err := factory.NewPubSocket()
	if err != nil {
		return nil, fmt.Errorf("failed to create PUB socket: %w", err)
	}

	bufSize := cfg.BufferSize
	if bufSize <= 0 {
		bufSize = 1000
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}

	return &Publisher{
		socket: socket,
		addr:   cfg.Address,
		codec:  Codec{Compress: cfg.Compress},
		stream: make(chan *Event, bufSize),
		stopCh: make(chan struct{}),
		logger: logger.With(logging.Component("feed")),
	}, nil
}

// Start binds the socket and begins publishing.
func (p *Publisher) Start() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if p.running {
		return fmt.Errorf("feed publisher already running")
	}

	if err := p.socket.Listen(p.addr); err != nil {
		return fmt.Errorf("failed to bind PUB socket to %s: %w", p.addr, err)
	}

	p.running = true
	p.wg.Add(1)
	go p.publishLoop()

	p.logger.Info("feed publisher started", logging.String("addr", p.addr))
	return nil
}

// Stop stops the publisher.
func (p *Publisher) Stop() error {
	p.runningMu.Lock()
	defer p.runningMu.Unlock()

	if !p.running {
		return nil
	}

	close(p.stopCh)
	p.running = false
	p.wg.Wait()

	if err := p.socket.Close(); err != nil {
		p.logger.Warn("failed to close feed publisher socket", logging.Error(err))
	}

	p.logger.Info("feed publisher stopped")
	return nil
}

// Publish queues an event for publishing.
func (p *Publisher) Publish(ev *Event) error {
	select {
	case p.stream <- ev:
		return nil
	case <-p.stopCh:
		return fmt.Errorf("feed publisher stopped")
	}
}

func (p *Publisher) publishLoop() {
	defer p.wg.Done()

	for {
		select {
		case <-p.stopCh:
			return
		case ev := <-p.stream:
			msg, err := p.codec.Encode(ev)
			if err != nil {
				p.logger.Error("failed to encode feed event", logging.Error(err))
				continue
			}
			if err := p.socket.Send(msg); err != nil {
				p.logger.Error("failed to publish feed event", logging.Error(err))
			}
		}
	}
}
