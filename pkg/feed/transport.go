package feed

import (
	"io"
	"time"
)

// Socket represents a messaging socket that can send and receive messages.
// This interface abstracts the underlying transport (mangos, ZMQ, or mock
// for testing).
type Socket interface {
	io.Closer
	Send([]byte) error
	Recv() ([]byte, error)
	SetRecvDeadline(d time.Duration) error
	SetSendDeadline(d time.Duration) error
}

// ListenSocket is a socket that can bind to an address.
type ListenSocket interface {
	Socket
	Listen(addr string) error
}

// SubscribeSocket is a SUB socket that dials a publisher and filters by
// topic.
type SubscribeSocket interface {
	Socket
	Dial(addr string) error
	Subscribe(topic []byte) error
}

// SocketFactory creates sockets for the feed's messaging patterns.
// Implementations provide real transport sockets or mocks for testing.
type SocketFactory interface {
	NewPubSocket() (ListenSocket, error)
	NewSubSocket() (SubscribeSocket, error)
}
