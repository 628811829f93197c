package pubsub

import "errors"

// ErrBusClosed is returned when subscribing to a bus that has been shut down.
var ErrBusClosed = errors.New("pubsub: bus is shut down")
