package feed

import (
	"encoding/json"
	"fmt"

	"github.com/golang/snappy"
)

// Wire format: topic prefix, one flag byte, then the JSON payload
// (snappy-compressed when the flag says so). The prefix lets SUB sockets
// filter; the flag keeps small messages cheap while large bursts shrink.
const (
	TopicPrefix = "FEED:"

	flagPlain  byte = 0
	flagSnappy byte = 1
)

// Codec encodes and decodes feed events for the wire
type Codec struct {
	// Compress enables snappy compression of outgoing payloads
	Compress bool
}

// Encode renders an event into a wire message
func (c *Codec) Encode(ev *Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}

	flag := flagPlain
	if c.Compress {
		payload = snappy.Encode(nil, payload)
		flag = flagSnappy
	}

	msg := make([]byte, 0, len(TopicPrefix)+1+len(payload))
	msg = append(msg, TopicPrefix...)
	msg = append(msg, flag)
	msg = append(msg, payload...)
	return msg, nil
}

// Decode parses a wire message into an event. Messages without our topic
// prefix are rejected; the decoder accepts both compressed and plain
// payloads regardless of the codec's own Compress setting.
func (c *Codec) Decode(msg []byte) (*Event, error) {
	if len(msg) < len(TopicPrefix)+1 || string(msg[:len(TopicPrefix)]) != TopicPrefix {
		return nil, &MalformedEventError{Reason: "missing topic prefix"}
	}
	flag := msg[len(TopicPrefix)]
	payload := msg[len(TopicPrefix)+1:]

	switch flag {
	case flagSnappy:
		decoded, err := snappy.Decode(nil, payload)
		if err != nil {
			return nil, &MalformedEventError{Reason: "snappy decode", Cause: err}
		}
		payload = decoded
	case flagPlain:
	default:
		return nil, &MalformedEventError{Reason: fmt.Sprintf("unknown codec flag %d", flag)}
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, &MalformedEventError{Reason: "json decode", Cause: err}
	}
	return &ev, nil
}
