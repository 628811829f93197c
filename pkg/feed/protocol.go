// Package feed consumes routing state from upstream BGP speakers. Events
// arrive as JSON over a SUB socket; each connected speaker streams its
// own session so per-peer ordering is the transport's ordering.
package feed

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// EventType names an upstream feed message kind
type EventType string

const (
	EventRouteUp    EventType = "route_up"
	EventRouteDown  EventType = "route_down"
	EventPeerUp     EventType = "peer_up"
	EventPeerDown   EventType = "peer_down"
	EventRouterUp   EventType = "router_up"
	EventRouterDown EventType = "router_down"
	EventLinkUp     EventType = "link_up"
	EventLinkDown   EventType = "link_down"
	EventLinkStats  EventType = "link_stats"
)

// LinkStats carries link measurement attributes
type LinkStats struct {
	Bandwidth   float64 `json:"bandwidth"`
	Latency     float64 `json:"latency"`
	Loss        float64 `json:"loss" validate:"gte=0,lte=1"`
	Utilization float64 `json:"utilization" validate:"gte=0"`
}

// Event is one upstream feed message. Which fields are required depends
// on the type; Validate enforces the per-type contract.
type Event struct {
	ID        string     `json:"id,omitempty"`
	Type      EventType  `json:"type" validate:"required"`
	Router    string     `json:"router,omitempty"`
	Peer      string     `json:"peer,omitempty" validate:"omitempty,ip"`
	Prefix    string     `json:"prefix,omitempty" validate:"omitempty,cidr"`
	NextHop   string     `json:"next_hop,omitempty" validate:"omitempty,ip"`
	LocalPref *int64     `json:"local_pref,omitempty"`
	ASPath    []string   `json:"as_path,omitempty"`
	Origin    string     `json:"origin,omitempty" validate:"omitempty,oneof=igp egp incomplete"`
	MED       *int64     `json:"med,omitempty"`
	LinkTo    string     `json:"link_to,omitempty"`
	Link      *LinkStats `json:"link,omitempty"`
	At        time.Time  `json:"at,omitempty"`
}

// MalformedEventError reports an event that failed validation. Malformed
// events are dropped, logged and counted, never fatal.
type MalformedEventError struct {
	Reason string
	Cause  error
}

func (e *MalformedEventError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed event: %s: %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("malformed event: %s", e.Reason)
}

func (e *MalformedEventError) Unwrap() error {
	return e.Cause
}

var validate = validator.New()

// Validate checks field formats and the per-type required fields.
func (e *Event) Validate() error {
	if err := validate.Struct(e); err != nil {
		return &MalformedEventError{Reason: "field validation", Cause: err}
	}

	switch e.Type {
	case EventRouteUp, EventRouteDown:
		if e.Router == "" || e.Peer == "" || e.Prefix == "" {
			return &MalformedEventError{Reason: string(e.Type) + " requires router, peer and prefix"}
		}
	case EventPeerUp, EventPeerDown:
		if e.Router == "" || e.Peer == "" {
			return &MalformedEventError{Reason: string(e.Type) + " requires router and peer"}
		}
	case EventRouterUp, EventRouterDown:
		if e.Router == "" {
			return &MalformedEventError{Reason: string(e.Type) + " requires router"}
		}
	case EventLinkUp, EventLinkDown:
		if e.Router == "" || e.LinkTo == "" {
			return &MalformedEventError{Reason: string(e.Type) + " requires router and link_to"}
		}
	case EventLinkStats:
		if e.Router == "" || e.LinkTo == "" || e.Link == nil {
			return &MalformedEventError{Reason: "link_stats requires router, link_to and link"}
		}
	default:
		return &MalformedEventError{Reason: fmt.Sprintf("unknown event type %q", e.Type)}
	}
	return nil
}

// NewEvent builds an event with a fresh ID and timestamp
func NewEvent(t EventType) Event {
	return Event{
		ID:   uuid.NewString(),
		Type: t,
		At:   time.Now().UTC(),
	}
}
