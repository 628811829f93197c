package main

import (
	"fmt"
	"math/rand"

	"github.com/routelab/rcp/pkg/feed"
)

// simulator holds the generated topology and produces feed events over
// it. Addressing is deterministic for a given shape so repeated runs
// hit the same identifiers.
type simulator struct {
	rng      *rand.Rand
	routers  []string
	peers    map[string][]string // router -> peer addresses
	prefixes []string
	downPeer string // at most one flapped peer at a time
}

func newSimulator(rng *rand.Rand, routers, peersPer, prefixes int) *simulator {
	s := &simulator{
		rng:   rng,
		peers: make(map[string][]string),
	}
	for r := 0; r < routers; r++ {
		name := fmt.Sprintf("edge-%d", r+1)
		s.routers = append(s.routers, name)
		for p := 0; p < peersPer; p++ {
			s.peers[name] = append(s.peers[name], fmt.Sprintf("10.%d.%d.1", r+1, p+1))
		}
	}
	for i := 0; i < prefixes; i++ {
		s.prefixes = append(s.prefixes, fmt.Sprintf("10.%d.%d.0/24", 100+i/250, i%250))
	}
	return s
}

// bootstrap announces every router up, links between routers, and a
// full route table via every peer.
func (s *simulator) bootstrap() []*feed.Event {
	var events []*feed.Event

	for _, router := range s.routers {
		ev := feed.NewEvent(feed.EventRouterUp)
		ev.Router = router
		events = append(events, &ev)
	}
	for i := 1; i < len(s.routers); i++ {
		ev := feed.NewEvent(feed.EventLinkUp)
		ev.Router = s.routers[i-1]
		ev.LinkTo = s.routers[i]
		events = append(events, &ev)
	}
	for _, router := range s.routers {
		for _, peer := range s.peers[router] {
			ev := feed.NewEvent(feed.EventPeerUp)
			ev.Router = router
			ev.Peer = peer
			events = append(events, &ev)

			for _, prefix := range s.prefixes {
				events = append(events, s.routeUp(router, peer, prefix))
			}
		}
	}
	return events
}

// churn emits one steady-state event: mostly route re-advertisements
// with shifted attributes, plus periodic link stats.
func (s *simulator) churn() *feed.Event {
	if s.rng.Intn(10) == 0 && len(s.routers) > 1 {
		i := s.rng.Intn(len(s.routers) - 1)
		ev := feed.NewEvent(feed.EventLinkStats)
		ev.Router = s.routers[i]
		ev.LinkTo = s.routers[i+1]
		ev.Link = &feed.LinkStats{
			Bandwidth:   10e9,
			Latency:     0.5 + s.rng.Float64()*20,
			Loss:        s.rng.Float64() * 0.01,
			Utilization: s.rng.Float64(),
		}
		return &ev
	}

	router := s.routers[s.rng.Intn(len(s.routers))]
	peer := s.peers[router][s.rng.Intn(len(s.peers[router]))]
	prefix := s.prefixes[s.rng.Intn(len(s.prefixes))]
	return s.routeUp(router, peer, prefix)
}

// flapPeer takes one peer down, or brings the previously flapped one
// back up.
func (s *simulator) flapPeer() []*feed.Event {
	if s.downPeer != "" {
		router, peer := s.splitFlapped()
		s.downPeer = ""
		ev := feed.NewEvent(feed.EventPeerUp)
		ev.Router = router
		ev.Peer = peer
		return []*feed.Event{&ev}
	}

	router := s.routers[s.rng.Intn(len(s.routers))]
	peer := s.peers[router][s.rng.Intn(len(s.peers[router]))]
	s.downPeer = router + "|" + peer
	ev := feed.NewEvent(feed.EventPeerDown)
	ev.Router = router
	ev.Peer = peer
	return []*feed.Event{&ev}
}

func (s *simulator) splitFlapped() (router, peer string) {
	for i := 0; i < len(s.downPeer); i++ {
		if s.downPeer[i] == '|' {
			return s.downPeer[:i], s.downPeer[i+1:]
		}
	}
	return s.downPeer, ""
}

func (s *simulator) routeUp(router, peer, prefix string) *feed.Event {
	localPref := int64(100 + 10*s.rng.Intn(3))
	med := int64(s.rng.Intn(50))
	origin := []string{"igp", "egp", "incomplete"}[s.rng.Intn(3)]

	ev := feed.NewEvent(feed.EventRouteUp)
	ev.Router = router
	ev.Peer = peer
	ev.Prefix = prefix
	ev.NextHop = peer
	ev.LocalPref = &localPref
	ev.MED = &med
	ev.Origin = origin
	ev.ASPath = []string{fmt.Sprintf("651%02d", s.rng.Intn(10)), "65000"}
	return &ev
}
