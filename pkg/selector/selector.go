// Package selector ranks the ways to reach a destination prefix. It
// replaces the distributed BGP decision process with one deterministic
// comparator over a consistent graph snapshot.
package selector

import (
	"sort"
	"time"

	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/metrics"
	"github.com/routelab/rcp/pkg/model"
)

func originRank(origin string) int {
	return model.OriginRank(origin)
}

// SelectPaths returns every usable path to the destination, best first.
// A destination with no usable path yields an empty slice, not an error:
// unreachable is a state, not a failure. The result ordering is total,
// so the same snapshot always produces the same ranking.
func SelectPaths(dest graph.NodeID, view *graph.View) []Candidate {
	start := time.Now()
	candidates := collect(dest, view)

	sort.Slice(candidates, func(i, j int) bool {
		return Compare(&candidates[i], &candidates[j]) < 0
	})

	metrics.DefaultRegistry().RecordSelection(len(candidates), time.Since(start))
	return candidates
}

// SelectPathsFrom ranks paths as seen from a vantage router: each
// candidate's hop count additionally carries the shortest up-link
// distance from the source to the egress router, and candidates whose
// egress is unreachable from the source are excluded.
func SelectPathsFrom(source, dest graph.NodeID, view *graph.View) []Candidate {
	start := time.Now()

	dist, paths := linkDistances(source, view)
	all := collect(dest, view)
	candidates := all[:0]
	for _, c := range all {
		d, ok := dist[c.Router]
		if !ok {
			continue
		}
		c.Hops += d
		c.Path = append(append([]graph.EdgeKey{}, paths[c.Router]...), c.Path...)
		candidates = append(candidates, c)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return Compare(&candidates[i], &candidates[j]) < 0
	})

	metrics.DefaultRegistry().RecordSelection(len(candidates), time.Since(start))
	return candidates
}

// collect gathers the usable candidates for a destination: one per route
// edge whose egress router, learning peer and session are all up.
func collect(dest graph.NodeID, view *graph.View) []Candidate {
	node := view.Node(dest)
	if node == nil || node.Kind != model.KindPrefix {
		return nil
	}

	var candidates []Candidate
	for _, key := range view.Incoming(dest, model.KindRoute) {
		edge := view.Edge(key)
		if edge == nil {
			continue
		}
		router := view.Node(key.From)
		if !model.IsNodeUp(router) {
			continue
		}
		if !peerUsable(view, key.From, key.Peer) {
			continue
		}

		hops := model.ASPathLen(edge)
		if hops == 0 {
			hops = 1
		}

		c := Candidate{
			Prefix:    dest,
			Router:    key.From,
			Peer:      key.Peer,
			NextHop:   model.NextHop(edge),
			LocalPref: model.LocalPref(edge),
			Hops:      hops,
			Origin:    model.Origin(edge),
			MED:       model.MED(edge),
			Path:      []graph.EdgeKey{key},
		}
		if c.NextHop != "" {
			c.Link = linkMetrics(view, key.From, graph.NodeID(c.NextHop))
		}
		candidates = append(candidates, c)
	}
	return candidates
}

// peerUsable checks the learning peer's liveness and its session with
// the egress router. Peers the graph has never heard lifecycle events
// for count as up.
func peerUsable(view *graph.View, router graph.NodeID, peer graph.PeerID) bool {
	if peer == "" {
		return true
	}
	peerNode := view.Node(graph.NodeID(peer))
	if peerNode != nil && !model.IsNodeUp(peerNode) {
		return false
	}
	if sess := view.Edge(model.SessionKey(router, graph.NodeID(peer))); sess != nil && !model.IsEdgeUp(sess) {
		return false
	}
	return true
}

func linkMetrics(view *graph.View, router, nextHop graph.NodeID) *LinkMetrics {
	edge := view.Edge(model.LinkKey(router, nextHop))
	if edge == nil {
		return nil
	}
	m := &LinkMetrics{}
	if v, ok := edge.GetAttr(model.AttrBandwidth); ok {
		m.Bandwidth = v.Float
	}
	if v, ok := edge.GetAttr(model.AttrLatency); ok {
		m.Latency = v.Float
	}
	if v, ok := edge.GetAttr(model.AttrLoss); ok {
		m.Loss = v.Float
	}
	if v, ok := edge.GetAttr(model.AttrUtilization); ok {
		m.Utilization = v.Float
	}
	return m
}

// linkDistances runs a breadth-first search over up links from the
// source, returning hop distances and the edge path to each reached
// router.
func linkDistances(source graph.NodeID, view *graph.View) (map[graph.NodeID]int, map[graph.NodeID][]graph.EdgeKey) {
	dist := map[graph.NodeID]int{source: 0}
	paths := map[graph.NodeID][]graph.EdgeKey{source: nil}

	queue := []graph.NodeID{source}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, key := range view.Outgoing(current, model.KindLink) {
			edge := view.Edge(key)
			if !model.IsEdgeUp(edge) {
				continue
			}
			if !model.IsNodeUp(view.Node(key.To)) {
				continue
			}
			if _, seen := dist[key.To]; seen {
				continue
			}
			dist[key.To] = dist[current] + 1
			paths[key.To] = append(append([]graph.EdgeKey{}, paths[current]...), key)
			queue = append(queue, key.To)
		}
	}
	return dist, paths
}
