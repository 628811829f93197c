package ingest

import (
	"github.com/routelab/rcp/pkg/feed"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/model"
)

// buildMutations derives the mutations an event implies against the
// given snapshot. An empty slice means the graph already reflects the
// event.
func buildMutations(snap *graph.View, ev *feed.Event) []graph.Mutation {
	switch ev.Type {
	case feed.EventRouteUp:
		return routeUp(snap, ev)
	case feed.EventRouteDown:
		return routeDown(snap, ev)
	case feed.EventPeerUp, feed.EventPeerDown:
		return peerState(snap, ev, ev.Type == feed.EventPeerUp)
	case feed.EventRouterUp, feed.EventRouterDown:
		return routerState(snap, ev, ev.Type == feed.EventRouterUp)
	case feed.EventLinkUp, feed.EventLinkDown:
		return linkState(snap, ev, ev.Type == feed.EventLinkUp)
	case feed.EventLinkStats:
		return linkStats(snap, ev)
	}
	return nil
}

// ensureNode appends an upsert when the node is absent from the snapshot
func ensureNode(snap *graph.View, muts []graph.Mutation, id graph.NodeID, kind graph.Kind) []graph.Mutation {
	if id == "" || snap.Node(id) != nil {
		return muts
	}
	return append(muts, graph.UpsertNode(id, kind, nil))
}

func routeUp(snap *graph.View, ev *feed.Event) []graph.Mutation {
	localPref := model.DefaultLocalPref
	if ev.LocalPref != nil {
		localPref = *ev.LocalPref
	}
	med := int64(0)
	if ev.MED != nil {
		med = *ev.MED
	}
	origin := ev.Origin
	if origin == "" {
		origin = model.OriginIncomplete
	}
	attrs := model.RouteAttrs(localPref, ev.ASPath, origin, med, ev.NextHop)

	key := model.RouteKey(graph.NodeID(ev.Router), graph.NodeID(ev.Prefix), graph.PeerID(ev.Peer))
	if existing := snap.Edge(key); existing != nil && graph.AttrsEqual(existing.Attrs, attrs) {
		return nil
	}

	var muts []graph.Mutation
	muts = ensureNode(snap, muts, graph.NodeID(ev.Router), model.KindRouter)
	muts = ensureNode(snap, muts, graph.NodeID(ev.Peer), model.KindPeer)
	muts = ensureNode(snap, muts, graph.NodeID(ev.Prefix), model.KindPrefix)
	muts = ensureNode(snap, muts, graph.NodeID(ev.NextHop), model.KindNextHop)
	return append(muts, graph.UpsertEdge(key, attrs))
}

// routeDown removes the route edge. A withdrawal of a route we never
// held is a no-op.
func routeDown(snap *graph.View, ev *feed.Event) []graph.Mutation {
	key := model.RouteKey(graph.NodeID(ev.Router), graph.NodeID(ev.Prefix), graph.PeerID(ev.Peer))
	if snap.Edge(key) == nil {
		return nil
	}
	return []graph.Mutation{graph.DeleteEdge(key)}
}

func peerState(snap *graph.View, ev *feed.Event, up bool) []graph.Mutation {
	peerID := graph.NodeID(ev.Peer)
	routerID := graph.NodeID(ev.Router)
	sessKey := model.SessionKey(routerID, peerID)

	peerNode := snap.Node(peerID)
	sess := snap.Edge(sessKey)
	if peerNode != nil && model.IsNodeUp(peerNode) == up &&
		sess != nil && model.IsEdgeUp(sess) == up {
		return nil
	}

	var muts []graph.Mutation
	muts = ensureNode(snap, muts, routerID, model.KindRouter)
	muts = append(muts, graph.UpsertNode(peerID, model.KindPeer, model.UpAttrs(up)))
	muts = append(muts, graph.UpsertEdge(sessKey, model.UpAttrs(up)))
	return muts
}

func routerState(snap *graph.View, ev *feed.Event, up bool) []graph.Mutation {
	routerID := graph.NodeID(ev.Router)
	if node := snap.Node(routerID); node != nil && model.IsNodeUp(node) == up {
		return nil
	}
	return []graph.Mutation{graph.UpsertNode(routerID, model.KindRouter, model.UpAttrs(up))}
}

func linkState(snap *graph.View, ev *feed.Event, up bool) []graph.Mutation {
	from := graph.NodeID(ev.Router)
	to := graph.NodeID(ev.LinkTo)
	key := model.LinkKey(from, to)

	// Preserve measured stats across liveness flaps
	attrs := map[string]graph.Value{model.AttrUp: graph.BoolValue(up)}
	if existing := snap.Edge(key); existing != nil {
		if model.IsEdgeUp(existing) == up {
			return nil
		}
		attrs = graph.CloneAttrs(existing.Attrs)
		attrs[model.AttrUp] = graph.BoolValue(up)
	}

	var muts []graph.Mutation
	muts = ensureNode(snap, muts, from, model.KindRouter)
	muts = ensureNode(snap, muts, to, model.KindRouter)
	return append(muts, graph.UpsertEdge(key, attrs))
}

func linkStats(snap *graph.View, ev *feed.Event) []graph.Mutation {
	from := graph.NodeID(ev.Router)
	to := graph.NodeID(ev.LinkTo)
	key := model.LinkKey(from, to)

	stats := model.LinkStatsAttrs(ev.Link.Bandwidth, ev.Link.Latency, ev.Link.Loss, ev.Link.Utilization)

	attrs := stats
	if existing := snap.Edge(key); existing != nil {
		attrs = graph.CloneAttrs(existing.Attrs)
		for k, v := range stats {
			attrs[k] = v
		}
		if graph.AttrsEqual(existing.Attrs, attrs) {
			return nil
		}
	}

	var muts []graph.Mutation
	muts = ensureNode(snap, muts, from, model.KindRouter)
	muts = ensureNode(snap, muts, to, model.KindRouter)
	return append(muts, graph.UpsertEdge(key, attrs))
}
