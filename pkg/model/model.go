// Package model defines the routing data model layered on the generic
// graph: the node and edge kinds, attribute names and defaults shared by
// the ingestor, the selector and the query service.
package model

import (
	"github.com/routelab/rcp/pkg/graph"
)

// Node kinds
const (
	KindRouter  graph.Kind = "router"  // border router under our control
	KindPeer    graph.Kind = "peer"    // external BGP neighbor
	KindPrefix  graph.Kind = "prefix"  // destination prefix (CIDR)
	KindNextHop graph.Kind = "nexthop" // egress next-hop address
)

// Edge kinds
const (
	KindRoute   graph.Kind = "route"   // router -> prefix, learned via a peer
	KindSession graph.Kind = "session" // router -> peer BGP session
	KindLink    graph.Kind = "link"    // router -> router or router -> nexthop adjacency
)

// Attribute names
const (
	AttrUp          = "up"
	AttrLocalPref   = "local_pref"
	AttrASPath      = "as_path"
	AttrOrigin      = "origin"
	AttrMED         = "med"
	AttrNextHop     = "next_hop"
	AttrBandwidth   = "bandwidth"
	AttrLatency     = "latency"
	AttrLoss        = "loss"
	AttrUtilization = "utilization"
)

// Origin codes as carried in route attributes
const (
	OriginIGP        = "igp"
	OriginEGP        = "egp"
	OriginIncomplete = "incomplete"
)

// DefaultLocalPref applies when a route carries no local preference.
const DefaultLocalPref int64 = 100

// OriginRank maps an origin code to its preference rank; lower wins.
// Unknown codes rank after incomplete so they never displace real ones.
func OriginRank(origin string) int {
	switch origin {
	case OriginIGP:
		return 0
	case OriginEGP:
		return 1
	case OriginIncomplete:
		return 2
	default:
		return 3
	}
}

// RouteKey builds the edge key for a route learned via a peer
func RouteKey(router graph.NodeID, prefix graph.NodeID, peer graph.PeerID) graph.EdgeKey {
	return graph.EdgeKey{From: router, To: prefix, Kind: KindRoute, Peer: peer}
}

// SessionKey builds the edge key for a router's session with a peer
func SessionKey(router graph.NodeID, peer graph.NodeID) graph.EdgeKey {
	return graph.EdgeKey{From: router, To: peer, Kind: KindSession}
}

// LinkKey builds the edge key for an adjacency
func LinkKey(from, to graph.NodeID) graph.EdgeKey {
	return graph.EdgeKey{From: from, To: to, Kind: KindLink}
}

// RouteAttrs assembles the attribute map for a route edge
func RouteAttrs(localPref int64, asPath []string, origin string, med int64, nextHop string) map[string]graph.Value {
	attrs := map[string]graph.Value{
		AttrLocalPref: graph.IntValue(localPref),
		AttrOrigin:    graph.StringValue(origin),
		AttrMED:       graph.IntValue(med),
	}
	if len(asPath) > 0 {
		attrs[AttrASPath] = graph.StringListValue(asPath)
	}
	if nextHop != "" {
		attrs[AttrNextHop] = graph.StringValue(nextHop)
	}
	return attrs
}

// UpAttrs returns the attribute map for a liveness-bearing node or edge
func UpAttrs(up bool) map[string]graph.Value {
	return map[string]graph.Value{AttrUp: graph.BoolValue(up)}
}

// LinkStatsAttrs assembles the attribute map for a link-stats refresh
func LinkStatsAttrs(bandwidth, latency, loss, utilization float64) map[string]graph.Value {
	return map[string]graph.Value{
		AttrBandwidth:   graph.FloatValue(bandwidth),
		AttrLatency:     graph.FloatValue(latency),
		AttrLoss:        graph.FloatValue(loss),
		AttrUtilization: graph.FloatValue(utilization),
	}
}

// LocalPref reads a route edge's local preference, defaulted
func LocalPref(e *graph.Edge) int64 {
	if v, ok := e.GetAttr(AttrLocalPref); ok && v.Type == graph.TypeInt {
		return v.Int
	}
	return DefaultLocalPref
}

// MED reads a route edge's multi-exit discriminator; absent means zero
func MED(e *graph.Edge) int64 {
	if v, ok := e.GetAttr(AttrMED); ok && v.Type == graph.TypeInt {
		return v.Int
	}
	return 0
}

// Origin reads a route edge's origin code; absent means incomplete
func Origin(e *graph.Edge) string {
	if v, ok := e.GetAttr(AttrOrigin); ok && v.Type == graph.TypeString {
		return v.Str
	}
	return OriginIncomplete
}

// NextHop reads a route edge's next-hop address
func NextHop(e *graph.Edge) string {
	if v, ok := e.GetAttr(AttrNextHop); ok && v.Type == graph.TypeString {
		return v.Str
	}
	return ""
}

// ASPathLen reads the AS path length of a route edge
func ASPathLen(e *graph.Edge) int {
	if v, ok := e.GetAttr(AttrASPath); ok && v.Type == graph.TypeStringList {
		return len(v.List)
	}
	return 0
}

// IsNodeUp reports node liveness; nodes without the attribute count as up
func IsNodeUp(n *graph.Node) bool {
	if n == nil {
		return false
	}
	if v, ok := n.GetAttr(AttrUp); ok && v.Type == graph.TypeBool {
		return v.Bool
	}
	return true
}

// IsEdgeUp reports edge liveness; edges without the attribute count as up
func IsEdgeUp(e *graph.Edge) bool {
	if e == nil {
		return false
	}
	if v, ok := e.GetAttr(AttrUp); ok && v.Type == graph.TypeBool {
		return v.Bool
	}
	return true
}
