package graph

// View is an immutable, consistent snapshot of the graph. All data is
// deep-copied at snapshot time; accessors return interior pointers that
// callers must treat as read-only.
type View struct {
	version     Version
	nodes       map[NodeID]*Node
	edges       map[EdgeKey]*Edge
	outgoing    map[NodeID][]EdgeKey
	incoming    map[NodeID][]EdgeKey
	nodesByKind map[Kind][]NodeID
}

// Snapshot returns an immutable consistent view of the current state.
func (s *Store) Snapshot() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v := &View{
		version:     s.version,
		nodes:       make(map[NodeID]*Node, len(s.nodes)),
		edges:       make(map[EdgeKey]*Edge, len(s.edges)),
		outgoing:    make(map[NodeID][]EdgeKey, len(s.outgoing)),
		incoming:    make(map[NodeID][]EdgeKey, len(s.incoming)),
		nodesByKind: make(map[Kind][]NodeID, len(s.nodesByKind)),
	}
	for id, node := range s.nodes {
		v.nodes[id] = node.Clone()
	}
	for key, edge := range s.edges {
		v.edges[key] = edge.Clone()
	}
	for id, keys := range s.outgoing {
		list := make([]EdgeKey, 0, len(keys))
		for key := range keys {
			list = append(list, key)
		}
		v.outgoing[id] = list
	}
	for id, keys := range s.incoming {
		list := make([]EdgeKey, 0, len(keys))
		for key := range keys {
			list = append(list, key)
		}
		v.incoming[id] = list
	}
	for kind, ids := range s.nodesByKind {
		list := make([]NodeID, 0, len(ids))
		for id := range ids {
			list = append(list, id)
		}
		v.nodesByKind[kind] = list
	}

	s.metrics.GraphSnapshotsTotal.Inc()
	return v
}

// Version returns the commit counter this view was taken at
func (v *View) Version() Version {
	return v.version
}

// Node returns the node, or nil if absent
func (v *View) Node(id NodeID) *Node {
	return v.nodes[id]
}

// Edge returns the edge, or nil if absent
func (v *View) Edge(key EdgeKey) *Edge {
	return v.edges[key]
}

// Outgoing returns the keys of edges leaving the node, optionally
// filtered by kind
func (v *View) Outgoing(id NodeID, kind Kind) []EdgeKey {
	return filterKeys(v.outgoing[id], kind)
}

// Incoming returns the keys of edges entering the node, optionally
// filtered by kind
func (v *View) Incoming(id NodeID, kind Kind) []EdgeKey {
	return filterKeys(v.incoming[id], kind)
}

func filterKeys(keys []EdgeKey, kind Kind) []EdgeKey {
	if kind == "" {
		return keys
	}
	var out []EdgeKey
	for _, key := range keys {
		if key.Kind == kind {
			out = append(out, key)
		}
	}
	return out
}

// NodesByKind returns the IDs of all nodes of a kind
func (v *View) NodesByKind(kind Kind) []NodeID {
	return v.nodesByKind[kind]
}

// NodeCount returns the number of nodes in the view
func (v *View) NodeCount() int {
	return len(v.nodes)
}

// EdgeCount returns the number of edges in the view
func (v *View) EdgeCount() int {
	return len(v.edges)
}
