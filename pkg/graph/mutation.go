package graph

// MutationOp names a store operation
type MutationOp string

const (
	OpUpsertNode MutationOp = "upsert_node"
	OpDeleteNode MutationOp = "delete_node"
	OpUpsertEdge MutationOp = "upsert_edge"
	OpDeleteEdge MutationOp = "delete_edge"
)

// Precondition guards a mutation under optimistic concurrency. A mutation
// built against a snapshot carries the snapshot's version; if the store
// has moved past it the commit is rejected with a ConflictError.
type Precondition struct {
	Version Version
}

// Mutation is one unit of change. Exactly the fields the Op requires are
// read; the rest are ignored.
type Mutation struct {
	Op      MutationOp
	Node    *Node         // upsert_node: ID, Kind, Attrs
	NodeID  NodeID        // delete_node
	Edge    *Edge         // upsert_edge: Key, Attrs
	EdgeKey EdgeKey       // delete_edge
	Expect  *Precondition // optional OCC guard
}

// UpsertNode builds an upsert-node mutation
func UpsertNode(id NodeID, kind Kind, attrs map[string]Value) Mutation {
	return Mutation{
		Op:   OpUpsertNode,
		Node: &Node{ID: id, Kind: kind, Attrs: attrs},
	}
}

// DeleteNode builds a delete-node mutation
func DeleteNode(id NodeID) Mutation {
	return Mutation{Op: OpDeleteNode, NodeID: id}
}

// UpsertEdge builds an upsert-edge mutation
func UpsertEdge(key EdgeKey, attrs map[string]Value) Mutation {
	return Mutation{
		Op:   OpUpsertEdge,
		Edge: &Edge{Key: key, Attrs: attrs},
	}
}

// DeleteEdge builds a delete-edge mutation
func DeleteEdge(key EdgeKey) Mutation {
	return Mutation{Op: OpDeleteEdge, EdgeKey: key}
}

// WithExpect attaches an optimistic precondition to the mutation
func (m Mutation) WithExpect(v Version) Mutation {
	m.Expect = &Precondition{Version: v}
	return m
}

// validate checks structural validity before any state is touched
func (m *Mutation) validate() error {
	switch m.Op {
	case OpUpsertNode:
		if m.Node == nil || m.Node.ID == "" || m.Node.Kind == "" {
			return NewError("Apply").Mutation().Context("upsert_node requires node with ID and kind").Cause(ErrInvalidMutation).Err()
		}
	case OpDeleteNode:
		if m.NodeID == "" {
			return NewError("Apply").Mutation().Context("delete_node requires node ID").Cause(ErrInvalidMutation).Err()
		}
	case OpUpsertEdge:
		if m.Edge == nil || m.Edge.Key.From == "" || m.Edge.Key.To == "" || m.Edge.Key.Kind == "" {
			return NewError("Apply").Mutation().Context("upsert_edge requires edge with full key").Cause(ErrInvalidMutation).Err()
		}
	case OpDeleteEdge:
		if m.EdgeKey.From == "" || m.EdgeKey.To == "" || m.EdgeKey.Kind == "" {
			return NewError("Apply").Mutation().Context("delete_edge requires full edge key").Cause(ErrInvalidMutation).Err()
		}
	default:
		return NewError("Apply").Mutation().Context(string(m.Op)).Cause(ErrInvalidMutation).Err()
	}
	return nil
}
