package graph

import (
	"context"
	"sync"
	"time"

	"github.com/routelab/rcp/pkg/logging"
	"github.com/routelab/rcp/pkg/metrics"
	"github.com/routelab/rcp/pkg/pubsub"
)

// Store is the versioned in-memory graph of routing state. All commits
// are serialized under the write lock; readers take immutable snapshots
// and never block writers for longer than the copy.
type Store struct {
	nodes       map[NodeID]*Node
	edges       map[EdgeKey]*Edge
	outgoing    map[NodeID]map[EdgeKey]struct{}
	incoming    map[NodeID]map[EdgeKey]struct{}
	nodesByKind map[Kind]map[NodeID]struct{}

	version Version
	closed  bool
	mu      sync.RWMutex

	bus     *pubsub.Bus[ChangeEvent]
	logger  logging.Logger
	metrics *metrics.Registry
}

// StoreConfig holds optional collaborators for the store
type StoreConfig struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
}

// NewStore creates a store with default logging and metrics
func NewStore() *Store {
	return NewStoreWithConfig(StoreConfig{})
}

// NewStoreWithConfig creates a store with explicit collaborators
func NewStoreWithConfig(cfg StoreConfig) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	reg := cfg.Metrics
	if reg == nil {
		reg = metrics.DefaultRegistry()
	}
	return &Store{
		nodes:       make(map[NodeID]*Node),
		edges:       make(map[EdgeKey]*Edge),
		outgoing:    make(map[NodeID]map[EdgeKey]struct{}),
		incoming:    make(map[NodeID]map[EdgeKey]struct{}),
		nodesByKind: make(map[Kind]map[NodeID]struct{}),
		bus:         pubsub.NewBus[ChangeEvent](),
		logger:      logger.With(logging.Component("graph")),
		metrics:     reg,
	}
}

// Version returns the current commit counter
func (s *Store) Version() Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Apply commits a single mutation. On success the returned version is
// the commit this mutation produced.
func (s *Store) Apply(m Mutation) (Version, error) {
	return s.ApplyBatch([]Mutation{m})
}

// ApplyBatch commits a set of mutations atomically: either every
// mutation applies under one version bump, or none do. Mutations are
// checked in order, so an edge may reference a node upserted earlier in
// the same batch.
func (s *Store) ApplyBatch(ms []Mutation) (Version, error) {
	if len(ms) == 0 {
		return s.Version(), nil
	}
	start := time.Now()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0, ErrStoreClosed
	}

	if err := s.checkBatch(ms); err != nil {
		s.mu.Unlock()
		s.metrics.RecordMutation(string(ms[0].Op), "rejected", time.Since(start))
		return 0, err
	}

	s.version++
	committed := s.version
	now := time.Now()
	events := make([]ChangeEvent, 0, len(ms))
	for i := range ms {
		events = append(events, s.applyOne(&ms[i], committed, now))
	}
	s.metrics.GraphVersion.Set(float64(committed))
	s.mu.Unlock()

	for i := range events {
		s.bus.Publish(TopicChanges, events[i])
	}
	for i := range ms {
		s.metrics.RecordMutation(string(ms[i].Op), "committed", time.Since(start))
	}
	s.logger.Debug("batch committed",
		logging.Version(uint64(committed)),
		logging.Count(len(ms)))

	return committed, nil
}

// checkBatch validates every mutation against the current state plus the
// effect of earlier mutations in the same batch. Called under the write
// lock; must not modify store state.
func (s *Store) checkBatch(ms []Mutation) error {
	addedNodes := make(map[NodeID]Kind)
	deletedNodes := make(map[NodeID]bool)
	addedEdges := make(map[EdgeKey]bool)
	deletedEdges := make(map[EdgeKey]bool)

	nodeExists := func(id NodeID) bool {
		if deletedNodes[id] {
			return false
		}
		if _, ok := addedNodes[id]; ok {
			return true
		}
		_, ok := s.nodes[id]
		return ok
	}
	edgeExists := func(key EdgeKey) bool {
		if deletedEdges[key] {
			return false
		}
		if addedEdges[key] {
			return true
		}
		_, ok := s.edges[key]
		return ok
	}

	for i := range ms {
		m := &ms[i]
		if err := m.validate(); err != nil {
			return err
		}
		if m.Expect != nil && m.Expect.Version != s.version {
			return &ConflictError{Expected: m.Expect.Version, Actual: s.version}
		}

		switch m.Op {
		case OpUpsertNode:
			if existing, ok := s.nodes[m.Node.ID]; ok && !deletedNodes[m.Node.ID] && existing.Kind != m.Node.Kind {
				return NewError("Apply").Node(m.Node.ID).Context("kind mismatch").Cause(ErrInvalidMutation).Err()
			}
			addedNodes[m.Node.ID] = m.Node.Kind
			delete(deletedNodes, m.Node.ID)

		case OpDeleteNode:
			if !nodeExists(m.NodeID) {
				return NodeNotFoundError("Apply", m.NodeID)
			}
			for key := range s.outgoing[m.NodeID] {
				if edgeExists(key) {
					return NewError("Apply").Node(m.NodeID).Cause(ErrNodeInUse).Err()
				}
			}
			for key := range s.incoming[m.NodeID] {
				if edgeExists(key) {
					return NewError("Apply").Node(m.NodeID).Cause(ErrNodeInUse).Err()
				}
			}
			for key := range addedEdges {
				if key.From == m.NodeID || key.To == m.NodeID {
					return NewError("Apply").Node(m.NodeID).Cause(ErrNodeInUse).Err()
				}
			}
			deletedNodes[m.NodeID] = true
			delete(addedNodes, m.NodeID)

		case OpUpsertEdge:
			if !nodeExists(m.Edge.Key.From) {
				return NodeNotFoundError("Apply", m.Edge.Key.From)
			}
			if !nodeExists(m.Edge.Key.To) {
				return NodeNotFoundError("Apply", m.Edge.Key.To)
			}
			addedEdges[m.Edge.Key] = true
			delete(deletedEdges, m.Edge.Key)

		case OpDeleteEdge:
			if !edgeExists(m.EdgeKey) {
				return EdgeNotFoundError("Apply", m.EdgeKey)
			}
			deletedEdges[m.EdgeKey] = true
			delete(addedEdges, m.EdgeKey)
		}
	}
	return nil
}

// applyOne mutates store state for a pre-validated mutation and returns
// its change event. Called under the write lock.
func (s *Store) applyOne(m *Mutation, v Version, now time.Time) ChangeEvent {
	ev := ChangeEvent{Version: v, Op: m.Op, At: now}

	switch m.Op {
	case OpUpsertNode:
		existing, ok := s.nodes[m.Node.ID]
		if ok {
			existing.Attrs = CloneAttrs(m.Node.Attrs)
			existing.UpdatedAt = now.UnixNano()
		} else {
			existing = &Node{
				ID:        m.Node.ID,
				Kind:      m.Node.Kind,
				Attrs:     CloneAttrs(m.Node.Attrs),
				CreatedAt: now.UnixNano(),
				UpdatedAt: now.UnixNano(),
			}
			s.nodes[existing.ID] = existing
			if s.nodesByKind[existing.Kind] == nil {
				s.nodesByKind[existing.Kind] = make(map[NodeID]struct{})
			}
			s.nodesByKind[existing.Kind][existing.ID] = struct{}{}
		}
		ev.Node = existing.Clone()
		ev.NodeID = existing.ID

	case OpDeleteNode:
		node := s.nodes[m.NodeID]
		delete(s.nodes, m.NodeID)
		delete(s.nodesByKind[node.Kind], m.NodeID)
		delete(s.outgoing, m.NodeID)
		delete(s.incoming, m.NodeID)
		ev.Node = node
		ev.NodeID = m.NodeID

	case OpUpsertEdge:
		key := m.Edge.Key
		existing, ok := s.edges[key]
		if ok {
			existing.Attrs = CloneAttrs(m.Edge.Attrs)
			existing.Seq++
			existing.UpdatedAt = now.UnixNano()
		} else {
			existing = &Edge{
				Key:       key,
				Attrs:     CloneAttrs(m.Edge.Attrs),
				Seq:       1,
				CreatedAt: now.UnixNano(),
				UpdatedAt: now.UnixNano(),
			}
			s.edges[key] = existing
			if s.outgoing[key.From] == nil {
				s.outgoing[key.From] = make(map[EdgeKey]struct{})
			}
			s.outgoing[key.From][key] = struct{}{}
			if s.incoming[key.To] == nil {
				s.incoming[key.To] = make(map[EdgeKey]struct{})
			}
			s.incoming[key.To][key] = struct{}{}
		}
		ev.Edge = existing.Clone()
		ev.EdgeKey = key

	case OpDeleteEdge:
		edge := s.edges[m.EdgeKey]
		delete(s.edges, m.EdgeKey)
		delete(s.outgoing[m.EdgeKey.From], m.EdgeKey)
		delete(s.incoming[m.EdgeKey.To], m.EdgeKey)
		ev.Edge = edge
		ev.EdgeKey = m.EdgeKey
	}
	return ev
}

// GetNode returns a copy of the node, or ErrNodeNotFound
func (s *Store) GetNode(id NodeID) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node, ok := s.nodes[id]
	if !ok {
		return nil, NodeNotFoundError("GetNode", id)
	}
	return node.Clone(), nil
}

// GetEdge returns a copy of the edge, or ErrEdgeNotFound
func (s *Store) GetEdge(key EdgeKey) (*Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edge, ok := s.edges[key]
	if !ok {
		return nil, EdgeNotFoundError("GetEdge", key)
	}
	return edge.Clone(), nil
}

// NodeCount returns the number of nodes
func (s *Store) NodeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// EdgeCount returns the number of edges
func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.edges)
}

// SubscribeChanges subscribes to committed change events
func (s *Store) SubscribeChanges(ctx context.Context) (*pubsub.Subscription[ChangeEvent], error) {
	return s.bus.Subscribe(ctx, TopicChanges)
}

// EventsDropped reports change events discarded on full subscriber buffers
func (s *Store) EventsDropped() uint64 {
	return s.bus.Dropped()
}

// Close shuts the store down; further commits fail with ErrStoreClosed
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.bus.Shutdown()
}
