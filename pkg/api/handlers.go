package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/routelab/rcp/pkg/fib"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/model"
	"github.com/routelab/rcp/pkg/selector"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	s.respondJSON(w, http.StatusOK, snap.Version(), HealthResponse{
		Status:       "ok",
		GraphVersion: uint64(snap.Version()),
		UptimeSecs:   time.Since(s.startTime).Seconds(),
	})
}

func (s *Server) handleNode(w http.ResponseWriter, r *http.Request) {
	id := graph.NodeID(mux.Vars(r)["id"])

	snap := s.store.Snapshot()
	node := snap.Node(id)
	if node == nil {
		s.respondError(w, http.StatusNotFound, "node not found")
		return
	}

	resp := NodeResponse{
		GraphVersion: uint64(snap.Version()),
		Node:         node,
	}
	for _, key := range snap.Outgoing(id, "") {
		resp.Outgoing = append(resp.Outgoing, snap.Edge(key))
	}
	for _, key := range snap.Incoming(id, "") {
		resp.Incoming = append(resp.Incoming, snap.Edge(key))
	}
	s.respondJSON(w, http.StatusOK, snap.Version(), resp)
}

// handlePaths returns ranked candidates for a prefix. With ?from=<router>
// ranking includes the internal distance from that vantage router.
func (s *Server) handlePaths(w http.ResponseWriter, r *http.Request) {
	prefix := mux.Vars(r)["prefix"]
	from := r.URL.Query().Get("from")

	snap := s.store.Snapshot()
	if node := snap.Node(graph.NodeID(prefix)); node == nil || node.Kind != model.KindPrefix {
		s.respondError(w, http.StatusNotFound, "prefix not found")
		return
	}

	var candidates []selector.Candidate
	if from != "" {
		if snap.Node(graph.NodeID(from)) == nil {
			s.respondError(w, http.StatusNotFound, "vantage router not found")
			return
		}
		candidates = selector.SelectPathsFrom(graph.NodeID(from), graph.NodeID(prefix), snap)
	} else {
		candidates = selector.SelectPaths(graph.NodeID(prefix), snap)
	}

	s.respondJSON(w, http.StatusOK, snap.Version(), PathsResponse{
		GraphVersion: uint64(snap.Version()),
		Prefix:       prefix,
		From:         from,
		Candidates:   candidates,
	})
}

func (s *Server) handleFib(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()
	statuses := s.table.All()
	if statuses == nil {
		statuses = []fib.Status{}
	}
	s.respondJSON(w, http.StatusOK, snap.Version(), FibResponse{
		GraphVersion: uint64(snap.Version()),
		Statuses:     statuses,
	})
}

func (s *Server) handleFibPrefix(w http.ResponseWriter, r *http.Request) {
	prefix := mux.Vars(r)["prefix"]

	snap := s.store.Snapshot()
	s.respondJSON(w, http.StatusOK, snap.Version(), FibResponse{
		GraphVersion: uint64(snap.Version()),
		Statuses:     []fib.Status{s.table.Get(prefix)},
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.store.Snapshot()

	installed, failed := 0, 0
	statuses := s.table.All()
	for _, st := range statuses {
		switch st.State {
		case fib.StateInstalled:
			installed++
		case fib.StateFailed:
			failed++
		}
	}

	s.respondJSON(w, http.StatusOK, snap.Version(), StatsResponse{
		GraphVersion:  uint64(snap.Version()),
		Nodes:         snap.NodeCount(),
		Edges:         snap.EdgeCount(),
		FibInstalled:  installed,
		FibFailed:     failed,
		FibTotal:      len(statuses),
		StartedAt:     s.startTime,
		EventsDropped: s.store.EventsDropped(),
	})
}
