package api

import (
	"time"

	"github.com/routelab/rcp/pkg/fib"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/selector"
)

// VersionHeader carries the graph version a response was computed from.
// Clients compare tokens across reads to detect intervening changes.
const VersionHeader = "X-Graph-Version"

// ErrorResponse is the standard error body
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// NodeResponse describes one graph node with its adjacency
type NodeResponse struct {
	GraphVersion uint64        `json:"graph_version"`
	Node         *graph.Node   `json:"node"`
	Outgoing     []*graph.Edge `json:"outgoing,omitempty"`
	Incoming     []*graph.Edge `json:"incoming,omitempty"`
}

// PathsResponse lists the ranked candidates for a destination prefix.
// Candidates[0], when present, is the path selection would install.
type PathsResponse struct {
	GraphVersion uint64               `json:"graph_version"`
	Prefix       string               `json:"prefix"`
	From         string               `json:"from,omitempty"`
	Candidates   []selector.Candidate `json:"candidates"`
}

// FibResponse reports per-prefix reconciliation state
type FibResponse struct {
	GraphVersion uint64       `json:"graph_version"`
	Statuses     []fib.Status `json:"statuses"`
}

// HealthResponse is the liveness body
type HealthResponse struct {
	Status       string  `json:"status"`
	GraphVersion uint64  `json:"graph_version"`
	UptimeSecs   float64 `json:"uptime_seconds"`
}

// StatsResponse summarizes platform state
type StatsResponse struct {
	GraphVersion  uint64    `json:"graph_version"`
	Nodes         int       `json:"nodes"`
	Edges         int       `json:"edges"`
	FibInstalled  int       `json:"fib_installed"`
	FibFailed     int       `json:"fib_failed"`
	FibTotal      int       `json:"fib_total"`
	StartedAt     time.Time `json:"started_at"`
	EventsDropped uint64    `json:"events_dropped"`
}
