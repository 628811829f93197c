package selector

import (
	"github.com/routelab/rcp/pkg/graph"
)

// LinkMetrics summarizes measured egress link quality when available
type LinkMetrics struct {
	Bandwidth   float64 `json:"bandwidth"`
	Latency     float64 `json:"latency"`
	Loss        float64 `json:"loss"`
	Utilization float64 `json:"utilization"`
}

// Candidate is one ranked way to reach a destination prefix. Candidates
// are derived from a snapshot and never persisted; they are recomputed
// from graph state on every selection run.
type Candidate struct {
	Prefix    graph.NodeID    `json:"prefix"`
	Router    graph.NodeID    `json:"router"`
	Peer      graph.PeerID    `json:"peer"`
	NextHop   string          `json:"next_hop,omitempty"`
	LocalPref int64           `json:"local_pref"`
	Hops      int             `json:"hops"`
	Origin    string          `json:"origin"`
	MED       int64           `json:"med"`
	Path      []graph.EdgeKey `json:"-"`
	Link      *LinkMetrics    `json:"link,omitempty"`
}

// Compare orders candidates by preference: higher local-pref first, then
// fewer hops, lower origin rank, lower MED, then tie-breaks that make
// the order total so equal-preference candidates still rank
// deterministically. Returns <0 when a ranks before b.
func Compare(a, b *Candidate) int {
	if a.LocalPref != b.LocalPref {
		if a.LocalPref > b.LocalPref {
			return -1
		}
		return 1
	}
	if a.Hops != b.Hops {
		return a.Hops - b.Hops
	}
	if ra, rb := originRank(a.Origin), originRank(b.Origin); ra != rb {
		return ra - rb
	}
	if a.MED != b.MED {
		if a.MED < b.MED {
			return -1
		}
		return 1
	}
	if a.Peer != b.Peer {
		if a.Peer < b.Peer {
			return -1
		}
		return 1
	}
	if a.Router != b.Router {
		if a.Router < b.Router {
			return -1
		}
		return 1
	}
	if a.NextHop != b.NextHop {
		if a.NextHop < b.NextHop {
			return -1
		}
		return 1
	}
	return comparePaths(a.Path, b.Path)
}

func comparePaths(a, b []graph.EdgeKey) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i].String() < b[i].String() {
				return -1
			}
			return 1
		}
	}
	return len(a) - len(b)
}
