package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/routelab/rcp/pkg/fib"
	"github.com/routelab/rcp/pkg/graph"
	"github.com/routelab/rcp/pkg/model"
	"github.com/routelab/rcp/pkg/selector"
)

func testTopology(t *testing.T) *graph.Store {
	t.Helper()
	store := graph.NewStore()

	muts := []graph.Mutation{
		graph.UpsertNode("r1", model.KindRouter, nil),
		graph.UpsertNode("r2", model.KindRouter, nil),
		graph.UpsertNode("10.1.1.1", model.KindPeer, nil),
		graph.UpsertNode("10.2.2.2", model.KindPeer, nil),
		graph.UpsertNode("10.0.0.0/24", model.KindPrefix, nil),
		graph.UpsertNode("192.0.2.1", model.KindNextHop, nil),
		graph.UpsertNode("192.0.2.9", model.KindNextHop, nil),
		graph.UpsertEdge(
			model.RouteKey("r1", "10.0.0.0/24", "10.1.1.1"),
			model.RouteAttrs(100, nil, model.OriginIGP, 0, "192.0.2.1"),
		),
		graph.UpsertEdge(
			model.RouteKey("r2", "10.0.0.0/24", "10.2.2.2"),
			model.RouteAttrs(200, nil, model.OriginIGP, 0, "192.0.2.9"),
		),
		graph.UpsertEdge(model.LinkKey("r1", "r2"), nil),
	}
	if _, err := store.ApplyBatch(muts); err != nil {
		t.Fatalf("topology setup failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testServer(t *testing.T, store *graph.Store, cfg ServerConfig) (*Server, *fib.Table) {
	t.Helper()
	table := fib.NewTable()
	return NewServer(store, table, cfg), table
}

func get(t *testing.T, s *Server, path string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return rec
}

func TestHealthCarriesVersionToken(t *testing.T) {
	store := testTopology(t)
	s, _ := testServer(t, store, ServerConfig{})

	var resp HealthResponse
	rec := get(t, s, "/health", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d", rec.Code)
	}
	if resp.Status != "ok" {
		t.Errorf("Unexpected status %q", resp.Status)
	}
	if rec.Header().Get(VersionHeader) == "" {
		t.Error("Missing version header")
	}
	if resp.GraphVersion != uint64(store.Snapshot().Version()) {
		t.Errorf("Version token mismatch: %d", resp.GraphVersion)
	}
}

func TestGetNodeWithAdjacency(t *testing.T) {
	store := testTopology(t)
	s, _ := testServer(t, store, ServerConfig{})

	var resp NodeResponse
	rec := get(t, s, "/api/v1/nodes/r1", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("node returned %d: %s", rec.Code, rec.Body.String())
	}
	if resp.Node == nil || resp.Node.ID != "r1" {
		t.Fatalf("Wrong node: %+v", resp.Node)
	}
	// r1 carries one route and one link
	if len(resp.Outgoing) != 2 {
		t.Errorf("Expected 2 outgoing edges, got %d", len(resp.Outgoing))
	}
}

func TestGetNodeNotFound(t *testing.T) {
	store := testTopology(t)
	s, _ := testServer(t, store, ServerConfig{})

	rec := get(t, s, "/api/v1/nodes/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", rec.Code)
	}
	var errResp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil || errResp.Code != http.StatusNotFound {
		t.Errorf("Malformed error body: %s", rec.Body.String())
	}
}

func TestPathsRankedByPreference(t *testing.T) {
	store := testTopology(t)
	s, _ := testServer(t, store, ServerConfig{})

	var resp PathsResponse
	rec := get(t, s, "/api/v1/paths/10.0.0.0/24", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("paths returned %d: %s", rec.Code, rec.Body.String())
	}
	if len(resp.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(resp.Candidates))
	}
	// Higher local-pref ranks first
	if resp.Candidates[0].Router != "r2" || resp.Candidates[0].LocalPref != 200 {
		t.Errorf("Wrong best candidate: %+v", resp.Candidates[0])
	}
}

func TestPathsFromVantageRouter(t *testing.T) {
	store := testTopology(t)
	s, _ := testServer(t, store, ServerConfig{})

	var resp PathsResponse
	rec := get(t, s, "/api/v1/paths/10.0.0.0/24?from=r1", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("paths returned %d: %s", rec.Code, rec.Body.String())
	}
	if resp.From != "r1" {
		t.Errorf("Vantage lost: %q", resp.From)
	}
	want := selector.SelectPathsFrom("r1", "10.0.0.0/24", store.Snapshot())
	if len(resp.Candidates) != len(want) {
		t.Errorf("Candidate count diverges from selection: %d vs %d", len(resp.Candidates), len(want))
	}

	rec = get(t, s, "/api/v1/paths/10.0.0.0/24?from=ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Unknown vantage should 404, got %d", rec.Code)
	}
}

func TestPathsUnknownPrefix(t *testing.T) {
	store := testTopology(t)
	s, _ := testServer(t, store, ServerConfig{})

	rec := get(t, s, "/api/v1/paths/172.16.0.0/12", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown prefix, got %d", rec.Code)
	}
}

func TestFibEndpointReflectsTable(t *testing.T) {
	store := testTopology(t)
	s, table := testServer(t, store, ServerConfig{})

	var resp FibResponse
	rec := get(t, s, "/api/v1/fib", &resp)
	if rec.Code != http.StatusOK || len(resp.Statuses) != 0 {
		t.Fatalf("Empty table should yield empty list: %d %v", rec.Code, resp.Statuses)
	}

	// Drive an install through the applier so the table transitions
	applier := fib.NewApplier(fib.NewMemoryRouter(), table, fib.ApplierConfig{})
	ops := fib.Reconcile("10.0.0.0/24", []selector.Candidate{{Prefix: "10.0.0.0/24", NextHop: "192.0.2.9"}}, table.Get("10.0.0.0/24"))
	if err := applier.Apply(context.Background(), ops); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	rec = get(t, s, "/api/v1/fib/10.0.0.0/24", &resp)
	if rec.Code != http.StatusOK || len(resp.Statuses) != 1 {
		t.Fatalf("fib prefix returned %d: %s", rec.Code, rec.Body.String())
	}
	st := resp.Statuses[0]
	if st.State != fib.StateInstalled || st.Entry == nil || st.Entry.NextHop != "192.0.2.9" {
		t.Errorf("Unexpected status: %+v", st)
	}
}

func TestStats(t *testing.T) {
	store := testTopology(t)
	s, _ := testServer(t, store, ServerConfig{})

	var resp StatsResponse
	rec := get(t, s, "/api/v1/stats", &resp)
	if rec.Code != http.StatusOK {
		t.Fatalf("stats returned %d", rec.Code)
	}
	if resp.Nodes != 7 || resp.Edges != 3 {
		t.Errorf("Wrong counts: %d nodes, %d edges", resp.Nodes, resp.Edges)
	}
}

func TestMetricsEndpointExposesApplicationFamilies(t *testing.T) {
	store := testTopology(t)
	s, _ := testServer(t, store, ServerConfig{})

	// The topology setup committed mutations, so graph families have data
	rec := get(t, s, "/metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics returned %d", rec.Code)
	}
	body := rec.Body.String()
	for _, family := range []string{"rcp_graph_mutations_total", "rcp_graph_snapshots_total"} {
		if !strings.Contains(body, family) {
			t.Errorf("Exposition missing %s", family)
		}
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	store := testTopology(t)
	secret := "0123456789abcdef0123456789abcdef"
	s, _ := testServer(t, store, ServerConfig{JWTSecret: secret})

	// API routes reject missing and invalid tokens
	rec := get(t, s, "/api/v1/stats", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for garbage token, got %d", rec.Code)
	}

	// A valid HS256 token passes
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Valid token rejected: %d %s", rec.Code, rec.Body.String())
	}

	// Health stays open for probes
	if rec := get(t, s, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("Health should not require auth, got %d", rec.Code)
	}
}
