package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Fatal("Underlying prometheus registry is nil")
	}
}

func TestDefaultRegistrySingleton(t *testing.T) {
	r1 := DefaultRegistry()
	r2 := DefaultRegistry()
	if r1 != r2 {
		t.Error("DefaultRegistry should return the same instance")
	}
}

func TestRecordFeedMessage(t *testing.T) {
	r := NewRegistry()

	r.RecordFeedMessage("route_up", 128, time.Microsecond)
	r.RecordFeedMessage("route_up", 256, time.Microsecond)
	r.RecordFeedMessage("peer_down", 64, time.Microsecond)

	if got := testutil.ToFloat64(r.FeedMessagesTotal.WithLabelValues("route_up")); got != 2 {
		t.Errorf("Expected 2 route_up messages, got %v", got)
	}
	if got := testutil.ToFloat64(r.FeedBytesTotal); got != 448 {
		t.Errorf("Expected 448 bytes, got %v", got)
	}
}

func TestRecordSelectionOutcome(t *testing.T) {
	r := NewRegistry()

	r.RecordSelection(3, time.Millisecond)
	r.RecordSelection(0, time.Millisecond)

	if got := testutil.ToFloat64(r.SelectorRunsTotal.WithLabelValues("selected")); got != 1 {
		t.Errorf("Expected 1 selected run, got %v", got)
	}
	if got := testutil.ToFloat64(r.SelectorRunsTotal.WithLabelValues("unreachable")); got != 1 {
		t.Errorf("Expected 1 unreachable run, got %v", got)
	}
}

func TestRecordFibOperation(t *testing.T) {
	r := NewRegistry()

	r.RecordFibOperation("install", "success", 10*time.Millisecond)
	r.RecordFibOperation("install", "failure", 10*time.Millisecond)
	r.RecordFibOperation("withdraw", "success", 5*time.Millisecond)

	if got := testutil.ToFloat64(r.FibOperationsTotal.WithLabelValues("install", "success")); got != 1 {
		t.Errorf("Expected 1 successful install, got %v", got)
	}
	if got := testutil.ToFloat64(r.FibOperationsTotal.WithLabelValues("install", "failure")); got != 1 {
		t.Errorf("Expected 1 failed install, got %v", got)
	}
}

func TestUpdateGraphSize(t *testing.T) {
	r := NewRegistry()

	r.UpdateGraphSize("prefix", 120, -1)
	r.UpdateGraphSize("route", -1, 340)

	if got := testutil.ToFloat64(r.GraphNodesTotal.WithLabelValues("prefix")); got != 120 {
		t.Errorf("Expected 120 prefix nodes, got %v", got)
	}
	if got := testutil.ToFloat64(r.GraphEdgesTotal.WithLabelValues("route")); got != 340 {
		t.Errorf("Expected 340 route edges, got %v", got)
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()

	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))

	if got := testutil.ToFloat64(r.UptimeSeconds); got < 59 {
		t.Errorf("Expected uptime around 60s, got %v", got)
	}
	if got := testutil.ToFloat64(r.GoRoutines); got < 1 {
		t.Errorf("Expected at least one goroutine, got %v", got)
	}
}
