package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRecordsRequests(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("GET", "/api/v1/invoices", "200", 25*time.Millisecond)
	m.Observe("GET", "/api/v1/invoices", "200", 30*time.Millisecond)
	m.Observe("POST", "/api/v1/invoices", "409", time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/v1/invoices", "200")); got != 2 {
		t.Fatalf("expected 2 GET requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("POST", "/api/v1/invoices", "409")); got != 1 {
		t.Fatalf("expected 1 conflicting POST, got %v", got)
	}
}

func TestObserveNormalizesEmptyLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe("", "", "", time.Millisecond)

	if got := testutil.ToFloat64(m.requests.WithLabelValues("unknown", "unknown", "unknown")); got != 1 {
		t.Fatalf("expected unknown labels to count, got %v", got)
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe("GET", "/", "200", time.Millisecond)

	NewHTTPMetrics(nil).Observe("GET", "/", "200", time.Millisecond)
}
