package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAutoLink(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveAutoLink("per_pair", 3, 2)
	m.ObserveAutoLink("per_pair", 1, 1)

	if got := testutil.ToFloat64(m.linkRuns.WithLabelValues("per_pair")); got != 2 {
		t.Fatalf("expected 2 runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.linkedPairs.WithLabelValues("per_pair", "requested")); got != 4 {
		t.Fatalf("expected 4 requested pairs, got %v", got)
	}
	if got := testutil.ToFloat64(m.linkedPairs.WithLabelValues("per_pair", "affected")); got != 3 {
		t.Fatalf("expected 3 affected pairs, got %v", got)
	}
	if got := testutil.ToFloat64(m.partialRuns.WithLabelValues("per_pair")); got != 1 {
		t.Fatalf("expected 1 partial run, got %v", got)
	}
}

func TestHandler_ExposesHTTPMetrics(t *testing.T) {
	t.Parallel()

	m := New()
	m.ObserveHTTP("/employees/{id}", http.MethodGet, http.StatusNotFound, 15*time.Millisecond)
	m.ObserveHTTP("", http.MethodGet, http.StatusNotFound, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `employee_link_http_requests_total{method="GET",route="/employees/{id}",status="404"} 1`) {
		t.Fatalf("expected request counter in output, got:\n%s", body)
	}
	if !strings.Contains(body, `route="unmatched"`) {
		t.Fatalf("expected unmatched route label in output")
	}
}
