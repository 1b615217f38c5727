package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CollectorはMetricsCollectorインターフェースを満たすことを検証
func TestCollector_ImplementsInterface(t *testing.T) {
	var _ MetricsCollector = (*Collector)(nil)
}

func TestNewCollector_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	if c == nil {
		t.Fatal("expected non-nil collector")
	}

	c.RecordScrapeSuccess("example.com")
	c.RecordScrapeFailure("example.com")
	c.RecordHTTPStatus(200)
	c.RecordFetchLatency(150 * time.Millisecond)
	c.RecordURLsDiscovered(42)
	c.RecordURLsAdded(7)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather returned error: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"simmer_scrape_success_total",
		"simmer_scrape_fail_total",
		"simmer_fetch_http_status_total",
		"simmer_fetch_latency_seconds",
		"simmer_urls_discovered_total",
		"simmer_urls_added_total",
	} {
		if !names[want] {
			t.Errorf("metric %q is not registered", want)
		}
	}
}

func TestHandler_ServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordScrapeSuccess("example.com")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "simmer_scrape_success_total") {
		t.Error("response should contain simmer_scrape_success_total metric")
	}
}
