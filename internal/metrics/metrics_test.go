package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandler_ExposesMetrics(t *testing.T) {
	m := NewMetrics()
	m.AnalysesTotal.WithLabelValues("BUY").Inc()
	m.FailuresTotal.WithLabelValues("fetch").Add(2)
	m.ExplainerFailures.Inc()
	m.FetchDuration.Observe(0.2)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	text := string(body)
	for _, want := range []string{
		`moonia_analyses_total{direction="BUY"} 1`,
		`moonia_analysis_failures_total{reason="fetch"} 2`,
		`moonia_explainer_failures_total 1`,
		`moonia_fetch_duration_seconds_count 1`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
	if strings.Contains(text, "go_goroutines") {
		t.Error("private registry should not expose runtime collectors")
	}
}
