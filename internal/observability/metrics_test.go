package observability

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.ObserveAPI("GET", "/x", "200", time.Millisecond)
	m.CacheHit()
	m.IncFallbackReuse()
	m.AddGoalsReconciled(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 503 {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rec.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.ObserveAPI("GET", "/api/goals", "200", 20*time.Millisecond)
	m.CacheHit()
	m.CacheMiss()
	m.IncSessionStarted()
	m.ObserveLLMRequest("gpt-test", "/v1/responses", "200", time.Second, 10, 20)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	for _, want := range []string{
		`sw_api_requests_total{method="GET",route="/api/goals",status="200"} 1`,
		`sw_recommend_cache_events_total{event="hit"} 1`,
		`sw_sessions_started_total 1`,
		`sw_llm_tokens_total{kind="output",model="gpt-test"} 20`,
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("missing %q in exposition", want)
		}
	}
}
