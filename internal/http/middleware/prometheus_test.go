package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func newMetricsApp(t *testing.T) (*fiber.App, *PrometheusMiddleware, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m, err := NewPrometheusMiddleware(reg)
	if err != nil {
		t.Fatalf("failed to create middleware: %v", err)
	}

	app := fiber.New()
	app.Use(m.Handler())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/documents/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Delete("/documents/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	app.Get("/documents/:id/download/:photoId?", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "document not found")
	})
	return app, m, reg
}

// histogramSamples returns the observation count of http_request_duration_seconds for
// the given labels, or -1 when no such series exists.
func histogramSamples(t *testing.T, reg *prometheus.Registry, method, path string) int64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != "http_request_duration_seconds" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if hasLabels(metric, map[string]string{"method": method, "path": path}) {
				return int64(metric.GetHistogram().GetSampleCount())
			}
		}
	}
	return -1
}

func hasLabels(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
			matched++
		}
	}
	return matched == len(want)
}

func TestPrometheusMiddleware_CountsByRoutePattern(t *testing.T) {
	app, m, _ := newMetricsApp(t)

	for _, target := range []string{"/documents/1", "/documents/2"} {
		resp, _ := app.Test(httptest.NewRequest("GET", target, nil))
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("expected status 200 for %s, got %d", target, resp.StatusCode)
		}
	}
	app.Test(httptest.NewRequest("DELETE", "/documents/2", nil))
	app.Test(httptest.NewRequest("GET", "/documents/9/download", nil))

	if got := testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/documents/:id", "200")); got != 2 {
		t.Errorf("expected 2 GET /documents/:id, got %f", got)
	}
	if got := testutil.ToFloat64(m.requestCount.WithLabelValues("DELETE", "/documents/:id", "204")); got != 1 {
		t.Errorf("expected 1 DELETE /documents/:id, got %f", got)
	}
	if got := testutil.ToFloat64(m.requestCount.WithLabelValues("GET", "/documents/:id/download/:photoId?", "404")); got != 1 {
		t.Errorf("expected the fiber error code as status, got %f", got)
	}
}

func TestPrometheusMiddleware_ObservesDuration(t *testing.T) {
	app, m, reg := newMetricsApp(t)

	app.Test(httptest.NewRequest("GET", "/documents/1", nil))
	app.Test(httptest.NewRequest("GET", "/documents/2", nil))
	app.Test(httptest.NewRequest("DELETE", "/documents/2", nil))

	if n := testutil.CollectAndCount(m.requestDuration, "http_request_duration_seconds"); n != 2 {
		t.Errorf("expected 2 duration series (GET and DELETE), got %d", n)
	}
	if n := histogramSamples(t, reg, "GET", "/documents/:id"); n != 2 {
		t.Errorf("expected 2 observations for GET /documents/:id, got %d", n)
	}
	if n := histogramSamples(t, reg, "GET", "/documents/1"); n != -1 {
		t.Errorf("raw paths must not become labels, got %d observations", n)
	}
}

func TestPrometheusMiddleware_SkipsMetricsEndpoint(t *testing.T) {
	app, m, _ := newMetricsApp(t)

	app.Test(httptest.NewRequest("GET", "/metrics", nil))

	if n := testutil.CollectAndCount(m.requestCount); n != 0 {
		t.Errorf("expected no request series, got %d", n)
	}
	if n := testutil.CollectAndCount(m.requestDuration); n != 0 {
		t.Errorf("expected no duration series, got %d", n)
	}
}

func TestNewPrometheusMiddleware_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPrometheusMiddleware(reg); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}
	if _, err := NewPrometheusMiddleware(reg); err == nil {
		t.Error("expected an error when registering the metrics twice")
	}
}
