package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/stars/lookup/{source_id}", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{}"))
	})
	r.Get("/api/stars/count", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Post("/api/agent/ask", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return r
}

func serve(r http.Handler, method, target string) {
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, target, http.NoBody))
}

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := newTestRouter()
	counter := httpRequestsTotal.WithLabelValues("GET", "/api/stars/lookup/{source_id}", "200")
	before := testutil.ToFloat64(counter)

	serve(r, "GET", "/api/stars/lookup/4295806720")
	serve(r, "GET", "/api/stars/lookup/38655544960")

	if got := testutil.ToFloat64(counter) - before; got != 2 {
		t.Errorf("expected 2 requests under the route pattern, got %f", got)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds observations")
	}
}

func TestMiddleware_StatusAndMethod(t *testing.T) {
	r := newTestRouter()

	tests := []struct {
		method, target, route, status string
	}{
		{"GET", "/api/stars/count", "/api/stars/count", "400"},
		{"POST", "/api/agent/ask", "/api/agent/ask", "503"},
		{"GET", "/nowhere", "unmatched", "404"},
	}

	for _, tc := range tests {
		t.Run(tc.target, func(t *testing.T) {
			counter := httpRequestsTotal.WithLabelValues(tc.method, tc.route, tc.status)
			before := testutil.ToFloat64(counter)

			serve(r, tc.method, tc.target)

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("expected one %s %s -> %s, got %f", tc.method, tc.route, tc.status, got)
			}
		})
	}
}

func TestRegister_ExposesNamespacedMetrics(t *testing.T) {
	Register()
	serve(newTestRouter(), "GET", "/api/stars/lookup/1")

	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", http.NoBody))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "taarya_http_requests_total") {
		t.Error("expected taarya_http_requests_total in the exposition")
	}
}
