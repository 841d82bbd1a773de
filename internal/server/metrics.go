package server

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes the HTTP-level Prometheus metrics. Calculation metrics are
// recorded by the fibonacci package.
type Metrics struct {
	handler http.Handler
}

var (
	activeRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "zkfib_http_active_requests",
		Help: "Current number of in-flight HTTP requests",
	})
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zkfib_http_requests_total",
		Help: "HTTP requests by path and status code",
	}, []string{"path", "code"})
)

// NewMetrics returns a Metrics serving the default registry.
func NewMetrics() *Metrics {
	return &Metrics{handler: promhttp.Handler()}
}

func (m *Metrics) begin() { activeRequests.Inc() }

func (m *Metrics) end(path string, code int) {
	activeRequests.Dec()
	requestsTotal.WithLabelValues(path, strconv.Itoa(code)).Inc()
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	s.metrics.handler.ServeHTTP(w, r)
}

func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.begin()
		rec := wrapStatus(w)
		defer func() { s.metrics.end(r.URL.Path, rec.status) }()
		next(rec, r)
	}
}
