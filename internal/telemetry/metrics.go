package telemetry

import (
	"context"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry returns the shared prometheus registry every component (queue
// metrics, worker pool, persistence pool stats) registers its gauges and
// counters against, mirroring the teacher's single DefaultRegisterer use
// but passed explicitly instead of relying on the package-level default —
// roomhub's "serve" and "worker" processes both want their own registry so
// a test harness can spin up either without import-order surprises.
func NewRegistry() *prometheus.Registry {
	return prometheus.NewRegistry()
}

// Server exposes /metrics and /healthz for scraping, the minimal ops
// surface this repo needs — request routing, auth, and templating are
// explicitly out of scope (spec.md §1).
type Server struct {
	httpServer *http.Server
}

// NewServer builds a Server bound to addr. Call Serve to run it and
// Shutdown to stop it.
func NewServer(addr string, reg prometheus.Gatherer) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return &Server{httpServer: &http.Server{Addr: addr, Handler: mux}}
}

// Serve runs the metrics server on ln until the server is shut down,
// returning http.ErrServerClosed on a clean Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the metrics server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
