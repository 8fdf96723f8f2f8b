// Package router wires the serve trigger's routes and middleware.
package router

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/guardianstream/internal/stream/handler"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/guardianstream/pkg/middleware"
)

// Route table:
//
//	POST /invoke        → run one invocation
//	GET  /health/live   → liveness
//	GET  /health/ready  → readiness (credential store, brokers)
//
// Middleware chain (outermost first):
//
//	Recover → Metrics → mux
func New(h *handler.Handler, checker *health.Checker, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /invoke", h.Invoke)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = pkgmw.Metrics(m, "/invoke", "/health/live", "/health/ready")(chain)
	chain = pkgmw.Recover(chain)
	return chain
}
