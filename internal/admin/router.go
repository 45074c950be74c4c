// Package admin exposes the control plane's REST and SSE surface
// described in §6 over HTTP, using chi for routing. Every handler is a
// thin adapter: it decodes the request, wraps a state.Call closure
// around the matching rpc method, and encodes the result or maps the
// returned apierr.Error to the right status code. No handler ever
// touches state.State directly.
package admin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/picoHz/taxy-sub001/internal/event"
	"github.com/picoHz/taxy-sub001/internal/state"
)

// Server holds everything an admin HTTP handler needs: the command
// queue to reach the control loop, the event bus to subscribe SSE
// clients to, and a logger.
type Server struct {
	queue     chan state.Command
	bus       *event.Bus
	log       *zap.Logger
	version   string
	startedAt time.Time
}

// New returns a Server. version is the build version reported by
// GET /api/app_info.
func New(queue chan state.Command, bus *event.Bus, log *zap.Logger, version string) *Server {
	return &Server{queue: queue, bus: bus, log: log, version: version, startedAt: time.Now()}
}

// Router builds the chi.Router exposing every endpoint in §6.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(60 * time.Second))

	r.Post("/api/login", s.handleLogin)
	r.Get("/api/app_info", s.handleAppInfo)
	r.Handle("/api/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/config", s.handleGetConfig)
		r.Put("/api/config", s.handlePutConfig)

		r.Get("/api/ports", s.handleListPorts)
		r.Post("/api/ports", s.handleCreatePort)
		r.Get("/api/ports/{id}", s.handleGetPort)
		r.Put("/api/ports/{id}", s.handleUpdatePort)
		r.Delete("/api/ports/{id}", s.handleDeletePort)
		r.Get("/api/ports/{id}/status", s.handleGetPortStatus)

		r.Get("/api/sites", s.handleListSites)
		r.Post("/api/sites", s.handleCreateSite)
		r.Put("/api/sites/{id}", s.handleUpdateSite)
		r.Delete("/api/sites/{id}", s.handleDeleteSite)

		r.Get("/api/server_certs", s.handleListCerts)
		r.Post("/api/server_certs", s.handleAddCert)
		r.Delete("/api/server_certs/{id}", s.handleDeleteCert)

		r.Get("/api/acme", s.handleListAcme)
		r.Post("/api/acme", s.handleAddAcme)
		r.Delete("/api/acme/{id}", s.handleDeleteAcme)

		r.Get("/api/events", s.handleEvents)
		r.Post("/api/accounts", s.handleAddAccount)
	})

	return r
}

// requestID stamps every request with a uuidv4 correlation id under
// chi's own context key, so chimw.GetReqID and downstream log lines
// agree on one id per request without pulling in a second id scheme.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), chimw.RequestIDKey, uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("admin request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", chimw.GetReqID(r.Context())),
		)
	})
}
