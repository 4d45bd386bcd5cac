package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/forumgraph/pkg/observability"
)

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Handle("/metrics", s.metricsHandler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/graphs", func(r chi.Router) {
			r.Get("/", s.handleListGraphs)
			r.Get("/{graph}", s.handleGetGraph)
			r.Post("/{graph}/views", s.handleCreateView)
		})
		r.Route("/views/{view}", func(r chi.Router) {
			r.Get("/", s.handleGetView)
			r.Post("/toggle/{node}", s.handleToggle)
			r.Post("/expand", s.handleExpand)
			r.Get("/events", s.handleEvents)
		})
		r.Get("/display", s.handleGetDisplay)
		r.Patch("/display", s.handlePatchDisplay)
	})

	return r
}

func (s *Server) metricsHandler() http.Handler {
	if s.cfg.Metrics != nil {
		return s.cfg.Metrics.Handler()
	}
	return promhttp.Handler()
}

// requestLogger logs each request and reports it to the HTTP hooks under its
// route pattern, so metrics labels stay bounded.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		d := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, d)
		s.logger.Debug("Request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", d,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
