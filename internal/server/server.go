// Package server routes the HTTP API: schema listing and validation, SQL
// rendering, entity queries and GraphQL.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/handler"

	"github.com/TakashiAihara/preppin-sub000/internal/logging"
	"github.com/TakashiAihara/preppin-sub000/internal/service"
)

// Options wires the router. Service is required.
type Options struct {
	Service *service.Service
	Logger  *logging.Logger

	// GraphQL is served at /graphql when set.
	GraphQL    *graphql.Schema
	Playground bool

	// Metrics is served at /metrics when set.
	Metrics http.Handler

	// Middleware wraps every route in order. Auth wraps the API and
	// GraphQL routes only, so probes stay reachable.
	Middleware []func(http.Handler) http.Handler
	Auth       func(http.Handler) http.Handler

	HealthCheckTimeout time.Duration

	// MaterializeDefaults applies to validate requests that do not pass
	// ?materialize.
	MaterializeDefaults bool
}

type api struct {
	svc           *service.Service
	logger        *logging.Logger
	healthTimeout time.Duration
	materialize   bool
}

// NewRouter builds the API handler.
func NewRouter(opts Options) http.Handler {
	a := &api{
		svc:           opts.Service,
		logger:        opts.Logger,
		healthTimeout: opts.HealthCheckTimeout,
		materialize:   opts.MaterializeDefaults,
	}
	if a.logger == nil {
		a.logger = &logging.Logger{Logger: slog.Default()}
	}
	if a.healthTimeout <= 0 {
		a.healthTimeout = 2 * time.Second
	}

	r := chi.NewRouter()
	for _, mw := range opts.Middleware {
		r.Use(mw)
	}
	r.Use(chimw.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.Get("/health", a.health)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		r.Route("/v1", func(r chi.Router) {
			r.Get("/schemas", a.listSchemas)
			r.Get("/schemas/{name}", a.describeSchema)
			r.Post("/schemas/{name}/validate", a.validate)
			r.Post("/entities/{entity}/sql", a.renderSQL)
			r.Post("/entities/{entity}/find", a.find)
		})
		if opts.GraphQL != nil {
			r.Handle("/graphql", handler.New(&handler.Config{
				Schema:     opts.GraphQL,
				Pretty:     true,
				Playground: opts.Playground,
			}))
		}
	})
	return r
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	st := a.svc.Store()
	if !st.Enabled() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "disabled"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.healthTimeout)
	defer cancel()
	if err := st.Ping(ctx); err != nil {
		logging.FromContext(r.Context()).Error("health check failed",
			slog.String("check", "database"),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "ok"})
}
