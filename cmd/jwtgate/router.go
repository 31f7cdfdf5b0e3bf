package main

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	jwtgate "github.com/labshare/go-jwt-gate"
	"github.com/labshare/go-jwt-gate/core"
	jwtchi "github.com/labshare/go-jwt-gate/framework/chi"
	"github.com/labshare/go-jwt-gate/operation"
)

type routerConfig struct {
	validator core.TokenValidator
	registry  *operation.Registry
	logger    jwtgate.Logger
	metrics   core.Metrics
	gatherer  prometheus.Gatherer
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var users = []user{
	{ID: "1", Name: "Ada"},
	{ID: "2", Name: "Grace"},
}

func newRouter(cfg routerConfig) (http.Handler, error) {
	router := chi.NewRouter()

	gate, err := jwtgate.New(
		jwtgate.WithValidator(cfg.validator),
		jwtgate.WithLookup(cfg.registry.Lookup),
		jwtgate.WithOperationResolver(jwtchi.RouteResolver(router)),
		jwtgate.WithLogger(cfg.logger),
		jwtgate.WithMetrics(cfg.metrics),
	)
	if err != nil {
		return nil, err
	}

	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(gate.CheckJWT)

	router.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{"status": "ok"})
	})

	router.Get("/whoAmI", func(w http.ResponseWriter, r *http.Request) {
		principal, err := jwtgate.GetPrincipal(r.Context())
		if err != nil {
			writeJSON(w, map[string]any{"authenticated": false})
			return
		}
		writeJSON(w, map[string]any{
			"authenticated": true,
			"subject":       principal.Subject,
			"scopes":        principal.Scopes(),
		})
	})

	router.Get("/users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, users)
	})

	router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))

	return router, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
