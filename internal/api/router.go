package api

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-gateway/internal/resource"
)

// healthCheckTimeout bounds the dependency checks of GET /health.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Handle(s.metricsPath, s.metrics)
	}

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	r.Route("/api/{apikey}", func(r chi.Router) {
		r.Use(s.apiKeyMiddleware)

		r.Get("/", s.handleFullState)
		r.Get("/config", s.handleGetConfig)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{uniqueid}", s.handleGetDevice)
			r.Put("/{uniqueid}/installcode", s.handlePutInstallCode)
		})

		r.Route("/lights", func(r chi.Router) {
			r.Get("/", s.handleList(resource.PrefixLights))
			r.Get("/{id}", s.handleGet(resource.PrefixLights))
			r.Put("/{id}", s.handlePutAttributes(resource.PrefixLights))
			r.Put("/{id}/state", s.handlePutItems(resource.PrefixLights, categoryState))
			r.Delete("/{id}", s.handleDelete(resource.PrefixLights))
		})

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleList(resource.PrefixSensors))
			r.Post("/", s.handleCreateSensor)
			r.Get("/{id}", s.handleGet(resource.PrefixSensors))
			r.Put("/{id}", s.handlePutAttributes(resource.PrefixSensors))
			r.Put("/{id}/state", s.handlePutItems(resource.PrefixSensors, categoryState))
			r.Put("/{id}/config", s.handlePutItems(resource.PrefixSensors, categoryConfig))
			r.Delete("/{id}", s.handleDelete(resource.PrefixSensors))
		})

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", s.handleList(resource.PrefixGroups))
			r.Post("/", s.handleCreateGroup)
			r.Get("/{id}", s.handleGet(resource.PrefixGroups))
			r.Put("/{id}", s.handlePutAttributes(resource.PrefixGroups))
			r.Put("/{id}/action", s.handleGroupAction)
			r.Delete("/{id}", s.handleDelete(resource.PrefixGroups))
		})
	})

	return r
}

// handleHealth reports the version, node counts and the state of every
// registered dependency. A failing dependency turns the status to degraded
// and the response to 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(s.health))
	for name := range s.health {
		names = append(names, name)
	}
	sort.Strings(names)

	status := "ok"
	code := http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		if err := s.health[name].HealthCheck(ctx); err != nil {
			checks[name] = err.Error()
			status = "degraded"
			code = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	stats := s.registry.GetStats()
	counts := make(map[string]int, 3)
	for _, prefix := range []string{resource.PrefixLights, resource.PrefixSensors, resource.PrefixGroups} {
		counts[strings.TrimPrefix(prefix, "/")] = s.registry.Count(prefix)
	}
	writeJSON(w, code, map[string]any{
		"status":    status,
		"version":   s.version,
		"nodes":     stats.TotalNodes,
		"resources": counts,
		"checks":    checks,
		"clients":   s.hub.ClientCount(),
	})
}
