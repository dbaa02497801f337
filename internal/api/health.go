package api

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// Pinger is anything readiness can check. Postgres pools satisfy it directly.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts clients whose Ping has another shape, such as go-redis.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// optionalDependencies degrade readiness instead of failing it.
var optionalDependencies = map[string]bool{
	"redis": true,
}

type HealthHandler struct {
	checks  map[string]Pinger
	env     string
	version string
}

func NewHealthHandler(checks map[string]Pinger, env, version string) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		env:     env,
		version: version,
	}
}

type LivenessResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Env     string `json:"env,omitempty"`
}

type ReadinessResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version,omitempty"`
	Env          string            `json:"env,omitempty"`
	Dependencies map[string]string `json:"dependencies"`
}

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	resp := LivenessResponse{
		Status:  "ok",
		Version: h.version,
		Env:     h.env,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	deps := make(map[string]string, len(names))
	status := "ok"

	for _, name := range names {
		checkCtx, checkCancel := context.WithTimeout(ctx, 1*time.Second)
		err := h.checks[name].Ping(checkCtx)
		checkCancel()

		if err == nil {
			deps[name] = "ok"
			continue
		}
		deps[name] = "down"
		switch {
		case !optionalDependencies[name]:
			status = "error"
		case status == "ok":
			status = "degraded"
		}
	}

	resp := ReadinessResponse{
		Status:       status,
		Version:      h.version,
		Env:          h.env,
		Dependencies: deps,
	}

	httpStatus := http.StatusOK
	if status == "error" {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, resp)
}
