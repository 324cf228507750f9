package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// dbPinger defines the minimal interface for DB health checks.
type dbPinger interface {
	Ping(ctx context.Context) error
}

// keyVersions reports the version a context currently encrypts with.
type keyVersions interface {
	ActiveVersion(ctx context.Context, keyContext string) (version int, ok bool, err error)
}

// HealthHandler serves health check endpoints.
type HealthHandler struct {
	db       dbPinger
	keys     keyVersions
	contexts []string
	version  string
}

// NewHealthHandler creates a HealthHandler. When keys is non-nil, /health
// also reports the active key version of each of contexts.
func NewHealthHandler(db dbPinger, keys keyVersions, contexts []string, version string) *HealthHandler {
	return &HealthHandler{db: db, keys: keys, contexts: contexts, version: version}
}

// Register mounts the probes on mux.
func (h *HealthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /live", h.Live)
	mux.HandleFunc("GET /ready", h.Ready)
	mux.HandleFunc("GET /health", h.Health)
}

// HealthResponse is the JSON response for /health and /ready.
type HealthResponse struct {
	Status     string                `json:"status"`
	Version    string                `json:"version,omitempty"`
	Components map[string]CompStatus `json:"components,omitempty"`
	Timestamp  time.Time             `json:"timestamp"`
}

// CompStatus is the status of an individual component.
type CompStatus struct {
	Status     string `json:"status"`
	Latency    string `json:"latency,omitempty"`
	KeyVersion int    `json:"key_version,omitempty"`
}

// Live is the liveness probe. Always returns 200.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready is the readiness probe. Pings DB: 200 if OK, 503 if not.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:    "down",
			Timestamp: time.Now(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Health is the full health check. Pings DB with latency measurement and
// includes the build version and the active key version per context.
// A context without any key yet reports "unprovisioned" and does not fail the check.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	components := make(map[string]CompStatus)
	overallStatus := "ok"

	start := time.Now()
	err := h.db.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		components["database"] = CompStatus{Status: "down"}
		overallStatus = "down"
	} else {
		components["database"] = CompStatus{
			Status:  "ok",
			Latency: latency.String(),
		}
	}

	if err == nil && h.keys != nil {
		for _, c := range h.contexts {
			comp := h.keyStatus(ctx, c)
			if comp.Status == "down" {
				overallStatus = "down"
			}
			components["keyring:"+c] = comp
		}
	}

	status := http.StatusOK
	if overallStatus != "ok" {
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, HealthResponse{
		Status:     overallStatus,
		Version:    h.version,
		Components: components,
		Timestamp:  time.Now(),
	})
}

func (h *HealthHandler) keyStatus(ctx context.Context, keyContext string) CompStatus {
	v, ok, err := h.keys.ActiveVersion(ctx, keyContext)
	switch {
	case err != nil:
		return CompStatus{Status: "down"}
	case !ok:
		return CompStatus{Status: "unprovisioned"}
	default:
		return CompStatus{Status: "ok", KeyVersion: v}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
