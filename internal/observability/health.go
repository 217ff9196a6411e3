package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// HealthChecker serves /healthz (liveness) and /readyz (readiness).
type HealthChecker struct {
	startTime time.Time
	timeout   time.Duration

	mu     sync.RWMutex
	checks map[string]ReadinessCheck
	state  func() string
}

// NewHealthChecker creates a new health checker.
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		timeout:   2 * time.Second,
		checks:    make(map[string]ReadinessCheck),
	}
}

// AddCheck registers a named readiness check.
func (h *HealthChecker) AddCheck(name string, check ReadinessCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// SetStateFunc reports the loop state in liveness responses.
func (h *HealthChecker) SetStateFunc(fn func() string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = fn
}

// LivenessHandler returns HTTP 200 while the process is running.
func (h *HealthChecker) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status": "alive",
		"uptime": time.Since(h.startTime).String(),
	}
	h.mu.RLock()
	if h.state != nil {
		body["loop_state"] = h.state()
	}
	h.mu.RUnlock()

	writeJSON(w, http.StatusOK, body)
}

// ReadinessHandler returns HTTP 200 when every check passes, 503 otherwise.
func (h *HealthChecker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.mu.RLock()
	checks := make(map[string]ReadinessCheck, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	failed := make(map[string]string)
	for name, check := range checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"failed": failed,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// NewServer builds the HTTP server exposing /metrics, /healthz and /readyz.
func NewServer(addr string, m *Metrics, h *HealthChecker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/healthz", h.LivenessHandler)
	mux.HandleFunc("/readyz", h.ReadinessHandler)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
