package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/brandhub/deploycenter/internal/api/types"
)

// Check is a named readiness check.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type HealthHandler struct {
	checks []Check
}

func NewHealthHandler(checks ...Check) *HealthHandler { return &HealthHandler{checks: checks} }

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.APIResponse{Success: true, Data: map[string]string{"status": "ok"}})
}

// Readiness runs every check; any failure makes the service not ready.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	out := map[string]string{"status": "ready"}
	for _, c := range h.checks {
		if err := c.Fn(ctx); err != nil {
			status = http.StatusServiceUnavailable
			out["status"] = "not_ready"
			out[c.Name] = err.Error()
			continue
		}
		out[c.Name] = "ok"
	}
	writeJSON(w, status, types.APIResponse{Success: status == http.StatusOK, Data: out})
}
