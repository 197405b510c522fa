package http

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/aussiebroadwan/grantd/pkg/authsdk"
	"github.com/aussiebroadwan/grantd/pkg/httpx"
)

// Pinger is a dependency the server needs before it can take traffic.
type Pinger interface {
	Ping(ctx context.Context) error
}

// readyTimeout bounds each dependency check.
const readyTimeout = 2 * time.Second

// healthHandler serves the liveness and readiness probes.
type healthHandler struct {
	started time.Time
	version string
	deps    map[string]Pinger
}

func (h *healthHandler) report(status string, checks map[string]string) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Version: h.version,
		Checks:  checks,
	}
}

// Live godoc
//
//	@Summary		Liveness probe
//	@Description	Always 200 while the process is serving
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Router			/livez [get]
func (h *healthHandler) Live(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, h.report("ok", nil))
}

// Ready godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the database, and Redis when a distributed lock is configured
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Failure		503	{object}	authsdk.HealthResponse
//	@Router			/readyz [get]
func (h *healthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(h.deps))
	for name := range h.deps {
		names = append(names, name)
	}
	slices.Sort(names)

	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(names))
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		err := h.deps[name].Ping(ctx)
		cancel()

		if err != nil {
			checks[name] = "error: " + err.Error()
			status, code = "unavailable", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	httpx.WriteJSON(w, code, h.report(status, checks))
}
