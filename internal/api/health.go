package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/render"

	logx "github.com/Chative-commerce/server/pkg/logger"
)

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health handles GET /healthz; any failing dependency yields 503.
func Health(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		out := HealthResponse{Status: "ok"}
		if len(deps) > 0 {
			out.Checks = make(map[string]string, len(deps))
		}
		for name, p := range deps {
			if err := p.Ping(ctx); err != nil {
				logx.Warn().Err(err).Str("dependency", name).Msg("health check failed")
				out.Checks[name] = "down"
				out.Status = "degraded"
				continue
			}
			out.Checks[name] = "ok"
		}

		if out.Status != "ok" {
			render.Status(r, http.StatusServiceUnavailable)
		}
		render.JSON(w, r, out)
	}
}
