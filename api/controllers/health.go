package controllers

import (
	"context"
	"net/http"

	"github.com/posdesk/posd/api/responses"
	"github.com/posdesk/posd/pkg/config"
	"github.com/posdesk/posd/pkg/logger"
)

// Pinger checks one dependency for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Posd-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]any{"success": true, "status": "live"})
	}
}

// HealthReady reports upstream reachability. The daemon is still "ready"
// when the origin is down: serving cached state offline is its whole job,
// so the upstream flag is informational.
func HealthReady(cfg *config.Config, logg *logger.Logger, upstream Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Posd-Env", cfg.App.Env)

		online := true
		if upstream != nil {
			if err := upstream.Ping(r.Context()); err != nil {
				online = false
				if logg != nil {
					logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "health.upstream_down")
				}
			}
		}

		responses.WriteSuccess(w, map[string]any{
			"success": true,
			"status":  "ready",
			"online":  online,
		})
	}
}
