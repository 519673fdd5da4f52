package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gatherly-app/gatherly-backend/api/responses"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	pkgerrors "github.com/gatherly-app/gatherly-backend/pkg/errors"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

const readyCheckTimeout = 2 * time.Second

// Pinger is anything whose liveness gates readiness (database, redis).
type Pinger interface {
	Ping(ctx context.Context) error
}

// NamedPinger ties a dependency name to its health check for the ready report.
type NamedPinger struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gatherly-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every registered dependency answers.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps ...NamedPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gatherly-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		for _, dep := range deps {
			if dep.Pinger == nil {
				continue
			}
			if err := dep.Pinger.Ping(ctx); err != nil {
				checks[dep.Name] = "unavailable"
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, dep.Name+" unavailable"))
				return
			}
			checks[dep.Name] = "ok"
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
