package controllers

import (
	"context"
	"net/http"

	"github.com/tillworks/tillworks-backend/api/responses"
	"github.com/tillworks/tillworks-backend/pkg/config"
	pkgerrors "github.com/tillworks/tillworks-backend/pkg/errors"
	"github.com/tillworks/tillworks-backend/pkg/logger"
)

// Pinger is the readiness surface a backing resource must expose.
type Pinger interface {
	Ping(context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TillWorks-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every wired resource. Optional resources pass nil.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, pubsub Pinger) http.HandlerFunc {
	resources := []struct {
		name   string
		pinger Pinger
	}{
		{name: "database", pinger: db},
		{name: "redis", pinger: redis},
		{name: "pubsub", pinger: pubsub},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-TillWorks-Env", cfg.App.Env)

		statuses := map[string]string{}
		failed := false
		for _, resource := range resources {
			if resource.pinger == nil {
				statuses[resource.name] = "disabled"
				continue
			}
			if err := resource.pinger.Ping(r.Context()); err != nil {
				statuses[resource.name] = "error"
				failed = true
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed: "+resource.name, err)
				}
				continue
			}
			statuses[resource.name] = "ok"
		}

		if failed {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeDependency, "service not ready").WithDetails(statuses))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "resources": statuses})
	}
}
