package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tillworks/tillworks-backend/api/controllers"
	"github.com/tillworks/tillworks-backend/api/middleware"
	"github.com/tillworks/tillworks-backend/internal/reconcile"
	"github.com/tillworks/tillworks-backend/internal/sessions"
	"github.com/tillworks/tillworks-backend/pkg/config"
	"github.com/tillworks/tillworks-backend/pkg/logger"
	pkgredis "github.com/tillworks/tillworks-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	registry *prometheus.Registry,
	dbPinger controllers.Pinger,
	redisClient *pkgredis.Client,
	pubsubPinger controllers.Pinger,
	sessionService sessions.Service,
	reconcileService reconcile.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisPinger controllers.Pinger
	var idempotencyStore pkgredis.IdempotencyStore
	if redisClient != nil {
		redisPinger = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbPinger, redisPinger, pubsubPinger))
	})

	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/drawer", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", controllers.DrawerSessionOpen(sessionService, logg))
			r.Get("/current", controllers.DrawerSessionCurrent(sessionService, logg))

			r.Route("/{sessionId}", func(r chi.Router) {
				r.Get("/", controllers.DrawerSessionDetail(sessionService, logg))
				r.Get("/summary", controllers.DrawerSessionSummary(reconcileService, logg))
				r.Get("/movements", controllers.DrawerMovementList(sessionService, logg))
				r.Post("/movements", controllers.DrawerMovementCreate(sessionService, logg))
				r.Post("/close", controllers.DrawerSessionClose(reconcileService, logg))
			})
		})
	})

	return r
}
