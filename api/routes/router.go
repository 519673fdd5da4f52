package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gatherly-app/gatherly-backend/api/controllers"
	webhookcontrollers "github.com/gatherly-app/gatherly-backend/api/controllers/webhooks"
	"github.com/gatherly-app/gatherly-backend/api/middleware"
	"github.com/gatherly-app/gatherly-backend/internal/ingest"
	"github.com/gatherly-app/gatherly-backend/internal/notifications"
	"github.com/gatherly-app/gatherly-backend/internal/posts"
	webhooksvc "github.com/gatherly-app/gatherly-backend/internal/webhooks"
	"github.com/gatherly-app/gatherly-backend/pkg/config"
	"github.com/gatherly-app/gatherly-backend/pkg/logger"
)

type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	DB            controllers.Pinger
	Redis         controllers.Pinger
	Posts         *posts.Service
	Notifications *notifications.Service
	Webhooks      *webhooksvc.Service
	Ingest        *ingest.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.NamedPinger{Name: "postgres", Pinger: params.DB},
			controllers.NamedPinger{Name: "redis", Pinger: params.Redis},
		))
	})

	// Provider endpoints authenticate with their own signatures, not JWTs.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/hms", webhookcontrollers.HMSWebhook(cfg.HMS, params.Ingest, logg))
		r.Post("/slack", webhookcontrollers.SlackWebhook(cfg.Slack, params.Ingest, logg))
		r.Post("/linear", webhookcontrollers.LinearWebhook(cfg.Linear, params.Ingest, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", controllers.ListPosts(params.Posts, logg))
			r.Post("/", controllers.CreatePost(params.Posts, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(params.Notifications, logg))
		})

		r.Route("/webhook-subscriptions", func(r chi.Router) {
			r.Get("/", controllers.ListWebhookSubscriptions(params.Webhooks, logg))
			r.Post("/", controllers.CreateWebhookSubscription(params.Webhooks, logg))
			r.Get("/{subscriptionId}/events", controllers.ListWebhookEvents(params.Webhooks, logg))
			r.Delete("/{subscriptionId}", controllers.DiscardWebhookSubscription(params.Webhooks, logg))
		})
	})

	return r
}
