package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/creatorhub-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/creatorhub-backend/api/controllers/webhooks"
	"github.com/angelmondragon/creatorhub-backend/api/middleware"
	"github.com/angelmondragon/creatorhub-backend/internal/donations"
	"github.com/angelmondragon/creatorhub-backend/internal/photos"
	"github.com/angelmondragon/creatorhub-backend/internal/releases"
	"github.com/angelmondragon/creatorhub-backend/internal/scripts"
	"github.com/angelmondragon/creatorhub-backend/pkg/config"
	"github.com/angelmondragon/creatorhub-backend/pkg/db"
	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
	"github.com/angelmondragon/creatorhub-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/creatorhub-backend/pkg/redis"
)

// RedisStore is the slice of the redis client the HTTP surface relies on.
type RedisStore interface {
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
	Ping(ctx context.Context) error
}

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       db.Pinger
	Redis    RedisStore
	Gatherer prometheus.Gatherer
	HTTP     *metrics.HTTPMetrics

	Releases  releases.Service
	Scripts   scripts.Service
	Photos    photos.Service
	Donations donations.Service

	StripeSigner   webhookcontrollers.StripeSigner
	StripeWebhooks webhookcontrollers.StripeWebhookService
	WebhookGuard   webhookcontrollers.StripeEventGuard
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTP),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.RateLimit.CheckoutWindow,
		cfg.RateLimit.CheckoutIPLimit,
		cfg.RateLimit.CheckoutEmailLimit,
	)

	pingers := map[string]controllers.Pinger{}
	if deps.DB != nil {
		pingers["db"] = deps.DB
	}
	if deps.Redis != nil {
		pingers["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(deps.StripeWebhooks, deps.StripeSigner, deps.WebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.OptionalAuth(cfg.JWT, logg))
			r.Use(middleware.RateLimit(checkoutPolicy, deps.Redis, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))
			r.Post("/donations/checkout", controllers.DonationCheckout(deps.Donations, logg))
		})

		// Published catalog reads.
		r.Group(func(r chi.Router) {
			r.Get("/releases", controllers.ReleaseList(deps.Releases, logg))
			r.Get("/releases/{releaseId}", controllers.ReleaseGet(deps.Releases, logg))
			r.Get("/photos/gallery", controllers.PhotoGallery(deps.Photos, logg))
			r.Get("/photos/{photoId}", controllers.PhotoGet(deps.Photos, logg))
			r.Get("/users/{userId}/releases", controllers.ReleasesByOwner(deps.Releases, logg))
			r.Get("/users/{userId}/photos", controllers.PhotosByOwner(deps.Photos, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Get("/ping", controllers.PrivatePing())

			r.Post("/releases", controllers.ReleaseCreate(deps.Releases, logg))
			r.Patch("/releases/{releaseId}", controllers.ReleaseUpdate(deps.Releases, logg))
			r.Delete("/releases/{releaseId}", controllers.ReleaseDelete(deps.Releases, logg))

			r.Post("/scripts", controllers.ScriptCreate(deps.Scripts, logg))
			r.Get("/scripts/hash/{contentHash}", controllers.ScriptByHash(deps.Scripts, logg))
			r.Get("/scripts/{scriptId}", controllers.ScriptGet(deps.Scripts, logg))
			r.Patch("/scripts/{scriptId}", controllers.ScriptUpdate(deps.Scripts, logg))
			r.Delete("/scripts/{scriptId}", controllers.ScriptDelete(deps.Scripts, logg))
			r.Get("/users/{userId}/scripts", controllers.ScriptsByOwner(deps.Scripts, logg))

			r.Post("/photos", controllers.PhotoCreate(deps.Photos, logg))
			r.Get("/photos/hash/{contentHash}", controllers.PhotoByHash(deps.Photos, logg))
			r.Patch("/photos/{photoId}", controllers.PhotoUpdate(deps.Photos, logg))
			r.Delete("/photos/{photoId}", controllers.PhotoDelete(deps.Photos, logg))

			r.Get("/donations/sent", controllers.DonationsSent(deps.Donations, logg))
			r.Get("/donations/received", controllers.DonationsReceived(deps.Donations, logg))
			r.Get("/donations/{donationId}", controllers.DonationGet(deps.Donations, logg))
		})
	})

	return r
}
