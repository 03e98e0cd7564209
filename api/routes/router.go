package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/janiele376/projeto-pet-shop-fullstack/api/controllers"
	cartcontrollers "github.com/janiele376/projeto-pet-shop-fullstack/api/controllers/cart"
	guestcontrollers "github.com/janiele376/projeto-pet-shop-fullstack/api/controllers/guestcart"
	ordercontrollers "github.com/janiele376/projeto-pet-shop-fullstack/api/controllers/orders"
	"github.com/janiele376/projeto-pet-shop-fullstack/api/middleware"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/cart"
	checkoutsvc "github.com/janiele376/projeto-pet-shop-fullstack/internal/checkout"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/guestcart"
	"github.com/janiele376/projeto-pet-shop-fullstack/internal/orders"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/config"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/db"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/logger"
	"github.com/janiele376/projeto-pet-shop-fullstack/pkg/metrics"
	pkgredis "github.com/janiele376/projeto-pet-shop-fullstack/pkg/redis"
)

// redisStore is the slice of the Redis client the HTTP layer relies on.
type redisStore interface {
	pkgredis.Pinger
	pkgredis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient redisStore,
	httpMetrics *metrics.HTTPMetrics,
	cartService cart.Service,
	merger cartcontrollers.Merger,
	checkoutService checkoutsvc.Service,
	guestService guestcart.Service,
	ordersService orders.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID(logg),
		middleware.Recoverer(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Metrics(httpMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})

	idempotent := middleware.Idempotency(redisClient, logg)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.FeatureFlags.GuestCart {
			r.Route("/guest-cart", func(r chi.Router) {
				r.Use(middleware.GuestSession(logg))
				r.Use(middleware.GuestRateLimit(
					middleware.NewGuestRateLimitPolicy(cfg.RateLimit.GuestWindow, cfg.RateLimit.GuestIPLimit, cfg.RateLimit.GuestSessionLimit),
					redisClient,
					logg,
				))
				r.Get("/", guestcontrollers.Read(guestService, logg))
				r.Post("/clear", guestcontrollers.Clear(guestService, logg))
				r.With(idempotent).Post("/items", guestcontrollers.AddItem(guestService, logg))
				r.Delete("/items/{productId}", guestcontrollers.RemoveItem(guestService, logg))
			})
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Read(cartService, logg))
				r.Post("/clear", cartcontrollers.Clear(cartService, logg))
				r.With(idempotent).Post("/items", cartcontrollers.AddItem(cartService, logg))
				r.Delete("/items/{lineId}", cartcontrollers.RemoveItem(cartService, logg))
				r.With(idempotent).Post("/merge", cartcontrollers.Merge(merger, logg))
				r.With(idempotent).Post("/checkout", cartcontrollers.Checkout(checkoutService, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(ordersService, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			})
		})
	})

	return r
}
