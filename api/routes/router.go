package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/cart"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/reviews"
	"github.com/angelmondragon/bazaar-backend/pkg/auth/session"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	"github.com/angelmondragon/bazaar-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// requestStore backs idempotent replays and write throttling.
type requestStore interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

type sessionStore interface {
	session.RevocationChecker
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// Services groups the domain services mounted by the router.
type Services struct {
	Cart          cart.Service
	Orders        orders.Service
	Products      products.Service
	Reviews       reviews.Service
	Notifications notifications.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	gatherer prometheus.Gatherer,
	store requestStore,
	sessions sessionStore,
	svc Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.AllowedOrigins()),
	)

	writePolicy := middleware.NewRateLimitPolicy("writes", cfg.RateLimit.WriteWindow, cfg.RateLimit.WriteLimit)
	suppliersOnly := middleware.RequireRole(logg, enums.RoleSupplier, enums.RoleAdmin)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	r.Route("/api/v1", func(r chi.Router) {
		// public catalog reads
		r.Get("/products/{productId}", controllers.ProductDetail(svc.Products, logg))
		r.Get("/products/{productId}/stock", controllers.ProductStockStatus(svc.Products, logg))
		r.Get("/products/{productId}/reviews", controllers.ProductReviewList(svc.Reviews, logg))
		r.Get("/suppliers/{supplierId}/reviews", controllers.SupplierReviewList(svc.Reviews, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, sessions, logg))
			r.Use(middleware.RateLimit(writePolicy, store, logg))
			r.Use(middleware.Idempotency(store, cfg.Eventing.HTTPIdempotencyTTL, logg))

			r.Post("/auth/logout", controllers.AuthLogout(sessions, cfg.JWT, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartFetch(svc.Cart, logg))
				r.Delete("/", controllers.CartClear(svc.Cart, logg))
				r.Post("/items", controllers.CartAddItem(svc.Cart, logg))
				r.Put("/items/{itemId}", controllers.CartUpdateItem(svc.Cart, logg))
				r.Delete("/items/{itemId}", controllers.CartRemoveItem(svc.Cart, logg))
			})

			r.Route("/products/orders", func(r chi.Router) {
				r.Post("/", controllers.OrdersCreate(svc.Orders, logg))
				r.Get("/", controllers.OrdersList(svc.Orders, logg))
				r.Get("/{orderId}", controllers.OrdersDetail(svc.Orders, logg))
				r.With(suppliersOnly).Put("/{orderId}/status", controllers.OrdersUpdateStatus(svc.Orders, logg))
				r.Put("/{orderId}/cancel", controllers.OrdersCancel(svc.Orders, logg))
				r.With(suppliersOnly).Post("/{orderId}/tracking", controllers.OrdersAddTracking(svc.Orders, logg))
				r.Get("/{orderId}/tracking", controllers.OrdersTracking(svc.Orders, logg))
			})

			r.With(suppliersOnly).Put("/products/{productId}/stock", controllers.ProductUpdateStock(svc.Products, logg))
			r.With(suppliersOnly).Put("/products/{productId}/price", controllers.ProductUpdatePrice(svc.Products, logg))
			r.With(suppliersOnly).Get("/products/{productId}/activity", controllers.ProductActivity(svc.Products, logg))

			r.Post("/products/{productId}/reviews", controllers.ProductReviewCreate(svc.Reviews, logg))
			r.Post("/suppliers/{supplierId}/reviews", controllers.SupplierReviewCreate(svc.Reviews, logg))
			r.With(middleware.RequireRole(logg, enums.RoleSupplier)).
				Post("/reviews/{reviewId}/reply", controllers.ReviewReply(svc.Reviews, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
			})
		})
	})

	return r
}
