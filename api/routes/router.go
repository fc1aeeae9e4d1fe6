package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/trovemart/trovemart-backend/api/controllers"
	"github.com/trovemart/trovemart-backend/api/middleware"
	"github.com/trovemart/trovemart-backend/internal/cart"
	checkoutsvc "github.com/trovemart/trovemart-backend/internal/checkout"
	"github.com/trovemart/trovemart-backend/internal/notifications"
	"github.com/trovemart/trovemart-backend/internal/orders"
	"github.com/trovemart/trovemart-backend/internal/payments"
	"github.com/trovemart/trovemart-backend/internal/payouts"
	"github.com/trovemart/trovemart-backend/pkg/config"
	"github.com/trovemart/trovemart-backend/pkg/enums"
	"github.com/trovemart/trovemart-backend/pkg/logger"
	"github.com/trovemart/trovemart-backend/pkg/metrics"
	"github.com/trovemart/trovemart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	database controllers.Pinger,
	redisClient *redis.Client,
	cartService cart.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
	paymentsService payments.Service,
	payoutsService payouts.Service,
	notificationsService notifications.Service,
	webhookMetrics *metrics.WebhookMetrics,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, database, redisClient, logg))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	// Gateway callbacks authenticate by signature, not bearer token.
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", controllers.RazorpayWebhook(paymentsService, webhookMetrics, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/v1", func(r chi.Router) {
			r.Get("/cart", controllers.CartGet(cartService, logg))
			r.Delete("/cart", controllers.CartClear(cartService, logg))
			r.Post("/cart/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/cart/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/cart/items/{itemId}", controllers.CartRemoveItem(cartService, logg))

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/summary", controllers.CheckoutSummary(checkoutService, logg))
				r.Post("/apply-coupon", controllers.CheckoutApplyCoupon(checkoutService, logg))
			})

			r.Post("/orders", controllers.OrderCreate(checkoutService, logg))
			r.Get("/orders", controllers.OrderList(ordersService, logg))
			r.Get("/orders/{orderId}", controllers.OrderDetail(ordersService, logg))
			r.Post("/orders/{orderId}/cancel", controllers.OrderCancel(ordersService, logg))

			r.Post("/payments/initiate", controllers.PaymentInitiate(paymentsService, logg))

			r.Get("/notifications", controllers.NotificationList(notificationsService, logg))
			r.Get("/notifications/unread-count", controllers.NotificationUnreadCount(notificationsService, logg))
			r.Post("/notifications/{notificationId}/read", controllers.NotificationRead(notificationsService, logg))
			r.Post("/notifications/read-all", controllers.NotificationReadAll(notificationsService, logg))
		})

		r.Route("/admin/v1", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.RoleAdmin), logg))

			r.Patch("/orders/{orderId}/status", controllers.AdminOrderStatus(ordersService, logg))
			r.Post("/orders/{orderId}/ship", controllers.AdminOrderShip(ordersService, logg))
			r.Post("/orders/{orderId}/sellers/{sellerId}/delivered", controllers.AdminSellerDelivered(ordersService, logg))
			r.Post("/payments/{orderId}/cod-collected", controllers.AdminCODCollected(paymentsService, logg))
			r.Post("/payouts/{orderId}/settle", controllers.AdminPayoutSettle(payoutsService, logg))
			r.Get("/payouts/{orderId}", controllers.AdminPayoutHistory(payoutsService, logg))
		})
	})

	return r
}
