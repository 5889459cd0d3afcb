package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/furnhaven/cart-service/internal/service"
	"github.com/furnhaven/cart-service/pkg/health"
	"github.com/furnhaven/cart-service/pkg/middleware"
)

// NewRouter creates a chi router with all cart service routes registered.
func NewRouter(
	cartService *service.CartService,
	couponService *service.CouponService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("cart"))
	r.Use(middleware.Tracing("cart"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	cartHandler := NewCartHandler(cartService, logger)
	couponHandler := NewCouponHandler(couponService, logger)

	r.Route("/api/v1/cart", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(OwnerFromHeaders)

		r.Get("/", cartHandler.GetCart)
		r.Delete("/", cartHandler.ClearCart)

		r.Post("/items", cartHandler.AddItem)
		r.Put("/items", cartHandler.UpdateItemQuantity)
		r.Delete("/items", cartHandler.RemoveItem)

		r.Post("/coupon", cartHandler.ApplyCoupon)
		r.Delete("/coupon", cartHandler.RemoveCoupon)
	})

	r.Route("/api/v1/coupons", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/validate", couponHandler.Validate)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/{code}/redeem", couponHandler.Redeem)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Post("/", couponHandler.Create)
			r.Delete("/{code}", couponHandler.Delete)
		})

		r.Get("/", couponHandler.List)
		r.Get("/{code}", couponHandler.Get)
	})

	return r
}
