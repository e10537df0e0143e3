package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adityakhanna/vastra-backend/api/controllers"
	analyticscontrollers "github.com/adityakhanna/vastra-backend/api/controllers/analytics"
	cartcontrollers "github.com/adityakhanna/vastra-backend/api/controllers/cart"
	catalogcontrollers "github.com/adityakhanna/vastra-backend/api/controllers/catalog"
	checkoutcontrollers "github.com/adityakhanna/vastra-backend/api/controllers/checkout"
	collectioncontrollers "github.com/adityakhanna/vastra-backend/api/controllers/collections"
	combocontrollers "github.com/adityakhanna/vastra-backend/api/controllers/combos"
	couponcontrollers "github.com/adityakhanna/vastra-backend/api/controllers/coupons"
	ordercontrollers "github.com/adityakhanna/vastra-backend/api/controllers/orders"
	"github.com/adityakhanna/vastra-backend/api/middleware"
	analyticssvc "github.com/adityakhanna/vastra-backend/internal/analytics"
	cartsvc "github.com/adityakhanna/vastra-backend/internal/cart"
	catalogsvc "github.com/adityakhanna/vastra-backend/internal/catalog"
	checkoutsvc "github.com/adityakhanna/vastra-backend/internal/checkout"
	collectionsvc "github.com/adityakhanna/vastra-backend/internal/collections"
	combosvc "github.com/adityakhanna/vastra-backend/internal/combos"
	couponsvc "github.com/adityakhanna/vastra-backend/internal/coupons"
	ordersvc "github.com/adityakhanna/vastra-backend/internal/orders"
	"github.com/adityakhanna/vastra-backend/pkg/config"
	"github.com/adityakhanna/vastra-backend/pkg/logger"
	"github.com/adityakhanna/vastra-backend/pkg/metrics"
	"github.com/adityakhanna/vastra-backend/pkg/redis"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	Redis       *redis.Client
	HTTPMetrics *metrics.HTTPMetrics
	Pingers     map[string]controllers.Pinger

	Catalog     catalogsvc.Service
	Collections collectionsvc.Service
	Combos      combosvc.Service
	Coupons     couponsvc.Service
	Cart        cartsvc.Service
	Checkout    checkoutsvc.Service
	Orders      ordersvc.Service
	Reports     *analyticssvc.Reports
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(deps.HTTPMetrics),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Pingers))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	couponPolicy := middleware.NewCouponRateLimitPolicy(
		cfg.RateLimit.CouponWindow,
		cfg.RateLimit.CouponIPLimit,
		cfg.RateLimit.CouponCodeLimit,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		// Public catalog surface, no session required.
		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogcontrollers.List(deps.Catalog, logg))
			r.Get("/{slug}", catalogcontrollers.Detail(deps.Catalog, logg))
		})
		r.Route("/collections", func(r chi.Router) {
			r.Get("/", collectioncontrollers.List(deps.Collections, logg))
			r.Get("/{slug}", collectioncontrollers.Detail(deps.Collections, logg))
		})

		// Session-scoped storefront surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.SessionContext(logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartcontrollers.Fetch(deps.Cart, logg))
				r.Delete("/", cartcontrollers.Clear(deps.Cart, deps.Coupons, logg))
				r.Post("/items", cartcontrollers.AddItem(deps.Cart, logg))
				r.Patch("/items", cartcontrollers.UpdateItem(deps.Cart, deps.Coupons, logg))
				r.Delete("/items/{productId}", cartcontrollers.RemoveItem(deps.Cart, deps.Coupons, logg))
				r.Post("/sanitize", cartcontrollers.Sanitize(deps.Cart, logg))
			})

			r.Route("/coupons", func(r chi.Router) {
				r.With(middleware.CouponRateLimit(couponPolicy, deps.Redis, logg)).
					Post("/apply", couponcontrollers.Apply(deps.Coupons, deps.Cart, logg))
				r.Delete("/applied", couponcontrollers.Remove(deps.Coupons, logg))
				r.Get("/applied", couponcontrollers.GetApplied(deps.Coupons, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Post("/", checkoutcontrollers.CreateOrder(deps.Checkout, logg))
				r.Post("/{orderId}/gateway-order", checkoutcontrollers.CreateGatewayOrder(deps.Checkout, logg))
				r.Post("/{orderId}/verify", checkoutcontrollers.VerifyPayment(deps.Checkout, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.List(deps.Orders, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(deps.Orders, logg))
				r.Post("/{orderId}/cancel", ordercontrollers.Cancel(deps.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(deps.Redis, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", catalogcontrollers.AdminCreate(deps.Catalog, logg))
			r.Patch("/{productId}", catalogcontrollers.AdminUpdate(deps.Catalog, logg))
			r.Delete("/{productId}", catalogcontrollers.AdminDelete(deps.Catalog, logg))
			r.Put("/{productId}/stock", catalogcontrollers.AdminSetStock(deps.Catalog, logg))
		})

		r.Route("/collections", func(r chi.Router) {
			r.Post("/", collectioncontrollers.AdminCreate(deps.Collections, logg))
			r.Patch("/{collectionId}", collectioncontrollers.AdminUpdate(deps.Collections, logg))
			r.Delete("/{collectionId}", collectioncontrollers.AdminDelete(deps.Collections, logg))
			r.Put("/{collectionId}/products", collectioncontrollers.AdminSetProducts(deps.Collections, logg))
		})

		r.Route("/combos", func(r chi.Router) {
			r.Get("/", combocontrollers.AdminList(deps.Combos, logg))
			r.Post("/", combocontrollers.AdminCreate(deps.Combos, logg))
			r.Put("/{comboId}", combocontrollers.AdminUpdate(deps.Combos, logg))
			r.Delete("/{comboId}", combocontrollers.AdminDelete(deps.Combos, logg))
		})

		r.Route("/coupons", func(r chi.Router) {
			r.Get("/", couponcontrollers.AdminList(deps.Coupons, logg))
			r.Post("/", couponcontrollers.AdminCreate(deps.Coupons, logg))
			r.Put("/{couponId}", couponcontrollers.AdminUpdate(deps.Coupons, logg))
			r.Delete("/{couponId}", couponcontrollers.AdminDelete(deps.Coupons, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.AdminList(deps.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.AdminDetail(deps.Orders, logg))
			r.Post("/{orderId}/status", ordercontrollers.AdminUpdateStatus(deps.Orders, logg))
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/revenue-by-day", analyticscontrollers.RevenueByDay(deps.Reports, logg))
			r.Get("/channel-split", analyticscontrollers.ChannelSplit(deps.Reports, logg))
			r.Get("/top-products", analyticscontrollers.TopProducts(deps.Reports, logg))
			r.Get("/combo-attachment", analyticscontrollers.ComboAttachment(deps.Reports, logg))
		})
	})

	return r
}
