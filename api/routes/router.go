package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fungalflux/storefront-backend/api/controllers"
	"github.com/fungalflux/storefront-backend/api/middleware"
	cartsvc "github.com/fungalflux/storefront-backend/internal/cart"
	checkoutsvc "github.com/fungalflux/storefront-backend/internal/checkout"
	ordersvc "github.com/fungalflux/storefront-backend/internal/orders"
	paymentsvc "github.com/fungalflux/storefront-backend/internal/payments"
	"github.com/fungalflux/storefront-backend/internal/pricing"
	productsvc "github.com/fungalflux/storefront-backend/internal/products"
	"github.com/fungalflux/storefront-backend/pkg/config"
	"github.com/fungalflux/storefront-backend/pkg/db"
	"github.com/fungalflux/storefront-backend/pkg/logger"
	"github.com/fungalflux/storefront-backend/pkg/metrics"
	"github.com/fungalflux/storefront-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       redis.Pinger
	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics
	Calculator  pricing.Calculator

	Products productsvc.Service
	Cart     cartsvc.Service
	Checkout checkoutsvc.Service
	Payments paymentsvc.Service
	Orders   ordersvc.Service
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
		middleware.CORS(cfg.App.Origins()),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DB, deps.Redis))
	})

	if deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", controllers.ProductList(deps.Products, logg))
		r.Get("/products/{productId}", controllers.ProductDetail(deps.Products, logg))

		// Storefront surfaces are scoped to the anonymous session id.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(logg))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", controllers.CartGet(deps.Cart, deps.Calculator, logg))
				r.Delete("/", controllers.CartClear(deps.Cart, logg))
				r.Post("/items", controllers.CartAddItem(deps.Cart, deps.Calculator, logg))
				r.Patch("/items/{productId}", controllers.CartUpdateItem(deps.Cart, deps.Calculator, logg))
				r.Delete("/items/{productId}", controllers.CartRemoveItem(deps.Cart, deps.Calculator, logg))
			})

			r.Route("/checkout", func(r chi.Router) {
				r.Get("/", controllers.CheckoutGet(deps.Checkout, logg))
				r.Delete("/", controllers.CheckoutReset(deps.Checkout, logg))
				r.Post("/shipping", controllers.CheckoutSubmitShipping(deps.Checkout, logg))
				r.Post("/billing", controllers.CheckoutSubmitBilling(deps.Checkout, logg))
				r.Post("/billing/same-as-shipping", controllers.CheckoutSameAsShipping(deps.Checkout, logg))
				r.Post("/notes", controllers.CheckoutNotes(deps.Checkout, logg))
				r.Post("/back", controllers.CheckoutBack(deps.Checkout, logg))
			})

			r.Route("/payments", func(r chi.Router) {
				r.Post("/intent", controllers.PaymentIntentCreate(deps.Payments, logg))
				r.Post("/confirm", controllers.PaymentConfirm(deps.Payments, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", controllers.OrderSubmit(deps.Orders, logg))
				r.Get("/", controllers.OrderList(deps.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(deps.Orders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.Auth, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Post("/products", controllers.AdminProductCreate(deps.Products, logg))
		r.Patch("/products/{productId}", controllers.AdminProductUpdate(deps.Products, logg))
		r.Delete("/products/{productId}", controllers.AdminProductDelete(deps.Products, logg))
		r.Get("/orders", controllers.AdminOrderList(deps.Orders, logg))
	})

	return r
}
