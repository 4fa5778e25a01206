package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reloved-shop/reloved-backend/api/controllers"
	"github.com/reloved-shop/reloved-backend/api/middleware"
	"github.com/reloved-shop/reloved-backend/internal/cart"
	checkoutsvc "github.com/reloved-shop/reloved-backend/internal/checkout"
	"github.com/reloved-shop/reloved-backend/internal/orders"
	product "github.com/reloved-shop/reloved-backend/internal/products"
	"github.com/reloved-shop/reloved-backend/pkg/config"
	"github.com/reloved-shop/reloved-backend/pkg/db"
	"github.com/reloved-shop/reloved-backend/pkg/logger"
	pkgredis "github.com/reloved-shop/reloved-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *pkgredis.Client,
	metricsHandler http.Handler,
	cartManager *cart.Manager,
	stockService controllers.StockService,
	productService product.Service,
	checkoutService checkoutsvc.Service,
	ordersService orders.Service,
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
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(productService, logg))
		r.Get("/{productId}", controllers.ProductDetail(productService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Owner(cfg.JWT, logg))
		r.Use(middleware.RateLimit(redisClient, cfg.RateLimit, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartManager, logg))
			r.Delete("/", controllers.CartClear(cartManager, logg))
			r.Post("/lines", controllers.CartAddLine(cartManager, stockService, logg))
			r.Patch("/lines/{productId}", controllers.CartUpdateLine(cartManager, logg))
			r.Delete("/lines/{productId}", controllers.CartRemoveLine(cartManager, logg))
			r.Post("/merge", controllers.CartMerge(cartManager, logg))
		})

		r.Post("/checkout", controllers.Checkout(checkoutService, cartManager, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(ordersService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(ordersService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Owner(cfg.JWT, logg))
		r.Use(middleware.RequireUser(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/products", func(r chi.Router) {
			r.Post("/", controllers.AdminProductCreate(productService, logg))
			r.Patch("/{productId}", controllers.AdminProductUpdate(productService, logg))
		})
		r.Post("/orders/{orderId}/status", controllers.AdminOrderStatus(ordersService, logg))
	})

	return r
}
