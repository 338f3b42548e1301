package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Sivaraj16/medicals/internal/auth"
	"github.com/Sivaraj16/medicals/internal/service"
	"github.com/Sivaraj16/medicals/pkg/health"
	"github.com/Sivaraj16/medicals/pkg/middleware"
)

const requestTimeout = 30 * time.Second

// Services groups the application services exposed over HTTP.
type Services struct {
	Inventory *service.InventoryService
	Checkout  *service.CheckoutService
	Orders    *service.OrderService
	Dashboard *service.DashboardService
	Carts     *service.CartService
	Restocks  *service.RestockService
	Auth      *service.AuthService
}

// RouterConfig holds the cross-cutting router settings.
type RouterConfig struct {
	// Tokens validates bearer tokens. Nil leaves the API open.
	Tokens     middleware.TokenValidator
	Registry   prometheus.Registerer
	Gatherer   prometheus.Gatherer
	PprofCIDRs []string
	CORS       middleware.CORSConfig
}

// NewRouter creates a chi router with all pharmacy routes registered.
func NewRouter(svc Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	if cfg.Registry == nil {
		cfg.Registry = prometheus.NewRegistry()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.NewHTTPMetrics(cfg.Registry, "medicals").Handler)
	r.Use(middleware.Tracing())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Operational endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	middleware.RegisterPprof(r, cfg.PprofCIDRs, logger)

	if svc.Auth != nil {
		authHandler := NewAuthHandler(svc.Auth, logger)
		r.Route("/auth", func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Use(middleware.NoStore)

			r.Post("/login", authHandler.Login)
		})
	}

	inventoryHandler := NewInventoryHandler(svc.Inventory, logger)
	orderHandler := NewOrderHandler(svc.Checkout, svc.Orders, logger)
	dashboardHandler := NewDashboardHandler(svc.Dashboard, logger)
	cartHandler := NewCartHandler(svc.Carts, logger)
	restockHandler := NewRestockHandler(svc.Restocks, logger)

	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.NoStore)
		if cfg.Tokens != nil {
			r.Use(middleware.Auth(cfg.Tokens))
		}

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", inventoryHandler.List)
			r.Post("/", inventoryHandler.Create)
			r.Get("/expired", inventoryHandler.Expired)
			r.Get("/expiring", inventoryHandler.Expiring)
			r.Get("/discounted", inventoryHandler.Discounted)
			r.Get("/out-of-stock", inventoryHandler.OutOfStock)
			r.Get("/search", inventoryHandler.Search)

			r.Get("/{id}", inventoryHandler.Get)
			r.Put("/{id}", inventoryHandler.Update)
			r.Post("/{id}/discount", inventoryHandler.ApplyDiscount)
			r.With(requireRole(cfg.Tokens != nil, auth.RoleAdmin, auth.RoleOperator)).
				Delete("/{id}", inventoryHandler.Delete)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.List)
			r.Post("/", orderHandler.PlaceOrder)
			r.Get("/{id}", orderHandler.Get)
		})

		r.Get("/dashboard", dashboardHandler.Summary)

		r.Route("/carts", func(r chi.Router) {
			r.Post("/", cartHandler.Open)
			r.Get("/{id}", cartHandler.Get)
			r.Patch("/{id}", cartHandler.Update)
			r.Delete("/{id}", cartHandler.Discard)
			r.Post("/{id}/checkout", cartHandler.Checkout)

			r.Post("/{id}/items", cartHandler.AddItem)
			r.Put("/{id}/items/{medicineId}", cartHandler.UpdateItem)
			r.Delete("/{id}/items/{medicineId}", cartHandler.RemoveItem)
		})

		r.Route("/restock-requests", func(r chi.Router) {
			r.Get("/", restockHandler.List)
			r.Post("/", restockHandler.Create)
			r.Get("/{id}", restockHandler.Get)
			r.Post("/{id}/receive", restockHandler.Receive)
			r.Post("/{id}/cancel", restockHandler.Cancel)
		})
	})

	return r
}

// requireRole enforces roles only when authentication is on.
func requireRole(enabled bool, roles ...string) func(http.Handler) http.Handler {
	if !enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RequireRole(roles...)
}
