package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/stockledger/api/controllers"
	"github.com/angelmondragon/stockledger/api/controllers/items"
	"github.com/angelmondragon/stockledger/api/controllers/ledger"
	"github.com/angelmondragon/stockledger/api/controllers/orders"
	"github.com/angelmondragon/stockledger/api/middleware"
	"github.com/angelmondragon/stockledger/internal/stock"
	"github.com/angelmondragon/stockledger/pkg/config"
	"github.com/angelmondragon/stockledger/pkg/logger"
	"github.com/angelmondragon/stockledger/pkg/redis"
)

// NewRouter mounts the health probes, the metrics endpoint and the stock API.
// redisP and idemStore may be nil when Redis is not configured; metricsHandler
// may be nil when metrics are disabled.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	idemStore redis.IdempotencyStore,
	stockService stock.Service,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsHandler != nil && cfg.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Metrics.Path, metricsHandler)
	}

	if !cfg.FeatureFlags.Idempotency {
		idemStore = nil
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Get("/ping", controllers.PublicPing())

		r.Route("/v1/items", func(r chi.Router) {
			r.Get("/", items.List(stockService, logg))
			r.Post("/", items.Register(stockService, logg))
			r.Route("/{sku}", func(r chi.Router) {
				r.Get("/", items.Detail(stockService, logg))
				r.Get("/transactions", items.Transactions(stockService, logg))
				r.Post("/adjust", items.Adjust(stockService, logg))
				r.Post("/physical-count", items.PhysicalCount(stockService, logg))
				r.Post("/move", items.Move(stockService, logg))
			})
		})

		r.Get("/v1/transactions", ledger.List(stockService, logg))

		r.Route("/v1/orders/{orderId}", func(r chi.Router) {
			r.Get("/allocations", orders.Allocations(stockService, logg))
			r.Post("/reserve", orders.Reserve(stockService, logg))
			r.Post("/ship", orders.Ship(stockService, logg))
			r.Post("/release", orders.Release(stockService, logg))
		})
	})

	return r
}
