package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harborline/pricing-service/api/controllers"
	"github.com/harborline/pricing-service/api/middleware"
	"github.com/harborline/pricing-service/internal/pricing"
	"github.com/harborline/pricing-service/internal/rates"
	"github.com/harborline/pricing-service/pkg/config"
	"github.com/harborline/pricing-service/pkg/logger"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Config  *config.Config
	Logger  *logger.Logger
	DB      controllers.Pinger
	Redis   controllers.Pinger
	Pricing pricing.Service
	Rates   rates.Service
	Metrics prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(deps.Logger),
		middleware.RequestID(deps.Logger),
		middleware.Logging(deps.Logger),
		middleware.CORS(deps.Config.CORS.AllowedOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(deps.Config))
		r.Get("/ready", controllers.HealthReady(deps.Config, deps.Logger, deps.DB, deps.Redis))
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/quotes", func(r chi.Router) {
			r.Post("/", controllers.Quote(deps.Pricing, deps.Logger))
			r.Post("/batch", controllers.QuoteBatch(deps.Pricing, deps.Logger))
		})
		r.Route("/currencies", func(r chi.Router) {
			r.Get("/", controllers.ListCurrencies(deps.Rates, deps.Logger))
			r.Get("/{code}", controllers.GetCurrency(deps.Rates, deps.Logger))
			r.Post("/refresh", controllers.RefreshCurrencies(deps.Rates, deps.Logger))
		})
	})

	return r
}
