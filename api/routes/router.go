package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tidemarkdata/clickstream-engine/api/controllers"
	"github.com/tidemarkdata/clickstream-engine/api/middleware"
	"github.com/tidemarkdata/clickstream-engine/pkg/config"
	"github.com/tidemarkdata/clickstream-engine/pkg/db"
	"github.com/tidemarkdata/clickstream-engine/pkg/logger"
	"github.com/tidemarkdata/clickstream-engine/pkg/redis"
)

// NewRouter assembles the read-only monitoring surface: health probes, the
// latest run's counters, and Prometheus metrics. The reporting layer proper
// lives elsewhere; this service never mutates the warehouse.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	runReader controllers.RunReader,
	gatherer prometheus.Gatherer,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	deps := map[string]controllers.Pinger{}
	if dbClient != nil {
		deps["warehouse"] = dbClient
	}
	if redisClient != nil {
		deps["redis"] = redisClient
	}

	r.Route("/healthz", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/runs/latest", controllers.LatestRun(runReader, logg))
	})

	if gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
