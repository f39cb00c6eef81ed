package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_sync_attempts_total",
		Help: "Sync attempts by terminal state and strategy",
	}, []string{"state", "strategy"})

	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "marketplace_sync_duration_seconds",
		Help:    "Duration of single product sync attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})

	ColorListingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_color_listings_total",
		Help: "Per-color listing outcomes during split syncs",
	}, []string{"action"})

	StrategyFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_strategy_fallbacks_total",
		Help: "GraphQL split syncs that fell back to REST",
	})

	ExternalErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_external_errors_total",
		Help: "External API errors by classification",
	}, []string{"kind"})

	PricingVariantsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "marketplace_pricing_variants_updated_total",
		Help: "Variant prices pushed to the marketplace",
	})

	ReconcileActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "marketplace_reconcile_actions_total",
		Help: "Link reconciliation writes by action",
	}, []string{"action"})
)

// Handler exposes the default registry on a Fiber route.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
