package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Operation outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeInvalid    = "invalid"
	OutcomeStoreError = "store_error"
)

// Entity resolution outcome labels.
const (
	ResolutionExisting          = "existing"
	ResolutionCreated           = "created"
	ResolutionConflictRecovered = "conflict_recovered"
)

// Metrics contains all Prometheus metrics for the recipe catalog service.
// Metrics are organized by subsystem: catalog operations, entity resolution,
// change events, and the HTTP surface. All counters and histograms are
// registered via promauto with the default Prometheus registry.
type Metrics struct {
	// OperationsTotal counts catalog operations, labeled by operation and outcome.
	OperationsTotal *prometheus.CounterVec

	// OperationDuration observes catalog operation duration in seconds, labeled by operation.
	OperationDuration *prometheus.HistogramVec

	// EntityResolutions counts find-or-create calls, labeled by entity kind and outcome.
	EntityResolutions *prometheus.CounterVec

	// RecipesCreated counts recipes committed by Create.
	RecipesCreated prometheus.Counter

	// RecipesDeleted counts recipes removed by Delete.
	RecipesDeleted prometheus.Counter

	// RecipeViews counts committed view count increments.
	RecipeViews prometheus.Counter

	// RecipesPerPage observes how many recipes list, search and filter return.
	RecipesPerPage *prometheus.HistogramVec

	// EventsPublished counts change events handed to the broker, labeled by event type.
	EventsPublished *prometheus.CounterVec

	// EventsFailed counts change events that could not be published, labeled by event type.
	EventsFailed *prometheus.CounterVec

	// HTTPRequests counts HTTP requests, labeled by method, route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds, labeled by method and route.
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRateLimited counts requests rejected by the rate limiter.
	HTTPRateLimited prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Catalog operations
		OperationsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Total number of catalog operations by outcome",
		}, []string{"operation", "outcome"}),
		OperationDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of catalog operations in seconds",
			Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"operation"}),

		// Entity resolution
		EntityResolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entity_resolutions_total",
			Help:      "Total number of category and ingredient resolutions by outcome",
		}, []string{"kind", "outcome"}),

		// Recipes
		RecipesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipes_created_total",
			Help:      "Total number of recipes created",
		}),
		RecipesDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipes_deleted_total",
			Help:      "Total number of recipes deleted",
		}),
		RecipeViews: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recipe_views_total",
			Help:      "Total number of recipe views recorded",
		}),
		RecipesPerPage: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recipes_per_page",
			Help:      "Number of recipes returned per list, search or filter call",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		}, []string{"operation"}),

		// Events
		EventsPublished: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of recipe change events published",
		}, []string{"type"}),
		EventsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Total number of recipe change events that failed to publish",
		}, []string{"type"}),

		// HTTP
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		HTTPRateLimited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_rate_limited_total",
			Help:      "Total number of HTTP requests rejected by the rate limiter",
		}),
	}
}

// RecordOperation records a completed catalog operation.
func (m *Metrics) RecordOperation(operation, outcome string, durationSeconds float64) {
	m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(durationSeconds)
}

// RecordEntityResolution records the outcome of one find-or-create call.
func (m *Metrics) RecordEntityResolution(kind, outcome string) {
	m.EntityResolutions.WithLabelValues(kind, outcome).Inc()
}

// RecordRecipeCreated records a committed recipe creation.
func (m *Metrics) RecordRecipeCreated() {
	m.RecipesCreated.Inc()
}

// RecordRecipeDeleted records a committed recipe deletion.
func (m *Metrics) RecordRecipeDeleted() {
	m.RecipesDeleted.Inc()
}

// RecordRecipeView records a committed view count increment.
func (m *Metrics) RecordRecipeView() {
	m.RecipeViews.Inc()
}

// RecordPageSize records the number of recipes returned by a read.
func (m *Metrics) RecordPageSize(operation string, count int) {
	m.RecipesPerPage.WithLabelValues(operation).Observe(float64(count))
}

// RecordEventPublished records a published change event.
func (m *Metrics) RecordEventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventFailed records a change event that failed to publish.
func (m *Metrics) RecordEventFailed(eventType string) {
	m.EventsFailed.WithLabelValues(eventType).Inc()
}

// RecordHTTPRequest records a served HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	m.HTTPRequests.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSeconds)
}

// RecordRateLimited records a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.HTTPRateLimited.Inc()
}
