package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Note: prometheus/promauto registers metrics globally, so we need to use
// unique namespaces per test to avoid registration conflicts.

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_recipe_catalog_new")

	assert.NotNil(t, m.OperationsTotal)
	assert.NotNil(t, m.OperationDuration)
	assert.NotNil(t, m.EntityResolutions)
	assert.NotNil(t, m.RecipesCreated)
	assert.NotNil(t, m.RecipesDeleted)
	assert.NotNil(t, m.RecipeViews)
	assert.NotNil(t, m.RecipesPerPage)
	assert.NotNil(t, m.EventsPublished)
	assert.NotNil(t, m.EventsFailed)
	assert.NotNil(t, m.HTTPRequests)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.HTTPRateLimited)
}

func TestRecordOperation(t *testing.T) {
	m := NewMetrics("test_record_operation")

	m.RecordOperation("create_recipe", OutcomeSuccess, 0.02)
	m.RecordOperation("create_recipe", OutcomeInvalid, 0.001)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("create_recipe", OutcomeSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OperationsTotal.WithLabelValues("create_recipe", OutcomeInvalid)))

	histCount, err := getHistogramSampleCount(m.OperationDuration.WithLabelValues("create_recipe").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), histCount)
}

func TestRecordEntityResolution(t *testing.T) {
	m := NewMetrics("test_entity_resolution")

	m.RecordEntityResolution("ingredient", ResolutionCreated)
	m.RecordEntityResolution("ingredient", ResolutionConflictRecovered)
	m.RecordEntityResolution("ingredient", ResolutionConflictRecovered)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EntityResolutions.WithLabelValues("ingredient", ResolutionCreated)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.EntityResolutions.WithLabelValues("ingredient", ResolutionConflictRecovered)))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.EntityResolutions.WithLabelValues("category", ResolutionExisting)))
}

func TestRecordRecipeCounters(t *testing.T) {
	m := NewMetrics("test_recipe_counters")

	m.RecordRecipeCreated()
	m.RecordRecipeCreated()
	m.RecordRecipeDeleted()
	m.RecordRecipeView()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.RecipesCreated))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecipesDeleted))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RecipeViews))
}

func TestRecordPageSize(t *testing.T) {
	m := NewMetrics("test_page_size")

	m.RecordPageSize("list_recipes", 20)

	histCount, err := getHistogramSampleCount(m.RecipesPerPage.WithLabelValues("list_recipes").(prometheus.Histogram))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), histCount)
}

func TestRecordEvents(t *testing.T) {
	m := NewMetrics("test_events")

	m.RecordEventPublished("recipe.created")
	m.RecordEventFailed("recipe.viewed")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("recipe.created")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsFailed.WithLabelValues("recipe.viewed")))
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics("test_http_request")

	m.RecordHTTPRequest("GET", "/api/v1/recipes/{recipeID}", "200", 0.01)
	m.RecordRateLimited()

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/recipes/{recipeID}", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRateLimited))
}

// Helper to get histogram sample count
func getHistogramSampleCount(h prometheus.Histogram) (uint64, error) {
	ch := make(chan prometheus.Metric, 1)
	h.Collect(ch)
	close(ch)

	var m prometheus.Metric
	for m = range ch {
		break
	}

	var metric = &dto.Metric{}
	if err := m.Write(metric); err != nil {
		return 0, err
	}

	return metric.Histogram.GetSampleCount(), nil
}
