package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/helixir/recipe-catalog-service/internal/config"
	"github.com/helixir/recipe-catalog-service/internal/database"
	"github.com/helixir/recipe-catalog-service/internal/domain"
	"github.com/helixir/recipe-catalog-service/internal/events"
	"github.com/helixir/recipe-catalog-service/internal/observability"
	"github.com/helixir/recipe-catalog-service/internal/repository"
)

// Operation names used in logs, metrics and StoreError.
const (
	OpCreate             = "create_recipe"
	OpGet                = "get_recipe"
	OpUpdate             = "update_recipe"
	OpDelete             = "delete_recipe"
	OpList               = "list_recipes"
	OpSearchByIngredient = "search_by_ingredient"
	OpFilterByCategory   = "filter_by_category"
	OpIncrementViews     = "increment_view_count"
)

// RepositoryFactory binds a RecipeRepository to a transaction handle.
type RepositoryFactory func(db database.DBTX) repository.RecipeRepository

// Service runs catalog operations, one transaction each.
type Service struct {
	tx         database.Transactor
	newRepo    RepositoryFactory
	publisher  events.Publisher
	metrics    *observability.Metrics
	validate   *validator.Validate
	pagination config.PaginationConfig
	logger     zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the change event publisher. The default discards events.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the metrics sink. Without it no metrics are recorded.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithPagination sets the default and maximum page size.
func WithPagination(cfg config.PaginationConfig) Option {
	return func(s *Service) { s.pagination = cfg }
}

// WithRepositoryFactory replaces the PostgreSQL repository.
func WithRepositoryFactory(f RepositoryFactory) Option {
	return func(s *Service) { s.newRepo = f }
}

// NewService creates a catalog service over tx.
func NewService(tx database.Transactor, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		tx:        tx,
		publisher: events.NopPublisher{},
		validate:  newValidator(),
		pagination: config.PaginationConfig{
			DefaultLimit: repository.DefaultPageLimit,
			MaxLimit:     repository.MaxPageLimit,
		},
		logger: logger.With().Str("component", "catalog").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.newRepo == nil {
		s.newRepo = s.pgRepository
	}
	return s
}

func (s *Service) pgRepository(db database.DBTX) repository.RecipeRepository {
	repo := repository.NewPgRecipeRepository(db)
	if s.metrics != nil {
		repo.WithResolutionRecorder(s.metrics)
	}
	return repo
}

// CreateRecipe validates in, creates the recipe with its relations and
// returns the populated aggregate.
func (s *Service) CreateRecipe(ctx context.Context, in domain.CreateRecipeInput) (*domain.Recipe, error) {
	start := time.Now()

	if err := s.validateCreate(in); err != nil {
		return nil, s.finish(ctx, OpCreate, 0, start, err)
	}

	var recipe *domain.Recipe
	err := s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		recipe, err = s.newRepo(tx).Create(ctx, in)
		return err
	})
	if err != nil {
		return nil, s.finish(ctx, OpCreate, 0, start, err)
	}

	if s.metrics != nil {
		s.metrics.RecordRecipeCreated()
	}
	s.publish(ctx, events.TypeRecipeCreated, recipe.ID, newRecipePayload(recipe))

	return recipe, s.finish(ctx, OpCreate, recipe.ID, start, nil)
}

// GetRecipe returns the recipe with its category and ingredients.
func (s *Service) GetRecipe(ctx context.Context, id int64) (*domain.Recipe, error) {
	start := time.Now()

	var recipe *domain.Recipe
	err := s.tx.WithReadOnlyTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		recipe, err = s.newRepo(tx).GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, s.finish(ctx, OpGet, id, start, err)
	}

	return recipe, s.finish(ctx, OpGet, id, start, nil)
}

// UpdateRecipe applies the present fields of in and returns the refreshed
// recipe. An update with no present fields still reports an unknown id.
func (s *Service) UpdateRecipe(ctx context.Context, id int64, in domain.UpdateRecipeInput) (*domain.Recipe, error) {
	start := time.Now()

	if err := s.validateUpdate(in); err != nil {
		return nil, s.finish(ctx, OpUpdate, id, start, err)
	}

	var recipe *domain.Recipe
	err := s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		recipe, err = s.newRepo(tx).Update(ctx, id, in)
		return err
	})
	if err != nil {
		return nil, s.finish(ctx, OpUpdate, id, start, err)
	}

	if !in.IsEmpty() {
		s.publish(ctx, events.TypeRecipeUpdated, recipe.ID, newRecipePayload(recipe))
	}

	return recipe, s.finish(ctx, OpUpdate, id, start, nil)
}

// DeleteRecipe removes the recipe and reports whether it existed.
func (s *Service) DeleteRecipe(ctx context.Context, id int64) (bool, error) {
	start := time.Now()

	var deleted bool
	err := s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		deleted, err = s.newRepo(tx).Delete(ctx, id)
		return err
	})
	if err != nil {
		return false, s.finish(ctx, OpDelete, id, start, err)
	}

	if deleted {
		if s.metrics != nil {
			s.metrics.RecordRecipeDeleted()
		}
		s.publish(ctx, events.TypeRecipeDeleted, id, nil)
	}

	return deleted, s.finish(ctx, OpDelete, id, start, nil)
}

// ListRecipes returns a page of recipes, most recently created first.
func (s *Service) ListRecipes(ctx context.Context, skip, limit int) ([]*domain.Recipe, error) {
	return s.list(ctx, OpList, repository.RecipeFilter{Offset: skip, Limit: limit})
}

// SearchByIngredient returns a page of recipes having an ingredient whose
// name contains substring, case-insensitively.
func (s *Service) SearchByIngredient(ctx context.Context, substring string, skip, limit int) ([]*domain.Recipe, error) {
	return s.list(ctx, OpSearchByIngredient, repository.RecipeFilter{
		IngredientContains: domain.Some(substring),
		Offset:             skip,
		Limit:              limit,
	})
}

// FilterByCategory returns a page of recipes whose category name contains
// substring, case-insensitively.
func (s *Service) FilterByCategory(ctx context.Context, substring string, skip, limit int) ([]*domain.Recipe, error) {
	return s.list(ctx, OpFilterByCategory, repository.RecipeFilter{
		CategoryContains: domain.Some(substring),
		Offset:           skip,
		Limit:            limit,
	})
}

func (s *Service) list(ctx context.Context, op string, filter repository.RecipeFilter) ([]*domain.Recipe, error) {
	start := time.Now()
	filter.Offset, filter.Limit = s.normalizePage(filter.Offset, filter.Limit)

	var recipes []*domain.Recipe
	err := s.tx.WithReadOnlyTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		recipes, err = s.newRepo(tx).List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, s.finish(ctx, op, 0, start, err)
	}

	if s.metrics != nil {
		s.metrics.RecordPageSize(op, len(recipes))
	}

	return recipes, s.finish(ctx, op, 0, start, nil)
}

// IncrementViewCount atomically adds one to the recipe's view count.
func (s *Service) IncrementViewCount(ctx context.Context, id int64) error {
	start := time.Now()

	err := s.tx.WithTransaction(ctx, func(tx pgx.Tx) error {
		return s.newRepo(tx).IncrementViewCount(ctx, id)
	})
	if err != nil {
		return s.finish(ctx, OpIncrementViews, id, start, err)
	}

	if s.metrics != nil {
		s.metrics.RecordRecipeView()
	}
	s.publish(ctx, events.TypeRecipeViewed, id, nil)

	return s.finish(ctx, OpIncrementViews, id, start, nil)
}

// normalizePage applies the configured page bounds: a negative skip becomes
// zero, a non-positive limit becomes the default, and limit is capped.
func (s *Service) normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = s.pagination.DefaultLimit
	}
	if limit > s.pagination.MaxLimit {
		limit = s.pagination.MaxLimit
	}
	return skip, limit
}

// finish classifies err, records the operation outcome and logs failures.
// Errors other than NotFound and ValidationFailure become StoreError.
func (s *Service) finish(ctx context.Context, op string, recipeID int64, start time.Time, err error) error {
	outcome := observability.OutcomeSuccess
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrNotFound):
		outcome = observability.OutcomeNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		outcome = observability.OutcomeInvalid
	default:
		outcome = observability.OutcomeStoreError
		if !errors.Is(err, domain.ErrStoreUnavailable) {
			err = domain.NewStoreError(op, err)
		}
	}

	if s.metrics != nil {
		s.metrics.RecordOperation(op, outcome, time.Since(start).Seconds())
	}

	if outcome == observability.OutcomeStoreError {
		logger := observability.WithRecipeContext(observability.LoggerFromContext(ctx, s.logger), op, recipeID)
		logger.Error().Err(err).Msg("catalog operation failed")
	}

	return err
}

// publish sends a change event for a committed write. The request context's
// cancellation is dropped because the change has already committed.
func (s *Service) publish(ctx context.Context, eventType string, recipeID int64, payload interface{}) {
	event, err := events.NewEvent(eventType, recipeID, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Msg("failed to build recipe event")
		return
	}
	if correlationID := observability.CorrelationIDFromContext(ctx); correlationID != "" {
		event = event.WithCorrelationID(correlationID)
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		if s.metrics != nil {
			s.metrics.RecordEventFailed(eventType)
		}
		s.logger.Warn().
			Err(err).
			Str("event_type", eventType).
			Int64("recipe_id", recipeID).
			Msg("failed to publish recipe event")
		return
	}

	if s.metrics != nil {
		s.metrics.RecordEventPublished(eventType)
	}
}

// recipePayload is the body of created and updated events.
type recipePayload struct {
	Title       string   `json:"title"`
	Category    *string  `json:"category,omitempty"`
	Ingredients []string `json:"ingredients"`
}

func newRecipePayload(r *domain.Recipe) recipePayload {
	p := recipePayload{
		Title:       r.Title,
		Ingredients: r.IngredientNames(),
	}
	if r.Category != nil {
		p.Category = &r.Category.Name
	}
	return p
}
