package repository

import (
	"context"

	"github.com/helixir/recipe-catalog-service/internal/domain"
)

// RecipeRepository persists the recipe aggregate and serves its reads.
// Relations named in inputs are resolved through an EntityResolver bound to
// the same transaction.
type RecipeRepository interface {
	// Create resolves the category and ingredients, inserts the recipe and its
	// associations, and returns the populated aggregate.
	Create(ctx context.Context, in domain.CreateRecipeInput) (*domain.Recipe, error)

	// GetByID returns the recipe with its category and ingredients.
	// Returns domain.ErrNotFound if no recipe has that id.
	GetByID(ctx context.Context, id int64) (*domain.Recipe, error)

	// Update applies the fields that are set in in and returns the refreshed
	// aggregate. A set ingredient list replaces the whole association set.
	// Returns domain.ErrNotFound if no recipe has that id.
	Update(ctx context.Context, id int64, in domain.UpdateRecipeInput) (*domain.Recipe, error)

	// Delete removes the recipe and, by cascade, its association rows.
	// Reports whether a recipe existed. Categories and ingredients are kept.
	Delete(ctx context.Context, id int64) (bool, error)

	// List returns recipes matching filter, most recently created first.
	List(ctx context.Context, filter RecipeFilter) ([]*domain.Recipe, error)

	// SearchByIngredient returns recipes having an ingredient whose name
	// contains substring, case-insensitively. Each recipe appears once.
	SearchByIngredient(ctx context.Context, substring string, offset, limit int) ([]*domain.Recipe, error)

	// FilterByCategory returns recipes whose category name contains
	// substring, case-insensitively.
	FilterByCategory(ctx context.Context, substring string, offset, limit int) ([]*domain.Recipe, error)

	// IncrementViewCount adds one to the recipe's view count in a single
	// statement. Returns domain.ErrNotFound if no recipe has that id.
	IncrementViewCount(ctx context.Context, id int64) error
}

// RecipeFilter narrows and pages List.
type RecipeFilter struct {
	// IngredientContains keeps recipes with at least one ingredient whose name
	// contains the value, case-insensitively.
	IngredientContains domain.Optional[string]

	// CategoryContains keeps recipes whose category name contains the value,
	// case-insensitively.
	CategoryContains domain.Optional[string]

	// Offset is the number of recipes to skip.
	Offset int

	// Limit is the page size; zero means DefaultPageLimit.
	Limit int
}
