package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/recipe-catalog-service/internal/domain"
)

// Compile-time interface verification.
var _ RecipeRepository = (*PgRecipeRepository)(nil)

// recipeSelect projects a recipe with its category (LEFT JOIN) and its
// ingredients (json_agg sub-select) so that a page of recipes costs one
// statement, independent of how many ingredients each recipe has.
const recipeSelect = `
	SELECT r.id, r.title, r.description, r.instructions, r.created_at, r.view_count,
		c.id, c.name,
		COALESCE((
			SELECT json_agg(json_build_object('id', i.id, 'name', i.name) ORDER BY i.name, i.id)
			FROM recipe_ingredients ri
			JOIN ingredients i ON i.id = ri.ingredient_id
			WHERE ri.recipe_id = r.id
		), '[]'::json) AS ingredients
	FROM recipes r
	LEFT JOIN categories c ON c.id = r.category_id`

// PgRecipeRepository is a PostgreSQL implementation of RecipeRepository.
type PgRecipeRepository struct {
	db          DBTX
	categories  EntityResolver
	ingredients EntityResolver
}

// NewPgRecipeRepository creates a recipe repository whose entity resolvers
// share db.
func NewPgRecipeRepository(db DBTX) *PgRecipeRepository {
	return &PgRecipeRepository{
		db:          db,
		categories:  NewPgCategoryResolver(db),
		ingredients: NewPgIngredientResolver(db),
	}
}

// WithResolutionRecorder sets the recorder on both entity resolvers.
func (r *PgRecipeRepository) WithResolutionRecorder(rec ResolutionRecorder) *PgRecipeRepository {
	r.categories = NewPgCategoryResolver(r.db).WithRecorder(rec)
	r.ingredients = NewPgIngredientResolver(r.db).WithRecorder(rec)
	return r
}

// Categories returns the category resolver bound to this repository's handle.
func (r *PgRecipeRepository) Categories() EntityResolver {
	return r.categories
}

// Ingredients returns the ingredient resolver bound to this repository's handle.
func (r *PgRecipeRepository) Ingredients() EntityResolver {
	return r.ingredients
}

// Create resolves relations, inserts the recipe and links its ingredients.
func (r *PgRecipeRepository) Create(ctx context.Context, in domain.CreateRecipeInput) (*domain.Recipe, error) {
	recipe := &domain.Recipe{
		Title:        in.Title,
		Description:  in.Description,
		Instructions: in.Instructions,
	}

	var categoryID *int64
	if in.CategoryName != nil {
		ref, err := r.categories.Resolve(ctx, *in.CategoryName)
		if err != nil {
			return nil, err
		}
		recipe.Category = ref
		categoryID = &ref.ID
	}

	ingredients, err := r.ingredients.ResolveAll(ctx, in.Ingredients)
	if err != nil {
		return nil, err
	}
	recipe.Ingredients = ingredients

	query := `
		INSERT INTO recipes (title, description, instructions, category_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, view_count`

	err = r.db.QueryRow(ctx, query, in.Title, in.Description, in.Instructions, categoryID).
		Scan(&recipe.ID, &recipe.CreatedAt, &recipe.ViewCount)
	if err != nil {
		if isPgInvalidValue(err) {
			return nil, domain.NewValidationError("title", err.Error())
		}
		return nil, fmt.Errorf("failed to insert recipe: %w", err)
	}

	if err := r.linkIngredients(ctx, recipe.ID, entityIDs(ingredients)); err != nil {
		return nil, err
	}

	return recipe, nil
}

// GetByID returns the recipe with its relations populated.
func (r *PgRecipeRepository) GetByID(ctx context.Context, id int64) (*domain.Recipe, error) {
	query := recipeSelect + `
	WHERE r.id = $1`

	recipe, err := scanRecipe(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("recipe", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("failed to get recipe: %w", err)
	}

	return recipe, nil
}

// Update applies the set fields of in. The recipe row is locked first so
// that concurrent updates of the same recipe serialize; view_count is never
// written here.
func (r *PgRecipeRepository) Update(ctx context.Context, id int64, in domain.UpdateRecipeInput) (*domain.Recipe, error) {
	if err := r.lockForUpdate(ctx, id); err != nil {
		return nil, err
	}

	var sets []string
	var args []interface{}
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if title, ok := in.Title.Get(); ok {
		set("title", title)
	}
	if description, ok := in.Description.Get(); ok {
		set("description", description)
	}
	if instructions, ok := in.Instructions.Get(); ok {
		set("instructions", instructions)
	}
	if name, ok := in.CategoryName.Get(); ok {
		ref, err := r.categories.Resolve(ctx, name)
		if err != nil {
			return nil, err
		}
		set("category_id", ref.ID)
	}

	if len(sets) > 0 {
		args = append(args, id)
		query := fmt.Sprintf(`UPDATE recipes SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
		if _, err := r.db.Exec(ctx, query, args...); err != nil {
			if isPgInvalidValue(err) {
				return nil, domain.NewValidationError("recipe", err.Error())
			}
			return nil, fmt.Errorf("failed to update recipe: %w", err)
		}
	}

	if names, ok := in.Ingredients.Get(); ok {
		refs, err := r.ingredients.ResolveAll(ctx, names)
		if err != nil {
			return nil, err
		}
		if err := r.replaceIngredients(ctx, id, entityIDs(refs)); err != nil {
			return nil, err
		}
	}

	return r.GetByID(ctx, id)
}

// Delete removes the recipe row; association rows go with it by cascade.
func (r *PgRecipeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete recipe: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// List returns a page of recipes, most recently created first. Ties on
// created_at are broken by id so that consecutive pages neither overlap nor
// skip rows.
func (r *PgRecipeRepository) List(ctx context.Context, filter RecipeFilter) ([]*domain.Recipe, error) {
	limit, offset := filter.Limit, filter.Offset
	applyPaginationDefaults(&limit, &offset)

	var b strings.Builder
	var conditions []string
	var args []interface{}

	b.WriteString(recipeSelect)

	// EXISTS keeps a recipe once even when several of its ingredients match.
	if s, ok := filter.IngredientContains.Get(); ok {
		args = append(args, containsPattern(s))
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
		SELECT 1
		FROM recipe_ingredients mri
		JOIN ingredients mi ON mi.id = mri.ingredient_id
		WHERE mri.recipe_id = r.id AND mi.name ILIKE $%d ESCAPE '\'
	)`, len(args)))
	}
	if s, ok := filter.CategoryContains.Get(); ok {
		args = append(args, containsPattern(s))
		conditions = append(conditions, fmt.Sprintf(`c.name ILIKE $%d ESCAPE '\'`, len(args)))
	}

	if len(conditions) > 0 {
		b.WriteString("\n\tWHERE ")
		b.WriteString(strings.Join(conditions, " AND "))
	}

	args = append(args, limit, offset)
	fmt.Fprintf(&b, "\n\tORDER BY r.created_at DESC, r.id DESC\n\tLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	recipes := make([]*domain.Recipe, 0, limit)
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recipe: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipes: %w", err)
	}

	return recipes, nil
}

// SearchByIngredient lists recipes with a matching ingredient.
func (r *PgRecipeRepository) SearchByIngredient(ctx context.Context, substring string, offset, limit int) ([]*domain.Recipe, error) {
	return r.List(ctx, RecipeFilter{
		IngredientContains: domain.Some(substring),
		Offset:             offset,
		Limit:              limit,
	})
}

// FilterByCategory lists recipes with a matching category.
func (r *PgRecipeRepository) FilterByCategory(ctx context.Context, substring string, offset, limit int) ([]*domain.Recipe, error) {
	return r.List(ctx, RecipeFilter{
		CategoryContains: domain.Some(substring),
		Offset:           offset,
		Limit:            limit,
	})
}

// IncrementViewCount adds one to view_count with a single UPDATE, so
// concurrent increments are never lost. An unknown id is reported as
// domain.ErrNotFound.
func (r *PgRecipeRepository) IncrementViewCount(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE recipes SET view_count = view_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to increment view count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("recipe", strconv.FormatInt(id, 10))
	}
	return nil
}

func (r *PgRecipeRepository) lockForUpdate(ctx context.Context, id int64) error {
	var locked int64
	err := r.db.QueryRow(ctx, `SELECT id FROM recipes WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NewNotFoundError("recipe", strconv.FormatInt(id, 10))
		}
		return fmt.Errorf("failed to lock recipe: %w", err)
	}
	return nil
}

func (r *PgRecipeRepository) linkIngredients(ctx context.Context, recipeID int64, ingredientIDs []int64) error {
	if len(ingredientIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO recipe_ingredients (recipe_id, ingredient_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`

	if _, err := r.db.Exec(ctx, query, recipeID, ingredientIDs); err != nil {
		return fmt.Errorf("failed to link recipe ingredients: %w", err)
	}
	return nil
}

// replaceIngredients makes ingredientIDs the recipe's whole association set.
// An empty set removes every association.
func (r *PgRecipeRepository) replaceIngredients(ctx context.Context, recipeID int64, ingredientIDs []int64) error {
	query := `
		DELETE FROM recipe_ingredients
		WHERE recipe_id = $1 AND NOT (ingredient_id = ANY($2::bigint[]))`

	if _, err := r.db.Exec(ctx, query, recipeID, ingredientIDs); err != nil {
		return fmt.Errorf("failed to remove recipe ingredients: %w", err)
	}

	return r.linkIngredients(ctx, recipeID, ingredientIDs)
}

// entityRow is the JSON shape produced by the json_agg projection.
type entityRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// scanRecipe scans one row of recipeSelect. It accepts both pgx.Row and pgx.Rows.
func scanRecipe(row pgx.Row) (*domain.Recipe, error) {
	var (
		recipe          domain.Recipe
		categoryID      *int64
		categoryName    *string
		ingredientsJSON []byte
	)

	err := row.Scan(
		&recipe.ID, &recipe.Title, &recipe.Description, &recipe.Instructions,
		&recipe.CreatedAt, &recipe.ViewCount,
		&categoryID, &categoryName,
		&ingredientsJSON,
	)
	if err != nil {
		return nil, err
	}

	if categoryID != nil && categoryName != nil {
		recipe.Category = &domain.EntityRef{ID: *categoryID, Name: *categoryName}
	}

	var ingredients []entityRow
	if err := json.Unmarshal(ingredientsJSON, &ingredients); err != nil {
		return nil, fmt.Errorf("failed to decode recipe ingredients: %w", err)
	}
	recipe.Ingredients = make([]domain.EntityRef, 0, len(ingredients))
	for _, ing := range ingredients {
		recipe.Ingredients = append(recipe.Ingredients, domain.EntityRef{ID: ing.ID, Name: ing.Name})
	}

	return &recipe, nil
}

func entityIDs(refs []domain.EntityRef) []int64 {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	return ids
}
