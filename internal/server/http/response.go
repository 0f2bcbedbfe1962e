package httpserver

import (
	"time"

	"github.com/helixir/recipe-catalog-service/internal/domain"
)

// Recipe response types for JSON serialization.

type entityResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type recipeResponse struct {
	ID           int64            `json:"id"`
	Title        string           `json:"title"`
	Description  *string          `json:"description"`
	Instructions *string          `json:"instructions"`
	Category     *entityResponse  `json:"category"`
	Ingredients  []entityResponse `json:"ingredients"`
	CreatedAt    time.Time        `json:"created_at"`
	ViewCount    int64            `json:"view_count"`
}

type listRecipesResponse struct {
	Recipes []recipeResponse `json:"recipes"`
}

// Converter functions

func domainRecipeToResponse(r *domain.Recipe) recipeResponse {
	ingredients := make([]entityResponse, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ingredients[i] = entityResponse{ID: ing.ID, Name: ing.Name}
	}

	resp := recipeResponse{
		ID:           r.ID,
		Title:        r.Title,
		Description:  r.Description,
		Instructions: r.Instructions,
		Ingredients:  ingredients,
		CreatedAt:    r.CreatedAt,
		ViewCount:    r.ViewCount,
	}
	if r.Category != nil {
		resp.Category = &entityResponse{ID: r.Category.ID, Name: r.Category.Name}
	}
	return resp
}

func domainRecipesToList(recipes []*domain.Recipe) listRecipesResponse {
	items := make([]recipeResponse, len(recipes))
	for i, r := range recipes {
		items[i] = domainRecipeToResponse(r)
	}
	return listRecipesResponse{Recipes: items}
}
