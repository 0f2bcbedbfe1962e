package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helixir/recipe-catalog-service/internal/domain"
	"github.com/helixir/recipe-catalog-service/internal/observability"
)

// Request limits.
const (
	maxRequestBodySize = 1 << 20 // 1 MB limit for request bodies
	viewRecordTimeout  = 5 * time.Second
)

// createRecipeRequest is the JSON request body for creating a recipe.
type createRecipeRequest = domain.CreateRecipeInput

// updateRecipeRequest is the JSON request body for a partial update.
// A missing key, or an explicit null, leaves the field unchanged.
// "ingredient_names": [] removes every ingredient.
type updateRecipeRequest struct {
	Title        domain.Optional[string]   `json:"title"`
	Description  domain.Optional[string]   `json:"description"`
	Instructions domain.Optional[string]   `json:"instructions"`
	CategoryName domain.Optional[string]   `json:"category_name"`
	Ingredients  domain.Optional[[]string] `json:"ingredient_names"`
}

func (req updateRecipeRequest) toInput() domain.UpdateRecipeInput {
	return domain.UpdateRecipeInput{
		Title:        req.Title,
		Description:  req.Description,
		Instructions: req.Instructions,
		CategoryName: req.CategoryName,
		Ingredients:  req.Ingredients,
	}
}

// createRecipe handles POST /recipes.
func (s *Server) createRecipe(w http.ResponseWriter, r *http.Request) {
	var req createRecipeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	recipe, err := s.recipes.CreateRecipe(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/v1/recipes/%d", recipe.ID))
	s.writeJSON(w, http.StatusCreated, domainRecipeToResponse(recipe))
}

// listRecipes handles GET /recipes. With ?ingredient= it searches by
// ingredient name, with ?category= it filters by category name; the two are
// mutually exclusive.
func (s *Server) listRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	skip, limit, ok := s.parsePaginationParams(w, r)
	if !ok {
		return
	}

	if query.Has("ingredient") && query.Has("category") {
		s.writeError(w, http.StatusBadRequest, "ingredient and category filters cannot be combined")
		return
	}

	var (
		recipes []*domain.Recipe
		err     error
	)
	switch {
	case query.Has("ingredient"):
		recipes, err = s.recipes.SearchByIngredient(ctx, query.Get("ingredient"), skip, limit)
	case query.Has("category"):
		recipes, err = s.recipes.FilterByCategory(ctx, query.Get("category"), skip, limit)
	default:
		recipes, err = s.recipes.ListRecipes(ctx, skip, limit)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, domainRecipesToList(recipes))
}

// getRecipe handles GET /recipes/{recipeID}. Once the response is written
// the view is recorded in the background; its failure is logged only.
func (s *Server) getRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := s.parseRecipeID(w, r)
	if !ok {
		return
	}

	recipe, err := s.recipes.GetRecipe(r.Context(), recipeID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, domainRecipeToResponse(recipe))

	s.recordViewAsync(r.Context(), recipeID)
}

// recordView handles POST /recipes/{recipeID}/views.
func (s *Server) recordView(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := s.parseRecipeID(w, r)
	if !ok {
		return
	}

	if err := s.recipes.IncrementViewCount(r.Context(), recipeID); err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// updateRecipe handles PATCH /recipes/{recipeID}.
func (s *Server) updateRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := s.parseRecipeID(w, r)
	if !ok {
		return
	}

	var req updateRecipeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	recipe, err := s.recipes.UpdateRecipe(r.Context(), recipeID, req.toInput())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, domainRecipeToResponse(recipe))
}

// deleteRecipe handles DELETE /recipes/{recipeID}.
func (s *Server) deleteRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID, ok := s.parseRecipeID(w, r)
	if !ok {
		return
	}

	deleted, err := s.recipes.DeleteRecipe(r.Context(), recipeID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if !deleted {
		s.writeError(w, http.StatusNotFound, "recipe not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// recordViewAsync increments the view count after the request completes.
// The request context's values are kept but its cancellation is not; the
// server's view context bounds the recording instead.
func (s *Server) recordViewAsync(ctx context.Context, recipeID int64) {
	ctx = context.WithoutCancel(ctx)
	logger := observability.WithRecipeContext(observability.LoggerFromContext(ctx, s.logger), "record_view", recipeID)

	s.background.Add(1)
	go func() {
		defer s.background.Done()

		ctx, cancel := context.WithTimeout(ctx, viewRecordTimeout)
		defer cancel()
		stop := context.AfterFunc(s.viewCtx, cancel)
		defer stop()

		if err := s.recipes.IncrementViewCount(ctx, recipeID); err != nil {
			logger.Warn().Err(err).Msg("failed to record recipe view")
		}
	}()
}

// writeDomainError maps domain errors to appropriate HTTP status codes
// and writes a JSON error response. Internal error details are not leaked to clients.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		var nf *domain.NotFoundError
		if errors.As(err, &nf) {
			s.writeError(w, http.StatusNotFound, nf.Entity+" not found")
		} else {
			s.writeError(w, http.StatusNotFound, "resource not found")
		}
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			s.writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			s.writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrRateLimited):
		s.writeError(w, http.StatusTooManyRequests, "rate limited")
	case errors.Is(err, domain.ErrStoreUnavailable):
		s.writeError(w, http.StatusServiceUnavailable, "service unavailable")
	default:
		s.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody reads a JSON body into v, writing a 400 response on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return false
	}
	return true
}

// parseRecipeID parses the {recipeID} path parameter, writing a 400 error
// response if it is not a positive integer.
// The parse error details are not included to avoid echoing potentially malicious input.
func (s *Server) parseRecipeID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "recipeID"), 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "recipe_id must be a positive integer")
		return 0, false
	}
	return id, true
}

// parsePaginationParams extracts skip and limit from query parameters.
// Absent values are zero, which the catalog replaces with its defaults.
func (s *Server) parsePaginationParams(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	query := r.URL.Query()

	if v := query.Get("skip"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "skip must be a non-negative integer")
			return 0, 0, false
		}
		skip = parsed
	}
	if v := query.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return 0, 0, false
		}
		limit = parsed
	}

	return skip, limit, true
}
