package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// EntityKind identifies one of the name-keyed entities that recipes reference.
type EntityKind string

const (
	// KindCategory is the kind of the single, optional category of a recipe.
	KindCategory EntityKind = "category"
	// KindIngredient is the kind of the entities in a recipe's ingredient set.
	KindIngredient EntityKind = "ingredient"
)

// Maximum lengths of the text columns.
const (
	MaxNameLength  = 128
	MaxTitleLength = 256
)

// Valid reports whether k is a known entity kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindCategory, KindIngredient:
		return true
	}
	return false
}

// String implements fmt.Stringer.
func (k EntityKind) String() string {
	return string(k)
}

// EntityRef references a resolved Category or Ingredient by id and name.
type EntityRef struct {
	// ID is the surrogate key of the row.
	ID int64

	// Name is the unique, case-sensitive natural key.
	Name string
}

// Recipe is the recipe aggregate with its relations populated.
type Recipe struct {
	// ID is the surrogate key assigned by the database.
	ID int64

	// Title is the required recipe title.
	Title string

	// Description is optional free text.
	Description *string

	// Instructions is optional free text.
	Instructions *string

	// Category is nil when the recipe has no category.
	Category *EntityRef

	// Ingredients is never nil; a recipe without ingredients has an empty slice.
	Ingredients []EntityRef

	// CreatedAt is assigned by the database at insert time and never changes.
	CreatedAt time.Time

	// ViewCount only grows, through the atomic view counter.
	ViewCount int64
}

// IngredientNames returns the names of the recipe's ingredients in stored order.
func (r *Recipe) IngredientNames() []string {
	names := make([]string, 0, len(r.Ingredients))
	for _, ing := range r.Ingredients {
		names = append(names, ing.Name)
	}
	return names
}

// CreateRecipeInput carries the fields of a new recipe.
type CreateRecipeInput struct {
	Title        string   `json:"title" validate:"notblank,storable,max=256"`
	Description  *string  `json:"description" validate:"omitnil,storable"`
	Instructions *string  `json:"instructions" validate:"omitnil,storable"`
	CategoryName *string  `json:"category_name" validate:"omitnil,notblank,storable,max=128"`
	Ingredients  []string `json:"ingredient_names" validate:"dive,notblank,storable,max=128"`
}

// UpdateRecipeInput carries a partial update. Every field is independently
// optional: an unset field leaves the stored value unchanged.
//
// Ingredients distinguishes "unset" (associations untouched) from a set,
// empty slice (all associations removed).
type UpdateRecipeInput struct {
	Title        Optional[string]
	Description  Optional[string]
	Instructions Optional[string]
	CategoryName Optional[string]
	Ingredients  Optional[[]string]
}

// HasScalarChanges reports whether any column of the recipes row is updated.
func (in *UpdateRecipeInput) HasScalarChanges() bool {
	return in.Title.IsSet() || in.Description.IsSet() || in.Instructions.IsSet() || in.CategoryName.IsSet()
}

// IsEmpty reports whether the update changes nothing.
func (in *UpdateRecipeInput) IsEmpty() bool {
	return !in.HasScalarChanges() && !in.Ingredients.IsSet()
}

// DedupeNames returns names with duplicates removed, keeping the first
// occurrence order. Matching is exact and case-sensitive.
func DedupeNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// IsStorableText reports whether s can be stored in a PostgreSQL text
// column: valid UTF-8 with no NUL characters.
func IsStorableText(s string) bool {
	return utf8.ValidString(s) && !strings.ContainsRune(s, 0)
}
