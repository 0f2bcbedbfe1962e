package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeNames(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{name: "nil input", input: nil, want: []string{}},
		{name: "no duplicates", input: []string{"egg", "flour"}, want: []string{"egg", "flour"}},
		{name: "keeps first occurrence order", input: []string{"flour", "egg", "flour", "egg"}, want: []string{"flour", "egg"}},
		{name: "case sensitive", input: []string{"Egg", "egg"}, want: []string{"Egg", "egg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DedupeNames(tt.input))
		})
	}
}

func TestEntityKind_Valid(t *testing.T) {
	assert.True(t, KindCategory.Valid())
	assert.True(t, KindIngredient.Valid())
	assert.False(t, EntityKind("tag").Valid())
	assert.Equal(t, "ingredient", KindIngredient.String())
}

func TestUpdateRecipeInput(t *testing.T) {
	t.Run("zero value is empty", func(t *testing.T) {
		var in UpdateRecipeInput
		assert.True(t, in.IsEmpty())
		assert.False(t, in.HasScalarChanges())
	})

	t.Run("ingredient list alone is not a scalar change", func(t *testing.T) {
		in := UpdateRecipeInput{Ingredients: Some([]string{})}
		assert.False(t, in.IsEmpty())
		assert.False(t, in.HasScalarChanges())
	})

	t.Run("category counts as a scalar change", func(t *testing.T) {
		in := UpdateRecipeInput{CategoryName: Some("Dessert")}
		assert.True(t, in.HasScalarChanges())
	})
}

func TestRecipe_IngredientNames(t *testing.T) {
	r := &Recipe{Ingredients: []EntityRef{{ID: 1, Name: "egg"}, {ID: 2, Name: "flour"}}}
	assert.Equal(t, []string{"egg", "flour"}, r.IngredientNames())
	assert.Empty(t, (&Recipe{}).IngredientNames())
}

func TestIsStorableText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "empty", input: "", want: true},
		{name: "ascii", input: "Tomato soup", want: true},
		{name: "multibyte", input: "crème brûlée", want: true},
		{name: "NUL", input: "a\x00b", want: false},
		{name: "trailing NUL", input: "x\x00", want: false},
		{name: "invalid UTF-8", input: "caf\xe9", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStorableText(tt.input))
		})
	}
}
