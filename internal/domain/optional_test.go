package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptional_ZeroValueIsAbsent(t *testing.T) {
	var o Optional[string]
	assert.False(t, o.IsSet())

	v, ok := o.Get()
	assert.False(t, ok)
	assert.Equal(t, "", v)
	assert.Equal(t, "fallback", o.OrElse("fallback"))
}

func TestOptional_SomeKeepsEmptyValues(t *testing.T) {
	t.Run("empty string", func(t *testing.T) {
		o := Some("")
		v, ok := o.Get()
		assert.True(t, ok)
		assert.Equal(t, "", v)
		assert.Equal(t, "", o.OrElse("fallback"))
	})

	t.Run("empty slice", func(t *testing.T) {
		o := Some([]string{})
		v, ok := o.Get()
		assert.True(t, ok)
		assert.Empty(t, v)
	})

	t.Run("none", func(t *testing.T) {
		assert.False(t, None[[]string]().IsSet())
	})
}

func TestOptional_UnmarshalJSON(t *testing.T) {
	type payload struct {
		Title       Optional[string]   `json:"title"`
		Ingredients Optional[[]string] `json:"ingredient_names"`
	}

	tests := []struct {
		name            string
		body            string
		wantTitleSet    bool
		wantTitle       string
		wantIngredSet   bool
		wantIngredients []string
	}{
		{
			name: "missing keys are absent",
			body: `{}`,
		},
		{
			name: "null is absent",
			body: `{"title": null, "ingredient_names": null}`,
		},
		{
			name:            "explicit empty list is present",
			body:            `{"ingredient_names": []}`,
			wantIngredSet:   true,
			wantIngredients: []string{},
		},
		{
			name:            "values are present",
			body:            `{"title": "Pancakes", "ingredient_names": ["egg", "flour"]}`,
			wantTitleSet:    true,
			wantTitle:       "Pancakes",
			wantIngredSet:   true,
			wantIngredients: []string{"egg", "flour"},
		},
		{
			name:         "empty string is present",
			body:         `{"title": ""}`,
			wantTitleSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p payload
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))

			title, ok := p.Title.Get()
			assert.Equal(t, tt.wantTitleSet, ok)
			assert.Equal(t, tt.wantTitle, title)

			ingredients, ok := p.Ingredients.Get()
			assert.Equal(t, tt.wantIngredSet, ok)
			if tt.wantIngredSet {
				assert.Equal(t, tt.wantIngredients, ingredients)
			}
		})
	}
}

func TestOptional_UnmarshalJSON_TypeMismatch(t *testing.T) {
	var o Optional[[]string]
	err := json.Unmarshal([]byte(`"egg"`), &o)
	assert.Error(t, err)
	assert.False(t, o.IsSet())
}

func TestOptional_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Optional[string] `json:"a"`
		B Optional[int]    `json:"b"`
	}{A: Some("x")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"x","b":null}`, string(data))
}
