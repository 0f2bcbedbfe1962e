package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	t.Run("creates event with payload", func(t *testing.T) {
		event, err := NewEvent(TypeRecipeCreated, 42, map[string]string{"title": "Pancakes"})
		require.NoError(t, err)

		assert.NotEmpty(t, event.ID)
		assert.Equal(t, TypeRecipeCreated, event.Type)
		assert.Equal(t, int64(42), event.RecipeID)
		assert.Equal(t, DefaultSource, event.Source)
		assert.False(t, event.OccurredAt.IsZero())

		var decoded map[string]string
		require.NoError(t, json.Unmarshal(event.Payload, &decoded))
		assert.Equal(t, "Pancakes", decoded["title"])
	})

	t.Run("nil payload is omitted", func(t *testing.T) {
		event, err := NewEvent(TypeRecipeViewed, 1, nil)
		require.NoError(t, err)
		assert.Nil(t, event.Payload)

		raw, err := json.Marshal(event)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "payload")
		assert.NotContains(t, string(raw), "correlation_id")
	})

	t.Run("each event gets a unique id", func(t *testing.T) {
		a, err := NewEvent(TypeRecipeDeleted, 1, nil)
		require.NoError(t, err)
		b, err := NewEvent(TypeRecipeDeleted, 1, nil)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	t.Run("requires event type", func(t *testing.T) {
		_, err := NewEvent("", 1, nil)
		assert.EqualError(t, err, "event_type is required")
	})

	t.Run("requires positive recipe id", func(t *testing.T) {
		_, err := NewEvent(TypeRecipeUpdated, 0, nil)
		assert.Error(t, err)
	})

	t.Run("unmarshalable payload fails", func(t *testing.T) {
		_, err := NewEvent(TypeRecipeUpdated, 1, make(chan int))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "marshal payload")
	})
}

func TestEvent_WithCorrelationID(t *testing.T) {
	event, err := NewEvent(TypeRecipeCreated, 3, nil)
	require.NoError(t, err)

	tagged := event.WithCorrelationID("corr-1")
	assert.Equal(t, "corr-1", tagged.CorrelationID)
	assert.Empty(t, event.CorrelationID)
	assert.Equal(t, event.ID, tagged.ID)
}
