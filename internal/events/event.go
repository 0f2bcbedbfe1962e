package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event type constants.
const (
	TypeRecipeCreated = "recipe.created"
	TypeRecipeUpdated = "recipe.updated"
	TypeRecipeDeleted = "recipe.deleted"
	TypeRecipeViewed  = "recipe.viewed"
)

// DefaultSource identifies this service in event metadata.
const DefaultSource = "recipe-catalog-service"

// Event is a recipe change event as written to the broker.
type Event struct {
	// ID is unique per event and lets consumers deduplicate redeliveries.
	ID string `json:"event_id"`
	// Type is one of the Type* constants.
	Type string `json:"event_type"`
	// RecipeID is the aggregate the event is about.
	RecipeID int64 `json:"recipe_id"`
	// OccurredAt is when the change was committed.
	OccurredAt time.Time `json:"occurred_at"`
	// Source names the emitting service.
	Source string `json:"source"`
	// CorrelationID ties the event to the request that caused it (optional).
	CorrelationID string `json:"correlation_id,omitempty"`
	// Payload is the JSON-encoded event body (optional).
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEvent creates an event of the given type for recipeID.
// The payload is JSON-serialized; a nil payload leaves Payload empty.
func NewEvent(eventType string, recipeID int64, payload interface{}) (Event, error) {
	if eventType == "" {
		return Event{}, fmt.Errorf("event_type is required")
	}
	if recipeID <= 0 {
		return Event{}, fmt.Errorf("recipe_id must be positive, got %d", recipeID)
	}

	event := Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		RecipeID:   recipeID,
		OccurredAt: time.Now().UTC(),
		Source:     DefaultSource,
	}

	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal payload: %w", err)
		}
		event.Payload = payloadBytes
	}

	return event, nil
}

// WithCorrelationID returns a copy of e carrying correlationID.
func (e Event) WithCorrelationID(correlationID string) Event {
	e.CorrelationID = correlationID
	return e
}
