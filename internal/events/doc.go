// Package events publishes recipe change events.
//
// # Overview
//
// The catalog service emits one event per committed change:
//
//   - recipe.created: a recipe was created
//   - recipe.updated: a recipe's fields or relations changed
//   - recipe.deleted: a recipe was removed
//   - recipe.viewed: a recipe's view count was incremented
//
// Events are published after the transaction commits and are best-effort:
// a publish failure is logged and counted, never rolled back into the
// catalog operation.
//
// # Publishers
//
//   - KafkaPublisher: writes JSON events to a Kafka topic, keyed by recipe id
//     so that all events for one recipe land on one partition in order
//   - NopPublisher: discards events; used when Kafka is disabled
//
// # Usage
//
//	var publisher events.Publisher = events.NopPublisher{}
//	if cfg.Kafka.Enabled {
//	    publisher = events.NewKafkaPublisher(cfg.Kafka, logger)
//	}
//	defer publisher.Close()
//
//	event, err := events.NewEvent(events.TypeRecipeCreated, recipe.ID, payload)
//	if err == nil {
//	    err = publisher.Publish(ctx, event)
//	}
package events
