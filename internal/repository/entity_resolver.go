package repository

import (
	"context"

	"github.com/helixir/recipe-catalog-service/internal/domain"
)

// EntityResolver finds or creates name-keyed entities (categories and ingredients).
//
// Resolution is idempotent under concurrency: when concurrent transactions
// resolve the same unseen name, exactly one row is inserted and every caller
// gets a reference to it. An existing row is never modified.
type EntityResolver interface {
	// Kind returns the entity kind this resolver serves.
	Kind() domain.EntityKind

	// Resolve returns the entity named name, inserting it if absent.
	// Returns a domain.ValidationError for a blank or oversized name.
	Resolve(ctx context.Context, name string) (*domain.EntityRef, error)

	// ResolveAll resolves every name. Duplicates collapse to one entity and
	// results follow the first-occurrence order of names.
	ResolveAll(ctx context.Context, names []string) ([]domain.EntityRef, error)
}

// ResolutionRecorder observes resolution outcomes (existing, created,
// conflict_recovered). *observability.Metrics satisfies it.
type ResolutionRecorder interface {
	RecordEntityResolution(kind, outcome string)
}
