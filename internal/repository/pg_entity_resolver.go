package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/helixir/recipe-catalog-service/internal/domain"
	"github.com/helixir/recipe-catalog-service/internal/observability"
)

// Compile-time interface verification.
var _ EntityResolver = (*PgEntityResolver)(nil)

// PgEntityResolver is a PostgreSQL implementation of EntityResolver.
//
// Protocol: select by name; if absent, INSERT ... ON CONFLICT (name) DO
// NOTHING RETURNING. An insert that returns no row lost a race against a
// concurrent transaction, which has committed by the time the insert returns,
// so the row is re-read. The caller's transaction must be READ COMMITTED.
type PgEntityResolver struct {
	db       DBTX
	kind     domain.EntityKind
	table    string
	recorder ResolutionRecorder
}

// NewPgCategoryResolver creates a resolver for categories.
func NewPgCategoryResolver(db DBTX) *PgEntityResolver {
	return &PgEntityResolver{db: db, kind: domain.KindCategory, table: "categories"}
}

// NewPgIngredientResolver creates a resolver for ingredients.
func NewPgIngredientResolver(db DBTX) *PgEntityResolver {
	return &PgEntityResolver{db: db, kind: domain.KindIngredient, table: "ingredients"}
}

// WithRecorder sets the recorder notified of every resolution outcome.
func (r *PgEntityResolver) WithRecorder(rec ResolutionRecorder) *PgEntityResolver {
	r.recorder = rec
	return r
}

// Kind returns the entity kind this resolver serves.
func (r *PgEntityResolver) Kind() domain.EntityKind {
	return r.kind
}

// Resolve returns the entity named name, inserting it if absent.
func (r *PgEntityResolver) Resolve(ctx context.Context, name string) (*domain.EntityRef, error) {
	if err := ValidateEntityName(r.kind, name); err != nil {
		return nil, err
	}

	ref, err := r.findByName(ctx, name)
	if err == nil {
		r.record(observability.ResolutionExisting, 1)
		return ref, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up %s: %w", r.kind, err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name`, r.table)

	ref = &domain.EntityRef{}
	err = r.db.QueryRow(ctx, query, name).Scan(&ref.ID, &ref.Name)
	if err == nil {
		r.record(observability.ResolutionCreated, 1)
		return ref, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to insert %s: %w", r.kind, err)
	}

	// Lost the race: another transaction inserted the same name.
	ref, err = r.findByName(ctx, name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %q missing after insert conflict", r.kind, name)
		}
		return nil, fmt.Errorf("failed to re-read %s after insert conflict: %w", r.kind, err)
	}
	r.record(observability.ResolutionConflictRecovered, 1)

	return ref, nil
}

// ResolveAll resolves every name with at most three statements regardless of
// how many names are given.
func (r *PgEntityResolver) ResolveAll(ctx context.Context, names []string) ([]domain.EntityRef, error) {
	unique := domain.DedupeNames(names)
	for _, name := range unique {
		if err := ValidateEntityName(r.kind, name); err != nil {
			return nil, err
		}
	}
	if len(unique) == 0 {
		return []domain.EntityRef{}, nil
	}

	resolved, err := r.findByNames(ctx, unique)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s names: %w", r.kind, err)
	}
	r.record(observability.ResolutionExisting, len(resolved))

	missing := missingNames(unique, resolved)
	if len(missing) > 0 {
		// Rows are inserted in name order so that concurrent resolutions of
		// overlapping sets wait on each other instead of deadlocking.
		query := fmt.Sprintf(`
			INSERT INTO %s (name)
			SELECT n FROM unnest($1::text[]) AS n
			ORDER BY n
			ON CONFLICT (name) DO NOTHING
			RETURNING id, name`, r.table)

		inserted, err := r.collect(ctx, query, missing)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s names: %w", r.kind, err)
		}
		for name, ref := range inserted {
			resolved[name] = ref
		}
		r.record(observability.ResolutionCreated, len(inserted))

		if lost := missingNames(missing, resolved); len(lost) > 0 {
			recovered, err := r.findByNames(ctx, lost)
			if err != nil {
				return nil, fmt.Errorf("failed to re-read %s names after insert conflict: %w", r.kind, err)
			}
			if len(recovered) != len(lost) {
				return nil, fmt.Errorf("%s names missing after insert conflict: %s",
					r.kind, strings.Join(missingNames(lost, recovered), ", "))
			}
			for name, ref := range recovered {
				resolved[name] = ref
			}
			r.record(observability.ResolutionConflictRecovered, len(recovered))
		}
	}

	refs := make([]domain.EntityRef, 0, len(unique))
	for _, name := range unique {
		refs = append(refs, resolved[name])
	}
	return refs, nil
}

func (r *PgEntityResolver) findByName(ctx context.Context, name string) (*domain.EntityRef, error) {
	query := fmt.Sprintf(`SELECT id, name FROM %s WHERE name = $1`, r.table)

	ref := &domain.EntityRef{}
	if err := r.db.QueryRow(ctx, query, name).Scan(&ref.ID, &ref.Name); err != nil {
		return nil, err
	}
	return ref, nil
}

func (r *PgEntityResolver) findByNames(ctx context.Context, names []string) (map[string]domain.EntityRef, error) {
	query := fmt.Sprintf(`SELECT id, name FROM %s WHERE name = ANY($1::text[])`, r.table)
	return r.collect(ctx, query, names)
}

// collect runs a query that takes a text[] argument and returns (id, name) rows.
func (r *PgEntityResolver) collect(ctx context.Context, query string, names []string) (map[string]domain.EntityRef, error) {
	rows, err := r.db.Query(ctx, query, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]domain.EntityRef, len(names))
	for rows.Next() {
		var ref domain.EntityRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		out[ref.Name] = ref
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

func (r *PgEntityResolver) record(outcome string, n int) {
	if r.recorder == nil {
		return
	}
	for i := 0; i < n; i++ {
		r.recorder.RecordEntityResolution(string(r.kind), outcome)
	}
}

// missingNames returns the names of want that have no entry in got, in order.
func missingNames(want []string, got map[string]domain.EntityRef) []string {
	var out []string
	for _, name := range want {
		if _, ok := got[name]; !ok {
			out = append(out, name)
		}
	}
	return out
}

// ValidateEntityName rejects blank names, names PostgreSQL cannot store and
// names longer than the column allows.
func ValidateEntityName(kind domain.EntityKind, name string) error {
	field := kind.String() + "_name"
	if strings.TrimSpace(name) == "" {
		return domain.NewValidationError(field, "must not be blank")
	}
	if !domain.IsStorableText(name) {
		return domain.NewValidationError(field, "must be valid UTF-8 without NUL characters")
	}
	if utf8.RuneCountInString(name) > domain.MaxNameLength {
		return domain.NewValidationError(field, fmt.Sprintf("must be at most %d characters", domain.MaxNameLength))
	}
	return nil
}
