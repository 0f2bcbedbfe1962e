// Package repository provides data access for the recipe catalog.
//
// # Overview
//
// The package holds the PostgreSQL implementations of the catalog's
// persistence components:
//
//   - EntityResolver: race-safe find-or-create of categories and ingredients by name
//   - RecipeRepository: create, read, update and delete of the recipe aggregate,
//     plus the list/search/filter queries and the atomic view counter
//
// # Transactions
//
// Repositories are bound to a DBTX. Callers construct them inside
// database.DB.WithTransaction so that every operation runs in exactly one
// transaction:
//
//	err := db.WithTransaction(ctx, func(tx pgx.Tx) error {
//	    recipes := repository.NewPgRecipeRepository(tx)
//	    recipe, err = recipes.Create(ctx, input)
//	    return err
//	})
//
// The entity resolver relies on READ COMMITTED isolation to re-read a row
// another transaction inserted concurrently.
//
// # Error Handling
//
// All methods return domain errors from the domain package, wrapping
// database errors with fmt.Errorf and %w:
//
//   - domain.ErrNotFound: the recipe does not exist
//   - domain.ErrInvalidInput: a blank or oversized name or title
//
// # Eager Loading
//
// Every read returns recipes with their category and ingredients populated
// by a single statement: the category through a LEFT JOIN and the ingredient
// set through a json_agg sub-select.
package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/recipe-catalog-service/internal/database"
)

// DBTX is the database interface supporting both pool and transaction contexts.
// Pass the pgx.Tx from database.DB.WithTransaction to run repository calls
// inside one transaction.
type DBTX = database.DBTX

// Pagination defaults and limits.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PostgreSQL error codes.
const (
	pgCheckViolation = "23514" // check_violation
	pgStringTooLong  = "22001" // string_data_right_truncation
	pgBadCharacter   = "22021" // character_not_in_repertoire
)

// applyPaginationDefaults normalizes limit and offset values for list queries.
// It clamps limit to [1, MaxPageLimit] and ensures offset >= 0.
func applyPaginationDefaults(limit, offset *int) {
	if *limit <= 0 {
		*limit = DefaultPageLimit
	}
	if *limit > MaxPageLimit {
		*limit = MaxPageLimit
	}
	if *offset < 0 {
		*offset = 0
	}
}

// likeEscaper escapes the LIKE metacharacters so user input matches literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern returns an ILIKE pattern matching values that contain s.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// pgErrorCode returns the SQLSTATE of err, or "" when err is not a PostgreSQL error.
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isPgInvalidValue reports whether err is a CHECK, length or encoding
// violation raised for a value the caller supplied.
func isPgInvalidValue(err error) bool {
	switch pgErrorCode(err) {
	case pgCheckViolation, pgStringTooLong, pgBadCharacter:
		return true
	}
	return false
}
