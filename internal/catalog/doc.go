// Package catalog is the public surface of the recipe catalog.
//
// Service runs every catalog operation in exactly one database transaction
// obtained from a database.Transactor: writes under READ COMMITTED, reads
// read-only. Within the transaction it binds a RecipeRepository (and through
// it the category and ingredient resolvers) to the pgx.Tx, so a failure at
// any step rolls back the whole unit of work.
//
// After a write commits, Service records metrics and publishes a change
// event. Publishing is best-effort; a failed publish is logged and counted.
//
// # Errors
//
// Operations return:
//
//   - *domain.NotFoundError for an unknown recipe id
//   - *domain.ValidationError for input rejected before or by the database
//   - *domain.StoreError for every other failure (connection loss, deadlock,
//     commit failure); the transaction has been rolled back
package catalog
