// Package observability provides logging and metrics support for the
// recipe catalog service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for catalog operations, entity resolution and HTTP traffic
//   - Context helpers for propagating request identifiers
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Int64("recipe_id", id).Msg("recipe created")
//
// Add request identifiers from a context:
//
//	logger = observability.LoggerFromContext(ctx, logger)
//
// # Metrics
//
// Metrics are registered with the default Prometheus registry under a
// namespace, so a process should create exactly one Metrics value:
//
//	metrics := observability.NewMetrics("recipe_catalog")
//	metrics.RecordOperation("create_recipe", observability.OutcomeSuccess, elapsed.Seconds())
//
// Expose them with promhttp.Handler() on the metrics port.
package observability
