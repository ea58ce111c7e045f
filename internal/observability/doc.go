// Package observability wires structured logging and Prometheus metrics
// for the paper identity resolution service.
//
// Logging is zerolog. NewLogger builds the root logger from LoggingConfig
// and the With*Context helpers attach the field names used across the
// service: request_id, query, source, paper_id, external_id, references.
//
//	logger := observability.NewLogger(observability.DefaultLoggingConfig())
//	logger = observability.WithSearchContext(logger, query, source)
//
// Metrics is a single NewMetrics registry covering searches, per-source
// calls, deduplication, matching, and citation extraction:
//
//	metrics := observability.NewMetrics("papertrail")
//	metrics.RecordSearchStarted()
//	metrics.SourceSearches.WithLabelValues("semantic_scholar", "success").Inc()
//
// Request identifiers travel through context via WithRequestID and
// RequestIDFromContext. Everything in the package is safe for concurrent
// use.
package observability
