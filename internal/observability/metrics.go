package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the service. Metrics are
// organized by subsystem: searches, sources, dedup, matching, citations, and
// LLM operations. All counters and histograms are registered via promauto
// for automatic registration with the default Prometheus registry.
type Metrics struct {
	// SearchesStarted counts multi-source searches initiated.
	SearchesStarted prometheus.Counter

	// SearchesCompleted counts multi-source searches that finished.
	SearchesCompleted prometheus.Counter

	// SearchesFailed counts multi-source searches that ended in failure.
	SearchesFailed prometheus.Counter

	// SearchDuration observes the end-to-end duration of searches in seconds.
	SearchDuration prometheus.Histogram

	// SourceSearches counts per-provider searches, labeled by source and outcome.
	SourceSearches *prometheus.CounterVec

	// SourceSearchDuration observes per-provider search duration in seconds.
	SourceSearchDuration *prometheus.HistogramVec

	// RecordsPerSearch observes the deduplicated result count per search.
	RecordsPerSearch prometheus.Histogram

	// SourceRequestsTotal counts HTTP requests to literature APIs, labeled by source and endpoint.
	SourceRequestsTotal *prometheus.CounterVec

	// SourceRequestsFailed counts failed HTTP requests to literature APIs, labeled by source, endpoint, and error type.
	SourceRequestsFailed *prometheus.CounterVec

	// SourceRateLimited counts rate-limited responses from literature APIs, labeled by source.
	SourceRateLimited *prometheus.CounterVec

	// RecordsDeduplicated counts pooled records dropped as cross-source duplicates.
	RecordsDeduplicated prometheus.Counter

	// MatchAttempts counts citation match attempts, labeled by method and outcome.
	MatchAttempts *prometheus.CounterVec

	// MatchConfidence observes the confidence of accepted matches.
	MatchConfidence prometheus.Histogram

	// DuplicateScans counts duplicate scans over the paper corpus.
	DuplicateScans prometheus.Counter

	// DuplicatesFound counts duplicate candidates found, labeled by method.
	DuplicatesFound *prometheus.CounterVec

	// CitationExtractions counts citation pipeline runs, labeled by outcome.
	CitationExtractions *prometheus.CounterVec

	// ReferencesPerPaper observes the reference count found per paper.
	ReferencesPerPaper prometheus.Histogram

	// CitationsResolved counts citation edges stored, labeled by resolution
	// ("resolved", "unresolved").
	CitationsResolved *prometheus.CounterVec

	// LLMRequestsTotal counts LLM API requests, labeled by operation and model.
	LLMRequestsTotal *prometheus.CounterVec

	// LLMRequestsFailed counts failed LLM API requests, labeled by operation, model, and error type.
	LLMRequestsFailed *prometheus.CounterVec

	// LLMRequestDuration observes LLM API request duration in seconds, labeled by operation and model.
	LLMRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Searches
		SearchesStarted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_started_total",
			Help:      "Total number of multi-source searches started",
		}),
		SearchesCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_completed_total",
			Help:      "Total number of multi-source searches completed",
		}),
		SearchesFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_failed_total",
			Help:      "Total number of multi-source searches that failed",
		}),
		SearchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "End-to-end duration of multi-source searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 45, 60},
		}),
		SourceSearches: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_searches_total",
			Help:      "Total number of per-provider searches by source and outcome",
		}, []string{"source", "outcome"}),
		SourceSearchDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "source_search_duration_seconds",
			Help:      "Duration of per-provider searches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20},
		}, []string{"source"}),
		RecordsPerSearch: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "records_per_search",
			Help:      "Deduplicated records returned per search",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 200},
		}),

		// Sources
		SourceRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_total",
			Help:      "Total number of requests to literature APIs",
		}, []string{"source", "endpoint"}),
		SourceRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_requests_failed_total",
			Help:      "Total number of failed requests to literature APIs",
		}, []string{"source", "endpoint", "error_type"}),
		SourceRateLimited: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_rate_limited_total",
			Help:      "Total number of rate limit responses from literature APIs",
		}, []string{"source"}),

		// Dedup
		RecordsDeduplicated: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_deduplicated_total",
			Help:      "Total number of pooled records dropped as duplicates",
		}),

		// Matching
		MatchAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "match_attempts_total",
			Help:      "Total number of citation match attempts by method and outcome",
		}, []string{"method", "outcome"}),
		MatchConfidence: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_confidence",
			Help:      "Confidence of accepted citation matches",
			Buckets:   []float64{0.6, 0.7, 0.8, 0.9, 0.95, 1.0},
		}),
		DuplicateScans: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_scans_total",
			Help:      "Total number of duplicate scans",
		}),
		DuplicatesFound: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_found_total",
			Help:      "Total number of duplicate candidates found by method",
		}, []string{"method"}),

		// Citations
		CitationExtractions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citation_extractions_total",
			Help:      "Total number of citation pipeline runs by outcome",
		}, []string{"outcome"}),
		ReferencesPerPaper: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "references_per_paper",
			Help:      "References found per paper by the citation pipeline",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 200, 300},
		}),
		CitationsResolved: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "citations_resolved_total",
			Help:      "Total number of citation edges stored by resolution",
		}, []string{"resolution"}),

		// LLM
		LLMRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests by operation",
		}, []string{"operation", "model"}),
		LLMRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_failed_total",
			Help:      "Total number of failed LLM requests by operation",
		}, []string{"operation", "model", "error_type"}),
		LLMRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Duration of LLM requests in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation", "model"}),
	}
}

// RecordSearchStarted records that a multi-source search has started.
func (m *Metrics) RecordSearchStarted() {
	m.SearchesStarted.Inc()
}

// RecordSearchCompleted records a completed search with its result count.
func (m *Metrics) RecordSearchCompleted(recordCount int, durationSeconds float64) {
	m.SearchesCompleted.Inc()
	m.SearchDuration.Observe(durationSeconds)
	m.RecordsPerSearch.Observe(float64(recordCount))
}

// RecordSearchFailed records a failed search.
func (m *Metrics) RecordSearchFailed(durationSeconds float64) {
	m.SearchesFailed.Inc()
	m.SearchDuration.Observe(durationSeconds)
}

// RecordSourceSearch records a per-provider search outcome.
func (m *Metrics) RecordSourceSearch(source, outcome string, durationSeconds float64) {
	m.SourceSearches.WithLabelValues(source, outcome).Inc()
	m.SourceSearchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordSourceRequest records a request to a literature API.
func (m *Metrics) RecordSourceRequest(source, endpoint string) {
	m.SourceRequestsTotal.WithLabelValues(source, endpoint).Inc()
}

// RecordSourceRequestFailed records a failed request to a literature API.
func (m *Metrics) RecordSourceRequestFailed(source, endpoint, errorType string) {
	m.SourceRequestsFailed.WithLabelValues(source, endpoint, errorType).Inc()
}

// RecordSourceRateLimited records a rate limit response from a source.
func (m *Metrics) RecordSourceRateLimited(source string) {
	m.SourceRateLimited.WithLabelValues(source).Inc()
}

// RecordRecordsDeduplicated records pooled records dropped as duplicates.
func (m *Metrics) RecordRecordsDeduplicated(count int) {
	m.RecordsDeduplicated.Add(float64(count))
}

// RecordMatchAttempt records a citation match attempt.
func (m *Metrics) RecordMatchAttempt(method, outcome string) {
	m.MatchAttempts.WithLabelValues(method, outcome).Inc()
}

// RecordMatchAccepted records an accepted match with its confidence.
func (m *Metrics) RecordMatchAccepted(method string, confidence float64) {
	m.MatchAttempts.WithLabelValues(method, "accepted").Inc()
	m.MatchConfidence.Observe(confidence)
}

// RecordDuplicateScan records a duplicate scan and its findings.
func (m *Metrics) RecordDuplicateScan(foundByMethod map[string]int) {
	m.DuplicateScans.Inc()
	for method, count := range foundByMethod {
		m.DuplicatesFound.WithLabelValues(method).Add(float64(count))
	}
}

// RecordCitationExtraction records a citation pipeline run.
func (m *Metrics) RecordCitationExtraction(outcome string, referencesFound int) {
	m.CitationExtractions.WithLabelValues(outcome).Inc()
	m.ReferencesPerPaper.Observe(float64(referencesFound))
}

// RecordCitationsStored records stored citation edges by resolution.
func (m *Metrics) RecordCitationsStored(resolved, unresolved int) {
	m.CitationsResolved.WithLabelValues("resolved").Add(float64(resolved))
	m.CitationsResolved.WithLabelValues("unresolved").Add(float64(unresolved))
}

// RecordLLMRequest records an LLM request.
func (m *Metrics) RecordLLMRequest(operation, model string, durationSeconds float64) {
	m.LLMRequestsTotal.WithLabelValues(operation, model).Inc()
	m.LLMRequestDuration.WithLabelValues(operation, model).Observe(durationSeconds)
}

// RecordLLMRequestFailed records a failed LLM request.
func (m *Metrics) RecordLLMRequestFailed(operation, model, errorType string) {
	m.LLMRequestsFailed.WithLabelValues(operation, model, errorType).Inc()
}
