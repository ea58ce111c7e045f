package httpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/search"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxQueryLength     = 1000
	maxRequestBodySize = 1 << 20 // 1 MB limit for JSON request bodies
)

// searchHandler handles POST /api/v1/search. It runs a blocking
// multi-source search and returns the aggregated response.
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req search.Request
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	if len(req.Query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("query must be at most %d characters", maxQueryLength))
		return
	}

	s.metrics.RecordSearchStarted()
	resp, err := s.searcher.Search(ctx, req)
	if err != nil {
		s.metrics.RecordSearchFailed(0)
		writeDomainError(w, err)
		return
	}
	s.metrics.RecordSearchCompleted(resp.TotalResults, resp.Duration.Seconds())
	s.metrics.RecordRecordsDeduplicated(resp.DeduplicatedCount)

	writeJSON(w, http.StatusOK, resp)
}

// searchStreamHandler handles GET /api/v1/search/stream (SSE). Search
// parameters come from the query string; events are forwarded to the
// client as they happen.
func (s *Server) searchStreamHandler(w http.ResponseWriter, r *http.Request) {
	req, err := searchRequestFromQuery(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	s.metrics.RecordSearchStarted()

	var final *search.Response
	s.searcher.SearchStream(r.Context(), req, func(event search.Event) {
		if event.Type == search.EventComplete {
			final = event.Response
		}
		sendSSEEvent(w, flusher, event)
	})

	if final != nil {
		s.metrics.RecordSearchCompleted(final.TotalResults, final.Duration.Seconds())
		s.metrics.RecordRecordsDeduplicated(final.DeduplicatedCount)
	} else {
		s.metrics.RecordSearchFailed(0)
	}
}

// searchRequestFromQuery builds a search request from SSE query parameters.
func searchRequestFromQuery(r *http.Request) (search.Request, error) {
	q := r.URL.Query()

	req := search.Request{Query: strings.TrimSpace(q.Get("query"))}
	if req.Query == "" {
		return req, domain.NewValidationError("query", "query is required")
	}
	if len(req.Query) > maxQueryLength {
		return req, domain.NewValidationError("query", fmt.Sprintf("query must be at most %d characters", maxQueryLength))
	}

	if sourcesParam := q.Get("sources"); sourcesParam != "" {
		for _, name := range strings.Split(sourcesParam, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			st := domain.SourceType(name)
			if !st.IsValid() {
				return req, domain.NewValidationError("sources", "unknown source: "+name)
			}
			req.Sources = append(req.Sources, st)
		}
	}

	var err error
	if req.YearFrom, err = intQueryParam(q.Get("year_from")); err != nil {
		return req, domain.NewValidationError("year_from", "must be an integer")
	}
	if req.YearTo, err = intQueryParam(q.Get("year_to")); err != nil {
		return req, domain.NewValidationError("year_to", "must be an integer")
	}
	if req.MaxResults, err = intQueryParam(q.Get("max_results")); err != nil {
		return req, domain.NewValidationError("max_results", "must be an integer")
	}
	if req.MinCitations, err = intQueryParam(q.Get("min_citations")); err != nil {
		return req, domain.NewValidationError("min_citations", "must be an integer")
	}

	return req, nil
}

// intQueryParam parses an optional non-negative integer query parameter.
func intQueryParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid integer: %q", s)
	}
	return v, nil
}

// sendSSEEvent writes a single SSE event to the response writer.
func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event search.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
	flusher.Flush()
}
