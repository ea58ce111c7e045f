package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/pdf"
)

// Response types for JSON serialization.

type paperResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	DOI       string    `json:"doi,omitempty"`
	Authors   []string  `json:"authors,omitempty"`
	Year      int       `json:"year,omitempty"`
	Abstract  string    `json:"abstract,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type listPapersResponse struct {
	Papers        []paperResponse `json:"papers"`
	NextPageToken string          `json:"next_page_token,omitempty"`
	TotalCount    int             `json:"total_count"`
}

type citationResponse struct {
	ID            string    `json:"id"`
	PaperID       string    `json:"paper_id"`
	CitedPaperID  string    `json:"cited_paper_id,omitempty"`
	ExternalTitle string    `json:"external_title"`
	ExternalDOI   string    `json:"external_doi,omitempty"`
	Confidence    float64   `json:"confidence"`
	Resolved      bool      `json:"resolved"`
	CreatedAt     time.Time `json:"created_at"`
}

type listCitationsResponse struct {
	Citations []citationResponse `json:"citations"`
	Total     int                `json:"total"`
	Resolved  int                `json:"resolved"`
}

type duplicateCandidateResponse struct {
	Paper      paperResponse `json:"paper"`
	Confidence float64       `json:"confidence"`
	Method     string        `json:"method"`
}

type scanDuplicatesResponse struct {
	PaperID    string                       `json:"paper_id"`
	Threshold  float64                      `json:"threshold"`
	Candidates []duplicateCandidateResponse `json:"candidates"`
}

type matchCitationResponse struct {
	Matched    bool           `json:"matched"`
	Paper      *paperResponse `json:"paper,omitempty"`
	Confidence float64        `json:"confidence,omitempty"`
	Method     string         `json:"method,omitempty"`
}

// Converter functions

func domainPaperToResponse(p *domain.Paper) paperResponse {
	return paperResponse{
		ID:        p.ID.String(),
		Title:     p.Title,
		DOI:       p.DOI,
		Authors:   p.Authors,
		Year:      p.Year,
		Abstract:  p.Abstract,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func domainCitationToResponse(c *domain.Citation) citationResponse {
	resp := citationResponse{
		ID:            c.ID.String(),
		PaperID:       c.PaperID.String(),
		ExternalTitle: c.ExternalTitle,
		ExternalDOI:   c.ExternalDOI,
		Confidence:    c.Confidence,
		Resolved:      c.Resolved(),
		CreatedAt:     c.CreatedAt,
	}
	if c.Resolved() {
		resp.CitedPaperID = c.CitedPaperID.String()
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// writeDomainError maps domain errors to appropriate HTTP status codes and
// writes a JSON error response. Internal error details are not leaked to
// clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "invalid input")
		}
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "resource already exists")
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "rate limited by upstream source")
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
	case errors.Is(err, domain.ErrCancelled):
		writeError(w, http.StatusConflict, "operation cancelled")
	case errors.Is(err, pdf.ErrSSRF), errors.Is(err, pdf.ErrNotPDF):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pdf.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "pdf exceeds maximum size")
	case errors.Is(err, pdf.ErrDownloadFailed):
		writeError(w, http.StatusBadGateway, "pdf download failed")
	default:
		var apiErr *domain.ExternalAPIError
		if errors.As(err, &apiErr) {
			writeError(w, http.StatusBadGateway, "upstream source error")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if
// invalid. The parse error details are not echoed back.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and page_token from query
// parameters, applying default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if pageToken := r.URL.Query().Get("page_token"); pageToken != "" {
		decoded, err := base64.StdEncoding.DecodeString(pageToken)
		if err == nil {
			if parsed, parseErr := strconv.Atoi(string(decoded)); parseErr == nil && parsed > 0 {
				offset = parsed
			}
		}
	}

	return limit, offset
}

// encodePageToken encodes the next offset as a base64 page token. Returns
// an empty string when there are no more results.
func encodePageToken(offset, limit, totalCount int) string {
	nextOffset := offset + limit
	if nextOffset < totalCount {
		return base64.StdEncoding.EncodeToString([]byte(strconv.Itoa(nextOffset)))
	}
	return ""
}
