package httpserver

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/repository"
)

// createPaperRequest is the JSON request body for adding a paper to the
// library.
type createPaperRequest struct {
	Title     string    `json:"title"`
	DOI       string    `json:"doi,omitempty"`
	Authors   []string  `json:"authors,omitempty"`
	Year      int       `json:"year,omitempty"`
	Abstract  string    `json:"abstract,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
}

// extractCitationsRequest is the JSON request body for citation extraction
// by URL. Multipart uploads bypass this.
type extractCitationsRequest struct {
	PDFURL string `json:"pdf_url"`
}

// createPaper handles POST /api/v1/papers. Papers with a known DOI upsert
// into the existing library entry.
func (s *Server) createPaper(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var req createPaperRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	paper, err := s.papers.Create(ctx, &domain.Paper{
		Title:     req.Title,
		DOI:       req.DOI,
		Authors:   req.Authors,
		Year:      req.Year,
		Abstract:  req.Abstract,
		Embedding: req.Embedding,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainPaperToResponse(paper))
}

// listPapers handles GET /api/v1/papers with optional year and has_doi
// filters.
func (s *Server) listPapers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, offset := parsePaginationParams(r)

	filter := repository.PaperFilter{
		Limit:  limit,
		Offset: offset,
	}

	if yearParam := r.URL.Query().Get("year"); yearParam != "" {
		year, err := strconv.Atoi(yearParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		filter.Year = &year
	}
	if hasDOIParam := r.URL.Query().Get("has_doi"); hasDOIParam != "" {
		hasDOI, err := strconv.ParseBool(hasDOIParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "has_doi must be a boolean")
			return
		}
		filter.HasDOI = &hasDOI
	}

	papers, totalCount, err := s.papers.List(ctx, filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]paperResponse, len(papers))
	for i, p := range papers {
		responses[i] = domainPaperToResponse(p)
	}

	writeJSON(w, http.StatusOK, listPapersResponse{
		Papers:        responses,
		NextPageToken: encodePageToken(offset, limit, int(totalCount)),
		TotalCount:    int(totalCount),
	})
}

// getPaper handles GET /api/v1/papers/{paperID}.
func (s *Server) getPaper(w http.ResponseWriter, r *http.Request) {
	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	paper, err := s.papers.GetByID(r.Context(), paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainPaperToResponse(paper))
}

// deletePaper handles DELETE /api/v1/papers/{paperID}. Citation edges from
// the paper are removed with it.
func (s *Server) deletePaper(w http.ResponseWriter, r *http.Request) {
	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	if err := s.papers.Delete(r.Context(), paperID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// scanDuplicates handles GET /api/v1/papers/{paperID}/duplicates. It scores
// the paper against the rest of the library and records every pair above
// the threshold.
func (s *Server) scanDuplicates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	threshold := s.duplicateThreshold
	if thresholdParam := r.URL.Query().Get("threshold"); thresholdParam != "" {
		parsed, err := strconv.ParseFloat(thresholdParam, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			writeError(w, http.StatusBadRequest, "threshold must be in (0, 1]")
			return
		}
		threshold = parsed
	}

	candidates, err := s.matcher.FindDuplicates(ctx, paperID, threshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	foundByMethod := make(map[string]int)
	responses := make([]duplicateCandidateResponse, len(candidates))
	for i, c := range candidates {
		responses[i] = duplicateCandidateResponse{
			Paper:      domainPaperToResponse(c.Paper),
			Confidence: c.Confidence,
			Method:     string(c.Method),
		}
		foundByMethod[string(c.Method)]++

		recordErr := s.duplicates.Record(ctx, &domain.DuplicateRecord{
			PaperID:          paperID,
			DuplicatePaperID: c.Paper.ID,
			Confidence:       c.Confidence,
			Method:           c.Method,
		})
		if recordErr != nil {
			s.logger.Warn().Err(recordErr).
				Str("paper_id", paperID.String()).
				Str("duplicate_paper_id", c.Paper.ID.String()).
				Msg("failed to record duplicate pair")
		}
	}
	s.metrics.RecordDuplicateScan(foundByMethod)

	writeJSON(w, http.StatusOK, scanDuplicatesResponse{
		PaperID:    paperID.String(),
		Threshold:  threshold,
		Candidates: responses,
	})
}

// matchCitationHandler handles POST /api/v1/match/citation. It resolves one
// parsed citation against the library.
func (s *Server) matchCitationHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	var citation domain.ParsedCitation
	if err := json.Unmarshal(body, &citation); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	candidate, err := s.matcher.MatchCitation(ctx, &citation)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if candidate == nil {
		writeJSON(w, http.StatusOK, matchCitationResponse{Matched: false})
		return
	}

	paper := domainPaperToResponse(candidate.Paper)
	writeJSON(w, http.StatusOK, matchCitationResponse{
		Matched:    true,
		Paper:      &paper,
		Confidence: candidate.Confidence,
		Method:     string(candidate.Method),
	})
}

// listCitations handles GET /api/v1/papers/{paperID}/citations.
func (s *Server) listCitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	if _, err := s.papers.GetByID(ctx, paperID); err != nil {
		writeDomainError(w, err)
		return
	}

	edges, err := s.citations.ListByPaper(ctx, paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resolved := 0
	responses := make([]citationResponse, len(edges))
	for i, edge := range edges {
		responses[i] = domainCitationToResponse(edge)
		if edge.Resolved() {
			resolved++
		}
	}

	writeJSON(w, http.StatusOK, listCitationsResponse{
		Citations: responses,
		Total:     len(responses),
		Resolved:  resolved,
	})
}

// listCiting handles GET /api/v1/papers/{paperID}/citing. It returns the
// citation edges that resolve to this paper.
func (s *Server) listCiting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	if _, err := s.papers.GetByID(ctx, paperID); err != nil {
		writeDomainError(w, err)
		return
	}

	edges, err := s.citations.ListCiting(ctx, paperID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	responses := make([]citationResponse, len(edges))
	for i, edge := range edges {
		responses[i] = domainCitationToResponse(edge)
	}

	writeJSON(w, http.StatusOK, listCitationsResponse{
		Citations: responses,
		Total:     len(responses),
		Resolved:  len(responses),
	})
}

// extractCitations handles POST /api/v1/papers/{paperID}/citations. The PDF
// arrives either as a multipart upload under the "pdf" field or as a JSON
// body naming a pdf_url to download.
func (s *Server) extractCitations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paperID, ok := parseUUID(w, chi.URLParam(r, "paperID"), "paper_id")
	if !ok {
		return
	}

	if _, err := s.papers.GetByID(ctx, paperID); err != nil {
		writeDomainError(w, err)
		return
	}

	pdfBytes, err := s.readPDF(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Re-running extraction replaces the paper's outgoing edges.
	if _, err := s.citations.DeleteByPaper(ctx, paperID); err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := s.extractor.Extract(ctx, paperID, pdfBytes)
	if err != nil {
		s.metrics.RecordCitationExtraction("failed", 0)
		writeDomainError(w, err)
		return
	}
	s.metrics.RecordCitationExtraction("success", result.ReferencesFound)
	s.metrics.RecordCitationsStored(result.Resolved, result.LinksStored-result.Resolved)

	writeJSON(w, http.StatusOK, result)
}

// readPDF obtains the PDF bytes for a citation extraction request, from a
// multipart upload or by downloading the pdf_url named in a JSON body.
func (s *Server) readPDF(r *http.Request) ([]byte, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(s.maxPDFBytes); err != nil {
			return nil, domain.NewValidationError("pdf", "invalid multipart form")
		}
		file, _, err := r.FormFile("pdf")
		if err != nil {
			return nil, domain.NewValidationError("pdf", "pdf file field is required")
		}
		defer file.Close()

		content, err := io.ReadAll(io.LimitReader(file, s.maxPDFBytes+1))
		if err != nil {
			return nil, domain.NewValidationError("pdf", "failed to read uploaded file")
		}
		if int64(len(content)) > s.maxPDFBytes {
			return nil, domain.NewValidationError("pdf", "uploaded file exceeds maximum size")
		}
		if len(content) == 0 {
			return nil, domain.NewValidationError("pdf", "uploaded file is empty")
		}
		return content, nil
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		return nil, domain.NewValidationError("body", "failed to read request body")
	}

	var req extractCitationsRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, domain.NewValidationError("body", "invalid JSON request body")
	}
	if strings.TrimSpace(req.PDFURL) == "" {
		return nil, domain.NewValidationError("pdf_url", "pdf_url is required")
	}

	download, err := s.fetcher.Download(r.Context(), req.PDFURL)
	if err != nil {
		return nil, err
	}
	return download.Content, nil
}
