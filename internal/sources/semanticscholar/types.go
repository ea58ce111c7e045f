// Package semanticscholar provides a gateway to the Semantic Scholar API.
//
// Semantic Scholar is a free, AI-powered research tool for scientific
// literature. This package implements the sources.Provider interface for
// searching, retrieving, and walking the citation graph of academic papers
// via the Semantic Scholar Graph API.
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// SearchResponse represents the response from the paper search endpoint.
type SearchResponse struct {
	// Total is the total number of papers matching the query.
	Total int `json:"total"`

	// Offset is the current offset in the result set.
	Offset int `json:"offset"`

	// Next is the offset for the next page of results.
	// A value of 0 indicates no more results.
	Next int `json:"next"`

	// Data contains the list of papers returned by the search.
	Data []PaperResult `json:"data"`
}

// PaperResult represents a single paper in the API response.
type PaperResult struct {
	// PaperID is the Semantic Scholar unique identifier for the paper.
	PaperID string `json:"paperId"`

	// Title is the title of the paper.
	Title string `json:"title"`

	// Abstract is the paper's abstract text.
	Abstract string `json:"abstract"`

	// Year is the publication year.
	Year int `json:"year"`

	// Venue is the publication venue (conference, journal name, etc.).
	Venue string `json:"venue"`

	// URL is the Semantic Scholar landing page for the paper.
	URL string `json:"url"`

	// Authors is the list of paper authors.
	Authors []Author `json:"authors"`

	// CitationCount is the number of citations this paper has received.
	CitationCount int `json:"citationCount"`

	// IsOpenAccess indicates whether the paper is open access.
	IsOpenAccess bool `json:"isOpenAccess"`

	// OpenAccessPDF contains information about the open access PDF.
	OpenAccessPDF *OpenAccessPDF `json:"openAccessPdf,omitempty"`

	// ExternalIDs contains external identifiers for the paper.
	ExternalIDs *ExternalIDs `json:"externalIds,omitempty"`
}

// ExternalIDs contains external identifiers for a paper.
type ExternalIDs struct {
	// DOI is the Digital Object Identifier.
	DOI string `json:"DOI,omitempty"`

	// ArXiv is the arXiv identifier.
	ArXiv string `json:"ArXiv,omitempty"`

	// PubMed is the PubMed identifier.
	PubMed string `json:"PubMed,omitempty"`
}

// Author represents a paper author.
type Author struct {
	// AuthorID is the Semantic Scholar unique identifier for the author.
	AuthorID string `json:"authorId,omitempty"`

	// Name is the author's name.
	Name string `json:"name"`
}

// OpenAccessPDF contains information about an open access PDF.
type OpenAccessPDF struct {
	// URL is the direct URL to the PDF.
	URL string `json:"url,omitempty"`

	// Status indicates the open access status (e.g. "HYBRID", "GOLD").
	Status string `json:"status,omitempty"`
}

// CitationsResponse represents the response from the citations endpoint.
type CitationsResponse struct {
	Offset int            `json:"offset"`
	Next   int            `json:"next"`
	Data   []CitationItem `json:"data"`
}

// CitationItem wraps a citing paper in the citations endpoint response.
type CitationItem struct {
	CitingPaper PaperResult `json:"citingPaper"`
}

// ReferencesResponse represents the response from the references endpoint.
type ReferencesResponse struct {
	Offset int             `json:"offset"`
	Next   int             `json:"next"`
	Data   []ReferenceItem `json:"data"`
}

// ReferenceItem wraps a cited paper in the references endpoint response.
type ReferenceItem struct {
	CitedPaper PaperResult `json:"citedPaper"`
}

// RecommendationsResponse represents the response from the recommendations
// API.
type RecommendationsResponse struct {
	RecommendedPapers []PaperResult `json:"recommendedPapers"`
}
