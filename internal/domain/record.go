package domain

import "strings"

// Record is a normalized bibliographic hit from an external source.
// It is immutable once constructed: each pipeline stage owns the records it
// produced until they are handed to the next stage, and no stage mutates
// records it received.
type Record struct {
	// Source identifies the external API that produced this record.
	Source SourceType

	// ExternalID is the source-scoped identifier (S2 paper ID, OpenAlex
	// work ID, arXiv ID, PubMed ID).
	ExternalID string

	// Title is the paper title as reported by the source.
	Title string

	// Authors is the ordered author name list.
	Authors []string

	// Abstract is the abstract text, if the source provides one.
	Abstract string

	// Year is the publication year, zero if unknown.
	Year int

	// DOI is the Digital Object Identifier, if known. Stored as reported;
	// use NormalizeDOI before comparing.
	DOI string

	// ArXivID is the arXiv identifier, if known.
	ArXivID string

	// URL is the landing page URL.
	URL string

	// PDFURL is a direct PDF link, if available.
	PDFURL string

	// CitationCount is the citation count reported by the source.
	CitationCount int

	// RelevanceScore is the source-reported relevance for the query, if any.
	RelevanceScore float64

	// Metadata carries source-specific fields that have no typed home.
	// Scoring logic must never read from this map; anything a matcher needs
	// is promoted to a typed field at ingestion.
	Metadata map[string]any
}

// doiPrefixes are stripped from DOI strings before normalization.
var doiPrefixes = []string{
	"https://doi.org/",
	"http://doi.org/",
	"https://dx.doi.org/",
	"http://dx.doi.org/",
	"doi.org/",
	"doi:",
}

// NormalizeDOI lowercases and trims a DOI and strips common URL and
// "doi:" prefixes. Returns empty string for empty or whitespace input.
func NormalizeDOI(doi string) string {
	doi = strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range doiPrefixes {
		if strings.HasPrefix(doi, prefix) {
			doi = strings.TrimSpace(doi[len(prefix):])
			break
		}
	}
	return doi
}

// HasDOI returns true if the record carries a non-empty DOI after
// normalization.
func (r *Record) HasDOI() bool {
	return NormalizeDOI(r.DOI) != ""
}
