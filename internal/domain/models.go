// Package domain provides domain models and business logic for the paper
// identity resolution service.
package domain

// SourceType represents the external API that provided a bibliographic record.
// These values must match the database enum source_type.
type SourceType string

const (
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
	SourceTypeOpenAlex        SourceType = "openalex"
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypePubMed          SourceType = "pubmed"
)

// AllSourceTypes lists every known source in dispatch order.
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeSemanticScholar,
		SourceTypeOpenAlex,
		SourceTypeArXiv,
		SourceTypePubMed,
	}
}

// IsValid returns true if the source type is one of the known sources.
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeSemanticScholar, SourceTypeOpenAlex, SourceTypeArXiv, SourceTypePubMed:
		return true
	default:
		return false
	}
}

// MatchMethod identifies which signal produced a match candidate.
// These values must match the database enum match_method.
type MatchMethod string

const (
	// MatchMethodDOI is an exact match on normalized DOI.
	MatchMethodDOI MatchMethod = "doi"
	// MatchMethodTitle is a fuzzy match on title text.
	MatchMethodTitle MatchMethod = "title"
	// MatchMethodContent is a match on embedding cosine similarity.
	MatchMethodContent MatchMethod = "content"
	// MatchMethodAuthorTitle is a combined author + title match.
	MatchMethodAuthorTitle MatchMethod = "author_title"
)
