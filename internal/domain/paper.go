package domain

import (
	"time"

	"github.com/google/uuid"
)

// Paper represents a paper in the internal library store. The matcher reads
// papers as candidates; it never mutates them.
type Paper struct {
	ID        uuid.UUID
	Title     string
	DOI       string
	Authors   []string
	Year      int
	Abstract  string
	Embedding []float32
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MatchCandidate is a scored pairing of a library paper against a noisy
// record. Candidates are constructed transiently during a match request and
// returned to the caller; this subsystem never persists them.
type MatchCandidate struct {
	Paper      *Paper
	Confidence float64
	Method     MatchMethod
}

// ParsedCitation is the structured form of one reference string extracted
// from a PDF reference section. Title is the only required field.
type ParsedCitation struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors,omitempty"`
	Year    int      `json:"year,omitempty"`
	Journal string   `json:"journal,omitempty"`
	DOI     string   `json:"doi,omitempty"`
	Pages   string   `json:"pages,omitempty"`
	Volume  string   `json:"volume,omitempty"`
	Issue   string   `json:"issue,omitempty"`
}

// Citation is a stored citation edge from a library paper to either another
// library paper (resolved) or an external reference (unresolved).
type Citation struct {
	ID            uuid.UUID
	PaperID       uuid.UUID
	CitedPaperID  *uuid.UUID
	ExternalTitle string
	ExternalDOI   string
	Confidence    float64
	CreatedAt     time.Time
}

// Resolved returns true if the citation points at a library paper.
func (c *Citation) Resolved() bool {
	return c.CitedPaperID != nil && *c.CitedPaperID != uuid.Nil
}

// DuplicateRecord is an audit-log entry for a detected duplicate pair.
type DuplicateRecord struct {
	ID               uuid.UUID
	PaperID          uuid.UUID
	DuplicatePaperID uuid.UUID
	Confidence       float64
	Method           MatchMethod
	Merged           bool
	CreatedAt        time.Time
}
