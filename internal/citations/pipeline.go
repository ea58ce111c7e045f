package citations

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/llm"
)

// defaultBatchSize is how many reference strings go to the parser per call.
const defaultBatchSize = 20

// TextExtractor turns PDF bytes into plain text.
type TextExtractor interface {
	ExtractText(data []byte) (string, error)
}

// CitationMatcher resolves a parsed citation against the paper library.
type CitationMatcher interface {
	MatchCitation(ctx context.Context, citation *domain.ParsedCitation) (*domain.MatchCandidate, error)
}

// CitationStore persists citation edges.
type CitationStore interface {
	CreateEdge(ctx context.Context, citation *domain.Citation) error
}

// Link reports the outcome for one parsed citation.
type Link struct {
	// Title is the cited work's title as parsed.
	Title string `json:"title"`

	// DOI is the cited work's normalized DOI, if parsed.
	DOI string `json:"doi,omitempty"`

	// CitedPaperID is the resolved library paper, or nil when unresolved.
	CitedPaperID *uuid.UUID `json:"cited_paper_id,omitempty"`

	// Confidence is the match confidence for resolved links.
	Confidence float64 `json:"confidence,omitempty"`
}

// Result summarizes a citation extraction run.
type Result struct {
	// PaperID is the citing paper.
	PaperID uuid.UUID `json:"paper_id"`

	// ReferencesFound is how many reference strings were split out of the
	// PDF.
	ReferencesFound int `json:"references_found"`

	// CitationsParsed is how many references the parser structured.
	CitationsParsed int `json:"citations_parsed"`

	// LinksStored is how many citation edges were persisted.
	LinksStored int `json:"links_stored"`

	// Resolved is how many edges point at a library paper.
	Resolved int `json:"resolved"`

	// Links holds the per-citation outcomes in reference order.
	Links []Link `json:"links"`
}

// Config holds pipeline tuning knobs.
type Config struct {
	// BatchSize is how many references are parsed per LLM call.
	BatchSize int
}

// Pipeline runs PDF text extraction, reference parsing, identity matching,
// and edge storage as one operation.
type Pipeline struct {
	extractor TextExtractor
	parser    llm.CitationParser
	matcher   CitationMatcher
	store     CitationStore
	batchSize int
	logger    zerolog.Logger
}

// NewPipeline wires up a citation pipeline. parser may be nil, in which
// case Extract fails with a validation error (the endpoint is disabled
// without a configured LLM).
func NewPipeline(extractor TextExtractor, parser llm.CitationParser, matcher CitationMatcher, store CitationStore, cfg Config, logger zerolog.Logger) *Pipeline {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Pipeline{
		extractor: extractor,
		parser:    parser,
		matcher:   matcher,
		store:     store,
		batchSize: batchSize,
		logger:    logger.With().Str("component", "citation_pipeline").Logger(),
	}
}

// Extract runs the full pipeline for one paper's PDF. Parser failures and
// match failures degrade to fewer links, never to a pipeline error; only
// unreadable PDFs and storage failures are fatal.
func (p *Pipeline) Extract(ctx context.Context, paperID uuid.UUID, pdfBytes []byte) (*Result, error) {
	if p.parser == nil {
		return nil, domain.NewValidationError("parser", "no citation parser configured")
	}

	text, err := p.extractor.ExtractText(pdfBytes)
	if err != nil {
		return nil, fmt.Errorf("extracting PDF text: %w", err)
	}

	result := &Result{PaperID: paperID}

	section := FindReferenceSection(text)
	if section == "" {
		p.logger.Info().Str("paper_id", paperID.String()).Msg("no reference section found")
		return result, nil
	}

	refs := SplitReferences(section)
	result.ReferencesFound = len(refs)
	if len(refs) == 0 {
		return result, nil
	}

	citations := p.parseAll(ctx, refs)
	result.CitationsParsed = len(citations)

	for i := range citations {
		citation := &citations[i]
		link := Link{Title: citation.Title, DOI: citation.DOI}

		candidate, err := p.matcher.MatchCitation(ctx, citation)
		if err != nil {
			p.logger.Warn().Err(err).Str("title", citation.Title).Msg("citation match failed")
		} else if candidate != nil {
			id := candidate.Paper.ID
			link.CitedPaperID = &id
			link.Confidence = candidate.Confidence
			result.Resolved++
		}

		edge := &domain.Citation{
			PaperID:       paperID,
			CitedPaperID:  link.CitedPaperID,
			ExternalTitle: citation.Title,
			ExternalDOI:   citation.DOI,
			Confidence:    link.Confidence,
		}
		if err := p.store.CreateEdge(ctx, edge); err != nil {
			return nil, fmt.Errorf("storing citation edge: %w", err)
		}
		result.LinksStored++
		result.Links = append(result.Links, link)
	}

	p.logger.Info().
		Str("paper_id", paperID.String()).
		Int("references", result.ReferencesFound).
		Int("parsed", result.CitationsParsed).
		Int("stored", result.LinksStored).
		Int("resolved", result.Resolved).
		Msg("citation extraction complete")
	return result, nil
}

// parseAll sends references to the parser in batches. A failed batch
// contributes zero citations; the rest still go through.
func (p *Pipeline) parseAll(ctx context.Context, refs []string) []domain.ParsedCitation {
	var citations []domain.ParsedCitation

	for start := 0; start < len(refs); start += p.batchSize {
		end := start + p.batchSize
		if end > len(refs) {
			end = len(refs)
		}

		parsed, err := p.parser.ParseCitations(ctx, refs[start:end])
		if err != nil {
			p.logger.Warn().Err(err).
				Int("batch_start", start).
				Int("batch_size", end-start).
				Msg("citation batch parse failed")
			continue
		}
		citations = append(citations, parsed...)
	}

	return citations
}
