package citations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackprince001/papertrail/internal/domain"
)

// pdfText is extracted-text output with a parseable reference section.
const pdfText = `Attention Is All You Need

1 Introduction

Sequence transduction models dominate the field.

References

[1] Vaswani, A. et al. Attention Is All You Need. In NeurIPS, 2017.
[2] Devlin, J. et al. BERT: Pre-training of Deep Bidirectional Transformers. 2019.
[3] Brown, T. et al. Language Models are Few-Shot Learners. 2020.
`

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) ExtractText([]byte) (string, error) {
	return f.text, f.err
}

// fakeParser turns each reference into a citation titled with its first
// clause, recording the batches it was given.
type fakeParser struct {
	batches [][]string
	errs    []error
}

func (f *fakeParser) ParseCitations(_ context.Context, references []string) ([]domain.ParsedCitation, error) {
	call := len(f.batches)
	f.batches = append(f.batches, references)
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}

	citations := make([]domain.ParsedCitation, 0, len(references))
	for _, ref := range references {
		parts := strings.SplitN(ref, ". ", 3)
		title := ref
		if len(parts) == 3 {
			title = parts[2]
		}
		citations = append(citations, domain.ParsedCitation{Title: title})
	}
	return citations, nil
}

func (f *fakeParser) Provider() string { return "fake" }

func (f *fakeParser) Model() string { return "fake" }

// fakeMatcher resolves citations whose title contains a known substring.
type fakeMatcher struct {
	known      string
	knownPaper *domain.Paper
	err        error
}

func (f *fakeMatcher) MatchCitation(_ context.Context, citation *domain.ParsedCitation) (*domain.MatchCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.known != "" && strings.Contains(citation.Title, f.known) {
		return &domain.MatchCandidate{Paper: f.knownPaper, Confidence: 0.95, Method: domain.MatchMethodTitle}, nil
	}
	return nil, nil
}

type fakeStore struct {
	edges []*domain.Citation
	err   error
}

func (f *fakeStore) CreateEdge(_ context.Context, citation *domain.Citation) error {
	if f.err != nil {
		return f.err
	}
	f.edges = append(f.edges, citation)
	return nil
}

func newTestPipeline(extractor TextExtractor, parser *fakeParser, matcher CitationMatcher, store CitationStore, cfg Config) *Pipeline {
	return NewPipeline(extractor, parser, matcher, store, cfg, zerolog.Nop())
}

func TestExtract(t *testing.T) {
	knownPaper := &domain.Paper{ID: uuid.New(), Title: "Attention Is All You Need"}
	extractor := &fakeExtractor{text: pdfText}
	parser := &fakeParser{}
	matcher := &fakeMatcher{known: "Attention", knownPaper: knownPaper}
	store := &fakeStore{}

	p := newTestPipeline(extractor, parser, matcher, store, Config{})
	paperID := uuid.New()

	result, err := p.Extract(context.Background(), paperID, []byte("%PDF-"))
	require.NoError(t, err)

	assert.Equal(t, paperID, result.PaperID)
	assert.Equal(t, 3, result.ReferencesFound)
	assert.Equal(t, 3, result.CitationsParsed)
	assert.Equal(t, 3, result.LinksStored)
	assert.Equal(t, 1, result.Resolved)

	require.Len(t, result.Links, 3)
	resolved := result.Links[0]
	assert.Contains(t, resolved.Title, "Attention")
	require.NotNil(t, resolved.CitedPaperID)
	assert.Equal(t, knownPaper.ID, *resolved.CitedPaperID)
	assert.InDelta(t, 0.95, resolved.Confidence, 1e-9)
	assert.Nil(t, result.Links[1].CitedPaperID)

	require.Len(t, store.edges, 3)
	assert.Equal(t, paperID, store.edges[0].PaperID)
	assert.True(t, store.edges[0].Resolved())
	assert.False(t, store.edges[1].Resolved())
}

func TestExtract_NoParserConfigured(t *testing.T) {
	p := NewPipeline(&fakeExtractor{}, nil, &fakeMatcher{}, &fakeStore{}, Config{}, zerolog.Nop())

	_, err := p.Extract(context.Background(), uuid.New(), []byte("%PDF-"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestExtract_UnreadablePDF(t *testing.T) {
	extractor := &fakeExtractor{err: errors.New("not a pdf")}
	p := newTestPipeline(extractor, &fakeParser{}, &fakeMatcher{}, &fakeStore{}, Config{})

	_, err := p.Extract(context.Background(), uuid.New(), []byte("garbage"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extracting PDF text")
}

func TestExtract_NoReferenceSection(t *testing.T) {
	extractor := &fakeExtractor{text: "A short note with no reference section at all."}
	store := &fakeStore{}
	p := newTestPipeline(extractor, &fakeParser{}, &fakeMatcher{}, store, Config{})

	result, err := p.Extract(context.Background(), uuid.New(), []byte("%PDF-"))
	require.NoError(t, err)
	assert.Zero(t, result.ReferencesFound)
	assert.Zero(t, result.LinksStored)
	assert.Empty(t, store.edges)
}

func TestExtract_ParsesInBatches(t *testing.T) {
	parser := &fakeParser{}
	p := newTestPipeline(&fakeExtractor{text: pdfText}, parser, &fakeMatcher{}, &fakeStore{}, Config{BatchSize: 2})

	result, err := p.Extract(context.Background(), uuid.New(), []byte("%PDF-"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.CitationsParsed)

	require.Len(t, parser.batches, 2)
	assert.Len(t, parser.batches[0], 2)
	assert.Len(t, parser.batches[1], 1)
}

func TestExtract_FailedBatchDegrades(t *testing.T) {
	parser := &fakeParser{errs: []error{errors.New("model refused"), nil}}
	p := newTestPipeline(&fakeExtractor{text: pdfText}, parser, &fakeMatcher{}, &fakeStore{}, Config{BatchSize: 2})

	result, err := p.Extract(context.Background(), uuid.New(), []byte("%PDF-"))
	require.NoError(t, err)

	// The first batch of two is lost; the second still parses.
	assert.Equal(t, 3, result.ReferencesFound)
	assert.Equal(t, 1, result.CitationsParsed)
	assert.Equal(t, 1, result.LinksStored)
}

func TestExtract_MatchFailureDegrades(t *testing.T) {
	matcher := &fakeMatcher{err: errors.New("db unavailable")}
	store := &fakeStore{}
	p := newTestPipeline(&fakeExtractor{text: pdfText}, &fakeParser{}, matcher, store, Config{})

	result, err := p.Extract(context.Background(), uuid.New(), []byte("%PDF-"))
	require.NoError(t, err)

	// Edges are still stored, all unresolved.
	assert.Equal(t, 3, result.LinksStored)
	assert.Zero(t, result.Resolved)
	for _, edge := range store.edges {
		assert.False(t, edge.Resolved())
	}
}

func TestExtract_StoreFailureIsFatal(t *testing.T) {
	store := &fakeStore{err: errors.New("insert failed")}
	p := newTestPipeline(&fakeExtractor{text: pdfText}, &fakeParser{}, &fakeMatcher{}, store, Config{})

	_, err := p.Extract(context.Background(), uuid.New(), []byte("%PDF-"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storing citation edge")
}
