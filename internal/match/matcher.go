package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blackprince001/papertrail/internal/dedup"
	"github.com/blackprince001/papertrail/internal/domain"
)

// titlePrefixLen is how much of a citation title is used for the repository
// pre-filter. Long titles are truncated so small parsing differences at the
// tail don't defeat the prefix search.
const titlePrefixLen = 50

// candidateLimit caps how many candidates the title pre-filter returns.
const candidateLimit = 50

// PaperFinder is the candidate access the matcher needs from the paper
// repository.
type PaperFinder interface {
	// FindByDOI returns the paper with the given normalized DOI, or
	// domain.ErrNotFound.
	FindByDOI(ctx context.Context, doi string) (*domain.Paper, error)

	// SearchByTitle returns papers whose normalized title contains the
	// given normalized fragment.
	SearchByTitle(ctx context.Context, titlePrefix string, limit int) ([]*domain.Paper, error)

	// GetByID returns a single paper or domain.ErrNotFound.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error)

	// ListExcept returns all papers other than the given one.
	ListExcept(ctx context.Context, id uuid.UUID) ([]*domain.Paper, error)
}

// Matcher resolves parsed citations against the paper library and detects
// duplicate papers.
type Matcher struct {
	papers PaperFinder
	params Params
	logger zerolog.Logger
}

// NewMatcher creates a matcher over the given candidate source. Zero-valued
// params fields fall back to defaults.
func NewMatcher(papers PaperFinder, params Params, logger zerolog.Logger) *Matcher {
	params.applyDefaults()
	return &Matcher{
		papers: papers,
		params: params,
		logger: logger.With().Str("component", "matcher").Logger(),
	}
}

// MatchCitation resolves a parsed citation to a library paper. A DOI hit is
// definitive (confidence 1.0). Otherwise candidates from a title-prefix
// search are scored on title, author, and year evidence; the best candidate
// is returned if it clears the accept threshold. No acceptable match
// returns (nil, nil).
func (m *Matcher) MatchCitation(ctx context.Context, citation *domain.ParsedCitation) (*domain.MatchCandidate, error) {
	if citation == nil || strings.TrimSpace(citation.Title) == "" {
		return nil, domain.NewValidationError("title", "citation title is required")
	}

	if citation.DOI != "" {
		paper, err := m.papers.FindByDOI(ctx, domain.NormalizeDOI(citation.DOI))
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("finding paper by DOI: %w", err)
		}
		if paper != nil {
			return &domain.MatchCandidate{
				Paper:      paper,
				Confidence: 1.0,
				Method:     domain.MatchMethodDOI,
			}, nil
		}
	}

	// Truncate on runes so a multibyte title never sends a split rune to
	// the LIKE pattern.
	prefix := dedup.NormalizeTitle(citation.Title)
	if runes := []rune(prefix); len(runes) > titlePrefixLen {
		prefix = string(runes[:titlePrefixLen])
	}

	candidates, err := m.papers.SearchByTitle(ctx, prefix, candidateLimit)
	if err != nil {
		return nil, fmt.Errorf("searching candidates by title: %w", err)
	}

	var best *domain.MatchCandidate
	for _, paper := range candidates {
		titleSim := TitleSimilarity(citation.Title, paper.Title)
		authorSim := AuthorOverlap(citation.Authors, paper.Authors)
		yearSim := YearProximity(citation.Year, paper.Year)

		score := m.params.compositeScore(titleSim, authorSim, yearSim)
		if score < m.params.AcceptThreshold {
			continue
		}
		if best == nil || score > best.Confidence {
			best = &domain.MatchCandidate{
				Paper:      paper,
				Confidence: score,
				Method:     domain.MatchMethodTitle,
			}
		}
	}

	if best != nil {
		m.logger.Debug().
			Str("paper_id", best.Paper.ID.String()).
			Float64("confidence", best.Confidence).
			Str("method", string(best.Method)).
			Msg("citation matched")
	}
	return best, nil
}

// FindDuplicates scores every other library paper against the given one and
// returns candidates at or above the threshold, sorted by descending
// confidence. A threshold of 0 uses the configured default. Each pair is
// scored by the strongest applicable signal: DOI equality, title edit
// distance, embedding cosine similarity, or the combined author+title rule.
func (m *Matcher) FindDuplicates(ctx context.Context, paperID uuid.UUID, threshold float64) ([]domain.MatchCandidate, error) {
	if threshold <= 0 {
		threshold = m.params.DuplicateThreshold
	}

	paper, err := m.papers.GetByID(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("loading paper: %w", err)
	}

	others, err := m.papers.ListExcept(ctx, paperID)
	if err != nil {
		return nil, fmt.Errorf("listing candidate papers: %w", err)
	}

	var candidates []domain.MatchCandidate
	for _, other := range others {
		confidence, method := m.scoreDuplicatePair(paper, other)
		if confidence >= threshold {
			candidates = append(candidates, domain.MatchCandidate{
				Paper:      other,
				Confidence: confidence,
				Method:     method,
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})

	m.logger.Debug().
		Str("paper_id", paperID.String()).
		Int("candidates", len(candidates)).
		Float64("threshold", threshold).
		Msg("duplicate scan complete")
	return candidates, nil
}

// scoreDuplicatePair returns the best confidence and method for a pair of
// papers.
func (m *Matcher) scoreDuplicatePair(a, b *domain.Paper) (float64, domain.MatchMethod) {
	if a.DOI != "" && b.DOI != "" &&
		domain.NormalizeDOI(a.DOI) == domain.NormalizeDOI(b.DOI) {
		return 1.0, domain.MatchMethodDOI
	}

	titleSim := TitleRatio(a.Title, b.Title)
	best := titleSim
	method := domain.MatchMethodTitle

	if cosine := CosineSimilarity(a.Embedding, b.Embedding); cosine > best {
		best = cosine
		method = domain.MatchMethodContent
	}

	// Full-name agreement is required here: a shared surname across
	// different authors must not certify a duplicate pair.
	if titleSim > m.params.AuthorTitleGate && dedup.SharedName(a.Authors, b.Authors) {
		if combined := (titleSim + 0.9) / 2; combined > best {
			best = combined
			method = domain.MatchMethodAuthorTitle
		}
	}

	return best, method
}
