package sources

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackprince001/papertrail/internal/domain"
)

// stubProvider is a configurable in-memory Provider for registry tests.
type stubProvider struct {
	source  domain.SourceType
	enabled bool
	records []*domain.Record
	err     error
	delay   time.Duration
}

func (s *stubProvider) Search(ctx context.Context, _ SearchParams) (*SearchResult, error) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.delay):
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &SearchResult{
		Records:      s.records,
		TotalResults: len(s.records),
		Source:       s.source,
	}, nil
}

func (s *stubProvider) GetByID(context.Context, string) (*domain.Record, error) {
	return nil, domain.ErrNotFound
}

func (s *stubProvider) GetCitations(context.Context, string, int) ([]*domain.Record, error) {
	return nil, nil
}

func (s *stubProvider) GetReferences(context.Context, string, int) ([]*domain.Record, error) {
	return nil, nil
}

func (s *stubProvider) GetRecommendations(context.Context, string, int) ([]*domain.Record, error) {
	return nil, nil
}

func (s *stubProvider) Capabilities() Capabilities { return Capabilities{} }

func (s *stubProvider) SourceType() domain.SourceType { return s.source }

func (s *stubProvider) Name() string { return string(s.source) }

func (s *stubProvider) IsEnabled() bool { return s.enabled }

func record(source domain.SourceType, title string) *domain.Record {
	return &domain.Record{Source: source, ExternalID: title, Title: title}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	assert.Nil(t, r.Get(domain.SourceTypeArXiv))

	p := &stubProvider{source: domain.SourceTypeArXiv, enabled: true}
	r.Register(p)
	assert.Same(t, Provider(p), r.Get(domain.SourceTypeArXiv))

	// Re-registering replaces.
	p2 := &stubProvider{source: domain.SourceTypeArXiv, enabled: false}
	r.Register(p2)
	assert.Same(t, Provider(p2), r.Get(domain.SourceTypeArXiv))
}

func TestRegistry_EnabledSources(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{source: domain.SourceTypeArXiv, enabled: true})
	r.Register(&stubProvider{source: domain.SourceTypePubMed, enabled: false})
	r.Register(&stubProvider{source: domain.SourceTypeOpenAlex, enabled: true})

	enabled := r.EnabledSources()
	assert.ElementsMatch(t, []domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypeOpenAlex}, enabled)
}

func TestSearchSources(t *testing.T) {
	t.Run("fans out to all enabled providers", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&stubProvider{
			source:  domain.SourceTypeArXiv,
			enabled: true,
			records: []*domain.Record{record(domain.SourceTypeArXiv, "a")},
		})
		r.Register(&stubProvider{
			source:  domain.SourceTypeOpenAlex,
			enabled: true,
			records: []*domain.Record{record(domain.SourceTypeOpenAlex, "b")},
		})
		r.Register(&stubProvider{source: domain.SourceTypePubMed, enabled: false})

		results := r.SearchSources(context.Background(), SearchParams{Query: "q"}, nil, 0)
		require.Len(t, results, 2)
		for _, sr := range results {
			require.NoError(t, sr.Error)
			assert.Len(t, sr.Result.Records, 1)
		}
	})

	t.Run("restricts to requested sources", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&stubProvider{source: domain.SourceTypeArXiv, enabled: true})
		r.Register(&stubProvider{source: domain.SourceTypeOpenAlex, enabled: true})

		results := r.SearchSources(context.Background(), SearchParams{Query: "q"},
			[]domain.SourceType{domain.SourceTypeArXiv}, 0)
		require.Len(t, results, 1)
		assert.Equal(t, domain.SourceTypeArXiv, results[0].Source)
	})

	t.Run("unknown sources are skipped", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&stubProvider{source: domain.SourceTypeArXiv, enabled: true})

		results := r.SearchSources(context.Background(), SearchParams{Query: "q"},
			[]domain.SourceType{domain.SourceTypeArXiv, domain.SourceTypePubMed}, 0)
		assert.Len(t, results, 1)
	})

	t.Run("one failing source does not affect siblings", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&stubProvider{
			source:  domain.SourceTypeArXiv,
			enabled: true,
			err:     domain.NewExternalAPIError("arxiv", 500, "boom", nil),
		})
		r.Register(&stubProvider{
			source:  domain.SourceTypeOpenAlex,
			enabled: true,
			records: []*domain.Record{record(domain.SourceTypeOpenAlex, "b")},
		})

		results := r.SearchSources(context.Background(), SearchParams{Query: "q"}, nil, 0)
		require.Len(t, results, 2)

		bySource := make(map[domain.SourceType]SourceResult, len(results))
		for _, sr := range results {
			bySource[sr.Source] = sr
		}
		assert.Error(t, bySource[domain.SourceTypeArXiv].Error)
		require.NoError(t, bySource[domain.SourceTypeOpenAlex].Error)
		assert.Len(t, bySource[domain.SourceTypeOpenAlex].Result.Records, 1)
	})

	t.Run("per-source timeout bounds slow providers", func(t *testing.T) {
		r := NewRegistry()
		r.Register(&stubProvider{
			source:  domain.SourceTypeArXiv,
			enabled: true,
			delay:   time.Second,
		})
		r.Register(&stubProvider{
			source:  domain.SourceTypeOpenAlex,
			enabled: true,
			records: []*domain.Record{record(domain.SourceTypeOpenAlex, "b")},
		})

		start := time.Now()
		results := r.SearchSources(context.Background(), SearchParams{Query: "q"}, nil, 50*time.Millisecond)
		require.Len(t, results, 2)
		assert.Less(t, time.Since(start), time.Second)

		bySource := make(map[domain.SourceType]SourceResult, len(results))
		for _, sr := range results {
			bySource[sr.Source] = sr
		}
		assert.ErrorIs(t, bySource[domain.SourceTypeArXiv].Error, context.DeadlineExceeded)
		assert.NoError(t, bySource[domain.SourceTypeOpenAlex].Error)
	})

	t.Run("no providers yields empty result set", func(t *testing.T) {
		r := NewRegistry()
		results := r.SearchSources(context.Background(), SearchParams{Query: "q"}, nil, 0)
		assert.Empty(t, results)
	})
}

func TestSearchSourcesStream(t *testing.T) {
	r := NewRegistry()
	r.Register(&stubProvider{
		source:  domain.SourceTypeArXiv,
		enabled: true,
		records: []*domain.Record{record(domain.SourceTypeArXiv, "a")},
	})
	r.Register(&stubProvider{
		source:  domain.SourceTypeOpenAlex,
		enabled: true,
		delay:   20 * time.Millisecond,
		err:     errors.New("openalex down"),
	})

	ch := r.SearchSourcesStream(context.Background(), SearchParams{Query: "q"}, nil, 0)

	var got []SourceResult
	for sr := range ch {
		got = append(got, sr)
	}
	require.Len(t, got, 2)

	// The fast provider reports before the slow one.
	assert.Equal(t, domain.SourceTypeArXiv, got[0].Source)
	assert.NoError(t, got[0].Error)
	assert.Equal(t, domain.SourceTypeOpenAlex, got[1].Source)
	assert.Error(t, got[1].Error)
}
