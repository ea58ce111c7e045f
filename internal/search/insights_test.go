package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackprince001/papertrail/internal/domain"
)

func TestYearDistribution(t *testing.T) {
	records := []*domain.Record{
		{Title: "a", Year: 2019},
		{Title: "b", Year: 2019},
		{Title: "c", Year: 2021},
		{Title: "d"},
	}

	dist := yearDistribution(records)
	assert.Equal(t, map[int]int{2019: 2, 2021: 1}, dist)
}

func TestTopVenues(t *testing.T) {
	venue := func(title, v string) *domain.Record {
		return &domain.Record{Title: title, Metadata: map[string]any{"venue": v}}
	}

	t.Run("ranks by count then name", func(t *testing.T) {
		records := []*domain.Record{
			venue("a", "NeurIPS"),
			venue("b", "NeurIPS"),
			venue("c", "ICML"),
			venue("d", "ACL"),
			{Title: "no venue"},
			{Title: "empty venue", Metadata: map[string]any{"venue": ""}},
		}

		venues := topVenues(records)
		require.Len(t, venues, 3)
		assert.Equal(t, VenueCount{Venue: "NeurIPS", Count: 2}, venues[0])
		// Ties break alphabetically.
		assert.Equal(t, VenueCount{Venue: "ACL", Count: 1}, venues[1])
		assert.Equal(t, VenueCount{Venue: "ICML", Count: 1}, venues[2])
	})

	t.Run("caps the list", func(t *testing.T) {
		records := []*domain.Record{
			venue("a", "V1"), venue("b", "V2"), venue("c", "V3"),
			venue("d", "V4"), venue("e", "V5"), venue("f", "V6"),
		}
		assert.Len(t, topVenues(records), topN)
	})
}

func TestTopCited(t *testing.T) {
	records := []*domain.Record{
		{Title: "low", Source: domain.SourceTypeArXiv, CitationCount: 5, Year: 2020},
		{Title: "high", Source: domain.SourceTypeOpenAlex, CitationCount: 500, DOI: "10.1/x"},
		{Title: "mid", Source: domain.SourceTypePubMed, CitationCount: 50},
		{Title: "uncited"},
	}

	cited := topCited(records)
	require.Len(t, cited, 3)
	assert.Equal(t, "high", cited[0].Title)
	assert.Equal(t, 500, cited[0].CitationCount)
	assert.Equal(t, "10.1/x", cited[0].DOI)
	assert.Equal(t, "mid", cited[1].Title)
	assert.Equal(t, "low", cited[2].Title)
}

func TestSummaryTitles(t *testing.T) {
	records := []*domain.Record{
		{Title: "a"}, {Title: "b"}, {Title: "c"},
	}

	assert.Equal(t, []string{"a", "b"}, summaryTitles(records, 2))
	assert.Equal(t, []string{"a", "b", "c"}, summaryTitles(records, 10))
	assert.Empty(t, summaryTitles(nil, 5))
}
