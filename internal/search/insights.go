package search

import (
	"context"
	"sort"
	"time"

	"github.com/blackprince001/papertrail/internal/domain"
)

// defaultInsightTimeout is the soft deadline for the enhancement stage of a
// streaming search.
const defaultInsightTimeout = 10 * time.Second

// topN caps the venue and most-cited insight lists.
const topN = 5

// Summarizer produces a prose summary of a result set. It matches
// llm.Summarizer; the orchestrator depends on this local interface so the
// summary insight stays optional.
type Summarizer interface {
	Summarize(ctx context.Context, query string, titles []string) (string, error)
}

// VenueCount is one entry in the top-venues insight.
type VenueCount struct {
	Venue string `json:"venue"`
	Count int    `json:"count"`
}

// CitedRecord is one entry in the most-cited insight.
type CitedRecord struct {
	Title         string            `json:"title"`
	Source        domain.SourceType `json:"source"`
	CitationCount int               `json:"citation_count"`
	Year          int               `json:"year,omitempty"`
	DOI           string            `json:"doi,omitempty"`
}

// yearDistribution counts records per publication year, skipping records
// with an unknown year.
func yearDistribution(records []*domain.Record) map[int]int {
	dist := make(map[int]int)
	for _, rec := range records {
		if rec.Year > 0 {
			dist[rec.Year]++
		}
	}
	return dist
}

// topVenues ranks publication venues by record count. Venue names come from
// record metadata, so sources that don't report venues simply contribute
// nothing.
func topVenues(records []*domain.Record) []VenueCount {
	counts := make(map[string]int)
	for _, rec := range records {
		venue, ok := rec.Metadata["venue"].(string)
		if !ok || venue == "" {
			continue
		}
		counts[venue]++
	}

	venues := make([]VenueCount, 0, len(counts))
	for venue, count := range counts {
		venues = append(venues, VenueCount{Venue: venue, Count: count})
	}
	sort.Slice(venues, func(i, j int) bool {
		if venues[i].Count != venues[j].Count {
			return venues[i].Count > venues[j].Count
		}
		return venues[i].Venue < venues[j].Venue
	})

	if len(venues) > topN {
		venues = venues[:topN]
	}
	return venues
}

// topCited ranks records by citation count.
func topCited(records []*domain.Record) []CitedRecord {
	sorted := make([]*domain.Record, 0, len(records))
	for _, rec := range records {
		if rec.CitationCount > 0 {
			sorted = append(sorted, rec)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CitationCount > sorted[j].CitationCount
	})

	if len(sorted) > topN {
		sorted = sorted[:topN]
	}

	cited := make([]CitedRecord, 0, len(sorted))
	for _, rec := range sorted {
		cited = append(cited, CitedRecord{
			Title:         rec.Title,
			Source:        rec.Source,
			CitationCount: rec.CitationCount,
			Year:          rec.Year,
			DOI:           rec.DOI,
		})
	}
	return cited
}

// summaryTitles collects up to limit titles for the summary prompt.
func summaryTitles(records []*domain.Record, limit int) []string {
	if limit > len(records) {
		limit = len(records)
	}
	titles := make([]string, 0, limit)
	for _, rec := range records[:limit] {
		titles = append(titles, rec.Title)
	}
	return titles
}
