package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/sources"
)

// fakeSummarizer returns a canned summary.
type fakeSummarizer struct {
	summary string
	err     error

	gotQuery  string
	gotTitles []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, query string, titles []string) (string, error) {
	f.gotQuery = query
	f.gotTitles = titles
	return f.summary, f.err
}

func collectEvents(o *Orchestrator, req Request) []Event {
	var events []Event
	o.SearchStream(context.Background(), req, func(e Event) {
		events = append(events, e)
	})
	return events
}

func TestSearchStream_EventOrdering(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeProvider{
		source:  domain.SourceTypeArXiv,
		records: []*domain.Record{rec(domain.SourceTypeArXiv, "Paper A", "10.1/a")},
	})
	registry.Register(&fakeProvider{
		source:  domain.SourceTypeOpenAlex,
		records: []*domain.Record{rec(domain.SourceTypeOpenAlex, "Paper B", "10.1/b")},
	})

	o := newTestOrchestrator(registry, nil, nil)

	events := collectEvents(o, Request{Query: "q"})
	require.NotEmpty(t, events)

	assert.Equal(t, EventStatus, events[0].Type)
	assert.Equal(t, "searching", events[0].Status)

	var sourceResults, insights int
	var sawEnhancing bool
	for _, e := range events[1 : len(events)-1] {
		switch e.Type {
		case EventSourceResult:
			// Source results all arrive before the enhancement phase.
			assert.False(t, sawEnhancing)
			require.NotNil(t, e.SourceResult)
			sourceResults++
		case EventStatus:
			assert.Equal(t, "enhancing", e.Status)
			sawEnhancing = true
		case EventInsight:
			assert.True(t, sawEnhancing)
			require.NotNil(t, e.Insight)
			insights++
		default:
			t.Errorf("unexpected event type %s", e.Type)
		}
	}
	assert.Equal(t, 2, sourceResults)
	assert.Equal(t, 3, insights)

	last := events[len(events)-1]
	assert.Equal(t, EventComplete, last.Type)
	require.NotNil(t, last.Response)
	assert.Equal(t, 2, last.Response.TotalResults)
}

func TestSearchStream_InsightKinds(t *testing.T) {
	records := []*domain.Record{
		{
			Source: domain.SourceTypeArXiv, ExternalID: "a", Title: "Paper A",
			Year: 2019, CitationCount: 50,
			Metadata: map[string]any{"venue": "NeurIPS"},
		},
		{
			Source: domain.SourceTypeOpenAlex, ExternalID: "b", Title: "Paper B",
			Year: 2020, CitationCount: 10,
			Metadata: map[string]any{"venue": "NeurIPS"},
		},
	}
	registry := sources.NewRegistry()
	registry.Register(&fakeProvider{source: domain.SourceTypeArXiv, records: records})

	summarizer := &fakeSummarizer{summary: "Two influential papers."}
	o := newTestOrchestrator(registry, nil, summarizer)

	events := collectEvents(o, Request{Query: "q"})

	byKind := make(map[string]*Insight)
	for _, e := range events {
		if e.Type == EventInsight {
			byKind[e.Insight.Kind] = e.Insight
		}
	}
	require.Len(t, byKind, 4)

	assert.Equal(t, map[int]int{2019: 1, 2020: 1}, byKind["year_distribution"].Years)
	assert.Equal(t, []VenueCount{{Venue: "NeurIPS", Count: 2}}, byKind["top_venues"].Venues)

	mostCited := byKind["most_cited"].MostCited
	require.Len(t, mostCited, 2)
	assert.Equal(t, "Paper A", mostCited[0].Title)

	assert.Equal(t, "Two influential papers.", byKind["summary"].Summary)
	assert.Equal(t, "q", summarizer.gotQuery)
	assert.ElementsMatch(t, []string{"Paper A", "Paper B"}, summarizer.gotTitles)
}

func TestSearchStream_SummarizerFailureSkipsInsight(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeProvider{
		source:  domain.SourceTypeArXiv,
		records: []*domain.Record{rec(domain.SourceTypeArXiv, "Paper A", "")},
	})

	o := newTestOrchestrator(registry, nil, &fakeSummarizer{err: errors.New("llm down")})

	events := collectEvents(o, Request{Query: "q"})

	kinds := make(map[string]bool)
	for _, e := range events {
		if e.Type == EventInsight {
			kinds[e.Insight.Kind] = true
		}
	}
	assert.False(t, kinds["summary"])
	assert.True(t, kinds["year_distribution"])

	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestSearchStream_NoRecordsSkipsEnhancement(t *testing.T) {
	registry := sources.NewRegistry()
	registry.Register(&fakeProvider{source: domain.SourceTypeArXiv})

	o := newTestOrchestrator(registry, nil, nil)

	events := collectEvents(o, Request{Query: "q"})

	for _, e := range events {
		assert.NotEqual(t, EventInsight, e.Type)
		if e.Type == EventStatus {
			assert.Equal(t, "searching", e.Status)
		}
	}
	assert.Equal(t, EventComplete, events[len(events)-1].Type)
}

func TestSearchStream_InvalidRequest(t *testing.T) {
	o := newTestOrchestrator(sources.NewRegistry(), nil, nil)

	events := collectEvents(o, Request{Query: ""})
	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Contains(t, events[0].Error, "query")
}
