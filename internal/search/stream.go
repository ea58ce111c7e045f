package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/sources"
)

// EventType tags a streaming search event.
type EventType string

const (
	// EventStatus announces a phase change ("searching", "enhancing").
	EventStatus EventType = "status"

	// EventSourceResult carries one provider's outcome, emitted in
	// completion order.
	EventSourceResult EventType = "source_result"

	// EventInsight carries one completed enhancement.
	EventInsight EventType = "insight"

	// EventComplete carries the final aggregated response.
	EventComplete EventType = "complete"

	// EventError reports a fatal search failure.
	EventError EventType = "error"
)

// Event is one message in a streaming search. Exactly one payload field is
// set, matching Type.
type Event struct {
	Type EventType `json:"type"`

	// Status is set for EventStatus.
	Status string `json:"status,omitempty"`

	// SourceResult is set for EventSourceResult.
	SourceResult *SourceOutcome `json:"source_result,omitempty"`

	// Insight is set for EventInsight.
	Insight *Insight `json:"insight,omitempty"`

	// Response is set for EventComplete.
	Response *Response `json:"response,omitempty"`

	// Error is set for EventError.
	Error string `json:"error,omitempty"`
}

// Insight is one completed enhancement over the deduplicated result set.
// Exactly one payload field is set, matching Kind.
type Insight struct {
	Kind string `json:"kind"`

	// Years is set for kind "year_distribution".
	Years map[int]int `json:"years,omitempty"`

	// Venues is set for kind "top_venues".
	Venues []VenueCount `json:"venues,omitempty"`

	// MostCited is set for kind "most_cited".
	MostCited []CitedRecord `json:"most_cited,omitempty"`

	// Summary is set for kind "summary".
	Summary string `json:"summary,omitempty"`
}

// SearchStream runs a multi-source search, delivering progress to emit as
// it happens: a status event, one source_result event per provider in
// completion order, insight events for each enhancement that finishes
// before the soft deadline, and a final complete (or error) event. emit is
// called from a single goroutine.
func (o *Orchestrator) SearchStream(ctx context.Context, req Request, emit func(Event)) {
	params, searchSources, err := o.prepare(req)
	if err != nil {
		emit(Event{Type: EventError, Error: err.Error()})
		return
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, o.config.GlobalTimeout)
	defer cancel()

	emit(Event{Type: EventStatus, Status: "searching"})

	stream := o.registry.SearchSourcesStream(ctx, params, searchSources, o.config.PerSourceTimeout)
	collected := o.collectStream(stream, emit)

	resp := o.aggregate(req.Query, searchSources, collected)
	resp.Duration = time.Since(start)

	o.cacheRecords(ctx, resp.Records)

	if len(resp.Records) > 0 {
		emit(Event{Type: EventStatus, Status: "enhancing"})
		o.emitInsights(ctx, req.Query, resp.Records, emit)
	}

	emit(Event{Type: EventComplete, Response: resp})
}

// collectStream drains the provider result stream, emitting a
// source_result event per provider as it completes.
func (o *Orchestrator) collectStream(stream <-chan sources.SourceResult, emit func(Event)) []sources.SourceResult {
	var collected []sources.SourceResult
	for sr := range stream {
		collected = append(collected, sr)

		outcome := SourceOutcome{Source: sr.Source}
		switch {
		case sr.Error != nil && errors.Is(sr.Error, domain.ErrMalformedResponse):
			outcome.Records = []*domain.Record{}
		case sr.Error != nil:
			outcome.Error = sr.Error.Error()
		default:
			outcome.Records = sr.Result.Records
			outcome.TotalAvailable = sr.Result.TotalResults
			outcome.Duration = sr.Result.SearchDuration
		}
		emit(Event{Type: EventSourceResult, SourceResult: &outcome})
	}
	return collected
}

// emitInsights runs the enhancement tasks concurrently under the insight
// soft deadline, forwarding each completed insight. Tasks that miss the
// deadline are abandoned.
func (o *Orchestrator) emitInsights(ctx context.Context, query string, records []*domain.Record, emit func(Event)) {
	ctx, cancel := context.WithTimeout(ctx, o.config.InsightTimeout)
	defer cancel()

	tasks := []func(context.Context) *Insight{
		func(context.Context) *Insight {
			return &Insight{Kind: "year_distribution", Years: yearDistribution(records)}
		},
		func(context.Context) *Insight {
			return &Insight{Kind: "top_venues", Venues: topVenues(records)}
		},
		func(context.Context) *Insight {
			return &Insight{Kind: "most_cited", MostCited: topCited(records)}
		},
	}
	if o.summarizer != nil {
		tasks = append(tasks, func(taskCtx context.Context) *Insight {
			summary, err := o.summarizer.Summarize(taskCtx, query, summaryTitles(records, 30))
			if err != nil {
				o.logger.Warn().Err(err).Msg("summary insight failed")
				return nil
			}
			if summary == "" {
				return nil
			}
			return &Insight{Kind: "summary", Summary: summary}
		})
	}

	insightChan := make(chan *Insight, len(tasks))
	var wg sync.WaitGroup
	for _, task := range tasks {
		wg.Add(1)
		go func(task func(context.Context) *Insight) {
			defer wg.Done()
			insightChan <- task(ctx)
		}(task)
	}
	go func() {
		wg.Wait()
		close(insightChan)
	}()

	for {
		select {
		case insight, ok := <-insightChan:
			if !ok {
				return
			}
			if insight != nil {
				emit(Event{Type: EventInsight, Insight: insight})
			}
		case <-ctx.Done():
			// Abandon whatever hasn't finished; the goroutines drain into
			// the buffered channel and exit on their own.
			return
		}
	}
}
