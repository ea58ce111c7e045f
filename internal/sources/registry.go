package sources

import (
	"context"
	"sync"
	"time"

	"github.com/blackprince001/papertrail/internal/domain"
)

// SourceResult holds the outcome of a search against one provider. Exactly
// one of Result and Error is non-nil.
type SourceResult struct {
	// Source identifies the provider.
	Source domain.SourceType

	// Result contains the search results if the search succeeded.
	Result *SearchResult

	// Error contains the failure if the search failed.
	Error error
}

// Registry manages provider gateways and coordinates concurrent searches.
// Registration happens once at startup; lookups and searches are
// thread-safe.
type Registry struct {
	mu        sync.RWMutex
	providers map[domain.SourceType]Provider
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[domain.SourceType]Provider),
	}
}

// Register adds a provider to the registry, replacing any provider already
// registered under the same source type.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.SourceType()] = p
}

// Get returns a provider by type, or nil if not registered.
func (r *Registry) Get(sourceType domain.SourceType) Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.providers[sourceType]
}

// EnabledSources returns the source types of all enabled providers.
func (r *Registry) EnabledSources() []domain.SourceType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]domain.SourceType, 0, len(r.providers))
	for st, p := range r.providers {
		if p.IsEnabled() {
			types = append(types, st)
		}
	}
	return types
}

// SearchSources searches the requested providers concurrently, one
// goroutine per source. If sourceTypes is empty, all enabled providers are
// searched. Unknown source types are skipped. Each provider's result or
// error is captured independently; a slow or failing source never blocks
// or fails its siblings. A positive perSourceTimeout bounds each provider
// search individually; cancellation of ctx interrupts all of them.
func (r *Registry) SearchSources(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType, perSourceTimeout time.Duration) []SourceResult {
	var results []SourceResult
	for result := range r.SearchSourcesStream(ctx, params, sourceTypes, perSourceTimeout) {
		results = append(results, result)
	}
	return results
}

// SearchSourcesStream behaves like SearchSources but delivers each
// provider's result on the returned channel as it completes. The channel is
// closed once every provider has reported.
func (r *Registry) SearchSourcesStream(ctx context.Context, params SearchParams, sourceTypes []domain.SourceType, perSourceTimeout time.Duration) <-chan SourceResult {
	var providers []Provider

	r.mu.RLock()
	if len(sourceTypes) == 0 {
		providers = make([]Provider, 0, len(r.providers))
		for _, p := range r.providers {
			if p.IsEnabled() {
				providers = append(providers, p)
			}
		}
	} else {
		providers = make([]Provider, 0, len(sourceTypes))
		for _, st := range sourceTypes {
			if p, ok := r.providers[st]; ok {
				providers = append(providers, p)
			}
		}
	}
	r.mu.RUnlock()

	resultChan := make(chan SourceResult, len(providers))
	if len(providers) == 0 {
		close(resultChan)
		return resultChan
	}
	var wg sync.WaitGroup

	for _, p := range providers {
		wg.Add(1)
		go func(p Provider) {
			defer wg.Done()

			searchCtx := ctx
			if perSourceTimeout > 0 {
				var cancel context.CancelFunc
				searchCtx, cancel = context.WithTimeout(ctx, perSourceTimeout)
				defer cancel()
			}

			result, err := p.Search(searchCtx, params)
			resultChan <- SourceResult{
				Source: p.SourceType(),
				Result: result,
				Error:  err,
			}
		}(p)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	return resultChan
}
