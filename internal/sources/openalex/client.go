package openalex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/sources"
)

const (
	// DefaultBaseURL is the default OpenAlex API base URL.
	DefaultBaseURL = "https://api.openalex.org"

	// DefaultRateLimit is the default rate limit (10 requests per second,
	// the documented polite-pool budget).
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per request.
	DefaultMaxResults = 100

	// maxPerPage is the OpenAlex API per-page hard limit.
	maxPerPage = 200

	// sourceName is the human-readable name for this source.
	sourceName = "OpenAlex"
)

// Config holds configuration for the OpenAlex client.
type Config struct {
	// BaseURL is the OpenAlex API base URL.
	BaseURL string

	// Email is sent as the mailto parameter to join the polite pool.
	Email string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum results per search request.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults sets default values for unset configuration fields.
func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
	if c.MaxResults == 0 {
		c.MaxResults = DefaultMaxResults
	}
}

// Client implements the sources.Provider interface for OpenAlex.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Ensure Client implements the Provider interface.
var _ sources.Provider = (*Client)(nil)

// New creates a new OpenAlex client. If httpClient is nil, one is created
// from the configuration settings.
func New(cfg Config, httpClient *sources.HTTPClient) *Client {
	cfg.applyDefaults()

	if httpClient == nil {
		httpClient = sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:   cfg.Timeout,
			RateLimit: cfg.RateLimit,
			BurstSize: cfg.BurstSize,
		})
	}

	return &Client{
		config:     cfg,
		httpClient: httpClient,
	}
}

// Search queries OpenAlex for works matching the given parameters.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	start := time.Now()

	searchURL, err := c.buildSearchURL(params)
	if err != nil {
		return nil, fmt.Errorf("building search URL: %w", err)
	}

	var searchResp SearchResponse
	if err := c.getJSON(ctx, searchURL, &searchResp); err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(searchResp.Results))
	for i := range searchResp.Results {
		if rec := c.workToRecord(&searchResp.Results[i]); rec != nil {
			records = append(records, rec)
		}
	}

	nextOffset := params.Offset + len(records)
	return &sources.SearchResult{
		Records:        records,
		TotalResults:   searchResp.Meta.Count,
		HasMore:        nextOffset < searchResp.Meta.Count,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypeOpenAlex,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID retrieves a specific work by its OpenAlex ID or DOI.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	requestURL, err := url.JoinPath(c.config.BaseURL, "works", id)
	if err != nil {
		return nil, fmt.Errorf("building work URL: %w", err)
	}
	if c.config.Email != "" {
		requestURL += "?mailto=" + url.QueryEscape(c.config.Email)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("record", id)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	var work Work
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&work); err != nil {
		return nil, domain.NewMalformedResponseError(sourceName, err)
	}

	rec := c.workToRecord(&work)
	if rec == nil {
		return nil, domain.NewNotFoundError("record", id)
	}
	return rec, nil
}

// GetCitations returns works citing the given work, via the cites filter.
func (c *Client) GetCitations(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	return c.listWorks(ctx, "cites:"+normalizeWorkID(id), limit)
}

// GetReferences returns works cited by the given work. OpenAlex reports
// references as a list of work IDs on the work itself, so this fetches the
// work and then resolves the referenced IDs in one batched filter query.
func (c *Client) GetReferences(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	requestURL, err := url.JoinPath(c.config.BaseURL, "works", id)
	if err != nil {
		return nil, fmt.Errorf("building work URL: %w", err)
	}

	var work Work
	if err := c.getJSON(ctx, requestURL, &work); err != nil {
		return nil, err
	}

	if len(work.ReferencedWorks) == 0 {
		return nil, nil
	}

	refs := work.ReferencedWorks
	if limit > 0 && len(refs) > limit {
		refs = refs[:limit]
	}
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		ids = append(ids, normalizeWorkID(ref))
	}

	return c.listWorks(ctx, "openalex:"+strings.Join(ids, "|"), limit)
}

// GetRecommendations is not supported by OpenAlex; it returns empty results.
func (c *Client) GetRecommendations(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	return nil, nil
}

// Capabilities reports citation and reference support.
func (c *Client) Capabilities() sources.Capabilities {
	return sources.Capabilities{
		Citations:  true,
		References: true,
	}
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeOpenAlex
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// listWorks queries the works endpoint with a filter expression.
func (c *Client) listWorks(ctx context.Context, filter string, limit int) ([]*domain.Record, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	baseURL.Path = "/works"

	perPage := limit
	if perPage <= 0 || perPage > maxPerPage {
		perPage = c.config.MaxResults
	}

	query := url.Values{}
	query.Set("filter", filter)
	query.Set("per_page", strconv.Itoa(perPage))
	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}
	baseURL.RawQuery = query.Encode()

	var resp SearchResponse
	if err := c.getJSON(ctx, baseURL.String(), &resp); err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(resp.Results))
	for i := range resp.Results {
		if rec := c.workToRecord(&resp.Results[i]); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// getJSON performs a GET request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, requestURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return domain.NewMalformedResponseError(sourceName, err)
	}
	return nil
}

// buildSearchURL constructs the works search URL with query parameters.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = "/works"

	query := url.Values{}
	if params.Query != "" {
		query.Set("search", params.Query)
	}

	filters := c.buildFilters(params)
	if len(filters) > 0 {
		query.Set("filter", strings.Join(filters, ","))
	}

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > maxPerPage {
		maxResults = maxPerPage
	}
	query.Set("per_page", strconv.Itoa(maxResults))

	// OpenAlex uses page-based pagination (1-indexed).
	if params.Offset > 0 {
		page := (params.Offset / maxResults) + 1
		query.Set("page", strconv.Itoa(page))
	}

	if c.config.Email != "" {
		query.Set("mailto", c.config.Email)
	}

	baseURL.RawQuery = query.Encode()
	return baseURL.String(), nil
}

// buildFilters constructs the filter expression components.
func (c *Client) buildFilters(params sources.SearchParams) []string {
	var filters []string

	if params.YearFrom > 0 {
		filters = append(filters, fmt.Sprintf("from_publication_date:%d-01-01", params.YearFrom))
	}
	if params.YearTo > 0 {
		filters = append(filters, fmt.Sprintf("to_publication_date:%d-12-31", params.YearTo))
	}
	if params.MinCitations > 0 {
		filters = append(filters, fmt.Sprintf("cited_by_count:>%d", params.MinCitations-1))
	}
	for _, author := range params.Authors {
		if author = strings.TrimSpace(author); author != "" {
			filters = append(filters, "raw_author_name.search:"+author)
		}
	}

	return filters
}

// workToRecord converts an OpenAlex work into a domain record. Returns nil
// for works without a title.
func (c *Client) workToRecord(work *Work) *domain.Record {
	if work == nil {
		return nil
	}

	title := strings.TrimSpace(work.Title)
	if title == "" {
		title = strings.TrimSpace(work.DisplayName)
	}
	if title == "" {
		return nil
	}

	authors := make([]string, 0, len(work.Authorships))
	for _, a := range work.Authorships {
		if name := strings.TrimSpace(a.Author.DisplayName); name != "" {
			authors = append(authors, name)
		}
	}

	var pdfURL, venue string
	if work.PrimaryLocation != nil {
		pdfURL = work.PrimaryLocation.PDFURL
		if work.PrimaryLocation.Source != nil {
			venue = work.PrimaryLocation.Source.DisplayName
		}
	}

	metadata := map[string]any{
		"referenced_work_count": len(work.ReferencedWorks),
	}
	if venue != "" {
		metadata["venue"] = venue
	}
	if work.OpenAccess != nil {
		metadata["is_open_access"] = work.OpenAccess.IsOA
		if pdfURL == "" {
			pdfURL = work.OpenAccess.OAURL
		}
	}

	return &domain.Record{
		Source:         domain.SourceTypeOpenAlex,
		ExternalID:     normalizeWorkID(work.ID),
		Title:          title,
		Authors:        authors,
		Abstract:       reconstructAbstract(work.AbstractInvertedIndex),
		Year:           work.PublicationYear,
		DOI:            work.DOI,
		URL:            work.ID,
		PDFURL:         pdfURL,
		CitationCount:  work.CitedByCount,
		RelevanceScore: work.RelevanceScore,
		Metadata:       metadata,
	}
}

// normalizeWorkID strips the https://openalex.org/ prefix from a work ID.
func normalizeWorkID(id string) string {
	return strings.TrimPrefix(strings.TrimPrefix(id, "https://openalex.org/"), "openalex.org/")
}

// reconstructAbstract rebuilds plain abstract text from OpenAlex's inverted
// index format (word -> list of positions).
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type positioned struct {
		word string
		pos  int
	}

	var words []positioned
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			words = append(words, positioned{word: word, pos: pos})
		}
	}

	sort.Slice(words, func(i, j int) bool {
		return words[i].pos < words[j].pos
	})

	var sb strings.Builder
	for i, w := range words {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(w.word)
	}
	return sb.String()
}
