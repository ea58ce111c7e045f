package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/sources"
)

const (
	// DefaultBaseURL is the default base URL for the Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRecommendationsURL is the default base URL for the
	// recommendations API, which lives outside the Graph API.
	DefaultRecommendationsURL = "https://api.semanticscholar.org/recommendations/v1"

	// DefaultRateLimit is the default rate limit for unauthenticated
	// requests. With an API key this can be raised.
	DefaultRateLimit = 10.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 10

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum number of results per request.
	DefaultMaxResults = 100

	// apiKeyHeader is the header name for the Semantic Scholar API key.
	apiKeyHeader = "x-api-key"

	// paperFields is the list of fields to request from the API.
	paperFields = "paperId,externalIds,title,abstract,year,venue,url,authors,citationCount,isOpenAccess,openAccessPdf"

	// sourceName is the human-readable name for this source.
	sourceName = "Semantic Scholar"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL is the Graph API base URL. Defaults to DefaultBaseURL.
	BaseURL string

	// RecommendationsURL is the recommendations API base URL.
	// Defaults to DefaultRecommendationsURL.
	RecommendationsURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout is the HTTP request timeout. Defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the maximum number of results per search.
	MaxResults int

	// Enabled indicates whether this source is enabled.
	Enabled bool
}

// Client implements the sources.Provider interface for Semantic Scholar.
type Client struct {
	httpClient *sources.HTTPClient
	config     Config
}

// Compile-time check that Client implements sources.Provider.
var _ sources.Provider = (*Client)(nil)

// New creates a new Semantic Scholar client. If httpClient is nil, one is
// created from the configuration settings; passing a client is useful for
// testing against mock servers.
func New(cfg Config, httpClient *sources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RecommendationsURL == "" {
		cfg.RecommendationsURL = DefaultRecommendationsURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}
	if cfg.MaxResults == 0 {
		cfg.MaxResults = DefaultMaxResults
	}

	if httpClient == nil {
		httpClient = sources.NewHTTPClient(sources.HTTPClientConfig{
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			BurstSize:    cfg.BurstSize,
			APIKey:       cfg.APIKey,
			APIKeyHeader: apiKeyHeader,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Search queries Semantic Scholar for records matching the given parameters.
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

	records := make([]*domain.Record, 0, len(searchResp.Data))
	for i := range searchResp.Data {
		if rec := c.toRecord(&searchResp.Data[i]); rec != nil {
			records = append(records, rec)
		}
	}

	return &sources.SearchResult{
		Records:        records,
		TotalResults:   searchResp.Total,
		HasMore:        searchResp.Next > 0,
		NextOffset:     searchResp.Next,
		Source:         domain.SourceTypeSemanticScholar,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID retrieves one record by its Semantic Scholar ID, DOI, or arXiv ID.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	paperURL := fmt.Sprintf("%s/paper/%s?fields=%s", c.config.BaseURL, url.PathEscape(id), paperFields)

	var result PaperResult
	if err := c.getJSONOrNotFound(ctx, paperURL, id, &result); err != nil {
		return nil, err
	}

	rec := c.toRecord(&result)
	if rec == nil {
		return nil, domain.NewNotFoundError("record", id)
	}
	return rec, nil
}

// GetCitations returns records that cite the given paper.
func (c *Client) GetCitations(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	citURL := fmt.Sprintf("%s/paper/%s/citations?fields=%s&limit=%d",
		c.config.BaseURL, url.PathEscape(id), paperFields, c.capLimit(limit))

	var resp CitationsResponse
	if err := c.getJSON(ctx, citURL, &resp); err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(resp.Data))
	for i := range resp.Data {
		if rec := c.toRecord(&resp.Data[i].CitingPaper); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// GetReferences returns records cited by the given paper.
func (c *Client) GetReferences(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	refURL := fmt.Sprintf("%s/paper/%s/references?fields=%s&limit=%d",
		c.config.BaseURL, url.PathEscape(id), paperFields, c.capLimit(limit))

	var resp ReferencesResponse
	if err := c.getJSON(ctx, refURL, &resp); err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(resp.Data))
	for i := range resp.Data {
		if rec := c.toRecord(&resp.Data[i].CitedPaper); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// GetRecommendations returns records related to the given paper, using the
// Semantic Scholar recommendations API.
func (c *Client) GetRecommendations(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	recURL := fmt.Sprintf("%s/papers/forpaper/%s?fields=%s&limit=%d",
		c.config.RecommendationsURL, url.PathEscape(id), paperFields, c.capLimit(limit))

	var resp RecommendationsResponse
	if err := c.getJSON(ctx, recURL, &resp); err != nil {
		return nil, err
	}

	records := make([]*domain.Record, 0, len(resp.RecommendedPapers))
	for i := range resp.RecommendedPapers {
		if rec := c.toRecord(&resp.RecommendedPapers[i]); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// Capabilities reports that this provider supports the full citation graph.
func (c *Client) Capabilities() sources.Capabilities {
	return sources.Capabilities{
		Citations:       true,
		References:      true,
		Recommendations: true,
	}
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypeSemanticScholar
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether this source is currently enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// capLimit bounds a requested limit to the configured maximum.
func (c *Client) capLimit(limit int) int {
	if limit <= 0 || limit > c.config.MaxResults {
		return c.config.MaxResults
	}
	return limit
}

// buildSearchURL constructs the search API URL with query parameters.
func (c *Client) buildSearchURL(params sources.SearchParams) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	searchURL := baseURL.JoinPath("paper", "search")

	q := searchURL.Query()
	q.Set("query", params.Query)
	q.Set("fields", paperFields)
	q.Set("limit", strconv.Itoa(c.capLimit(params.MaxResults)))

	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}
	if yearFilter := buildYearFilter(params.YearFrom, params.YearTo); yearFilter != "" {
		q.Set("year", yearFilter)
	}
	if params.MinCitations > 0 {
		q.Set("minCitationCount", strconv.Itoa(params.MinCitations))
	}

	searchURL.RawQuery = q.Encode()
	return searchURL.String(), nil
}

// buildYearFilter builds the Semantic Scholar year range parameter
// ("2015-2020", "2015-", "-2020").
func buildYearFilter(from, to int) string {
	switch {
	case from > 0 && to > 0:
		return fmt.Sprintf("%d-%d", from, to)
	case from > 0:
		return fmt.Sprintf("%d-", from)
	case to > 0:
		return fmt.Sprintf("-%d", to)
	default:
		return ""
	}
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

	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}

	// Limit body to 10MB to prevent resource exhaustion.
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return domain.NewMalformedResponseError(sourceName, err)
	}
	return nil
}

// getJSONOrNotFound is getJSON with 404 mapped to domain.ErrNotFound.
func (c *Client) getJSONOrNotFound(ctx context.Context, requestURL, id string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.NewNotFoundError("record", id)
	}
	if err := c.handleErrorResponse(resp); err != nil {
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return domain.NewMalformedResponseError(sourceName, err)
	}
	return nil
}

// handleErrorResponse converts a non-2xx response into an ExternalAPIError.
func (c *Client) handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	return domain.NewExternalAPIError(sourceName, resp.StatusCode, string(body), nil)
}

// toRecord converts an API paper result into a domain record. Returns nil
// for results without a title, which carry no usable identity signal.
func (c *Client) toRecord(p *PaperResult) *domain.Record {
	if p == nil || strings.TrimSpace(p.Title) == "" {
		return nil
	}

	authors := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			authors = append(authors, name)
		}
	}

	var doi, arxivID string
	metadata := map[string]any{
		"is_open_access": p.IsOpenAccess,
	}
	if p.ExternalIDs != nil {
		doi = p.ExternalIDs.DOI
		arxivID = p.ExternalIDs.ArXiv
		if p.ExternalIDs.PubMed != "" {
			metadata["pubmed_id"] = p.ExternalIDs.PubMed
		}
	}
	if p.Venue != "" {
		metadata["venue"] = p.Venue
	}

	var pdfURL string
	if p.OpenAccessPDF != nil {
		pdfURL = p.OpenAccessPDF.URL
	}

	return &domain.Record{
		Source:        domain.SourceTypeSemanticScholar,
		ExternalID:    p.PaperID,
		Title:         strings.TrimSpace(p.Title),
		Authors:       authors,
		Abstract:      strings.TrimSpace(p.Abstract),
		Year:          p.Year,
		DOI:           doi,
		ArXivID:       arxivID,
		URL:           p.URL,
		PDFURL:        pdfURL,
		CitationCount: p.CitationCount,
		Metadata:      metadata,
	}
}
