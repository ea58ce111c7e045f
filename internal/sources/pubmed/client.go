package pubmed

import (
	"context"
	"encoding/xml"
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
	// DefaultBaseURL is the base URL for NCBI E-utilities API.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

	// DefaultRateLimit is the rate limit without an API key (3 requests per
	// second). With an API key, the limit increases to 10 requests per
	// second.
	DefaultRateLimit = 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResults is the default maximum results per search.
	DefaultMaxResults = 100

	// MaxResultsLimit is the maximum results allowed per request by the API.
	MaxResultsLimit = 10000

	// sourceName is the human-readable name for this source.
	sourceName = "PubMed"
)

// Config holds the configuration for the PubMed client.
type Config struct {
	// BaseURL is the base URL for the E-utilities API.
	BaseURL string

	// APIKey is the NCBI API key for higher rate limits. Optional but
	// recommended for production use.
	APIKey string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second. With an API key this
	// can be raised to 10 req/sec.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxResults is the default maximum results per search.
	MaxResults int

	// Enabled indicates whether this source is enabled for searches.
	Enabled bool
}

// applyDefaults applies default values to the config.
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

// Client implements the sources.Provider interface for PubMed.
type Client struct {
	config     Config
	httpClient *sources.HTTPClient
}

// Compile-time check that Client implements Provider.
var _ sources.Provider = (*Client)(nil)

// New creates a new PubMed client. If httpClient is nil, one is created
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

// Search queries PubMed for records matching the given parameters. It
// performs a two-step search: esearch.fcgi retrieves PMIDs matching the
// query, then efetch.fcgi retrieves full article metadata for those PMIDs.
func (c *Client) Search(ctx context.Context, params sources.SearchParams) (*sources.SearchResult, error) {
	start := time.Now()

	searchResult, err := c.esearch(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("esearch: %w", err)
	}

	// A phrase-not-found response is an empty result, not an error.
	if searchResult.ErrorList != nil && len(searchResult.ErrorList.PhraseNotFound) > 0 {
		return &sources.SearchResult{
			Records:        []*domain.Record{},
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(start),
		}, nil
	}

	if len(searchResult.IDList.IDs) == 0 {
		return &sources.SearchResult{
			Records:        []*domain.Record{},
			TotalResults:   searchResult.Count,
			NextOffset:     params.Offset,
			Source:         domain.SourceTypePubMed,
			SearchDuration: time.Since(start),
		}, nil
	}

	articleSet, err := c.efetch(ctx, searchResult.IDList.IDs)
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	records := make([]*domain.Record, 0, len(articleSet.Articles))
	for i := range articleSet.Articles {
		if rec := articleToRecord(&articleSet.Articles[i]); rec != nil {
			records = append(records, rec)
		}
	}

	nextOffset := params.Offset + len(records)
	return &sources.SearchResult{
		Records:        records,
		TotalResults:   searchResult.Count,
		HasMore:        nextOffset < searchResult.Count,
		NextOffset:     nextOffset,
		Source:         domain.SourceTypePubMed,
		SearchDuration: time.Since(start),
	}, nil
}

// GetByID retrieves a specific record by its PubMed ID (PMID).
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	articleSet, err := c.efetch(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}

	if len(articleSet.Articles) == 0 {
		return nil, domain.NewNotFoundError("record", id)
	}

	rec := articleToRecord(&articleSet.Articles[0])
	if rec == nil {
		return nil, domain.NewNotFoundError("record", id)
	}
	return rec, nil
}

// GetCitations is not supported by the E-utilities endpoints this client
// uses; it returns empty results.
func (c *Client) GetCitations(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	return nil, nil
}

// GetReferences returns records cited by the given article. PubMed embeds
// the reference list in efetch responses; references carrying a PMID are
// resolved with a second efetch call.
func (c *Client) GetReferences(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	articleSet, err := c.efetch(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("efetch: %w", err)
	}
	if len(articleSet.Articles) == 0 {
		return nil, domain.NewNotFoundError("record", id)
	}

	refList := articleSet.Articles[0].PubmedData.ReferenceList
	if refList == nil || len(refList.References) == 0 {
		return nil, nil
	}

	var pmids []string
	for _, ref := range refList.References {
		if ref.ArticleIdList == nil {
			continue
		}
		for _, aid := range ref.ArticleIdList.ArticleIds {
			if aid.IdType == "pubmed" && aid.Value != "" {
				pmids = append(pmids, aid.Value)
				break
			}
		}
		if limit > 0 && len(pmids) >= limit {
			break
		}
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	refSet, err := c.efetch(ctx, pmids)
	if err != nil {
		return nil, fmt.Errorf("efetch references: %w", err)
	}

	records := make([]*domain.Record, 0, len(refSet.Articles))
	for i := range refSet.Articles {
		if rec := articleToRecord(&refSet.Articles[i]); rec != nil {
			records = append(records, rec)
		}
	}
	return records, nil
}

// GetRecommendations is not supported by PubMed; it returns empty results.
func (c *Client) GetRecommendations(ctx context.Context, id string, limit int) ([]*domain.Record, error) {
	return nil, nil
}

// Capabilities reports reference support only.
func (c *Client) Capabilities() sources.Capabilities {
	return sources.Capabilities{References: true}
}

// SourceType returns the source type identifier.
func (c *Client) SourceType() domain.SourceType {
	return domain.SourceTypePubMed
}

// Name returns the human-readable name for this source.
func (c *Client) Name() string {
	return sourceName
}

// IsEnabled returns whether the source is enabled.
func (c *Client) IsEnabled() bool {
	return c.config.Enabled
}

// esearch performs a search query and returns matching PMIDs.
func (c *Client) esearch(ctx context.Context, params sources.SearchParams) (*ESearchResult, error) {
	u, err := url.Parse(c.config.BaseURL + "/esearch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	term := params.Query
	for _, author := range params.Authors {
		if author = strings.TrimSpace(author); author != "" {
			term += fmt.Sprintf(" AND %s[au]", author)
		}
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("term", term)
	q.Set("retmode", "xml")
	q.Set("usehistory", "n")

	maxResults := params.MaxResults
	if maxResults <= 0 {
		maxResults = c.config.MaxResults
	}
	if maxResults > MaxResultsLimit {
		maxResults = MaxResultsLimit
	}
	q.Set("retmax", strconv.Itoa(maxResults))

	if params.Offset > 0 {
		q.Set("retstart", strconv.Itoa(params.Offset))
	}

	if params.YearFrom > 0 || params.YearTo > 0 {
		q.Set("datetype", "pdat")
		if params.YearFrom > 0 {
			q.Set("mindate", fmt.Sprintf("%d/01/01", params.YearFrom))
		}
		if params.YearTo > 0 {
			q.Set("maxdate", fmt.Sprintf("%d/12/31", params.YearTo))
		}
	}

	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	u.RawQuery = q.Encode()

	var result ESearchResult
	if err := c.getXML(ctx, u.String(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// efetch retrieves full article metadata for the given PMIDs.
func (c *Client) efetch(ctx context.Context, pmids []string) (*PubmedArticleSet, error) {
	if len(pmids) == 0 {
		return &PubmedArticleSet{}, nil
	}

	u, err := url.Parse(c.config.BaseURL + "/efetch.fcgi")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	q := u.Query()
	q.Set("db", "pubmed")
	q.Set("id", strings.Join(pmids, ","))
	q.Set("retmode", "xml")
	q.Set("rettype", "abstract")

	if c.config.APIKey != "" {
		q.Set("api_key", c.config.APIKey)
	}

	u.RawQuery = q.Encode()

	var result PubmedArticleSet
	if err := c.getXML(ctx, u.String(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// getXML performs a GET request and decodes the XML response into out.
func (c *Client) getXML(ctx context.Context, requestURL string, out any) error {
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

	if err := xml.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(out); err != nil {
		return domain.NewMalformedResponseError(sourceName, err)
	}
	return nil
}

// articleToRecord converts a PubmedArticle to a domain record. Returns nil
// for articles without a title.
func articleToRecord(article *PubmedArticle) *domain.Record {
	citation := article.MedlineCitation
	pubmedData := article.PubmedData

	title := strings.TrimSpace(citation.Article.ArticleTitle)
	if title == "" {
		return nil
	}

	doi := extractDOI(citation.Article, pubmedData)
	year := extractYear(citation.Article)
	authors := extractAuthors(citation.Article.AuthorList)

	journal := citation.Article.Journal.Title
	if journal == "" {
		journal = citation.Article.Journal.ISOAbbreviation
	}

	metadata := map[string]any{}
	if journal != "" {
		metadata["venue"] = journal
	}
	if v := citation.Article.Journal.JournalIssue.Volume; v != "" {
		metadata["volume"] = v
	}
	if i := citation.Article.Journal.JournalIssue.Issue; i != "" {
		metadata["issue"] = i
	}
	if p := extractPages(citation.Article.Pagination); p != "" {
		metadata["pages"] = p
	}
	if citation.MeshHeadingList != nil {
		meshTerms := make([]string, 0, len(citation.MeshHeadingList.MeshHeadings))
		for _, mh := range citation.MeshHeadingList.MeshHeadings {
			meshTerms = append(meshTerms, mh.DescriptorName.Value)
		}
		metadata["mesh_terms"] = meshTerms
	}
	if citation.KeywordList != nil {
		keywords := make([]string, 0, len(citation.KeywordList.Keywords))
		for _, kw := range citation.KeywordList.Keywords {
			keywords = append(keywords, kw.Value)
		}
		metadata["keywords"] = keywords
	}

	pmid := citation.PMID.Value
	return &domain.Record{
		Source:     domain.SourceTypePubMed,
		ExternalID: pmid,
		Title:      title,
		Authors:    authors,
		Abstract:   extractAbstract(citation.Article.Abstract),
		Year:       year,
		DOI:        doi,
		URL:        "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
		Metadata:   metadata,
	}
}

// extractDOI extracts the DOI from article metadata. ELocationID is checked
// first (more reliable), then ArticleIdList.
func extractDOI(article Article, pubmedData PubmedData) string {
	for _, eloc := range article.ELocationID {
		if eloc.EIdType == "doi" && (eloc.Valid == "" || eloc.Valid == "Y") {
			return eloc.Value
		}
	}
	for _, aid := range pubmedData.ArticleIdList.ArticleIds {
		if aid.IdType == "doi" {
			return aid.Value
		}
	}
	return ""
}

// extractYear extracts the publication year. ArticleDate is preferred,
// falling back to the journal issue PubDate, including the irregular
// MedlineDate format ("2020 Jan-Feb", "2020-2021").
func extractYear(article Article) int {
	for _, ad := range article.ArticleDate {
		if y, err := strconv.Atoi(ad.Year); err == nil && y > 0 {
			return y
		}
	}

	pubDate := article.Journal.JournalIssue.PubDate
	if pubDate.Year != "" {
		if y, err := strconv.Atoi(pubDate.Year); err == nil {
			return y
		}
	}
	if pubDate.MedlineDate != "" {
		parts := strings.Fields(pubDate.MedlineDate)
		if len(parts) > 0 {
			yearStr := strings.Split(parts[0], "-")[0]
			if y, err := strconv.Atoi(yearStr); err == nil {
				return y
			}
		}
	}
	return 0
}

// extractAbstract concatenates abstract sections into a single string,
// prefixing labeled sections with their label.
func extractAbstract(abstract *Abstract) string {
	if abstract == nil || len(abstract.AbstractTexts) == 0 {
		return ""
	}

	if len(abstract.AbstractTexts) == 1 && abstract.AbstractTexts[0].Label == "" {
		return strings.TrimSpace(abstract.AbstractTexts[0].Value)
	}

	var parts []string
	for _, at := range abstract.AbstractTexts {
		text := strings.TrimSpace(at.Value)
		if text == "" {
			continue
		}
		if at.Label != "" {
			parts = append(parts, at.Label+": "+text)
		} else {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// extractAuthors converts PubMed authors to display-name strings.
func extractAuthors(authorList *AuthorList) []string {
	if authorList == nil || len(authorList.Authors) == 0 {
		return nil
	}

	authors := make([]string, 0, len(authorList.Authors))
	for _, a := range authorList.Authors {
		if a.ValidYN == "N" {
			continue
		}

		var name string
		if a.CollectiveName != "" {
			name = a.CollectiveName
		} else {
			nameParts := make([]string, 0, 2)
			if a.ForeName != "" {
				nameParts = append(nameParts, a.ForeName)
			}
			if a.LastName != "" {
				nameParts = append(nameParts, a.LastName)
			}
			name = strings.Join(nameParts, " ")
		}
		if name != "" {
			authors = append(authors, name)
		}
	}
	return authors
}

// extractPages formats the page information.
func extractPages(pagination *Pagination) string {
	if pagination == nil {
		return ""
	}
	if pagination.MedlinePgn != "" {
		return pagination.MedlinePgn
	}
	if pagination.StartPage != "" {
		if pagination.EndPage != "" && pagination.EndPage != pagination.StartPage {
			return pagination.StartPage + "-" + pagination.EndPage
		}
		return pagination.StartPage
	}
	return ""
}
