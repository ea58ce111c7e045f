package httpserver

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/blackprince001/papertrail/internal/citations"
	"github.com/blackprince001/papertrail/internal/database"
	"github.com/blackprince001/papertrail/internal/domain"
	"github.com/blackprince001/papertrail/internal/observability"
	"github.com/blackprince001/papertrail/internal/pdf"
	"github.com/blackprince001/papertrail/internal/repository"
	"github.com/blackprince001/papertrail/internal/search"
)

// testMetrics is shared across the package's tests; promauto registers
// collectors globally, so it must only be constructed once.
var testMetrics = observability.NewMetrics("papertrail_httptest")

type fakeSearcher struct {
	response *search.Response
	events   []search.Event
	err      error

	lastRequest search.Request
}

func (f *fakeSearcher) Search(_ context.Context, req search.Request) (*search.Response, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeSearcher) SearchStream(_ context.Context, req search.Request, emit func(search.Event)) {
	f.lastRequest = req
	for _, ev := range f.events {
		emit(ev)
	}
}

type fakeMatcher struct {
	candidate  *domain.MatchCandidate
	duplicates []domain.MatchCandidate
	err        error

	lastThreshold float64
}

func (f *fakeMatcher) MatchCitation(_ context.Context, _ *domain.ParsedCitation) (*domain.MatchCandidate, error) {
	return f.candidate, f.err
}

func (f *fakeMatcher) FindDuplicates(_ context.Context, _ uuid.UUID, threshold float64) ([]domain.MatchCandidate, error) {
	f.lastThreshold = threshold
	return f.duplicates, f.err
}

type fakeExtractor struct {
	result *citations.Result
	err    error

	lastPDF []byte
}

func (f *fakeExtractor) Extract(_ context.Context, paperID uuid.UUID, pdfBytes []byte) (*citations.Result, error) {
	f.lastPDF = pdfBytes
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &citations.Result{PaperID: paperID}, nil
}

type fakeFetcher struct {
	result *pdf.DownloadResult
	err    error

	lastURL string
}

func (f *fakeFetcher) Download(_ context.Context, url string) (*pdf.DownloadResult, error) {
	f.lastURL = url
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakePaperRepo struct {
	papers map[uuid.UUID]*domain.Paper
	err    error
}

func newFakePaperRepo(papers ...*domain.Paper) *fakePaperRepo {
	repo := &fakePaperRepo{papers: make(map[uuid.UUID]*domain.Paper)}
	for _, p := range papers {
		repo.papers[p.ID] = p
	}
	return repo
}

func (f *fakePaperRepo) Create(_ context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if f.err != nil {
		return nil, f.err
	}
	created := *paper
	created.ID = uuid.New()
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	f.papers[created.ID] = &created
	return &created, nil
}

func (f *fakePaperRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Paper, error) {
	if f.err != nil {
		return nil, f.err
	}
	paper, ok := f.papers[id]
	if !ok {
		return nil, domain.NewNotFoundError("paper", id.String())
	}
	return paper, nil
}

func (f *fakePaperRepo) FindByDOI(_ context.Context, doi string) (*domain.Paper, error) {
	for _, p := range f.papers {
		if p.DOI == doi {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("paper", doi)
}

func (f *fakePaperRepo) SearchByTitle(_ context.Context, _ string, _ int) ([]*domain.Paper, error) {
	return nil, nil
}

func (f *fakePaperRepo) ListExcept(_ context.Context, id uuid.UUID) ([]*domain.Paper, error) {
	var out []*domain.Paper
	for _, p := range f.papers {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePaperRepo) List(_ context.Context, filter repository.PaperFilter) ([]*domain.Paper, int64, error) {
	if f.err != nil {
		return nil, 0, f.err
	}
	var out []*domain.Paper
	for _, p := range f.papers {
		if filter.Year != nil && p.Year != *filter.Year {
			continue
		}
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (f *fakePaperRepo) Delete(_ context.Context, id uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.papers[id]; !ok {
		return domain.NewNotFoundError("paper", id.String())
	}
	delete(f.papers, id)
	return nil
}

type fakeCitationRepo struct {
	edges   []*domain.Citation
	citing  []*domain.Citation
	deleted []uuid.UUID
	err     error
}

func (f *fakeCitationRepo) CreateEdge(_ context.Context, citation *domain.Citation) error {
	if f.err != nil {
		return f.err
	}
	f.edges = append(f.edges, citation)
	return nil
}

func (f *fakeCitationRepo) ListByPaper(_ context.Context, _ uuid.UUID) ([]*domain.Citation, error) {
	return f.edges, f.err
}

func (f *fakeCitationRepo) ListCiting(_ context.Context, _ uuid.UUID) ([]*domain.Citation, error) {
	return f.citing, f.err
}

func (f *fakeCitationRepo) DeleteByPaper(_ context.Context, paperID uuid.UUID) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.deleted = append(f.deleted, paperID)
	return int64(len(f.edges)), nil
}

type fakeDuplicateRepo struct {
	recorded []*domain.DuplicateRecord
	err      error
}

func (f *fakeDuplicateRepo) Record(_ context.Context, dup *domain.DuplicateRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, dup)
	return nil
}

func (f *fakeDuplicateRepo) ListByPaper(_ context.Context, _ uuid.UUID) ([]*domain.DuplicateRecord, error) {
	return f.recorded, f.err
}

func (f *fakeDuplicateRepo) MarkMerged(_ context.Context, _ uuid.UUID) error {
	return f.err
}

type fakeHealth struct {
	status database.HealthStatus
}

func (f *fakeHealth) Health(_ context.Context) database.HealthStatus {
	return f.status
}

// newTestServer builds a Server around the given fakes, filling in healthy
// defaults for collaborators the test doesn't care about.
func newTestServer(deps Deps) *Server {
	if deps.Searcher == nil {
		deps.Searcher = &fakeSearcher{response: &search.Response{}}
	}
	if deps.Matcher == nil {
		deps.Matcher = &fakeMatcher{}
	}
	if deps.Extractor == nil {
		deps.Extractor = &fakeExtractor{}
	}
	if deps.Fetcher == nil {
		deps.Fetcher = &fakeFetcher{}
	}
	if deps.Papers == nil {
		deps.Papers = newFakePaperRepo()
	}
	if deps.Citations == nil {
		deps.Citations = &fakeCitationRepo{}
	}
	if deps.Duplicates == nil {
		deps.Duplicates = &fakeDuplicateRepo{}
	}
	if deps.Health == nil {
		deps.Health = &fakeHealth{status: database.HealthStatus{Status: "healthy"}}
	}
	deps.Metrics = testMetrics

	return NewServer(Config{Address: "127.0.0.1:0"}, deps, zerolog.Nop())
}

// newTestPaper builds a library paper for handler tests.
func newTestPaper() *domain.Paper {
	return &domain.Paper{
		ID:        uuid.New(),
		Title:     "Attention Is All You Need",
		DOI:       "10.5555/3295222",
		Authors:   []string{"Ashish Vaswani", "Noam Shazeer"},
		Year:      2017,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
}
