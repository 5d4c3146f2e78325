package crawl

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ternarybob/atsforge/internal/ats"
	"github.com/ternarybob/atsforge/internal/extract"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

type fakeFetcher struct {
	responses map[string]fakeResponse
}

type fakeResponse struct {
	body   []byte
	status int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, int, error) {
	if r, ok := f.responses[url]; ok {
		return r.body, r.status, nil
	}
	return nil, 404, nil
}
func (f *fakeFetcher) Head(ctx context.Context, url string) (int, string, error) { return 200, url, nil }
func (f *fakeFetcher) Post(ctx context.Context, url, contentType string, body io.Reader) ([]byte, int, error) {
	return nil, 404, nil
}

// fakeStorage is a minimal in-memory interfaces.StorageManager,
// sufficient for exercising the Crawl Engine's upsert paths.
type fakeStorage struct {
	companies map[string]*models.Company
	snapshots map[string]*models.CrawlSnapshot
	jobsRaw   map[string]*models.JobRaw
	jobs      map[string]*models.Job
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		companies: make(map[string]*models.Company),
		snapshots: make(map[string]*models.CrawlSnapshot),
		jobsRaw:   make(map[string]*models.JobRaw),
		jobs:      make(map[string]*models.Job),
	}
}

func (s *fakeStorage) Companies() interfaces.CompanyStorage             { return (*companyStore)(s) }
func (s *fakeStorage) CrawlSnapshots() interfaces.CrawlSnapshotStorage   { return (*snapshotStore)(s) }
func (s *fakeStorage) JobsRaw() interfaces.JobRawStorage                { return (*jobRawStore)(s) }
func (s *fakeStorage) Jobs() interfaces.JobStorage                      { return (*jobStore)(s) }
func (s *fakeStorage) DiscoveryQueue() interfaces.DiscoveryQueueStorage { return nil }
func (s *fakeStorage) Runs() interfaces.RunStorage                      { return nil }
func (s *fakeStorage) JobBoardListings() interfaces.JobBoardListingStorage { return nil }
func (s *fakeStorage) Close() error                                    { return nil }

type companyStore fakeStorage

func (s *companyStore) Get(ctx context.Context, id string) (*models.Company, error) {
	return s.companies[id], nil
}
func (s *companyStore) GetByDomain(ctx context.Context, domain string) (*models.Company, error) {
	for _, c := range s.companies {
		if c.Domain == domain {
			return c, nil
		}
	}
	return nil, nil
}
func (s *companyStore) Upsert(ctx context.Context, c *models.Company) error {
	s.companies[c.ID] = c
	return nil
}
func (s *companyStore) ListActive(ctx context.Context, limit, offset int) ([]*models.Company, error) {
	return nil, nil
}
func (s *companyStore) ListByATSFamily(ctx context.Context, family string, limit, offset int) ([]*models.Company, error) {
	return nil, nil
}
func (s *companyStore) ListNeedingNetworkCrawl(ctx context.Context, limit int) ([]*models.Company, error) {
	return nil, nil
}
func (s *companyStore) ListDomains(ctx context.Context) ([]string, error) { return nil, nil }
func (s *companyStore) ListATSPairs(ctx context.Context) (map[string]string, error) {
	return nil, nil
}
func (s *companyStore) Count(ctx context.Context) (int, error) { return len(s.companies), nil }

type snapshotStore fakeStorage

func (s *snapshotStore) Latest(ctx context.Context, companyID string) (*models.CrawlSnapshot, error) {
	return s.snapshots[companyID], nil
}
func (s *snapshotStore) Insert(ctx context.Context, snap *models.CrawlSnapshot) error {
	s.snapshots[snap.CompanyID] = snap
	return nil
}

type jobRawStore fakeStorage

func (s *jobRawStore) GetByCompanyAndURL(ctx context.Context, companyID, sourceURL string) (*models.JobRaw, error) {
	return s.jobsRaw[companyID+"|"+sourceURL], nil
}
func (s *jobRawStore) Upsert(ctx context.Context, r *models.JobRaw) error {
	s.jobsRaw[r.CompanyID+"|"+r.SourceURL] = r
	return nil
}

type jobStore fakeStorage

func (s *jobStore) Get(ctx context.Context, id string) (*models.Job, error) { return s.jobs[id], nil }
func (s *jobStore) GetByCompanyAndURL(ctx context.Context, companyID, sourceURL string) (*models.Job, error) {
	for _, j := range s.jobs {
		if j.CompanyID == companyID && j.SourceURL == sourceURL {
			return j, nil
		}
	}
	return nil, nil
}
func (s *jobStore) Upsert(ctx context.Context, j *models.Job) error {
	s.jobs[j.ID] = j
	return nil
}
func (s *jobStore) ListActiveByCompany(ctx context.Context, companyID string) ([]*models.Job, error) {
	return nil, nil
}
func (s *jobStore) ListNeedingEnrichment(ctx context.Context, atsFamily string, limit int) ([]*models.Job, error) {
	return nil, nil
}
func (s *jobStore) ListNeedingEmbedding(ctx context.Context, limit int) ([]*models.Job, error) {
	return nil, nil
}
func (s *jobStore) SetEmbedding(ctx context.Context, jobID string, embedding []float32) error {
	return nil
}
func (s *jobStore) SimilarJobs(ctx context.Context, query []float32, limit int) ([]interfaces.SimilarJob, error) {
	return nil, nil
}
func (s *jobStore) Count(ctx context.Context) (int, error) { return len(s.jobs), nil }

func TestCrawlCompany_GreenhouseAPIPathInsertsJobs(t *testing.T) {
	storage := newFakeStorage()
	company := &models.Company{
		ID:            "c1",
		Name:          "Acme",
		Domain:        "acme.com",
		CareersURL:    "https://boards.greenhouse.io/acme",
		ATSFamily:     models.ATSFamilyGreenhouse,
		ATSIdentifier: "acme",
		IsActive:      true,
	}
	storage.companies[company.ID] = company

	apiURL := "https://boards-api.greenhouse.io/v1/boards/acme/jobs"
	body := []byte(`{"jobs":[{"title":"Backend Engineer","absolute_url":"https://boards.greenhouse.io/acme/jobs/1","location":{"name":"Remote"}}]}`)
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{apiURL: {body: body, status: 200}}}

	reg := ats.NewRegistry()
	detector := ats.NewDetector(reg, nil, nil)
	extractors := NewExtractorRegistry(extract.NewGenericExtractor(nil, nil), extract.NewGreenhouseExtractor(fetcher, nil))

	engine := NewEngine(storage, reg, detector, extractors, fetcher, nil, nil, nil)

	result, err := engine.CrawlCompany(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, "updated", result.Status)
	require.Equal(t, 1, result.NewJobs)
	require.Len(t, storage.jobs, 1)
}

func TestCrawlCompany_UnchangedOnMatchingHash(t *testing.T) {
	storage := newFakeStorage()
	company := &models.Company{ID: "c2", CareersURL: "https://acme.com/careers", IsActive: true}
	storage.companies[company.ID] = company

	body := []byte("<html>careers page</html>")
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{"https://acme.com/careers": {body: body, status: 200}}}
	reg := ats.NewRegistry()
	detector := ats.NewDetector(reg, nil, nil)
	extractors := NewExtractorRegistry(extract.NewGenericExtractor(nil, nil))
	engine := NewEngine(storage, reg, detector, extractors, fetcher, nil, nil, nil)

	_, err := engine.CrawlCompany(context.Background(), "c2")
	require.NoError(t, err)

	result, err := engine.CrawlCompany(context.Background(), "c2")
	require.NoError(t, err)
	require.Equal(t, "unchanged", result.Status)
}

func TestCrawlCompany_NoCareersURL(t *testing.T) {
	storage := newFakeStorage()
	storage.companies["c3"] = &models.Company{ID: "c3", IsActive: true}
	reg := ats.NewRegistry()
	engine := NewEngine(storage, reg, ats.NewDetector(reg, nil, nil), NewExtractorRegistry(extract.NewGenericExtractor(nil, nil)), &fakeFetcher{}, nil, nil, nil)

	result, err := engine.CrawlCompany(context.Background(), "c3")
	require.NoError(t, err)
	require.Equal(t, ReasonNoCareersURL, result.Reason)
}
