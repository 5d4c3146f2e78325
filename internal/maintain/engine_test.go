package maintain

import (
	"context"
	"io"
	"testing"
	"time"

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

type fakeStorage struct {
	companies map[string]*models.Company
	jobsRaw   map[string]*models.JobRaw
	jobs      map[string]*models.Job
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		companies: make(map[string]*models.Company),
		jobsRaw:   make(map[string]*models.JobRaw),
		jobs:      make(map[string]*models.Job),
	}
}

func (s *fakeStorage) Companies() interfaces.CompanyStorage             { return (*companyStore)(s) }
func (s *fakeStorage) CrawlSnapshots() interfaces.CrawlSnapshotStorage   { return nil }
func (s *fakeStorage) JobsRaw() interfaces.JobRawStorage                 { return (*jobRawStore)(s) }
func (s *fakeStorage) Jobs() interfaces.JobStorage                       { return (*jobStore)(s) }
func (s *fakeStorage) DiscoveryQueue() interfaces.DiscoveryQueueStorage  { return nil }
func (s *fakeStorage) Runs() interfaces.RunStorage                      { return nil }
func (s *fakeStorage) JobBoardListings() interfaces.JobBoardListingStorage { return nil }
func (s *fakeStorage) Close() error                                    { return nil }

type companyStore fakeStorage

func (s *companyStore) Get(ctx context.Context, id string) (*models.Company, error) {
	return s.companies[id], nil
}
func (s *companyStore) GetByDomain(ctx context.Context, domain string) (*models.Company, error) {
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
	var out []*models.Job
	for _, j := range s.jobs {
		if j.CompanyID == companyID && j.IsActive {
			out = append(out, j)
		}
	}
	return out, nil
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

func TestMaintainCompany_DelistsVerifiesAndAdmits(t *testing.T) {
	storage := newFakeStorage()
	company := &models.Company{
		ID:            "c1",
		CareersURL:    "https://boards.greenhouse.io/acme",
		ATSFamily:     models.ATSFamilyGreenhouse,
		ATSIdentifier: "acme",
		IsActive:      true,
	}
	storage.companies[company.ID] = company

	now := time.Now().UTC()
	storage.jobs["stale"] = &models.Job{ID: "stale", CompanyID: "c1", SourceURL: "https://boards.greenhouse.io/acme/jobs/1", IsActive: true, CreatedAt: now, UpdatedAt: now}
	storage.jobs["kept"] = &models.Job{ID: "kept", CompanyID: "c1", SourceURL: "https://boards.greenhouse.io/acme/jobs/2", IsActive: true, CreatedAt: now, UpdatedAt: now}

	apiURL := "https://boards-api.greenhouse.io/v1/boards/acme/jobs"
	body := []byte(`{"jobs":[{"title":"Kept Role","absolute_url":"https://boards.greenhouse.io/acme/jobs/2","location":{"name":"Remote"}},{"title":"New Role","absolute_url":"https://boards.greenhouse.io/acme/jobs/3","location":{"name":"Remote"}}]}`)
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{apiURL: {body: body, status: 200}}}

	reg := ats.NewRegistry()
	extractors := fakeExtractors{extractor: extract.NewGreenhouseExtractor(fetcher, nil)}
	engine := NewEngine(storage, reg, extractors, fetcher, nil, nil, nil)

	result, err := engine.MaintainCompany(context.Background(), "c1")
	require.NoError(t, err)
	require.False(t, result.Unknown)
	require.Equal(t, 1, result.Delisted)
	require.Equal(t, 1, result.Verified)
	require.Equal(t, 1, result.New)

	require.False(t, storage.jobs["stale"].IsActive)
	require.Equal(t, models.DelistReasonRemovedFromATS, storage.jobs["stale"].DelistReason)
	require.NotNil(t, storage.jobs["kept"].LastVerifiedAt)
}

func TestMaintainCompany_EmptyExtractionIsUnknownNotEmpty(t *testing.T) {
	storage := newFakeStorage()
	company := &models.Company{
		ID:            "c2",
		CareersURL:    "https://boards.greenhouse.io/acme2",
		ATSFamily:     models.ATSFamilyGreenhouse,
		ATSIdentifier: "acme2",
		IsActive:      true,
	}
	storage.companies[company.ID] = company
	storage.jobs["only"] = &models.Job{ID: "only", CompanyID: "c2", SourceURL: "https://boards.greenhouse.io/acme2/jobs/1", IsActive: true}

	apiURL := "https://boards-api.greenhouse.io/v1/boards/acme2/jobs"
	fetcher := &fakeFetcher{responses: map[string]fakeResponse{apiURL: {body: []byte(`{"jobs":[]}`), status: 200}}}
	reg := ats.NewRegistry()
	extractors := fakeExtractors{extractor: extract.NewGreenhouseExtractor(fetcher, nil)}
	engine := NewEngine(storage, reg, extractors, fetcher, nil, nil, nil)

	result, err := engine.MaintainCompany(context.Background(), "c2")
	require.NoError(t, err)
	require.True(t, result.Unknown)
	require.True(t, storage.jobs["only"].IsActive)
}

type fakeExtractors struct {
	extractor interfaces.Extractor
}

func (f fakeExtractors) For(family string) interfaces.Extractor { return f.extractor }
