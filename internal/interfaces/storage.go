package interfaces

import (
	"context"

	"github.com/ternarybob/atsforge/internal/models"
)

// CompanyStorage persists Company rows, unique on Domain.
type CompanyStorage interface {
	Get(ctx context.Context, id string) (*models.Company, error)
	GetByDomain(ctx context.Context, domain string) (*models.Company, error)
	Upsert(ctx context.Context, c *models.Company) error
	ListActive(ctx context.Context, limit, offset int) ([]*models.Company, error)
	ListByATSFamily(ctx context.Context, family string, limit, offset int) ([]*models.Company, error)
	ListNeedingNetworkCrawl(ctx context.Context, limit int) ([]*models.Company, error)
	ListDomains(ctx context.Context) ([]string, error)
	ListATSPairs(ctx context.Context) (map[string]string, error) // "family|identifier" -> company id
	Count(ctx context.Context) (int, error)
}

// CrawlSnapshotStorage persists the append-only CrawlSnapshot history.
type CrawlSnapshotStorage interface {
	Latest(ctx context.Context, companyID string) (*models.CrawlSnapshot, error)
	Insert(ctx context.Context, s *models.CrawlSnapshot) error
}

// JobRawStorage persists JobRaw rows, unique on (CompanyID, SourceURL).
type JobRawStorage interface {
	GetByCompanyAndURL(ctx context.Context, companyID, sourceURL string) (*models.JobRaw, error)
	Upsert(ctx context.Context, r *models.JobRaw) error
}

// JobStorage persists canonical Job rows, unique on (CompanyID, SourceURL).
type JobStorage interface {
	Get(ctx context.Context, id string) (*models.Job, error)
	GetByCompanyAndURL(ctx context.Context, companyID, sourceURL string) (*models.Job, error)
	Upsert(ctx context.Context, j *models.Job) error
	ListActiveByCompany(ctx context.Context, companyID string) ([]*models.Job, error)
	ListNeedingEnrichment(ctx context.Context, atsFamily string, limit int) ([]*models.Job, error)
	ListNeedingEmbedding(ctx context.Context, limit int) ([]*models.Job, error)
	SetEmbedding(ctx context.Context, jobID string, embedding []float32) error
	SimilarJobs(ctx context.Context, query []float32, limit int) ([]SimilarJob, error)
	Count(ctx context.Context) (int, error)
}

// SimilarJob is one ranked result from JobStorage.SimilarJobs: a job id
// paired with its cosine distance to the query embedding (0 = identical
// direction, 2 = opposite).
type SimilarJob struct {
	JobID    string
	Distance float64
}

// DiscoveryQueueStorage persists DiscoveryQueue rows.
type DiscoveryQueueStorage interface {
	Insert(ctx context.Context, q *models.DiscoveryQueue) error
	Update(ctx context.Context, q *models.DiscoveryQueue) error
	ListPendingForProcessing(ctx context.Context, limit int) ([]*models.DiscoveryQueue, error)
	ListDomains(ctx context.Context) ([]string, error)
}

// RunStorage persists DiscoveryRun / PipelineRun / MaintenanceRun /
// VerificationRun rows, distinguished by Run.Kind.
type RunStorage interface {
	Insert(ctx context.Context, r *models.Run) error
	Update(ctx context.Context, r *models.Run) error
	Get(ctx context.Context, id string) (*models.Run, error)
}

// JobBoardListingStorage persists verification results, unique on
// (JobID, Board).
type JobBoardListingStorage interface {
	Upsert(ctx context.Context, l *models.JobBoardListing) error
	ListByJob(ctx context.Context, jobID string) ([]*models.JobBoardListing, error)
}

// StorageManager aggregates the per-entity stores behind a single
// connection.
type StorageManager interface {
	Companies() CompanyStorage
	CrawlSnapshots() CrawlSnapshotStorage
	JobsRaw() JobRawStorage
	Jobs() JobStorage
	DiscoveryQueue() DiscoveryQueueStorage
	Runs() RunStorage
	JobBoardListings() JobBoardListingStorage
	Close() error
}

// DedupCache is the Badger-backed key/value store the App opens at
// startup and closes on shutdown. The Deduplication Service and the
// Operation Registry keep their state in memory and do not use it.
type DedupCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	ListKeysWithPrefix(ctx context.Context, prefix string) ([]string, error)
	Close() error
}
