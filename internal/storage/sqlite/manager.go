package sqlite

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/common"
	"github.com/ternarybob/atsforge/internal/interfaces"
)

// Manager implements interfaces.StorageManager over a single SQLiteDB
// connection shared by every per-entity store.
type Manager struct {
	db                *SQLiteDB
	companies         interfaces.CompanyStorage
	crawlSnapshots    interfaces.CrawlSnapshotStorage
	jobsRaw           interfaces.JobRawStorage
	jobs              interfaces.JobStorage
	discoveryQueue    interfaces.DiscoveryQueueStorage
	runs              interfaces.RunStorage
	jobBoardListings  interfaces.JobBoardListingStorage
	logger            arbor.ILogger
}

// NewManager opens the database at config.Path and wires every
// per-entity store over it.
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, config)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		db:               db,
		companies:        NewCompanyStorage(db, logger),
		crawlSnapshots:   NewCrawlSnapshotStorage(db, logger),
		jobsRaw:          NewJobRawStorage(db, logger),
		jobs:             NewJobStorage(db, logger),
		discoveryQueue:   NewDiscoveryQueueStorage(db, logger),
		runs:             NewRunStorage(db, logger),
		jobBoardListings: NewJobBoardListingStorage(db, logger),
		logger:           logger,
	}

	logger.Info().Msg("storage manager initialized (companies, crawl_snapshots, jobs_raw, jobs, discovery_queue, runs, job_board_listings)")
	return m, nil
}

var _ interfaces.StorageManager = (*Manager)(nil)

func (m *Manager) Companies() interfaces.CompanyStorage                 { return m.companies }
func (m *Manager) CrawlSnapshots() interfaces.CrawlSnapshotStorage       { return m.crawlSnapshots }
func (m *Manager) JobsRaw() interfaces.JobRawStorage                     { return m.jobsRaw }
func (m *Manager) Jobs() interfaces.JobStorage                           { return m.jobs }
func (m *Manager) DiscoveryQueue() interfaces.DiscoveryQueueStorage      { return m.discoveryQueue }
func (m *Manager) Runs() interfaces.RunStorage                          { return m.runs }
func (m *Manager) JobBoardListings() interfaces.JobBoardListingStorage   { return m.jobBoardListings }

// Close closes the underlying connection.
func (m *Manager) Close() error {
	return m.db.Close()
}
