package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// CrawlSnapshotStorage implements interfaces.CrawlSnapshotStorage.
type CrawlSnapshotStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewCrawlSnapshotStorage builds a CrawlSnapshotStorage over db.
func NewCrawlSnapshotStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.CrawlSnapshotStorage {
	return &CrawlSnapshotStorage{db: db, logger: logger}
}

// Latest returns the most recently crawled snapshot for companyID, or
// nil if none exists yet.
func (s *CrawlSnapshotStorage) Latest(ctx context.Context, companyID string) (*models.CrawlSnapshot, error) {
	row := s.db.DB().QueryRowContext(ctx, `
		SELECT id, company_id, url, html_hash, html_content, status_code, rendered, crawled_at
		FROM crawl_snapshots WHERE company_id = ? ORDER BY crawled_at DESC LIMIT 1
	`, companyID)

	var snap models.CrawlSnapshot
	var htmlContent sql.NullString
	var crawledAt int64
	err := row.Scan(&snap.ID, &snap.CompanyID, &snap.URL, &snap.HTMLHash, &htmlContent,
		&snap.StatusCode, &snap.Rendered, &crawledAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting latest snapshot for company %s: %w", companyID, err)
	}
	snap.HTMLContent = htmlContent.String
	snap.CrawledAt = time.Unix(crawledAt, 0).UTC()
	return &snap, nil
}

// Insert appends a new snapshot row. Snapshots are append-only: callers
// decide whether a new row is warranted by comparing against Latest.
func (s *CrawlSnapshotStorage) Insert(ctx context.Context, snap *models.CrawlSnapshot) error {
	if snap.CrawledAt.IsZero() {
		snap.CrawledAt = time.Now().UTC()
	}
	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO crawl_snapshots (id, company_id, url, html_hash, html_content, status_code, rendered, crawled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.CompanyID, snap.URL, snap.HTMLHash, nullableString(snap.HTMLContent),
		snap.StatusCode, snap.Rendered, snap.CrawledAt.Unix())
	if err != nil {
		return fmt.Errorf("inserting crawl snapshot for company %s: %w", snap.CompanyID, err)
	}
	return nil
}
