package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// JobBoardListingStorage implements interfaces.JobBoardListingStorage.
type JobBoardListingStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewJobBoardListingStorage builds a JobBoardListingStorage over db.
func NewJobBoardListingStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.JobBoardListingStorage {
	return &JobBoardListingStorage{db: db, logger: logger}
}

// Upsert inserts l or updates the existing row for the same (JobID, Board).
func (s *JobBoardListingStorage) Upsert(ctx context.Context, l *models.JobBoardListing) error {
	if l.ID == "" {
		return fmt.Errorf("job board listing id is required")
	}
	if l.VerifiedAt.IsZero() {
		l.VerifiedAt = time.Now().UTC()
	}

	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO job_board_listings (id, job_id, board, found, confidence, listing_url,
			search_query, search_result_count, verified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(job_id, board) DO UPDATE SET
			found = excluded.found,
			confidence = excluded.confidence,
			listing_url = excluded.listing_url,
			search_query = excluded.search_query,
			search_result_count = excluded.search_result_count,
			verified_at = excluded.verified_at
	`, l.ID, l.JobID, l.Board, l.Found, l.Confidence, l.ListingURL, l.SearchQuery,
		l.SearchResultCount, l.VerifiedAt.Unix())
	if err != nil {
		return fmt.Errorf("upserting job board listing %s/%s: %w", l.JobID, l.Board, err)
	}
	return nil
}

// ListByJob returns every listing recorded for jobID across all boards.
func (s *JobBoardListingStorage) ListByJob(ctx context.Context, jobID string) ([]*models.JobBoardListing, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, job_id, board, found, confidence, listing_url, search_query, search_result_count, verified_at
		FROM job_board_listings WHERE job_id = ?
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("listing job board listings for job %s: %w", jobID, err)
	}
	defer rows.Close()

	var out []*models.JobBoardListing
	for rows.Next() {
		var l models.JobBoardListing
		var verifiedAt int64
		if err := rows.Scan(&l.ID, &l.JobID, &l.Board, &l.Found, &l.Confidence, &l.ListingURL,
			&l.SearchQuery, &l.SearchResultCount, &verifiedAt); err != nil {
			return nil, fmt.Errorf("scanning job board listing row: %w", err)
		}
		l.VerifiedAt = time.Unix(verifiedAt, 0).UTC()
		out = append(out, &l)
	}
	return out, rows.Err()
}
