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

// DiscoveryQueueStorage implements interfaces.DiscoveryQueueStorage.
type DiscoveryQueueStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewDiscoveryQueueStorage builds a DiscoveryQueueStorage over db.
func NewDiscoveryQueueStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.DiscoveryQueueStorage {
	return &DiscoveryQueueStorage{db: db, logger: logger}
}

const discoveryQueueColumns = `id, name, domain, careers_url, website_url, source, source_url,
	location, country, description, industry, employee_count, funding_stage, ats_family,
	ats_identifier, status, error_message, retry_count, created_at, processed_at, company_id`

func scanDiscoveryQueue(row interface{ Scan(...any) error }) (*models.DiscoveryQueue, error) {
	var q models.DiscoveryQueue
	var companyID sql.NullString
	var createdAt int64
	var processedAt sql.NullInt64

	err := row.Scan(&q.ID, &q.Name, &q.Domain, &q.CareersURL, &q.WebsiteURL, &q.Source, &q.SourceURL,
		&q.Location, &q.Country, &q.Description, &q.Industry, &q.EmployeeCount, &q.FundingStage,
		&q.ATSFamily, &q.ATSIdentifier, &q.Status, &q.ErrorMessage, &q.RetryCount,
		&createdAt, &processedAt, &companyID)
	if err != nil {
		return nil, err
	}
	q.CompanyID = companyID.String
	q.CreatedAt = time.Unix(createdAt, 0).UTC()
	if processedAt.Valid {
		t := time.Unix(processedAt.Int64, 0).UTC()
		q.ProcessedAt = &t
	}
	return &q, nil
}

// Insert adds a new queue row.
func (s *DiscoveryQueueStorage) Insert(ctx context.Context, q *models.DiscoveryQueue) error {
	if q.ID == "" {
		return fmt.Errorf("discovery queue id is required")
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Status == "" {
		q.Status = models.DiscoveryQueueStatusPending
	}

	_, err := s.db.DB().ExecContext(ctx, `
		INSERT INTO discovery_queue (
			id, name, domain, careers_url, website_url, source, source_url, location, country,
			description, industry, employee_count, funding_stage, ats_family, ats_identifier,
			status, error_message, retry_count, created_at, processed_at, company_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, q.ID, q.Name, q.Domain, q.CareersURL, q.WebsiteURL, q.Source, q.SourceURL, q.Location, q.Country,
		q.Description, q.Industry, q.EmployeeCount, q.FundingStage, q.ATSFamily, q.ATSIdentifier,
		q.Status, q.ErrorMessage, q.RetryCount, q.CreatedAt.Unix(), nullableTime(q.ProcessedAt),
		nullableString(q.CompanyID))
	if err != nil {
		return fmt.Errorf("inserting discovery queue row %s: %w", q.ID, err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing queue row.
func (s *DiscoveryQueueStorage) Update(ctx context.Context, q *models.DiscoveryQueue) error {
	_, err := s.db.DB().ExecContext(ctx, `
		UPDATE discovery_queue SET
			status = ?, error_message = ?, retry_count = ?, processed_at = ?, company_id = ?,
			ats_family = ?, ats_identifier = ?, careers_url = ?, domain = ?
		WHERE id = ?
	`, q.Status, q.ErrorMessage, q.RetryCount, nullableTime(q.ProcessedAt), nullableString(q.CompanyID),
		q.ATSFamily, q.ATSIdentifier, q.CareersURL, q.Domain, q.ID)
	if err != nil {
		return fmt.Errorf("updating discovery queue row %s: %w", q.ID, err)
	}
	return nil
}

// ListPendingForProcessing returns queue rows still awaiting processing,
// oldest first, capped at limit.
func (s *DiscoveryQueueStorage) ListPendingForProcessing(ctx context.Context, limit int) ([]*models.DiscoveryQueue, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT `+discoveryQueueColumns+` FROM discovery_queue WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		models.DiscoveryQueueStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending discovery queue rows: %w", err)
	}
	defer rows.Close()

	var out []*models.DiscoveryQueue
	for rows.Next() {
		q, err := scanDiscoveryQueue(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning discovery queue row: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ListDomains returns every non-empty domain currently queued.
func (s *DiscoveryQueueStorage) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := s.db.DB().QueryContext(ctx, `SELECT domain FROM discovery_queue WHERE domain != ''`)
	if err != nil {
		return nil, fmt.Errorf("listing queued domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning queued domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}
