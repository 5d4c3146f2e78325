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

// JobRawStorage implements interfaces.JobRawStorage.
type JobRawStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewJobRawStorage builds a JobRawStorage over db.
func NewJobRawStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.JobRawStorage {
	return &JobRawStorage{db: db, logger: logger}
}

const jobRawColumns = `id, company_id, source_url, title_raw, description_raw, location_raw,
	department_raw, employment_type_raw, posted_at_raw, salary_raw, extracted_at`

func scanJobRaw(row interface{ Scan(...any) error }) (*models.JobRaw, error) {
	var r models.JobRaw
	var extractedAt int64
	err := row.Scan(&r.ID, &r.CompanyID, &r.SourceURL, &r.TitleRaw, &r.DescriptionRaw, &r.LocationRaw,
		&r.DepartmentRaw, &r.EmploymentTypeRaw, &r.PostedAtRaw, &r.SalaryRaw, &extractedAt)
	if err != nil {
		return nil, err
	}
	r.ExtractedAt = time.Unix(extractedAt, 0).UTC()
	return &r, nil
}

// GetByCompanyAndURL returns the JobRaw for (companyID, sourceURL), or
// nil if it has not been extracted yet.
func (s *JobRawStorage) GetByCompanyAndURL(ctx context.Context, companyID, sourceURL string) (*models.JobRaw, error) {
	row := s.db.DB().QueryRowContext(ctx,
		`SELECT `+jobRawColumns+` FROM jobs_raw WHERE company_id = ? AND source_url = ?`,
		companyID, sourceURL)
	r, err := scanJobRaw(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting raw job %s/%s: %w", companyID, sourceURL, err)
	}
	return r, nil
}

// Upsert inserts r or overwrites the existing row for the same
// (CompanyID, SourceURL) key, mutating in place rather than duplicating.
func (s *JobRawStorage) Upsert(ctx context.Context, r *models.JobRaw) error {
	if r.ID == "" {
		return fmt.Errorf("raw job id is required")
	}
	if r.ExtractedAt.IsZero() {
		r.ExtractedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO jobs_raw (id, company_id, source_url, title_raw, description_raw, location_raw,
			department_raw, employment_type_raw, posted_at_raw, salary_raw, extracted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, source_url) DO UPDATE SET
			title_raw = excluded.title_raw,
			description_raw = excluded.description_raw,
			location_raw = excluded.location_raw,
			department_raw = excluded.department_raw,
			employment_type_raw = excluded.employment_type_raw,
			posted_at_raw = excluded.posted_at_raw,
			salary_raw = excluded.salary_raw,
			extracted_at = excluded.extracted_at
	`
	_, err := s.db.DB().ExecContext(ctx, query,
		r.ID, r.CompanyID, r.SourceURL, r.TitleRaw, r.DescriptionRaw, r.LocationRaw,
		r.DepartmentRaw, r.EmploymentTypeRaw, r.PostedAtRaw, r.SalaryRaw, r.ExtractedAt.Unix())
	if err != nil {
		return fmt.Errorf("upserting raw job %s/%s: %w", r.CompanyID, r.SourceURL, err)
	}
	return nil
}
