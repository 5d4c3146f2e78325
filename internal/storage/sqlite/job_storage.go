package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// JobStorage implements interfaces.JobStorage.
type JobStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewJobStorage builds a JobStorage over db.
func NewJobStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.JobStorage {
	return &JobStorage{db: db, logger: logger}
}

const jobColumns = `id, company_id, raw_job_id, title, description, source_url, role_family,
	role_specialization, seniority, location_type, locations_json, skills_json, min_salary,
	max_salary, employment_type, posted_at, freshness_score, is_active, last_verified_at,
	delisted_at, delist_reason, enrich_failed_at, created_at, updated_at`

// jobColumnsQualified is jobColumns with every column prefixed by the
// jobs table name, for queries that join against another table.
const jobColumnsQualified = `jobs.id, jobs.company_id, jobs.raw_job_id, jobs.title, jobs.description,
	jobs.source_url, jobs.role_family, jobs.role_specialization, jobs.seniority, jobs.location_type,
	jobs.locations_json, jobs.skills_json, jobs.min_salary, jobs.max_salary, jobs.employment_type,
	jobs.posted_at, jobs.freshness_score, jobs.is_active, jobs.last_verified_at, jobs.delisted_at,
	jobs.delist_reason, jobs.enrich_failed_at, jobs.created_at, jobs.updated_at`

func scanJob(row interface{ Scan(...any) error }) (*models.Job, error) {
	var j models.Job
	var rawJobID sql.NullString
	var locationsJSON, skillsJSON string
	var minSalary, maxSalary sql.NullInt64
	var postedAt, lastVerifiedAt, delistedAt, enrichFailedAt sql.NullInt64
	var freshnessScore sql.NullFloat64
	var createdAt, updatedAt int64

	err := row.Scan(
		&j.ID, &j.CompanyID, &rawJobID, &j.Title, &j.Description, &j.SourceURL, &j.RoleFamily,
		&j.RoleSpecialization, &j.Seniority, &j.LocationType, &locationsJSON, &skillsJSON,
		&minSalary, &maxSalary, &j.EmploymentType, &postedAt, &freshnessScore, &j.IsActive,
		&lastVerifiedAt, &delistedAt, &j.DelistReason, &enrichFailedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	j.RawJobID = rawJobID.String
	json.Unmarshal([]byte(locationsJSON), &j.Locations)
	json.Unmarshal([]byte(skillsJSON), &j.Skills)

	if minSalary.Valid {
		v := int(minSalary.Int64)
		j.MinSalary = &v
	}
	if maxSalary.Valid {
		v := int(maxSalary.Int64)
		j.MaxSalary = &v
	}
	if freshnessScore.Valid {
		j.FreshnessScore = &freshnessScore.Float64
	}
	if postedAt.Valid {
		t := time.Unix(postedAt.Int64, 0).UTC()
		j.PostedAt = &t
	}
	if lastVerifiedAt.Valid {
		t := time.Unix(lastVerifiedAt.Int64, 0).UTC()
		j.LastVerifiedAt = &t
	}
	if delistedAt.Valid {
		t := time.Unix(delistedAt.Int64, 0).UTC()
		j.DelistedAt = &t
	}
	if enrichFailedAt.Valid {
		t := time.Unix(enrichFailedAt.Int64, 0).UTC()
		j.EnrichFailedAt = &t
	}
	j.CreatedAt = time.Unix(createdAt, 0).UTC()
	j.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &j, nil
}

// Get returns the Job with the given id.
func (s *JobStorage) Get(ctx context.Context, id string) (*models.Job, error) {
	row := s.db.DB().QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting job %s: %w", id, err)
	}
	return j, nil
}

// GetByCompanyAndURL returns the Job for (companyID, sourceURL), or nil.
func (s *JobStorage) GetByCompanyAndURL(ctx context.Context, companyID, sourceURL string) (*models.Job, error) {
	row := s.db.DB().QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE company_id = ? AND source_url = ?`, companyID, sourceURL)
	j, err := scanJob(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting job %s/%s: %w", companyID, sourceURL, err)
	}
	return j, nil
}

// Upsert inserts j or updates the existing row for the same
// (CompanyID, SourceURL) key.
func (s *JobStorage) Upsert(ctx context.Context, j *models.Job) error {
	if j.ID == "" {
		return fmt.Errorf("job id is required")
	}
	now := time.Now().UTC()
	if j.CreatedAt.IsZero() {
		j.CreatedAt = now
	}
	j.UpdatedAt = now

	locationsJSON, _ := json.Marshal(j.Locations)
	skillsJSON, _ := json.Marshal(j.Skills)

	query := `
		INSERT INTO jobs (
			id, company_id, raw_job_id, title, description, source_url, role_family,
			role_specialization, seniority, location_type, locations_json, skills_json, min_salary,
			max_salary, employment_type, posted_at, freshness_score, is_active, last_verified_at,
			delisted_at, delist_reason, enrich_failed_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, source_url) DO UPDATE SET
			raw_job_id = excluded.raw_job_id,
			title = excluded.title,
			description = excluded.description,
			role_family = excluded.role_family,
			role_specialization = excluded.role_specialization,
			seniority = excluded.seniority,
			location_type = excluded.location_type,
			locations_json = excluded.locations_json,
			skills_json = excluded.skills_json,
			min_salary = excluded.min_salary,
			max_salary = excluded.max_salary,
			employment_type = excluded.employment_type,
			posted_at = excluded.posted_at,
			freshness_score = excluded.freshness_score,
			is_active = excluded.is_active,
			last_verified_at = excluded.last_verified_at,
			delisted_at = excluded.delisted_at,
			delist_reason = excluded.delist_reason,
			enrich_failed_at = excluded.enrich_failed_at,
			updated_at = excluded.updated_at
	`
	var minSalary, maxSalary any
	if j.MinSalary != nil {
		minSalary = *j.MinSalary
	}
	if j.MaxSalary != nil {
		maxSalary = *j.MaxSalary
	}
	var freshness any
	if j.FreshnessScore != nil {
		freshness = *j.FreshnessScore
	}

	_, err := s.db.DB().ExecContext(ctx, query,
		j.ID, j.CompanyID, nullableString(j.RawJobID), j.Title, j.Description, j.SourceURL, j.RoleFamily,
		j.RoleSpecialization, j.Seniority, j.LocationType, string(locationsJSON), string(skillsJSON),
		minSalary, maxSalary, j.EmploymentType, nullableTime(j.PostedAt), freshness, j.IsActive,
		nullableTime(j.LastVerifiedAt), nullableTime(j.DelistedAt), j.DelistReason,
		nullableTime(j.EnrichFailedAt), j.CreatedAt.Unix(), j.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upserting job %s: %w", j.ID, err)
	}
	return nil
}

// ListActiveByCompany returns every active Job for companyID.
func (s *JobStorage) ListActiveByCompany(ctx context.Context, companyID string) ([]*models.Job, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE company_id = ? AND is_active = 1`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing active jobs for company %s: %w", companyID, err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListNeedingEnrichment returns active jobs lacking a description that
// have not previously failed enrichment, oldest-created first. An
// empty atsFamily returns jobs across every family ("enrich_all");
// otherwise the result is restricted to jobs whose Company was
// detected as that family ("enrich_<family>" shards).
func (s *JobStorage) ListNeedingEnrichment(ctx context.Context, atsFamily string, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumnsQualified + ` FROM jobs
		JOIN companies ON companies.id = jobs.company_id
		WHERE jobs.is_active = 1 AND jobs.description = '' AND jobs.enrich_failed_at IS NULL`
	args := []any{}
	if atsFamily != "" {
		query += ` AND companies.ats_family = ?`
		args = append(args, atsFamily)
	}
	query += ` ORDER BY jobs.created_at ASC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing jobs needing enrichment: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// ListNeedingEmbedding returns active jobs with a description but no
// stored embedding yet.
func (s *JobStorage) ListNeedingEmbedding(ctx context.Context, limit int) ([]*models.Job, error) {
	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE is_active = 1 AND description != ''
			AND id NOT IN (SELECT job_id FROM job_embeddings)
		ORDER BY created_at ASC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing jobs needing embedding: %w", err)
	}
	defer rows.Close()
	return scanJobs(rows)
}

// SetEmbedding stores embedding for jobID, overwriting any prior value.
func (s *JobStorage) SetEmbedding(ctx context.Context, jobID string, embedding []float32) error {
	encoded, err := encodeEmbedding(embedding)
	if err != nil {
		return fmt.Errorf("encoding embedding for job %s: %w", jobID, err)
	}
	_, err = s.db.DB().ExecContext(ctx, `
		INSERT INTO job_embeddings (job_id, embedding, dimensions, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(job_id) DO UPDATE SET embedding = excluded.embedding, dimensions = excluded.dimensions, updated_at = excluded.updated_at
	`, jobID, encoded, len(embedding), time.Now().UTC().Unix())
	if err != nil {
		return fmt.Errorf("storing embedding for job %s: %w", jobID, err)
	}
	return nil
}

// Count returns the total number of jobs.
func (s *JobStorage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting jobs: %w", err)
	}
	return n, nil
}

func scanJobs(rows *sql.Rows) ([]*models.Job, error) {
	var out []*models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job row: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// encodeEmbedding packs a []float32 as little-endian bytes for BLOB
// storage, matching the layout the sqlite-vec extension expects.
func encodeEmbedding(v []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	for _, f := range v {
		if err := binary.Write(buf, binary.LittleEndian, math.Float32bits(f)); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// decodeEmbedding reverses encodeEmbedding.
func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
	}
	out := make([]float32, len(b)/4)
	reader := bytes.NewReader(b)
	for i := range out {
		var bits uint32
		if err := binary.Read(reader, binary.LittleEndian, &bits); err != nil {
			return nil, err
		}
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}
