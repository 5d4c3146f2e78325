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

// CompanyStorage implements interfaces.CompanyStorage for SQLite.
type CompanyStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewCompanyStorage builds a CompanyStorage over db.
func NewCompanyStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.CompanyStorage {
	return &CompanyStorage{db: db, logger: logger}
}

const companyColumns = `id, name, domain, careers_url, website_url, ats_family, ats_identifier,
	parent_company_id, discovery_source, country, location, industry, employee_count,
	funding_stage, crawl_priority, is_active, last_crawled_at, last_maintenance_at,
	last_crawled_for_network, ats_detection_attempts, ats_detection_last_at, created_at`

func scanCompany(row interface{ Scan(...any) error }) (*models.Company, error) {
	var c models.Company
	var parentID, discoverySource sql.NullString
	var lastCrawledAt, lastMaintenanceAt, lastCrawledForNetwork, atsDetectionLastAt sql.NullInt64
	var createdAt int64

	err := row.Scan(
		&c.ID, &c.Name, &c.Domain, &c.CareersURL, &c.WebsiteURL, &c.ATSFamily, &c.ATSIdentifier,
		&parentID, &discoverySource, &c.Country, &c.Location, &c.Industry, &c.EmployeeCount,
		&c.FundingStage, &c.CrawlPriority, &c.IsActive, &lastCrawledAt, &lastMaintenanceAt,
		&lastCrawledForNetwork, &c.ATSDetectionAttempts, &atsDetectionLastAt, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	c.ParentCompanyID = parentID.String
	c.DiscoverySource = discoverySource.String
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	if lastCrawledAt.Valid {
		t := time.Unix(lastCrawledAt.Int64, 0).UTC()
		c.LastCrawledAt = &t
	}
	if lastMaintenanceAt.Valid {
		t := time.Unix(lastMaintenanceAt.Int64, 0).UTC()
		c.LastMaintenanceAt = &t
	}
	if lastCrawledForNetwork.Valid {
		t := time.Unix(lastCrawledForNetwork.Int64, 0).UTC()
		c.LastCrawledForNetwork = &t
	}
	if atsDetectionLastAt.Valid {
		t := time.Unix(atsDetectionLastAt.Int64, 0).UTC()
		c.ATSDetectionLastAt = &t
	}
	return &c, nil
}

// Get returns the Company with the given id.
func (s *CompanyStorage) Get(ctx context.Context, id string) (*models.Company, error) {
	row := s.db.DB().QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting company %s: %w", id, err)
	}
	return c, nil
}

// GetByDomain returns the Company with the given domain, or nil if none.
func (s *CompanyStorage) GetByDomain(ctx context.Context, domain string) (*models.Company, error) {
	row := s.db.DB().QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE domain = ?`, domain)
	c, err := scanCompany(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting company by domain %s: %w", domain, err)
	}
	return c, nil
}

// Upsert inserts c or updates the existing row sharing its domain.
func (s *CompanyStorage) Upsert(ctx context.Context, c *models.Company) error {
	if c.ID == "" {
		return fmt.Errorf("company id is required")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO companies (
			id, name, domain, careers_url, website_url, ats_family, ats_identifier,
			parent_company_id, discovery_source, country, location, industry, employee_count,
			funding_stage, crawl_priority, is_active, last_crawled_at, last_maintenance_at,
			last_crawled_for_network, ats_detection_attempts, ats_detection_last_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			domain = excluded.domain,
			careers_url = excluded.careers_url,
			website_url = excluded.website_url,
			ats_family = excluded.ats_family,
			ats_identifier = excluded.ats_identifier,
			parent_company_id = excluded.parent_company_id,
			discovery_source = excluded.discovery_source,
			country = excluded.country,
			location = excluded.location,
			industry = excluded.industry,
			employee_count = excluded.employee_count,
			funding_stage = excluded.funding_stage,
			crawl_priority = excluded.crawl_priority,
			is_active = excluded.is_active,
			last_crawled_at = excluded.last_crawled_at,
			last_maintenance_at = excluded.last_maintenance_at,
			last_crawled_for_network = excluded.last_crawled_for_network,
			ats_detection_attempts = excluded.ats_detection_attempts,
			ats_detection_last_at = excluded.ats_detection_last_at
	`

	_, err := s.db.DB().ExecContext(ctx, query,
		c.ID, c.Name, c.Domain, c.CareersURL, c.WebsiteURL, c.ATSFamily, c.ATSIdentifier,
		nullableString(c.ParentCompanyID), nullableString(c.DiscoverySource), c.Country, c.Location,
		c.Industry, c.EmployeeCount, c.FundingStage, c.CrawlPriority, c.IsActive,
		nullableTime(c.LastCrawledAt), nullableTime(c.LastMaintenanceAt), nullableTime(c.LastCrawledForNetwork),
		c.ATSDetectionAttempts, nullableTime(c.ATSDetectionLastAt), c.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upserting company %s: %w", c.ID, err)
	}
	return nil
}

// ListActive returns active companies ordered by crawl priority.
func (s *CompanyStorage) ListActive(ctx context.Context, limit, offset int) ([]*models.Company, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE is_active = 1 ORDER BY crawl_priority DESC, created_at ASC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing active companies: %w", err)
	}
	defer rows.Close()
	return scanCompanies(rows)
}

// ListByATSFamily returns active companies detected as the given family.
func (s *CompanyStorage) ListByATSFamily(ctx context.Context, family string, limit, offset int) ([]*models.Company, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE is_active = 1 AND ats_family = ? ORDER BY crawl_priority DESC LIMIT ? OFFSET ?`,
		family, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing companies for family %s: %w", family, err)
	}
	defer rows.Close()
	return scanCompanies(rows)
}

// ListNeedingNetworkCrawl returns active companies whose network-crawl
// pass is stale or has never run, oldest first.
func (s *CompanyStorage) ListNeedingNetworkCrawl(ctx context.Context, limit int) ([]*models.Company, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE is_active = 1
			ORDER BY (last_crawled_for_network IS NOT NULL), last_crawled_for_network ASC LIMIT ?`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("listing companies needing network crawl: %w", err)
	}
	defer rows.Close()
	return scanCompanies(rows)
}

// ListDomains returns every known company domain.
func (s *CompanyStorage) ListDomains(ctx context.Context) ([]string, error) {
	rows, err := s.db.DB().QueryContext(ctx, `SELECT domain FROM companies WHERE domain != ''`)
	if err != nil {
		return nil, fmt.Errorf("listing company domains: %w", err)
	}
	defer rows.Close()

	var domains []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// ListATSPairs returns a map of "family|identifier" to company id for
// every known (family, identifier) pair.
func (s *CompanyStorage) ListATSPairs(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		`SELECT id, ats_family, ats_identifier FROM companies WHERE ats_family != '' AND ats_identifier != ''`)
	if err != nil {
		return nil, fmt.Errorf("listing ats pairs: %w", err)
	}
	defer rows.Close()

	pairs := make(map[string]string)
	for rows.Next() {
		var id, family, identifier string
		if err := rows.Scan(&id, &family, &identifier); err != nil {
			return nil, fmt.Errorf("scanning ats pair: %w", err)
		}
		pairs[family+"|"+identifier] = id
	}
	return pairs, rows.Err()
}

// Count returns the total number of companies.
func (s *CompanyStorage) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM companies`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting companies: %w", err)
	}
	return n, nil
}

func scanCompanies(rows *sql.Rows) ([]*models.Company, error) {
	var out []*models.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning company row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}
