package models

import "time"

// JobRaw is the unparsed extraction of a single posting, unique on
// (CompanyID, SourceURL). Re-extraction of the same posting mutates the
// row in place rather than inserting a duplicate.
type JobRaw struct {
	ID                string    `json:"id" db:"id"`
	CompanyID         string    `json:"company_id" db:"company_id"`
	SourceURL         string    `json:"source_url" db:"source_url"`
	TitleRaw          string    `json:"title_raw" db:"title_raw"`
	DescriptionRaw    string    `json:"description_raw,omitempty" db:"description_raw"`
	LocationRaw       string    `json:"location_raw,omitempty" db:"location_raw"`
	DepartmentRaw     string    `json:"department_raw,omitempty" db:"department_raw"`
	EmploymentTypeRaw string    `json:"employment_type_raw,omitempty" db:"employment_type_raw"`
	PostedAtRaw       string    `json:"posted_at_raw,omitempty" db:"posted_at_raw"`
	SalaryRaw         string    `json:"salary_raw,omitempty" db:"salary_raw"`
	ExtractedAt       time.Time `json:"extracted_at" db:"extracted_at"`
}

// Role family enum values produced by the Normalizer.
const (
	RoleFamilyEngineering     = "engineering"
	RoleFamilyProduct         = "product"
	RoleFamilyDesign          = "design"
	RoleFamilySales           = "sales"
	RoleFamilyMarketing       = "marketing"
	RoleFamilyOperations      = "operations"
	RoleFamilyFinance         = "finance"
	RoleFamilyHR              = "hr"
	RoleFamilyLegal           = "legal"
	RoleFamilyCustomerSuccess = "customer_success"
	RoleFamilyData            = "data"
	RoleFamilyOther           = "other"
)

// Seniority enum values, precedence-ordered when matched by keyword.
const (
	SeniorityIntern    = "intern"
	SeniorityEntry     = "entry"
	SeniorityMid       = "mid"
	SenioritySenior    = "senior"
	SeniorityStaff     = "staff"
	SeniorityPrincipal = "principal"
	SeniorityLead      = "lead"
	SeniorityManager   = "manager"
	SeniorityDirector  = "director"
	SeniorityVP        = "vp"
	SeniorityExec      = "exec"
)

// Location types the Normalizer assigns to a posting.
const (
	LocationTypeRemote = "remote"
	LocationTypeHybrid = "hybrid"
	LocationTypeOnsite = "onsite"
)

// Delist reasons recorded when Job.IsActive flips to false.
const (
	DelistReasonRemovedFromATS  = "removed_from_ats"
	DelistReasonCompanyInactive = "company_inactive"
	DelistReasonPageNotFound    = "page_not_found"
)

// Job is the canonical, normalized posting. Unique on (CompanyID,
// SourceURL); a Job exists iff a JobRaw exists for the same key.
// IsActive=false is the only representation of "delisted" — rows are
// never deleted.
type Job struct {
	ID        string `json:"id" db:"id"`
	CompanyID string `json:"company_id" db:"company_id"`
	RawJobID  string `json:"raw_job_id,omitempty" db:"raw_job_id"`

	Title       string `json:"title" db:"title"`
	Description string `json:"description,omitempty" db:"description"`
	SourceURL   string `json:"source_url" db:"source_url"`

	RoleFamily         string `json:"role_family" db:"role_family"`
	RoleSpecialization string `json:"role_specialization,omitempty" db:"role_specialization"`
	Seniority          string `json:"seniority,omitempty" db:"seniority"`
	LocationType       string `json:"location_type,omitempty" db:"location_type"`
	Locations          []string `json:"locations,omitempty" db:"-"`
	Skills             []string `json:"skills,omitempty" db:"-"`

	MinSalary      *int    `json:"min_salary,omitempty" db:"min_salary"`
	MaxSalary      *int    `json:"max_salary,omitempty" db:"max_salary"`
	EmploymentType string  `json:"employment_type,omitempty" db:"employment_type"`

	PostedAt       *time.Time `json:"posted_at,omitempty" db:"posted_at"`
	FreshnessScore *float64   `json:"freshness_score,omitempty" db:"freshness_score"`
	Embedding      []float32  `json:"embedding,omitempty" db:"-"`

	IsActive       bool       `json:"is_active" db:"is_active"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty" db:"last_verified_at"`
	DelistedAt     *time.Time `json:"delisted_at,omitempty" db:"delisted_at"`
	DelistReason   string     `json:"delist_reason,omitempty" db:"delist_reason"`
	EnrichFailedAt *time.Time `json:"enrich_failed_at,omitempty" db:"enrich_failed_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NeedsEnrichment reports whether the Job still lacks a description and
// hasn't previously failed enrichment.
func (j *Job) NeedsEnrichment() bool {
	return j.Description == "" && j.IsActive && j.EnrichFailedAt == nil
}

// Delist marks the Job inactive with the given reason. Rows are never
// deleted; this is the only representation of "removed".
func (j *Job) Delist(reason string, at time.Time) {
	j.IsActive = false
	j.DelistedAt = &at
	j.DelistReason = reason
}
