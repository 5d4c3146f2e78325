package models

import "time"

// DiscoveryQueue status values.
const (
	DiscoveryQueueStatusPending    = "pending"
	DiscoveryQueueStatusProcessing = "processing"
	DiscoveryQueueStatusCompleted  = "completed"
	DiscoveryQueueStatusFailed     = "failed"
	DiscoveryQueueStatusSkipped    = "skipped"
	DiscoveryQueueStatusReview     = "review"
)

// MaxQueueRetries is the retry ceiling after which a failing queue row
// is marked permanently failed rather than retried again.
const MaxQueueRetries = 3

// DiscoveryQueue holds a company candidate a Discovery Source emitted
// without both a careers URL and complete data; queue processing later
// promotes it to a Company or marks it failed/review.
type DiscoveryQueue struct {
	ID string `json:"id" db:"id"`

	Name       string `json:"name" db:"name"`
	Domain     string `json:"domain,omitempty" db:"domain"`
	CareersURL string `json:"careers_url,omitempty" db:"careers_url"`
	WebsiteURL string `json:"website_url,omitempty" db:"website_url"`

	Source    string `json:"source" db:"source"`
	SourceURL string `json:"source_url,omitempty" db:"source_url"`

	Location      string `json:"location,omitempty" db:"location"`
	Country       string `json:"country,omitempty" db:"country"`
	Description   string `json:"description,omitempty" db:"description"`
	Industry      string `json:"industry,omitempty" db:"industry"`
	EmployeeCount int    `json:"employee_count,omitempty" db:"employee_count"`
	FundingStage  string `json:"funding_stage,omitempty" db:"funding_stage"`

	ATSFamily     string `json:"ats_family,omitempty" db:"ats_family"`
	ATSIdentifier string `json:"ats_identifier,omitempty" db:"ats_identifier"`

	Status       string `json:"status" db:"status"`
	ErrorMessage string `json:"error_message,omitempty" db:"error_message"`
	RetryCount   int    `json:"retry_count" db:"retry_count"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty" db:"processed_at"`
	CompanyID   string     `json:"company_id,omitempty" db:"company_id"`
}

// DiscoveredCompany is the value a Discovery Source yields from its
// discover() stream, before the Orchestrator applies the admission rule.
type DiscoveredCompany struct {
	Name       string
	Domain     string
	CareersURL string
	WebsiteURL string

	Source    string
	SourceURL string

	Location      string
	Country       string
	Description   string
	Industry      string
	EmployeeCount int
	FundingStage  string

	ATSFamily     string
	ATSIdentifier string
}

// HasCompleteData reports whether the emission carries enough to insert
// a Company directly rather than parking it in the DiscoveryQueue.
func (d DiscoveredCompany) HasCompleteData() bool {
	return d.Domain != "" && d.CareersURL != ""
}
