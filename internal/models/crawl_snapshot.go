package models

import "time"

// CrawlSnapshot is an append-only record of a fetched careers/ATS page.
// A new row is written only when the body hash differs from the most
// recent snapshot for the Company; otherwise only Company.LastCrawledAt
// is bumped.
type CrawlSnapshot struct {
	ID          string    `json:"id" db:"id"`
	CompanyID   string    `json:"company_id" db:"company_id"`
	URL         string    `json:"url" db:"url"`
	HTMLHash    string    `json:"html_hash" db:"html_hash"` // hex-encoded SHA-256
	HTMLContent string    `json:"html_content,omitempty" db:"html_content"`
	StatusCode  int       `json:"status_code,omitempty" db:"status_code"`
	Rendered    bool      `json:"rendered" db:"rendered"`
	CrawledAt   time.Time `json:"crawled_at" db:"crawled_at"`
}
