package models

import "time"

// JobBoardListing records whether a verification pass found a Job
// mirrored on a third-party job board. Unique on (JobID, Board).
type JobBoardListing struct {
	ID    string `json:"id" db:"id"`
	JobID string `json:"job_id" db:"job_id"`
	Board string `json:"board" db:"board"`

	Found      bool    `json:"found" db:"found"`
	Confidence float64 `json:"confidence" db:"confidence"`

	ListingURL        string `json:"listing_url,omitempty" db:"listing_url"`
	SearchQuery       string `json:"search_query,omitempty" db:"search_query"`
	SearchResultCount int    `json:"search_result_count,omitempty" db:"search_result_count"`

	VerifiedAt time.Time `json:"verified_at" db:"verified_at"`
}
