package models

import "time"

// Company is a prospective or known employer tracked by the pipeline.
// Unique on Domain. A subsidiary Company may reference ParentCompanyID
// when its careers page redirects to the parent's ATS board.
type Company struct {
	ID     string `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Domain string `json:"domain,omitempty" db:"domain"`

	CareersURL string `json:"careers_url,omitempty" db:"careers_url"`
	WebsiteURL string `json:"website_url,omitempty" db:"website_url"`

	// ATSFamily is nil/"" until the Detector identifies one, "custom"
	// once the JS-rendering path is the explicit route, or
	// "uses_parent_ats" for subsidiary redirects. Kept distinct from
	// "not yet detected" per the Detector's design notes.
	ATSFamily     string `json:"ats_family,omitempty" db:"ats_family"`
	ATSIdentifier string `json:"ats_identifier,omitempty" db:"ats_identifier"`

	ParentCompanyID  string `json:"parent_company_id,omitempty" db:"parent_company_id"`
	DiscoverySource  string `json:"discovery_source,omitempty" db:"discovery_source"`
	Country          string `json:"country,omitempty" db:"country"`
	Location         string `json:"location,omitempty" db:"location"`
	Industry         string `json:"industry,omitempty" db:"industry"`
	EmployeeCount    int    `json:"employee_count,omitempty" db:"employee_count"`
	FundingStage     string `json:"funding_stage,omitempty" db:"funding_stage"`

	CrawlPriority int  `json:"crawl_priority" db:"crawl_priority"`
	IsActive      bool `json:"is_active" db:"is_active"`

	LastCrawledAt          *time.Time `json:"last_crawled_at,omitempty" db:"last_crawled_at"`
	LastMaintenanceAt      *time.Time `json:"last_maintenance_at,omitempty" db:"last_maintenance_at"`
	LastCrawledForNetwork  *time.Time `json:"last_crawled_for_network,omitempty" db:"last_crawled_for_network"`

	ATSDetectionAttempts int        `json:"ats_detection_attempts" db:"ats_detection_attempts"`
	ATSDetectionLastAt   *time.Time `json:"ats_detection_last_at,omitempty" db:"ats_detection_last_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ATS family constants. Only Greenhouse, Lever, Ashby, and Workable have a
// dedicated JSON-API Extractor and Enricher; the remaining families are
// detectable/classifiable so the Crawl Engine can at least route them to
// the HTML/generic extraction path.
const (
	ATSFamilyGreenhouse      = "greenhouse"
	ATSFamilyLever           = "lever"
	ATSFamilyAshby           = "ashby"
	ATSFamilyWorkable        = "workable"
	ATSFamilyWorkday         = "workday"
	ATSFamilyBambooHR        = "bamboohr"
	ATSFamilyZohoRecruit     = "zoho_recruit"
	ATSFamilyBullhorn        = "bullhorn"
	ATSFamilyGem             = "gem"
	ATSFamilyJazzHR          = "jazzhr"
	ATSFamilyFreshteam       = "freshteam"
	ATSFamilyRecruitee       = "recruitee"
	ATSFamilyPinpoint        = "pinpoint"
	ATSFamilyPCRecruiter     = "pcrecruiter"
	ATSFamilyRecruitCRM      = "recruitcrm"
	ATSFamilyManatal         = "manatal"
	ATSFamilyRecooty         = "recooty"
	ATSFamilySuccessFactors  = "successfactors"
	ATSFamilyGoHire          = "gohire"
	ATSFamilyFolksHR         = "folkshr"
	ATSFamilyBoon            = "boon"
	ATSFamilyTalentReef      = "talentreef"
	ATSFamilyEddy            = "eddy"
	ATSFamilyJobvite         = "jobvite"
	ATSFamilyICIMS           = "icims"
	ATSFamilySmartRecruiters = "smartrecruiters"
	ATSFamilyRippling        = "rippling"
	ATSFamilyScalis          = "scalis"
	ATSFamilyPaylocity       = "paylocity"
	ATSFamilyBreezy          = "breezy"
	ATSFamilyPersonio        = "personio"
	ATSFamilyTeamtailor      = "teamtailor"
	ATSFamilyWellfound       = "wellfound"

	// ATSFamilyCustom marks a company explicitly routed to the
	// JS-rendering path after detection attempts are exhausted.
	ATSFamilyCustom = "custom"
	// ATSFamilyUsesParentATS marks a subsidiary whose careers page
	// redirects to a parent Company's ATS board.
	ATSFamilyUsesParentATS = "uses_parent_ats"
)

// FamiliesWithAPIClient lists the families with a JSON-API-calling
// Extractor and Enricher.
var FamiliesWithAPIClient = map[string]bool{
	ATSFamilyGreenhouse: true,
	ATSFamilyLever:      true,
	ATSFamilyAshby:      true,
	ATSFamilyWorkable:   true,
}
