// Package ats provides the ATS Registry and Detector: the static family
// table, the five-step detection pipeline, and the careers-URL discovery
// helper with its cross-tenant collision guard.
package ats

import (
	"strings"

	"github.com/ternarybob/atsforge/internal/interfaces"
	"github.com/ternarybob/atsforge/internal/models"
)

// registry is the package-level static table; it never mutates after
// init, so it needs no locking.
type registry struct {
	families []interfaces.ATSFamilyEntry
	byName   map[string]interfaces.ATSFamilyEntry
}

// NewRegistry builds the ATS Registry. Only greenhouse/lever/ashby/
// workable carry HasAPIClient=true and a populated APITemplate; the
// remaining families are detectable/classifiable only, routed to the
// HTML/generic extractor path once identified.
func NewRegistry() interfaces.ATSRegistry {
	entries := []interfaces.ATSFamilyEntry{
		{
			Family:             models.ATSFamilyGreenhouse,
			URLPatterns:        []string{`boards\.greenhouse\.io/([a-z0-9\-]+)`, `job-boards\.greenhouse\.io/([a-z0-9\-]+)`, `boards-api\.greenhouse\.io/v1/boards/([a-z0-9\-]+)`},
			HTMLPatterns:       []string{"greenhouse.io", "boards.greenhouse", "gh_jid", "grnh.se"},
			EmbedPatterns:      []string{`greenhouse\.io/embed/job_board\?for=([a-z0-9\-]+)`, `boards\.greenhouse\.io/([a-z0-9\-]+)/embed`},
			APITemplate:        "https://boards-api.greenhouse.io/v1/boards/{id}/jobs/{job_id}",
			ListAPITemplate:    "https://boards-api.greenhouse.io/v1/boards/{id}/jobs",
			CareersURLTemplate: "https://boards.greenhouse.io/{id}",
			HasAPIClient:       true,
		},
		{
			Family:             models.ATSFamilyLever,
			URLPatterns:        []string{`jobs\.lever\.co/([a-z0-9\-]+)`},
			HTMLPatterns:       []string{"lever.co", "jobs.lever"},
			EmbedPatterns:      []string{`jobs\.lever\.co/([a-z0-9\-]+)/embed`},
			APITemplate:        "https://jobs.lever.co/{id}?mode=json",
			ListAPITemplate:    "https://jobs.lever.co/{id}?mode=json",
			CareersURLTemplate: "https://jobs.lever.co/{id}",
			HasAPIClient:       true,
		},
		{
			Family:             models.ATSFamilyAshby,
			URLPatterns:        []string{`jobs\.ashbyhq\.com/([a-z0-9\-]+)`, `api\.ashbyhq\.com/posting-api/job-board/([a-z0-9\-]+)`},
			HTMLPatterns:       []string{"ashbyhq.com", "ashby_jid"},
			EmbedPatterns:      []string{`ashbyhq\.com/([a-z0-9\-]+)/embed`},
			APITemplate:        "https://api.ashbyhq.com/posting-api/job-board/{id}/posting/{job_id}",
			ListAPITemplate:    "https://api.ashbyhq.com/posting-api/job-board/{id}",
			CareersURLTemplate: "https://jobs.ashbyhq.com/{id}",
			HasAPIClient:       true,
		},
		{
			Family:             models.ATSFamilyWorkable,
			URLPatterns:        []string{`apply\.workable\.com/([a-z0-9\-]+)`, `([a-z0-9\-]+)\.workable\.com`},
			HTMLPatterns:       []string{"workable.com"},
			EmbedPatterns:      []string{`workable\.com/embed/([a-z0-9\-]+)`},
			APITemplate:        "https://apply.workable.com/api/v2/accounts/{id}/jobs/{job_id}",
			ListAPITemplate:    "https://apply.workable.com/api/v1/widget/accounts/{id}",
			CareersURLTemplate: "https://apply.workable.com/{id}",
			HasAPIClient:       true,
		},
		{
			Family:             models.ATSFamilyWorkday,
			URLPatterns:        []string{`([a-z0-9\-]+)\.myworkdayjobs\.com`},
			HTMLPatterns:       []string{"myworkdayjobs.com", "workday"},
			CareersURLTemplate: "https://{id}.myworkdayjobs.com/en-US/External",
		},
		{
			Family:             models.ATSFamilyBambooHR,
			URLPatterns:        []string{`([a-z0-9\-]+)\.bamboohr\.com/careers`, `([a-z0-9\-]+)\.bamboohr\.com/jobs`},
			HTMLPatterns:       []string{"bamboohr.com"},
			CareersURLTemplate: "https://{id}.bamboohr.com/careers",
		},
		{
			Family:             models.ATSFamilyZohoRecruit,
			URLPatterns:        []string{`([a-z0-9\-]+)\.zohorecruit\.com`},
			HTMLPatterns:       []string{"zohorecruit.com"},
			CareersURLTemplate: "https://{id}.zohorecruit.com/jobs/Careers",
		},
		{
			Family:       models.ATSFamilyBullhorn,
			URLPatterns:  []string{`([a-z0-9\-]+)\.bullhornstaffing\.com`},
			HTMLPatterns: []string{"bullhorn"},
		},
		{
			Family:             models.ATSFamilyGem,
			URLPatterns:        []string{`jobs\.gem\.com/([a-z0-9\-]+)`},
			HTMLPatterns:       []string{"gem.com/jobs", "jobs.gem.com"},
			CareersURLTemplate: "https://jobs.gem.com/{id}",
		},
		{
			Family:             models.ATSFamilyJazzHR,
			URLPatterns:        []string{`([a-z0-9\-]+)\.applytojob\.com`},
			HTMLPatterns:       []string{"applytojob.com", "jazzhr"},
			CareersURLTemplate: "https://{id}.applytojob.com",
		},
		{
			Family:             models.ATSFamilyFreshteam,
			URLPatterns:        []string{`([a-z0-9\-]+)\.freshteam\.com`},
			HTMLPatterns:       []string{"freshteam.com"},
			CareersURLTemplate: "https://{id}.freshteam.com/jobs",
		},
		{
			Family:             models.ATSFamilyRecruitee,
			URLPatterns:        []string{`([a-z0-9\-]+)\.recruitee\.com`},
			HTMLPatterns:       []string{"recruitee.com"},
			CareersURLTemplate: "https://{id}.recruitee.com",
		},
		{
			Family:             models.ATSFamilyPinpoint,
			URLPatterns:        []string{`([a-z0-9\-]+)\.pinpointhq\.com`},
			HTMLPatterns:       []string{"pinpointhq.com"},
			CareersURLTemplate: "https://{id}.pinpointhq.com",
		},
		{
			Family:       models.ATSFamilyPCRecruiter,
			URLPatterns:  []string{`pcrecruiter\.net`},
			HTMLPatterns: []string{"pcrecruiter.net"},
		},
		{
			Family:             models.ATSFamilyRecruitCRM,
			URLPatterns:        []string{`([a-z0-9\-]+)\.recruitcrm\.io`},
			HTMLPatterns:       []string{"recruitcrm.io"},
			CareersURLTemplate: "https://{id}.recruitcrm.io",
		},
		{
			Family:             models.ATSFamilyManatal,
			URLPatterns:        []string{`([a-z0-9\-]+)\.manatal\.com`},
			HTMLPatterns:       []string{"manatal.com"},
			CareersURLTemplate: "https://{id}.manatal.com/career",
		},
		{
			Family:             models.ATSFamilyRecooty,
			URLPatterns:        []string{`([a-z0-9\-]+)\.recooty\.com`},
			HTMLPatterns:       []string{"recooty.com"},
			CareersURLTemplate: "https://{id}.recooty.com",
		},
		{
			Family:       models.ATSFamilySuccessFactors,
			URLPatterns:  []string{`([a-z0-9\-]+)\.(?:career[a-z0-9]*\.)?successfactors\.com`},
			HTMLPatterns: []string{"successfactors.com"},
		},
		{
			Family:             models.ATSFamilyGoHire,
			URLPatterns:        []string{`([a-z0-9\-]+)\.gohire\.io`},
			HTMLPatterns:       []string{"gohire.io"},
			CareersURLTemplate: "https://{id}.gohire.io",
		},
		{
			Family:       models.ATSFamilyFolksHR,
			URLPatterns:  []string{`([a-z0-9\-]+)\.folkshr\.com`},
			HTMLPatterns: []string{"folkshr.com"},
		},
		{
			Family:       models.ATSFamilyBoon,
			URLPatterns:  []string{`([a-z0-9\-]+)\.boon\.jobs`},
			HTMLPatterns: []string{"boon.jobs"},
		},
		{
			Family:       models.ATSFamilyTalentReef,
			URLPatterns:  []string{`([a-z0-9\-]+)\.talentreef\.com`},
			HTMLPatterns: []string{"talentreef.com"},
		},
		{
			Family:       models.ATSFamilyEddy,
			URLPatterns:  []string{`([a-z0-9\-]+)\.eddy\.com`},
			HTMLPatterns: []string{"eddy.com"},
		},
		{
			Family:             models.ATSFamilyJobvite,
			URLPatterns:        []string{`jobs\.jobvite\.com/([a-z0-9\-]+)`},
			HTMLPatterns:       []string{"jobvite.com"},
			CareersURLTemplate: "https://jobs.jobvite.com/{id}",
		},
		{
			Family:       models.ATSFamilyICIMS,
			URLPatterns:  []string{`([a-z0-9\-]+)\.icims\.com`},
			HTMLPatterns: []string{"icims.com"},
		},
		{
			Family:             models.ATSFamilySmartRecruiters,
			URLPatterns:        []string{`jobs\.smartrecruiters\.com/([a-zA-Z0-9\-]+)`},
			HTMLPatterns:       []string{"smartrecruiters.com"},
			CareersURLTemplate: "https://jobs.smartrecruiters.com/{id}",
		},
		{
			Family:       models.ATSFamilyRippling,
			URLPatterns:  []string{`ats\.rippling\.com/([a-z0-9\-]+)`},
			HTMLPatterns: []string{"rippling.com"},
		},
		{
			Family:       models.ATSFamilyScalis,
			URLPatterns:  []string{`([a-z0-9\-]+)\.scalis\.ai`},
			HTMLPatterns: []string{"scalis.ai"},
		},
		{
			Family:       models.ATSFamilyPaylocity,
			URLPatterns:  []string{`recruiting\.paylocity\.com/recruiting/jobs/[a-zA-Z0-9\-/]*\?clientid=([a-zA-Z0-9]+)`},
			HTMLPatterns: []string{"paylocity.com"},
		},
		{
			Family:             models.ATSFamilyBreezy,
			URLPatterns:        []string{`([a-z0-9\-]+)\.breezy\.hr`},
			HTMLPatterns:       []string{"breezy.hr"},
			CareersURLTemplate: "https://{id}.breezy.hr",
		},
		{
			Family:       models.ATSFamilyPersonio,
			URLPatterns:  []string{`([a-z0-9\-]+)\.(?:jobs\.)?personio\.(?:com|de)`},
			HTMLPatterns: []string{"personio.com", "personio.de"},
		},
		{
			Family:             models.ATSFamilyTeamtailor,
			URLPatterns:        []string{`([a-z0-9\-]+)\.teamtailor\.com`},
			HTMLPatterns:       []string{"teamtailor.com"},
			CareersURLTemplate: "https://{id}.teamtailor.com",
		},
		{
			Family:             models.ATSFamilyWellfound,
			URLPatterns:        []string{`wellfound\.com/company/([a-zA-Z0-9\-]+)/jobs`},
			HTMLPatterns:       []string{"wellfound.com"},
			CareersURLTemplate: "https://wellfound.com/company/{id}/jobs",
		},
	}

	r := &registry{families: entries, byName: make(map[string]interfaces.ATSFamilyEntry, len(entries))}
	for _, e := range entries {
		r.byName[e.Family] = e
	}
	return r
}

func (r *registry) Families() []interfaces.ATSFamilyEntry {
	return r.families
}

func (r *registry) Lookup(family string) (interfaces.ATSFamilyEntry, bool) {
	e, ok := r.byName[strings.ToLower(family)]
	return e, ok
}

// KnownATSDomains lists registrable domains that belong to an ATS vendor
// rather than to any single tenant company. Used by the careers-URL
// collision guard to tell a legitimate vendor redirect apart from a
// redirect to a different tenant's own domain.
var KnownATSDomains = map[string]bool{
	"greenhouse.io":       true,
	"grnh.se":             true,
	"lever.co":            true,
	"ashbyhq.com":         true,
	"workable.com":        true,
	"myworkdayjobs.com":   true,
	"bamboohr.com":        true,
	"zohorecruit.com":     true,
	"bullhornstaffing.com": true,
	"gem.com":             true,
	"applytojob.com":      true,
	"freshteam.com":       true,
	"recruitee.com":       true,
	"pinpointhq.com":      true,
	"pcrecruiter.net":     true,
	"recruitcrm.io":       true,
	"manatal.com":         true,
	"recooty.com":         true,
	"successfactors.com":  true,
	"gohire.io":           true,
	"folkshr.com":         true,
	"boon.jobs":           true,
	"talentreef.com":      true,
	"eddy.com":            true,
	"jobvite.com":         true,
	"icims.com":           true,
	"smartrecruiters.com": true,
	"rippling.com":        true,
	"scalis.ai":           true,
	"paylocity.com":       true,
	"breezy.hr":           true,
	"personio.com":        true,
	"personio.de":         true,
	"teamtailor.com":      true,
	"wellfound.com":       true,
}
