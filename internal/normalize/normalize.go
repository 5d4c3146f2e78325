// Package normalize implements the Normalizer: it turns a raw extracted
// job into the canonical fields on models.Job (role family, seniority,
// location type, skills, salary range, posted_at, freshness score).
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/atsforge/internal/models"
)

// DefaultHalfLife is the freshness decay half-life when config leaves
// it unset.
const DefaultHalfLife = 14 * 24 * time.Hour

// Normalizer derives models.Job canonical fields from raw extracted
// text. It holds no state beyond its configured half-life, so one
// instance is shared across every crawl/enrich worker.
type Normalizer struct {
	halfLife time.Duration
}

// New builds a Normalizer. A zero halfLife falls back to DefaultHalfLife.
func New(halfLife time.Duration) *Normalizer {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}
	return &Normalizer{halfLife: halfLife}
}

// Apply fills in j's canonical fields from its own Title/Description
// and the raw strings carried on the JobRaw this Job was built from
// (locationRaw, salaryRaw, postedAtRaw). now is injected so callers
// (and tests) control the freshness baseline.
func (n *Normalizer) Apply(j *models.Job, locationRaw, salaryRaw, postedAtRaw string, now time.Time) {
	j.RoleFamily, j.RoleSpecialization = classifyRole(j.Title)
	j.Seniority = classifySeniority(j.Title)
	j.LocationType, j.Locations = classifyLocation(locationRaw)
	j.Skills = matchSkills(j.Title + " " + j.Description)

	if min, max, ok := parseSalary(salaryRaw); ok {
		j.MinSalary, j.MaxSalary = min, max
	}

	if postedAt := parseFlexibleDate(postedAtRaw); postedAt != nil {
		j.PostedAt = postedAt
	}

	if j.PostedAt != nil {
		days := now.Sub(*j.PostedAt).Hours() / 24
		if days < 0 {
			days = 0
		}
		score := math.Pow(0.5, days/n.halfLife.Hours()*24)
		j.FreshnessScore = &score
	}
}

// roleFamilyPatterns is checked in order; the first match wins, so more
// specific families (data, design) are listed ahead of the broad
// engineering catch-all.
var roleFamilyPatterns = []struct {
	family string
	re     *regexp.Regexp
}{
	{models.RoleFamilyData, regexp.MustCompile(`(?i)\b(data scientist|data engineer|machine learning|ml engineer|analytics engineer)\b`)},
	{models.RoleFamilyDesign, regexp.MustCompile(`(?i)\b(designer|ux|ui/ux|product design)\b`)},
	{models.RoleFamilyProduct, regexp.MustCompile(`(?i)\b(product manager|product owner|\bpm\b)\b`)},
	{models.RoleFamilyEngineering, regexp.MustCompile(`(?i)\b(engineer|developer|swe|sre|devops|software)\b`)},
	{models.RoleFamilySales, regexp.MustCompile(`(?i)\b(sales|account executive|sdr|bdr|business development)\b`)},
	{models.RoleFamilyMarketing, regexp.MustCompile(`(?i)\b(marketing|growth|seo|content strategist)\b`)},
	{models.RoleFamilyCustomerSuccess, regexp.MustCompile(`(?i)\b(customer success|customer support|support engineer)\b`)},
	{models.RoleFamilyOperations, regexp.MustCompile(`(?i)\b(operations|program manager|project manager|ops)\b`)},
	{models.RoleFamilyFinance, regexp.MustCompile(`(?i)\b(finance|accounting|controller|fp&a)\b`)},
	{models.RoleFamilyHR, regexp.MustCompile(`(?i)\b(recruiter|recruiting|people ops|hr business partner)\b`)},
	{models.RoleFamilyLegal, regexp.MustCompile(`(?i)\b(counsel|legal|paralegal|compliance)\b`)},
}

// roleSpecializationPatterns refine a matched family with a narrower
// label; only engineering is subdivided today.
var roleSpecializationPatterns = []struct {
	spec string
	re   *regexp.Regexp
}{
	{"frontend", regexp.MustCompile(`(?i)\b(frontend|front-end|react|ui engineer)\b`)},
	{"backend", regexp.MustCompile(`(?i)\b(backend|back-end)\b`)},
	{"mobile", regexp.MustCompile(`(?i)\b(ios|android|mobile engineer)\b`)},
	{"infrastructure", regexp.MustCompile(`(?i)\b(infrastructure|platform engineer|sre|devops)\b`)},
	{"security", regexp.MustCompile(`(?i)\b(security engineer|appsec|infosec)\b`)},
}

func classifyRole(title string) (family, specialization string) {
	family = models.RoleFamilyOther
	for _, p := range roleFamilyPatterns {
		if p.re.MatchString(title) {
			family = p.family
			break
		}
	}
	if family == models.RoleFamilyEngineering {
		for _, p := range roleSpecializationPatterns {
			if p.re.MatchString(title) {
				specialization = p.spec
				break
			}
		}
	}
	return family, specialization
}

// seniorityPatterns are checked in precedence order: an explicit
// "principal" in the title wins over a looser "senior" match even
// though "senior" might also technically appear nearby.
var seniorityPatterns = []struct {
	level string
	re    *regexp.Regexp
}{
	{models.SeniorityExec, regexp.MustCompile(`(?i)\b(chief|cto|ceo|cfo|coo)\b`)},
	{models.SeniorityVP, regexp.MustCompile(`(?i)\bvp\b|vice president`)},
	{models.SeniorityDirector, regexp.MustCompile(`(?i)\bdirector\b`)},
	{models.SeniorityManager, regexp.MustCompile(`(?i)\bmanager\b`)},
	{models.SeniorityLead, regexp.MustCompile(`(?i)\blead\b`)},
	{models.SeniorityPrincipal, regexp.MustCompile(`(?i)\bprincipal\b`)},
	{models.SeniorityStaff, regexp.MustCompile(`(?i)\bstaff\b`)},
	{models.SenioritySenior, regexp.MustCompile(`(?i)\bsenior\b|\bsr\.?\b`)},
	{models.SeniorityIntern, regexp.MustCompile(`(?i)\bintern(ship)?\b`)},
	{models.SeniorityEntry, regexp.MustCompile(`(?i)\b(junior|jr\.?|entry.level|new grad|graduate)\b`)},
}

func classifySeniority(title string) string {
	for _, p := range seniorityPatterns {
		if p.re.MatchString(title) {
			return p.level
		}
	}
	return models.SeniorityMid
}

var remoteRe = regexp.MustCompile(`(?i)\bremote\b|work from home|\bwfh\b`)
var hybridRe = regexp.MustCompile(`(?i)\bhybrid\b`)
var stateAbbrevRe = regexp.MustCompile(`(?i)\b(AL|AK|AZ|AR|CA|CO|CT|DE|FL|GA|HI|ID|IL|IN|IA|KS|KY|LA|ME|MD|MA|MI|MN|MS|MO|MT|NE|NV|NH|NJ|NM|NY|NC|ND|OH|OK|OR|PA|RI|SC|SD|TN|TX|UT|VT|VA|WA|WV|WI|WY)\b`)

// techHubCities canonicalizes the common spellings of the metros that
// show up most often in ATS location fields.
var techHubCities = map[string]string{
	"sf":             "San Francisco, CA",
	"san francisco":  "San Francisco, CA",
	"nyc":            "New York, NY",
	"new york":       "New York, NY",
	"new york city":  "New York, NY",
	"austin":         "Austin, TX",
	"seattle":        "Seattle, WA",
	"boston":         "Boston, MA",
	"denver":         "Denver, CO",
	"chicago":        "Chicago, IL",
	"los angeles":    "Los Angeles, CA",
	"la":             "Los Angeles, CA",
}

// classifyLocation derives location_type and a canonical locations list
// from a raw location string. Explicit "remote" and "hybrid" both
// appearing resolves to hybrid, per the admission rule for mixed
// postings ("remote in the Bay Area, hybrid 2 days/week").
func classifyLocation(raw string) (locationType string, locations []string) {
	lower := strings.ToLower(raw)
	isRemote := remoteRe.MatchString(lower)
	isHybrid := hybridRe.MatchString(lower)

	switch {
	case isRemote && isHybrid:
		locationType = models.LocationTypeHybrid
	case isHybrid:
		locationType = models.LocationTypeHybrid
	case isRemote:
		locationType = models.LocationTypeRemote
	default:
		locationType = models.LocationTypeOnsite
	}

	if canonical, ok := techHubCities[strings.TrimSpace(lower)]; ok {
		locations = append(locations, canonical)
	} else if m := stateAbbrevRe.FindString(raw); m != "" {
		locations = append(locations, strings.TrimSpace(raw))
	} else if raw != "" {
		locations = append(locations, strings.TrimSpace(raw))
	}

	return locationType, locations
}

// skillDictionary is matched as whole words against title+description.
var skillDictionary = []string{
	"go", "golang", "python", "java", "javascript", "typescript", "react", "vue", "angular",
	"kubernetes", "docker", "aws", "gcp", "azure", "terraform", "postgres", "postgresql", "mysql",
	"mongodb", "redis", "kafka", "graphql", "rest", "grpc", "ruby", "rails", "rust", "c++", "c#",
	"swift", "kotlin", "sql", "spark", "airflow", "pytorch", "tensorflow", "elasticsearch",
}

var skillWordRe = make(map[string]*regexp.Regexp, len(skillDictionary))

func init() {
	for _, s := range skillDictionary {
		skillWordRe[s] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(s) + `\b`)
	}
}

func matchSkills(text string) []string {
	var out []string
	for _, s := range skillDictionary {
		if skillWordRe[s].MatchString(text) {
			out = append(out, s)
		}
	}
	return out
}

var currencyStripRe = regexp.MustCompile(`[,$£€]`)
var salaryNumberRe = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(k)?`)

// parseSalary strips currency symbols/commas, expands a trailing k/K to
// thousands, and takes the first two numbers found as (min, max).
func parseSalary(raw string) (min, max *int, ok bool) {
	cleaned := currencyStripRe.ReplaceAllString(raw, "")
	matches := salaryNumberRe.FindAllStringSubmatch(cleaned, -1)
	if len(matches) == 0 {
		return nil, nil, false
	}

	var nums []int
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if strings.EqualFold(m[2], "k") {
			v *= 1000
		}
		n := int(v)
		nums = append(nums, n)
		if len(nums) == 2 {
			break
		}
	}
	switch len(nums) {
	case 0:
		return nil, nil, false
	case 1:
		return &nums[0], nil, true
	default:
		return &nums[0], &nums[1], true
	}
}

// dateLayouts is tried in order against a raw posted_at string; ATS
// APIs and JSON-LD both favor RFC3339/ISO8601, with the remainder
// covering the handful of human-readable formats custom career pages
// use.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006-01-02 15:04:05",
	"January 2, 2006",
	"Jan 2, 2006",
	"01/02/2006",
	"02 Jan 2006",
}

func parseFlexibleDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
