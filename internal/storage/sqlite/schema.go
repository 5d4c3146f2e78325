package sqlite

const schemaSQL = `
CREATE TABLE IF NOT EXISTS companies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	domain TEXT NOT NULL DEFAULT '',
	careers_url TEXT DEFAULT '',
	website_url TEXT DEFAULT '',
	ats_family TEXT DEFAULT '',
	ats_identifier TEXT DEFAULT '',
	parent_company_id TEXT,
	discovery_source TEXT DEFAULT '',
	country TEXT DEFAULT '',
	location TEXT DEFAULT '',
	industry TEXT DEFAULT '',
	employee_count INTEGER DEFAULT 0,
	funding_stage TEXT DEFAULT '',
	crawl_priority INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_crawled_at INTEGER,
	last_maintenance_at INTEGER,
	last_crawled_for_network INTEGER,
	ats_detection_attempts INTEGER NOT NULL DEFAULT 0,
	ats_detection_last_at INTEGER,
	created_at INTEGER NOT NULL,
	FOREIGN KEY (parent_company_id) REFERENCES companies(id) ON DELETE SET NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_companies_domain ON companies(domain) WHERE domain != '';
CREATE INDEX IF NOT EXISTS idx_companies_active ON companies(is_active, crawl_priority DESC);
CREATE INDEX IF NOT EXISTS idx_companies_ats_family ON companies(ats_family, is_active);
CREATE INDEX IF NOT EXISTS idx_companies_ats_pair ON companies(ats_family, ats_identifier);
CREATE INDEX IF NOT EXISTS idx_companies_network_crawl ON companies(last_crawled_for_network, is_active);

CREATE TABLE IF NOT EXISTS crawl_snapshots (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	url TEXT NOT NULL,
	html_hash TEXT NOT NULL,
	html_content TEXT,
	status_code INTEGER DEFAULT 0,
	rendered INTEGER NOT NULL DEFAULT 0,
	crawled_at INTEGER NOT NULL,
	FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_crawl_snapshots_company ON crawl_snapshots(company_id, crawled_at DESC);

CREATE TABLE IF NOT EXISTS jobs_raw (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	source_url TEXT NOT NULL,
	title_raw TEXT NOT NULL DEFAULT '',
	description_raw TEXT DEFAULT '',
	location_raw TEXT DEFAULT '',
	department_raw TEXT DEFAULT '',
	employment_type_raw TEXT DEFAULT '',
	posted_at_raw TEXT DEFAULT '',
	salary_raw TEXT DEFAULT '',
	extracted_at INTEGER NOT NULL,
	FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_raw_company_url ON jobs_raw(company_id, source_url);

CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	company_id TEXT NOT NULL,
	raw_job_id TEXT,
	title TEXT NOT NULL,
	description TEXT DEFAULT '',
	source_url TEXT NOT NULL,
	role_family TEXT DEFAULT '',
	role_specialization TEXT DEFAULT '',
	seniority TEXT DEFAULT '',
	location_type TEXT DEFAULT '',
	locations_json TEXT DEFAULT '[]',
	skills_json TEXT DEFAULT '[]',
	min_salary INTEGER,
	max_salary INTEGER,
	employment_type TEXT DEFAULT '',
	posted_at INTEGER,
	freshness_score REAL,
	is_active INTEGER NOT NULL DEFAULT 1,
	last_verified_at INTEGER,
	delisted_at INTEGER,
	delist_reason TEXT DEFAULT '',
	enrich_failed_at INTEGER,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	FOREIGN KEY (company_id) REFERENCES companies(id) ON DELETE CASCADE,
	FOREIGN KEY (raw_job_id) REFERENCES jobs_raw(id) ON DELETE SET NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_company_url ON jobs(company_id, source_url);
CREATE INDEX IF NOT EXISTS idx_jobs_active_company ON jobs(company_id, is_active);
CREATE INDEX IF NOT EXISTS idx_jobs_needs_enrichment ON jobs(is_active, enrich_failed_at) WHERE description = '';
CREATE INDEX IF NOT EXISTS idx_jobs_role_family ON jobs(role_family, is_active);

CREATE TABLE IF NOT EXISTS job_embeddings (
	job_id TEXT PRIMARY KEY,
	embedding BLOB NOT NULL,
	dimensions INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS discovery_queue (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	domain TEXT DEFAULT '',
	careers_url TEXT DEFAULT '',
	website_url TEXT DEFAULT '',
	source TEXT NOT NULL,
	source_url TEXT DEFAULT '',
	location TEXT DEFAULT '',
	country TEXT DEFAULT '',
	description TEXT DEFAULT '',
	industry TEXT DEFAULT '',
	employee_count INTEGER DEFAULT 0,
	funding_stage TEXT DEFAULT '',
	ats_family TEXT DEFAULT '',
	ats_identifier TEXT DEFAULT '',
	status TEXT NOT NULL DEFAULT 'pending',
	error_message TEXT DEFAULT '',
	retry_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	processed_at INTEGER,
	company_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_discovery_queue_status ON discovery_queue(status, created_at);
CREATE INDEX IF NOT EXISTS idx_discovery_queue_domain ON discovery_queue(domain) WHERE domain != '';

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	source TEXT DEFAULT '',
	status TEXT NOT NULL,
	counters_json TEXT DEFAULT '{}',
	current_step TEXT DEFAULT '',
	progress_count INTEGER NOT NULL DEFAULT 0,
	progress_total INTEGER,
	logs_json TEXT DEFAULT '[]',
	error_message TEXT DEFAULT '',
	started_at INTEGER NOT NULL,
	completed_at INTEGER
);

CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status, started_at DESC);

CREATE TABLE IF NOT EXISTS job_board_listings (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	board TEXT NOT NULL,
	found INTEGER NOT NULL DEFAULT 0,
	confidence REAL NOT NULL DEFAULT 0,
	listing_url TEXT DEFAULT '',
	search_query TEXT DEFAULT '',
	search_result_count INTEGER DEFAULT 0,
	verified_at INTEGER NOT NULL,
	FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_job_board_listings_job_board ON job_board_listings(job_id, board);
`

// InitSchema creates every table and index if not already present. Safe
// to call on every startup.
func (s *SQLiteDB) InitSchema() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return err
	}
	s.logger.Info().Msg("schema initialized")
	return nil
}
