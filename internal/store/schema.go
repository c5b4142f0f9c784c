package store

const Schema = `
CREATE TABLE IF NOT EXISTS queue_jobs (
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	progress INTEGER DEFAULT 0,
	options TEXT,
	error TEXT,
	file_id TEXT,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (file_id) REFERENCES files(id)
);

CREATE INDEX IF NOT EXISTS idx_queue_jobs_status ON queue_jobs(status);
CREATE INDEX IF NOT EXISTS idx_queue_jobs_created_at ON queue_jobs(created_at);

CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	artist TEXT DEFAULT '',
	file_type TEXT NOT NULL,
	file_size INTEGER DEFAULT 0,
	duration INTEGER DEFAULT 0,
	path TEXT NOT NULL,
	thumbnail_path TEXT DEFAULT '',
	source_url TEXT DEFAULT '',
	group_type TEXT DEFAULT '',
	group_name TEXT DEFAULT '',
	rank INTEGER DEFAULT 0,
	downloads INTEGER DEFAULT 0,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_files_group ON files(group_type, group_name);

CREATE TABLE IF NOT EXISTS file_cache (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	artist TEXT DEFAULT '',
	norm_title TEXT NOT NULL,
	norm_artist TEXT NOT NULL,
	file_type TEXT NOT NULL,
	file_size INTEGER DEFAULT 0,
	duration INTEGER DEFAULT 0,
	path TEXT NOT NULL,
	thumbnail_path TEXT DEFAULT '',
	source_url TEXT DEFAULT '',
	group_type TEXT DEFAULT '',
	group_name TEXT DEFAULT '',
	rank INTEGER DEFAULT 0,
	is_temporary BOOLEAN DEFAULT 0,
	last_used_at DATETIME DEFAULT CURRENT_TIMESTAMP,
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_file_cache_key ON file_cache(norm_title, norm_artist, file_type);
CREATE INDEX IF NOT EXISTS idx_file_cache_temporary ON file_cache(is_temporary, last_used_at);

CREATE TABLE IF NOT EXISTS cache_stats (
	day TEXT PRIMARY KEY,
	hits INTEGER DEFAULT 0,
	misses INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
