package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS fetch_runs (
	id                  TEXT PRIMARY KEY,
	folder              TEXT NOT NULL,
	outcome             TEXT NOT NULL CHECK(outcome IN ('ok', 'connection_error', 'folder_error')),
	listed              INTEGER NOT NULL DEFAULT 0,
	returned            INTEGER NOT NULL DEFAULT 0,
	decode_anomalies    INTEGER NOT NULL DEFAULT 0,
	annotation_failures INTEGER NOT NULL DEFAULT 0,
	error               TEXT NOT NULL DEFAULT '',
	started_at          DATETIME NOT NULL,
	finished_at         DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fetch_runs_started_at ON fetch_runs(started_at);
CREATE INDEX IF NOT EXISTS idx_fetch_runs_outcome ON fetch_runs(outcome);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE INDEX IF NOT EXISTS idx_fetch_runs_folder_started
	ON fetch_runs(folder, started_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
