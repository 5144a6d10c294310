package sqlite

// Schema bootstrap. Tags are unique per (repository_id, name) so a
// replayed push updates in place; the UNIQUE(owner_id, name) pair on
// repositories prevents one owner from creating duplicates.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS repositories (
	id          TEXT PRIMARY KEY,
	owner_id    TEXT REFERENCES users(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	visibility  TEXT NOT NULL DEFAULT 'PUBLIC',
	is_official INTEGER NOT NULL DEFAULT 0,
	pull_count  INTEGER NOT NULL DEFAULT 0,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL,
	UNIQUE (owner_id, name)
);

CREATE INDEX IF NOT EXISTS idx_repositories_official
	ON repositories (name) WHERE is_official = 1;

CREATE TABLE IF NOT EXISTS tags (
	id            TEXT PRIMARY KEY,
	repository_id TEXT NOT NULL REFERENCES repositories(id) ON DELETE CASCADE,
	name          TEXT NOT NULL,
	digest        TEXT NOT NULL DEFAULT '',
	size          INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL,
	UNIQUE (repository_id, name)
);
`
