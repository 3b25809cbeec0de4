package postgres

import "context"

// Schema DDL applied at startup. The tag relation carries ON DELETE CASCADE
// so entry deletion never leaves orphaned tag rows, and the tag index keeps
// DeleteByTags from degrading into a sequential scan as the table grows.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cache_entries (
		entry_key  text PRIMARY KEY,
		value      jsonb NOT NULL,
		expires_at timestamptz NOT NULL,
		hit_count  bigint NOT NULL DEFAULT 0,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS cache_entry_tags (
		entry_key text NOT NULL REFERENCES cache_entries(entry_key) ON DELETE CASCADE,
		tag       text NOT NULL,
		PRIMARY KEY (entry_key, tag)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_entry_tags_tag ON cache_entry_tags (tag)`,
	`CREATE INDEX IF NOT EXISTS idx_cache_entries_expires_at ON cache_entries (expires_at)`,
}

// EnsureSchema creates the cache tables and indexes if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
