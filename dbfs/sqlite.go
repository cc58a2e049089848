package dbfs

import "fmt"

// SQLiteDialect stores disks in SQLite. It serves the "sqlite"
// (modernc.org/sqlite) and "sqlite3" driver names.
type SQLiteDialect struct{}

func (SQLiteDialect) ObjectSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		path     TEXT PRIMARY KEY,
		is_dir   INTEGER NOT NULL DEFAULT 0,
		size     INTEGER NOT NULL DEFAULT 0,
		content  BLOB,
		perm     INTEGER NOT NULL DEFAULT 1,
		modified INTEGER NOT NULL DEFAULT 0,
		version  INTEGER NOT NULL DEFAULT 1,
		meta     TEXT
	)`, table)}
}

func (SQLiteDialect) RuleSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		position INTEGER PRIMARY KEY,
		user_id  TEXT NOT NULL,
		disk     TEXT NOT NULL,
		path     TEXT NOT NULL,
		access   INTEGER NOT NULL
	)`, table)}
}

// Rebind is the identity: SQLite understands '?' placeholders.
func (SQLiteDialect) Rebind(query string) string { return query }
