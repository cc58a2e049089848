package dbfs

import (
	"fmt"
	"strings"
)

// PostgresDialect stores disks in PostgreSQL. It serves the "pgx"
// (github.com/jackc/pgx/v5/stdlib) and "postgres" driver names.
type PostgresDialect struct{}

func (PostgresDialect) ObjectSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		path     TEXT PRIMARY KEY,
		is_dir   BOOLEAN NOT NULL DEFAULT FALSE,
		size     BIGINT  NOT NULL DEFAULT 0,
		content  BYTEA,
		perm     INTEGER NOT NULL DEFAULT 1,
		modified BIGINT  NOT NULL DEFAULT 0,
		version  BIGINT  NOT NULL DEFAULT 1,
		meta     JSONB
	)`, table)}
}

func (PostgresDialect) RuleSchema(table string) []string {
	return []string{fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		position INTEGER PRIMARY KEY,
		user_id  TEXT    NOT NULL,
		disk     TEXT    NOT NULL,
		path     TEXT    NOT NULL,
		access   INTEGER NOT NULL
	)`, table)}
}

// Rebind numbers '?' placeholders as $1, $2, ...
func (PostgresDialect) Rebind(query string) string {
	parts := strings.Split(query, "?")
	if len(parts) == 1 {
		return query
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for i, part := range parts[1:] {
		fmt.Fprintf(&b, "$%d%s", i+1, part)
	}
	return b.String()
}
