// Package dbfs provides a database-backed disk that implements the provider
// interfaces defined in github.com/jackfish212/contentfs/types.
//
// Multiple database backends are supported through the [Dialect] interface.
// Built-in dialects are provided for SQLite and PostgreSQL.
//
//	fs, err := dbfs.Open("sqlite", "data.db", types.PermRW)
//	defer fs.Close()
//	fs.Put(ctx, "docs/hello.txt", []byte("world"))
//
// Rows are objects keyed by path. Directories only have metadata when they
// were created with Mkdir; otherwise they exist as path prefixes.
package dbfs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackfish212/contentfs/types"
)

var (
	_ types.Provider         = (*FS)(nil)
	_ types.Writable         = (*FS)(nil)
	_ types.Mutable          = (*FS)(nil)
	_ types.DiskInfoProvider = (*FS)(nil)
)

// ErrBadTable indicates an invalid table name was provided.
var ErrBadTable = errors.New("dbfs: invalid table name")

// Dialect abstracts database-specific SQL syntax.
// Implement this interface to add support for a new database backend.
type Dialect interface {
	// ObjectSchema creates the table holding a disk's objects.
	ObjectSchema(table string) []string
	// RuleSchema creates a table of ordered access rules.
	RuleSchema(table string) []string
	// Rebind rewrites '?' placeholders into the driver's syntax.
	Rebind(query string) string
}

// Option configures filesystem behavior.
type Option func(*config)

type config struct {
	tableName string
}

// Table sets the database table name (default "files").
func Table(name string) Option { return func(c *config) { c.tableName = name } }

// FS is a database-backed disk implementing [types.Provider],
// [types.Writable] and [types.Mutable].
type FS struct {
	db      *sql.DB
	dialect Dialect
	table   string
	dsn     string
	perm    types.Perm
	ownDB   bool
}

var (
	dialectsMu sync.RWMutex
	dialects   = map[string]Dialect{
		"sqlite":   SQLiteDialect{},
		"sqlite3":  SQLiteDialect{},
		"postgres": PostgresDialect{},
		"pgx":      PostgresDialect{},
	}
	validTable = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Register adds or replaces a [Dialect] for the given driver name.
func Register(driver string, d Dialect) {
	dialectsMu.Lock()
	dialects[driver] = d
	dialectsMu.Unlock()
}

// LookupDialect returns the [Dialect] registered for driver.
func LookupDialect(driver string) (Dialect, error) {
	dialectsMu.RLock()
	d, ok := dialects[driver]
	dialectsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dbfs: unknown driver %q; use Register to add custom dialects", driver)
	}
	return d, nil
}

// Open creates a new database-backed disk.
//
// Supported built-in drivers: "sqlite", "sqlite3", "postgres", "pgx".
// The caller must blank-import the appropriate database/sql driver.
func Open(driver, dsn string, perm types.Perm, opts ...Option) (*FS, error) {
	d, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbfs: open: %w", err)
	}
	fs, err := newFS(db, d, perm, dsn, true, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return fs, nil
}

// OpenDB creates a disk from an existing [*sql.DB] connection.
// The caller remains responsible for closing db.
func OpenDB(db *sql.DB, driver string, perm types.Perm, opts ...Option) (*FS, error) {
	d, err := LookupDialect(driver)
	if err != nil {
		return nil, err
	}
	return newFS(db, d, perm, "", false, opts...)
}

func newFS(db *sql.DB, dialect Dialect, perm types.Perm, dsn string, ownDB bool, opts ...Option) (*FS, error) {
	cfg := config{tableName: "files"}
	for _, o := range opts {
		o(&cfg)
	}
	if !validTable.MatchString(cfg.tableName) {
		return nil, fmt.Errorf("%w: %q", ErrBadTable, cfg.tableName)
	}
	fs := &FS{db: db, dialect: dialect, table: cfg.tableName, dsn: dsn, perm: perm, ownDB: ownDB}
	if err := CreateTables(db, dialect.ObjectSchema(cfg.tableName)); err != nil {
		return nil, err
	}
	return fs, nil
}

// CreateTables runs schema statements produced by a [Dialect].
func CreateTables(db *sql.DB, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("dbfs: schema: %w", err)
		}
	}
	return nil
}

// Close closes the database connection if it was created by [Open].
func (fs *FS) Close() error {
	if fs.ownDB {
		return fs.db.Close()
	}
	return nil
}

// DB returns the underlying [*sql.DB] for advanced usage.
func (fs *FS) DB() *sql.DB { return fs.db }

// DiskInfo implements [types.DiskInfoProvider].
func (fs *FS) DiskInfo() (string, string) { return "dbfs", fs.dsn }

// ──── types.Provider ────

type row struct {
	path     string
	isDir    bool
	perm     int
	modified int64
	version  int64
	size     int64
	meta     sql.NullString
}

const rowColumns = `path, is_dir, perm, modified, version, size, meta`

func (r *row) scan(s interface{ Scan(...any) error }) error {
	return s.Scan(&r.path, &r.isDir, &r.perm, &r.modified, &r.version, &r.size, &r.meta)
}

func (r *row) toEntry() types.Entry {
	var e types.Entry
	if r.isDir {
		e = types.NewEntry(r.path, types.TypeDir)
	} else {
		e = types.NewEntry(r.path, types.TypeFile)
		e.SetMeta("size", r.size)
	}
	for k, v := range decodeMeta(r.meta) {
		e.SetMeta(k, v)
	}
	e.SetMeta("timestamp", r.modified)
	e.SetMeta("visibility", types.Perm(r.perm).Visibility())
	e.SetMeta("version", r.version)
	return e
}

func (fs *FS) Stat(ctx context.Context, path string) (*types.Entry, error) {
	path = normPath(path)
	if path == "" {
		e := types.NewEntry("", types.TypeDir)
		return &e, nil
	}

	var r row
	err := r.scan(fs.db.QueryRowContext(ctx, fs.q(`SELECT `+rowColumns+` FROM {t} WHERE path = ?`), path))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("dbfs: stat: %w", err)
	}
	e := r.toEntry()
	return &e, nil
}

func (fs *FS) List(ctx context.Context, path string) ([]types.Entry, error) {
	path = normPath(path)

	var rows *sql.Rows
	var err error
	if path == "" {
		rows, err = fs.db.QueryContext(ctx, fs.q(`SELECT `+rowColumns+` FROM {t} ORDER BY path`))
	} else {
		rows, err = fs.db.QueryContext(ctx, fs.q(`SELECT `+rowColumns+` FROM {t} WHERE path = ? OR path LIKE ? ESCAPE '\' ORDER BY path`), path, likePrefix(path+"/"))
	}
	if err != nil {
		return nil, fmt.Errorf("dbfs: list: %w", err)
	}
	defer rows.Close()

	pfx := path + "/"
	if path == "" {
		pfx = ""
	}
	seen := make(map[string]bool)
	var entries []types.Entry
	found := false

	for rows.Next() {
		var r row
		if err := r.scan(rows); err != nil {
			return nil, fmt.Errorf("dbfs: list: %w", err)
		}
		if r.path == path {
			if !r.isDir {
				return nil, fmt.Errorf("%w: %s", types.ErrNotDir, path)
			}
			found = true
			continue
		}
		if !strings.HasPrefix(r.path, pfx) {
			continue
		}
		found = true

		rest := r.path[len(pfx):]
		if rest == "" {
			continue
		}

		name := rest
		implicit := false
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name = rest[:i]
			implicit = true
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		if implicit {
			entries = append(entries, types.NewEntry(pfx+name, types.TypeDir))
		} else {
			entries = append(entries, r.toEntry())
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dbfs: list: %w", err)
	}

	if path != "" && !found {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, path)
	}
	return entries, nil
}

func (fs *FS) Directories(ctx context.Context, path string) ([]string, error) {
	entries, err := fs.List(ctx, path)
	if err != nil {
		return nil, err
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Path)
		}
	}
	return dirs, nil
}

// ──── types.Writable ────

func (fs *FS) Put(ctx context.Context, path string, content []byte) error {
	return fs.PutWithMeta(ctx, path, content, nil)
}

// PutWithMeta stores content together with backend metadata that is
// reported alongside size and timestamp in listings.
// The version column is automatically incremented on each write.
func (fs *FS) PutWithMeta(ctx context.Context, path string, content []byte, meta map[string]string) error {
	if !fs.perm.CanWrite() {
		return fmt.Errorf("%w: %s", types.ErrNotWritable, path)
	}
	path = normPath(path)
	if content == nil {
		content = []byte{}
	}
	_, err := fs.db.ExecContext(ctx, fs.q(`
		INSERT INTO {t} (path, content, size, is_dir, perm, modified, version, meta) VALUES (?, ?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT(path) DO UPDATE SET content=excluded.content, size=excluded.size, is_dir=excluded.is_dir,
			perm=excluded.perm, modified=excluded.modified, version={t}.version+1, meta=excluded.meta
	`), path, content, int64(len(content)), false, int(fs.perm), time.Now().Unix(), encodeMeta(meta))
	if err != nil {
		return fmt.Errorf("dbfs: put: %w", err)
	}
	return nil
}

// ──── types.Mutable ────

func (fs *FS) Mkdir(ctx context.Context, path string) error {
	if !fs.perm.CanWrite() {
		return fmt.Errorf("%w: %s", types.ErrNotWritable, path)
	}
	path = normPath(path)
	if path == "" {
		return fmt.Errorf("%w: cannot mkdir root", types.ErrNotSupported)
	}
	_, err := fs.db.ExecContext(ctx,
		fs.q(`INSERT INTO {t} (path, content, is_dir, perm, modified) VALUES (?, NULL, ?, ?, ?) ON CONFLICT(path) DO NOTHING`),
		path, true, int(types.PermRX), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("dbfs: mkdir: %w", err)
	}
	return nil
}

// ──── internal helpers ────

func (fs *FS) q(query string) string {
	return fs.dialect.Rebind(strings.ReplaceAll(query, "{t}", fs.table))
}

// likePrefix builds a LIKE pattern matching keys that start with prefix,
// escaping the pattern metacharacters it may contain.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func normPath(p string) string {
	p = strings.TrimPrefix(p, "/")
	return strings.TrimSuffix(p, "/")
}

func encodeMeta(m map[string]string) sql.NullString {
	if len(m) == 0 {
		return sql.NullString{}
	}
	data, _ := json.Marshal(m)
	return sql.NullString{String: string(data), Valid: true}
}

func decodeMeta(s sql.NullString) map[string]string {
	if !s.Valid || s.String == "" {
		return nil
	}
	var m map[string]string
	if json.Unmarshal([]byte(s.String), &m) != nil {
		return nil
	}
	return m
}
