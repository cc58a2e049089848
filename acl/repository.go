package acl

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/jackfish212/contentfs/dbfs"
	gojsonq "github.com/thedevsaddam/gojsonq/v2"
)

var (
	_ Repository = (*ConfigRepository)(nil)
	_ Repository = (*JSONRepository)(nil)
	_ Repository = (*SQLRepository)(nil)
)

// ─── Static rules ───

// ConfigRepository serves rules declared in the configuration file.
type ConfigRepository struct {
	rules []Rule
}

func NewConfigRepository(rules []Rule) *ConfigRepository {
	return &ConfigRepository{rules: append([]Rule(nil), rules...)}
}

func (r *ConfigRepository) Rules(_ context.Context, user string) ([]Rule, error) {
	var out []Rule
	for _, rule := range r.rules {
		if rule.appliesTo(user) {
			out = append(out, rule)
		}
	}
	return out, nil
}

// ─── JSON rules document ───

// JSONRepository reads rules from a JSON document on every query, so edits
// to the file take effect without a restart. The document holds a "rules"
// array of {"user", "disk", "path", "access"} objects.
type JSONRepository struct {
	file string
}

func NewJSONRepository(file string) *JSONRepository {
	return &JSONRepository{file: file}
}

func (r *JSONRepository) Rules(_ context.Context, user string) ([]Rule, error) {
	jq := gojsonq.New().File(r.file).
		From("rules").
		WhereIn("user", []string{user, AnyUser})
	res := jq.Get()
	if err := jq.Error(); err != nil {
		return nil, fmt.Errorf("acl: %s: %w", r.file, err)
	}

	items, _ := res.([]interface{})
	rules := make([]Rule, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("acl: %s: rules[%d] is not an object", r.file, i)
		}
		rule, err := ruleFromJSON(m)
		if err != nil {
			return nil, fmt.Errorf("acl: %s: rules[%d]: %w", r.file, i, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func ruleFromJSON(m map[string]interface{}) (Rule, error) {
	var r Rule
	r.UserID, _ = m["user"].(string)
	r.Disk, _ = m["disk"].(string)
	r.Path, _ = m["path"].(string)
	if r.Disk == "" || r.Path == "" {
		return r, fmt.Errorf("disk and path are required")
	}
	access, ok := m["access"].(float64)
	if !ok || access != math.Trunc(access) {
		return r, fmt.Errorf("access must be an integer")
	}
	r.Access = int(access)
	return r, nil
}

// ─── Database rules ───

// SQLRepository stores rules in an acl_rules table. Rule order is the
// insertion order.
type SQLRepository struct {
	db      *sql.DB
	dialect dbfs.Dialect
}

// NewSQLRepository creates the acl_rules table on db if needed. driver
// selects the SQL dialect and must be one dbfs knows about.
func NewSQLRepository(db *sql.DB, driver string) (*SQLRepository, error) {
	d, err := dbfs.LookupDialect(driver)
	if err != nil {
		return nil, err
	}
	if err := dbfs.CreateTables(db, d.RuleSchema("acl_rules")); err != nil {
		return nil, fmt.Errorf("acl: %w", err)
	}
	return &SQLRepository{db: db, dialect: d}, nil
}

// AddRule appends rule after the existing rules.
func (r *SQLRepository) AddRule(ctx context.Context, rule Rule) error {
	var last int
	if err := r.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), 0) FROM acl_rules`).Scan(&last); err != nil {
		return fmt.Errorf("acl: add rule: %w", err)
	}
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO acl_rules (position, user_id, disk, path, access) VALUES (?, ?, ?, ?, ?)`),
		last+1, rule.UserID, rule.Disk, rule.Path, rule.Access)
	if err != nil {
		return fmt.Errorf("acl: add rule: %w", err)
	}
	return nil
}

func (r *SQLRepository) Rules(ctx context.Context, user string) ([]Rule, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(
		`SELECT user_id, disk, path, access FROM acl_rules WHERE user_id = ? OR user_id = ? ORDER BY position`),
		user, AnyUser)
	if err != nil {
		return nil, fmt.Errorf("acl: rules: %w", err)
	}
	defer rows.Close()

	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.UserID, &rule.Disk, &rule.Path, &rule.Access); err != nil {
			return nil, fmt.Errorf("acl: rules: %w", err)
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
