// Package config loads contentfs settings from a YAML file, a .env file and
// CONTENTFS_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jackfish212/contentfs/acl"
	"github.com/jackfish212/contentfs/types"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CONTENTFS_"

// Rule repositories.
const (
	RepoConfig   = "config"
	RepoJSON     = "json"
	RepoDatabase = "database"
)

type Config struct {
	// Disks maps disk names to source specs: "memfs", "sqlite:FILE",
	// "postgres://..." or a host directory.
	Disks    map[string]string `yaml:"disks"`
	ACL      ACL               `yaml:"acl"`
	HTTP     HTTP              `yaml:"http"`
	LogLevel string            `yaml:"logLevel"`
}

type ACL struct {
	Enabled         bool       `yaml:"enabled"`
	HideFromListing bool       `yaml:"hideFromListing"`
	Strategy        string     `yaml:"strategy"`
	Repository      string     `yaml:"repository"`
	Rules           []acl.Rule `yaml:"rules"`
	RulesFile       string     `yaml:"rulesFile"`
	DSN             string     `yaml:"dsn"`
}

type HTTP struct {
	Addr string `yaml:"addr"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Disks: map[string]string{},
		ACL: ACL{
			Strategy:   string(acl.Blacklist),
			Repository: RepoConfig,
		},
		HTTP:     HTTP{Addr: ":8080"},
		LogLevel: "info",
	}
}

// Load reads the YAML file at path on top of the defaults and applies
// environment overrides. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", types.ErrInvalidConfig, path, err)
		}
		if cfg.Disks == nil {
			cfg.Disks = map[string]string{}
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				slog.Debug("config: no env file", "file", f)
				continue
			}
			return fmt.Errorf("config: %s: %w", f, err)
		}
		slog.Debug("config: loaded env file", "file", f)
	}
	return nil
}

// ApplyEnv overrides fields from CONTENTFS_* variables found via lookup.
// CONTENTFS_DISKS holds comma separated NAME=SOURCE pairs that are added to
// the configured disks.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s%s: %v", types.ErrInvalidConfig, EnvPrefix, key, err)
		}
		*dst = b
		return nil
	}

	if err := boolean("ACL_ENABLED", &c.ACL.Enabled); err != nil {
		return err
	}
	if err := boolean("ACL_HIDE_FROM_LISTING", &c.ACL.HideFromListing); err != nil {
		return err
	}
	str("ACL_STRATEGY", &c.ACL.Strategy)
	str("ACL_REPOSITORY", &c.ACL.Repository)
	str("ACL_RULES_FILE", &c.ACL.RulesFile)
	str("ACL_DSN", &c.ACL.DSN)
	str("HTTP_ADDR", &c.HTTP.Addr)
	str("LOG_LEVEL", &c.LogLevel)

	if v, ok := lookup(EnvPrefix + "DISKS"); ok && strings.TrimSpace(v) != "" {
		for _, spec := range strings.Split(v, ",") {
			name, source, err := ParseDiskFlag(strings.TrimSpace(spec))
			if err != nil {
				return err
			}
			if c.Disks == nil {
				c.Disks = map[string]string{}
			}
			c.Disks[name] = source
		}
	}
	return nil
}

// ParseDiskFlag splits a NAME=SOURCE disk specification.
func ParseDiskFlag(spec string) (name, source string, err error) {
	name, source, ok := strings.Cut(spec, "=")
	name, source = strings.TrimSpace(name), strings.TrimSpace(source)
	if !ok || name == "" || source == "" {
		return "", "", fmt.Errorf("%w: invalid disk spec %q (expected NAME=SOURCE)", types.ErrInvalidConfig, spec)
	}
	return name, source, nil
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	for _, name := range c.DiskNames() {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty disk name", types.ErrInvalidConfig)
		}
		if strings.TrimSpace(c.Disks[name]) == "" {
			return fmt.Errorf("%w: disk %s has no source", types.ErrInvalidConfig, name)
		}
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	if !c.ACL.Enabled {
		return nil
	}

	if _, err := acl.ParseStrategy(c.ACL.Strategy); err != nil {
		return err
	}
	switch c.ACL.Repository {
	case "", RepoConfig:
	case RepoJSON:
		if c.ACL.RulesFile == "" {
			return fmt.Errorf("%w: acl repository %q needs rulesFile", types.ErrInvalidConfig, RepoJSON)
		}
	case RepoDatabase:
		if _, _, ok := DatabaseSource(c.ACL.DSN); !ok {
			return fmt.Errorf("%w: acl repository %q needs a sqlite: or postgres:// dsn", types.ErrInvalidConfig, RepoDatabase)
		}
	default:
		return fmt.Errorf("%w: unknown acl repository %q", types.ErrInvalidConfig, c.ACL.Repository)
	}
	for i, r := range c.ACL.Rules {
		if r.Disk == "" || r.Path == "" {
			return fmt.Errorf("%w: acl rule %d needs disk and path", types.ErrInvalidConfig, i)
		}
		if r.Access < acl.None || r.Access > acl.ReadWrite {
			return fmt.Errorf("%w: acl rule %d has access %d", types.ErrInvalidConfig, i, r.Access)
		}
	}
	return nil
}

// DiskNames returns the configured disk names in sorted order.
func (c *Config) DiskNames() []string {
	names := make([]string, 0, len(c.Disks))
	for name := range c.Disks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Level parses LogLevel. An empty level means info.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("%w: log level %q", types.ErrInvalidConfig, c.LogLevel)
	}
	return l, nil
}

// DatabaseSource recognises database source specs and returns the
// database/sql driver name and DSN to open them with.
//
//	sqlite:files.db          → sqlite, files.db
//	postgres://host/db       → pgx, postgres://host/db
//	postgresql://host/db     → pgx, postgresql://host/db
func DatabaseSource(source string) (driver, dsn string, ok bool) {
	switch {
	case strings.HasPrefix(source, "sqlite:"):
		dsn = strings.TrimPrefix(source, "sqlite:")
		return "sqlite", dsn, dsn != ""
	case strings.HasPrefix(source, "postgres://"), strings.HasPrefix(source, "postgresql://"):
		return "pgx", source, true
	}
	return "", "", false
}
