package contentfs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/jackfish212/contentfs/acl"
	"github.com/jackfish212/contentfs/config"
	"github.com/jackfish212/contentfs/dbfs"
	"github.com/jackfish212/contentfs/lister"
	"github.com/jackfish212/contentfs/mounts"
)

// App bundles the components built from a configuration.
type App struct {
	Disks  *DiskTable
	ACL    *acl.Service // nil when ACL is disabled
	Lister *lister.ContentLister

	closers []io.Closer
}

// Configure builds the disk table, the ACL service and the content lister
// described by cfg. The caller must Close the returned App.
func Configure(ctx context.Context, cfg *config.Config) (*App, error) {
	slog.Debug("contentfs: starting configuration")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Disks: NewDiskTable()}
	for _, name := range cfg.DiskNames() {
		source := cfg.Disks[name]
		p, closer, err := OpenDisk(source)
		if err != nil {
			app.Close()
			slog.Error("contentfs: failed to open disk", "disk", name, "source", source, "error", err)
			return nil, fmt.Errorf("disk %s: %w", name, err)
		}
		if closer != nil {
			app.closers = append(app.closers, closer)
		}
		if err := app.Disks.Add(name, p); err != nil {
			app.Close()
			return nil, err
		}
		slog.Info("contentfs: disk added", "disk", name, "source", source)
	}

	var opts []lister.Option
	if cfg.ACL.Enabled {
		svc, err := app.configureACL(ctx, cfg.ACL)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.ACL = svc
		opts = append(opts, lister.WithACL(svc, cfg.ACL.HideFromListing))
		slog.Info("contentfs: acl enabled",
			"strategy", svc.Strategy(),
			"repository", cfg.ACL.Repository,
			"hideFromListing", cfg.ACL.HideFromListing,
		)
	}
	app.Lister = lister.New(app.Disks, opts...)

	slog.Debug("contentfs: configuration complete", "disks", len(cfg.Disks))
	return app, nil
}

func (app *App) configureACL(ctx context.Context, c config.ACL) (*acl.Service, error) {
	strategy, err := acl.ParseStrategy(c.Strategy)
	if err != nil {
		return nil, err
	}

	var repo acl.Repository
	switch c.Repository {
	case config.RepoJSON:
		repo = acl.NewJSONRepository(c.RulesFile)
	case config.RepoDatabase:
		driver, dsn, _ := config.DatabaseSource(c.DSN)
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, fmt.Errorf("acl: open %s: %w", driver, err)
		}
		app.closers = append(app.closers, db)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("acl: connect %s: %w", driver, err)
		}
		repo, err = acl.NewSQLRepository(db, driver)
		if err != nil {
			return nil, err
		}
	default:
		repo = acl.NewConfigRepository(c.Rules)
	}
	return acl.NewService(repo, strategy), nil
}

// Close releases database connections opened by Configure.
func (app *App) Close() error {
	var errs []error
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	app.closers = nil
	return errors.Join(errs...)
}

// OpenDisk creates the provider for a disk source spec. The returned closer
// is non-nil when the provider holds resources.
//
//	memfs              → in-memory MemFS
//	sqlite:file.db     → dbfs backed by SQLite
//	postgres://...     → dbfs backed by PostgreSQL
//	./dir or /abs      → LocalFS pointing at a host directory
func OpenDisk(source string) (Provider, io.Closer, error) {
	if source == "memfs" {
		return mounts.NewMemFS(PermRW), nil, nil
	}
	if driver, dsn, ok := config.DatabaseSource(source); ok {
		fs, err := dbfs.Open(driver, dsn, PermRW)
		if err != nil {
			return nil, nil, err
		}
		return fs, fs, nil
	}
	return mounts.NewLocalFS(source, PermRW), nil, nil
}

// ─── Version info ───

var (
	version   = "dev"
	buildDate = ""
	gitCommit = ""
)

type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit,omitempty"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

func GetVersionInfo() VersionInfo {
	bd := buildDate
	if bd == "" {
		bd = time.Now().Format("2006-01-02")
	}
	return VersionInfo{
		Version:   version,
		BuildDate: bd,
		GitCommit: gitCommit,
		GoVersion: runtime.Version(),
		Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
}

// String renders a one-line version banner.
func (v VersionInfo) String() string {
	commit := v.GitCommit
	if len(commit) > 8 {
		commit = commit[:8]
	}
	if commit != "" {
		commit = " (" + commit + ")"
	}
	return fmt.Sprintf("contentfs %s%s (Go %s, %s) %s",
		v.Version, commit, v.GoVersion, v.Platform, v.BuildDate)
}
