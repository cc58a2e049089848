// contentfs-server serves directory listings of configured disks over HTTP
// and, optionally, as MCP tools over stdio.
//
// Usage:
//
//	contentfs-server [flags]
//
// Flags:
//
//	--config FILE        YAML configuration file
//	--disk NAME=SOURCE   Add a disk (repeatable, overrides the config file)
//	                     SOURCE formats:
//	                       ./dir                LocalFS (host directory)
//	                       sqlite:file.db       dbfs on SQLite
//	                       postgres://host/db   dbfs on PostgreSQL
//	                       memfs                MemFS (in-memory)
//	--http ADDR          HTTP listen address (default from config, ":8080")
//	--mcp                Serve MCP over stdio; HTTP only runs if --http is also set
//	--user NAME          ACL user for the MCP session
//	--debug              Enable debug logging to stderr
//	--version            Show version and exit
//
// Example:
//
//	contentfs-server --disk public=./public --disk archive=sqlite:archive.db
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	contentfs "github.com/jackfish212/contentfs"
	"github.com/jackfish212/contentfs/config"
	"github.com/jackfish212/contentfs/httpapi"
	"github.com/jackfish212/contentfs/mcpserver"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// diskFlags collects repeatable --disk flags.
type diskFlags []string

func (d *diskFlags) String() string { return strings.Join(*d, ", ") }
func (d *diskFlags) Set(value string) error {
	*d = append(*d, value)
	return nil
}

func main() {
	var disks diskFlags
	configFile := flag.String("config", "", "YAML configuration file")
	httpAddr := flag.String("http", "", "HTTP listen address")
	mcp := flag.Bool("mcp", false, "Serve MCP over stdio")
	user := flag.String("user", "", "ACL user for the MCP session")
	showVersion := flag.Bool("version", false, "Show version and exit")
	debug := flag.Bool("debug", false, "Enable debug logging to stderr")
	flag.Var(&disks, "disk", "Disk specification NAME=SOURCE (repeatable)")
	flag.Parse()

	if *showVersion {
		fmt.Fprintln(os.Stdout, contentfs.GetVersionInfo())
		os.Exit(0)
	}

	if err := run(*configFile, disks, *httpAddr, *mcp, *user, *debug); err != nil {
		slog.Error("contentfs-server failed", "error", err)
		os.Exit(1)
	}
}

func run(configFile string, disks []string, httpAddr string, mcp bool, user string, debug bool) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	for _, spec := range disks {
		name, source, err := config.ParseDiskFlag(spec)
		if err != nil {
			return err
		}
		cfg.Disks[name] = source
	}
	if httpAddr != "" {
		cfg.HTTP.Addr = httpAddr
	}

	level, err := cfg.Level()
	if err != nil {
		return err
	}
	if debug {
		level = slog.LevelDebug
	}
	// stdout carries MCP traffic, so logs always go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app, err := contentfs.Configure(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	slog.Info("contentfs-server: configured", "disks", app.Disks.Names(), "acl", app.Lister.ACLEnabled())

	g, ctx := errgroup.WithContext(ctx)
	if !mcp || httpAddr != "" {
		srv := httpapi.New(app.Lister, app.Disks)
		g.Go(func() error { return srv.ListenAndServe(ctx, cfg.HTTP.Addr) })
	}
	if mcp {
		srv := mcpserver.New(app.Lister, app.Disks, user)
		g.Go(func() error {
			// stdin closing ends the session and the whole process.
			defer cancel()
			return srv.Run(ctx, os.Stdin, os.Stdout)
		})
	}
	return g.Wait()
}
